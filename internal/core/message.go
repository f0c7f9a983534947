package core

import "time"

// MessageKind separates user chat from server-generated notices.
type MessageKind string

const (
	MessageKindChat   MessageKind = "chat"
	MessageKindSystem MessageKind = "system"
)

// SystemUser is the sender name attached to server-generated messages.
const SystemUser = "_system"

// Message is the domain model for a chat message. Stored records are
// immutable; history hands out copies only.
type Message struct {
	Kind    MessageKind
	From    string // sender display name
	FromID  string // sender identity id, empty for system messages
	Text    string
	Private bool
	ToID    string // recipient identity id, private messages only
	ToUser  string // recipient display name, private messages only
	SentAt  time.Time
}

func systemMessage(text string, at time.Time) Message {
	return Message{
		Kind:   MessageKindSystem,
		From:   SystemUser,
		Text:   text,
		SentAt: at,
	}
}
