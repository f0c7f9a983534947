package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage delivers a chat or system message.
	EventMessage EventKind = iota
	// EventUserList delivers the current set of active participants.
	EventUserList
	// EventJoined confirms the final display name and identity id to the
	// client that joined.
	EventJoined
	// EventRenamed confirms a rename to the client that requested it.
	EventRenamed
	// EventHistory delivers the stored log of one channel.
	EventHistory
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Message  Message    // for EventMessage
	Users    []Identity // for EventUserList
	Channel  string     // for EventHistory
	Messages []Message  // for EventHistory
	User     string     // for EventJoined / EventRenamed
	Old      string     // for EventRenamed
	ID       string     // for EventJoined
	TS       time.Time  // for EventJoined / EventRenamed
}
