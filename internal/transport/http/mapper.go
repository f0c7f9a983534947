package http

import (
	"time"

	"github.com/parleychat/parley-server/internal/core"
	"github.com/parleychat/parley-server/internal/proto"
)

// outboundFromEvent converts a core event into its wire frame.
func outboundFromEvent(event *core.Event) any {
	switch event.Kind {
	case core.EventMessage:
		return messageToWire(event.Message)
	case core.EventUserList:
		users := make([]proto.User, 0, len(event.Users))
		for _, u := range event.Users {
			users = append(users, proto.User{
				ID:     u.ID,
				User:   u.DisplayName,
				Avatar: u.AvatarRef,
			})
		}
		return proto.UserList{Type: proto.TypeUserList, Users: users}
	case core.EventJoined:
		return proto.Joined{
			Type: proto.TypeJoined,
			User: event.User,
			ID:   event.ID,
			TS:   wireTime(event.TS),
		}
	case core.EventRenamed:
		return proto.Renamed{
			Type: proto.TypeRenamed,
			Old:  event.Old,
			User: event.User,
			TS:   wireTime(event.TS),
		}
	case core.EventHistory:
		messages := make([]proto.Message, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, messageToWire(msg))
		}
		return proto.History{
			Type:     proto.TypeHistory,
			Channel:  event.Channel,
			Messages: messages,
		}
	default:
		return proto.Message{Type: proto.TypeMessage}
	}
}

func messageToWire(msg core.Message) proto.Message {
	return proto.Message{
		Type:    proto.TypeMessage,
		Kind:    string(msg.Kind),
		User:    msg.From,
		UserID:  msg.FromID,
		Text:    msg.Text,
		Private: msg.Private,
		To:      msg.ToID,
		ToUser:  msg.ToUser,
		TS:      wireTime(msg.SentAt),
	}
}

// wireTime renders timestamps as ISO-8601 UTC strings.
func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
