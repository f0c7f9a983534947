// Package proto defines the JSON frames exchanged with clients. Frames are
// flat objects discriminated by a "type" field.
package proto

// Inbound event types accepted from clients. Frames with any other type are
// silently discarded.
const (
	TypeJoin    = "join"
	TypeMessage = "message"
	TypeRename  = "rename"
	TypeHistory = "history"
	TypeLeave   = "leave"
)

// Outbound event types.
const (
	TypeUserList = "user_list"
	TypeJoined   = "joined"
	TypeRenamed  = "renamed"
)

// Inbound is a single client frame; which fields are meaningful depends on
// Type.
type Inbound struct {
	Type    string `json:"type"`
	User    string `json:"user,omitempty"`
	Text    string `json:"text,omitempty"`
	To      string `json:"to,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// Message is a chat or system message on the wire. History replays use the
// same shape. TS is an ISO-8601 UTC timestamp.
type Message struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	User    string `json:"user"`
	UserID  string `json:"user_id,omitempty"`
	Text    string `json:"text"`
	Private bool   `json:"private"`
	To      string `json:"to,omitempty"`
	ToUser  string `json:"to_user,omitempty"`
	TS      string `json:"ts"`
}

// User is one entry of a user_list frame.
type User struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Avatar string `json:"avatar"`
}

// UserList carries the current set of active participants.
type UserList struct {
	Type  string `json:"type"`
	Users []User `json:"users"`
}

// Joined confirms the final display name and identity id after a join.
type Joined struct {
	Type string `json:"type"`
	User string `json:"user"`
	ID   string `json:"id"`
	TS   string `json:"ts"`
}

// Renamed confirms a rename to the client that requested it.
type Renamed struct {
	Type string `json:"type"`
	Old  string `json:"old"`
	User string `json:"user"`
	TS   string `json:"ts"`
}

// History delivers the stored log of one channel.
type History struct {
	Type     string    `json:"type"`
	Channel  string    `json:"channel"`
	Messages []Message `json:"messages"`
}
