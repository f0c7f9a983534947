package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Router interprets inbound client events, resolves senders and recipients
// through the registry, writes through to history and fans the resulting
// events out to connections. It owns no persistent state of its own.
type Router struct {
	reg  *Registry
	hist *History
	log  *zerolog.Logger
}

// NewRouter wires a router to its registry and history store.
func NewRouter(reg *Registry, hist *History, logger *zerolog.Logger) *Router {
	return &Router{reg: reg, hist: hist, log: logger}
}

// Connect registers a new live connection and returns its identity, reusing
// the identity already bound to the connection's source address if any.
func (rt *Router) Connect(conn *Client) Identity {
	ident := rt.reg.Connect(conn, conn.Addr)
	rt.log.Info().
		Str("conn_id", conn.ID).
		Str("identity_id", ident.ID).
		Str("addr", conn.Addr).
		Msg("connection registered")
	return ident
}

// Join assigns a display name to the connection's identity and announces the
// arrival: a system message and refreshed user list go to everyone, the final
// name and the public history go back to the requester.
func (rt *Router) Join(conn *Client, desired string) {
	id, ok := rt.reg.IdentityFor(conn)
	if !ok {
		return
	}
	name := rt.reg.SetDisplayName(id, desired)
	now := time.Now().UTC()

	rt.systemBroadcast(fmt.Sprintf("%s joined", name), now)
	rt.broadcastUserList()
	rt.trySend(conn, &Event{Kind: EventJoined, User: name, ID: id, TS: now})
	rt.trySend(conn, &Event{Kind: EventHistory, Channel: ChannelAll, Messages: rt.hist.Read(ChannelAll)})
}

// Message routes a chat message. to is either the public channel "all"
// (case-insensitive, also the default for an empty to) or a recipient
// display name, falling back to a raw identity id of an active identity.
// Unresolvable recipients are reported to the sender only.
func (rt *Router) Message(conn *Client, text, to string) {
	id, ok := rt.reg.IdentityFor(conn)
	if !ok {
		return
	}
	name := rt.reg.NameFor(id)
	if name == "" {
		rt.systemUnicast(conn, "join before sending messages")
		return
	}
	now := time.Now().UTC()

	if to == "" || strings.EqualFold(to, ChannelAll) {
		msg := Message{
			Kind:   MessageKindChat,
			From:   name,
			FromID: id,
			Text:   text,
			SentAt: now,
		}
		rt.hist.Append(ChannelAll, msg)
		rt.broadcast(&Event{Kind: EventMessage, Message: msg})
		return
	}

	rcpt, ok := rt.resolveTarget(to)
	if !ok {
		rt.systemUnicast(conn, fmt.Sprintf("user '%s' not found", to))
		return
	}
	msg := Message{
		Kind:    MessageKindChat,
		From:    name,
		FromID:  id,
		Text:    text,
		Private: true,
		ToID:    rcpt,
		ToUser:  rt.reg.NameFor(rcpt),
		SentAt:  now,
	}
	rt.hist.Append(DMKey(id, rcpt), msg)

	ev := &Event{Kind: EventMessage, Message: msg}
	for _, c := range rt.reg.ConnectionsFor(rcpt) {
		if c == conn {
			continue
		}
		rt.trySend(c, ev)
	}
	// The sender sees its own message echoed back.
	rt.trySend(conn, ev)
}

// Rename changes the display name of the connection's identity and announces
// the change to everyone.
func (rt *Router) Rename(conn *Client, desired string) {
	id, ok := rt.reg.IdentityFor(conn)
	if !ok {
		return
	}
	old := rt.reg.NameFor(id)
	name := rt.reg.SetDisplayName(id, desired)
	now := time.Now().UTC()

	rt.systemBroadcast(fmt.Sprintf("%s is now %s", old, name), now)
	rt.broadcastUserList()
	rt.trySend(conn, &Event{Kind: EventRenamed, Old: old, User: name, TS: now})
}

// History sends the requested channel log back to the requester. A channel
// other than "all" names a direct-message peer, as a display name or an
// identity id; the stored log is looked up under the canonical key for the
// requester/peer pair and echoed back under the identifier the requester
// used.
func (rt *Router) History(conn *Client, channel string) {
	id, ok := rt.reg.IdentityFor(conn)
	if !ok {
		return
	}
	if channel == ChannelAll {
		rt.trySend(conn, &Event{Kind: EventHistory, Channel: ChannelAll, Messages: rt.hist.Read(ChannelAll)})
		return
	}
	peer, ok := rt.resolveTarget(channel)
	if !ok {
		rt.systemUnicast(conn, fmt.Sprintf("user '%s' not found", channel))
		return
	}
	rt.trySend(conn, &Event{Kind: EventHistory, Channel: channel, Messages: rt.hist.Read(DMKey(id, peer))})
}

// Leave removes the connection from the registry, announcing the departure
// if this was the identity's last live connection.
func (rt *Router) Leave(conn *Client) {
	rt.Disconnect(conn)
}

// Disconnect is the single teardown path for both explicit leave events and
// transport-level disconnects. It is idempotent: a connection that was
// already removed is a no-op, so a racing leave and transport error announce
// the departure exactly once.
func (rt *Router) Disconnect(conn *Client) {
	id, ok := rt.reg.Disconnect(conn)
	if !ok {
		return
	}
	rt.log.Info().Str("conn_id", conn.ID).Str("identity_id", id).Msg("connection removed")
	if rt.reg.IsActive(id) {
		return
	}
	name := rt.reg.NameFor(id)
	if name == "" {
		// Never joined; nothing to announce.
		return
	}
	rt.systemBroadcast(fmt.Sprintf("%s left", name), time.Now().UTC())
	rt.broadcastUserList()
}

// SetAvatar updates the identity's avatar reference and pushes the refreshed
// user list to everyone. Used by the HTTP avatar surface.
func (rt *Router) SetAvatar(identityID, ref string) {
	rt.reg.SetAvatar(identityID, ref)
	rt.broadcastUserList()
}

// IdentityByAddr exposes the registry's sticky address binding to the HTTP
// avatar surface.
func (rt *Router) IdentityByAddr(addr string) (Identity, bool) {
	return rt.reg.IdentityByAddr(addr)
}

// resolveTarget interprets target as a display name first, then as a raw
// identity id; only active identities resolve.
func (rt *Router) resolveTarget(target string) (identityID string, ok bool) {
	if id, ok := rt.reg.ResolveByDisplayName(target); ok {
		return id, true
	}
	if rt.reg.IsActive(target) {
		return target, true
	}
	return "", false
}

// systemBroadcast persists a system message in the public channel and sends
// it to every live connection.
func (rt *Router) systemBroadcast(text string, at time.Time) {
	msg := systemMessage(text, at)
	rt.hist.Append(ChannelAll, msg)
	rt.broadcast(&Event{Kind: EventMessage, Message: msg})
}

// systemUnicast reports a resolution error to one connection as a system
// message. It is not persisted.
func (rt *Router) systemUnicast(conn *Client, text string) {
	rt.trySend(conn, &Event{Kind: EventMessage, Message: systemMessage(text, time.Now().UTC())})
}

func (rt *Router) broadcastUserList() {
	rt.broadcast(&Event{Kind: EventUserList, Users: rt.reg.ListActive()})
}

func (rt *Router) broadcast(ev *Event) {
	for _, conn := range rt.reg.Connections() {
		rt.trySend(conn, ev)
	}
}

// trySend delivers best-effort: a full event buffer means the peer is slow
// or gone, and the event is dropped rather than blocking the caller. The
// connection itself is only ever removed via Disconnect.
func (rt *Router) trySend(conn *Client, ev *Event) {
	select {
	case conn.Events <- ev:
	default:
		rt.log.Warn().Str("conn_id", conn.ID).Msg("dropping event for slow connection")
	}
}
