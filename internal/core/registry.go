package core

import (
	"fmt"
	"strings"
	"sync"

	"github.com/parleychat/parley-server/internal/utils"
)

// DefaultName is substituted when a client joins with an empty desired name.
const DefaultName = "guest"

// maxNameLen caps display names, measured in runes.
const maxNameLen = 32

// Identity is a stable participant, independent of any single connection.
// It is minted the first time a source address is seen and lives for the
// rest of the process; it only goes inactive when its last connection drops.
type Identity struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// Registry maps live connections to identities and source addresses to
// identities, so a reconnecting client silently regains its previous name
// and avatar. All tables are guarded by one mutex because operations such
// as the uniqueness check in SetDisplayName must read and write them as a
// unit.
type Registry struct {
	mu         sync.Mutex
	identities map[string]*Identity // identity id -> record
	order      []string             // identity ids in creation order
	byAddr     map[string]string    // source address -> identity id
	conns      map[*Client]string   // live connection -> identity id
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		identities: make(map[string]*Identity),
		byAddr:     make(map[string]string),
		conns:      make(map[*Client]string),
	}
}

// Connect binds conn to the identity for addr, minting a fresh identity on
// first contact from that address. The address binding is sticky: repeated
// calls from the same address always resolve to the same identity.
func (r *Registry) Connect(conn *Client, addr string) Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byAddr[addr]
	if !ok {
		ident := &Identity{ID: utils.NewID()}
		r.identities[ident.ID] = ident
		r.order = append(r.order, ident.ID)
		r.byAddr[addr] = ident.ID
		id = ident.ID
	}
	r.conns[conn] = id
	return *r.identities[id]
}

// Disconnect removes the connection binding and reports the identity id it
// belonged to. ok is false when the connection was already removed, which
// makes the disconnect path idempotent. The identity itself is kept.
func (r *Registry) Disconnect(conn *Client) (identityID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.conns[conn]
	if !ok {
		return "", false
	}
	delete(r.conns, conn)
	return id, true
}

// SetDisplayName assigns the closest available variant of desired to the
// identity and returns it. The name is truncated to 32 runes; an empty name
// becomes DefaultName. Collisions against names held by other currently
// active identities are resolved with the smallest free #N suffix, N >= 2.
// The identity's own current name never counts as a collision, so renaming
// to the name you already hold is a no-op.
func (r *Registry) SetDisplayName(identityID, desired string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.identities[identityID]
	if !ok {
		return ""
	}

	base := strings.TrimSpace(desired)
	if base == "" {
		base = DefaultName
	}
	if runes := []rune(base); len(runes) > maxNameLen {
		base = string(runes[:maxNameLen])
	}

	taken := make(map[string]struct{})
	for _, id := range r.conns {
		if id == identityID {
			continue
		}
		if name := r.identities[id].DisplayName; name != "" {
			taken[name] = struct{}{}
		}
	}

	name := base
	for i := 2; ; i++ {
		if _, clash := taken[name]; !clash {
			break
		}
		name = fmt.Sprintf("%s#%d", base, i)
	}
	ident.DisplayName = name
	return name
}

// SetAvatar sets or clears the avatar reference for an identity.
func (r *Registry) SetAvatar(identityID, ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ident, ok := r.identities[identityID]; ok {
		ident.AvatarRef = ref
	}
}

// ListActive returns one entry per distinct identity with at least one live
// connection, in identity creation order.
func (r *Registry) ListActive() []Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make(map[string]struct{}, len(r.conns))
	for _, id := range r.conns {
		active[id] = struct{}{}
	}
	out := make([]Identity, 0, len(active))
	for _, id := range r.order {
		if _, ok := active[id]; ok {
			out = append(out, *r.identities[id])
		}
	}
	return out
}

// ResolveByDisplayName finds the active identity currently holding name.
// Inactive identities keep their stale names but are never resolution
// candidates; if several identities ever match, the earliest-created active
// one wins, which keeps the result deterministic.
func (r *Registry) ResolveByDisplayName(name string) (identityID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return "", false
	}
	active := make(map[string]struct{}, len(r.conns))
	for _, id := range r.conns {
		active[id] = struct{}{}
	}
	for _, id := range r.order {
		if _, live := active[id]; !live {
			continue
		}
		if r.identities[id].DisplayName == name {
			return id, true
		}
	}
	return "", false
}

// IsActive reports whether at least one live connection maps to the identity.
func (r *Registry) IsActive(identityID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.conns {
		if id == identityID {
			return true
		}
	}
	return false
}

// ConnectionsFor returns all live connections bound to the identity.
func (r *Registry) ConnectionsFor(identityID string) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Client
	for conn, id := range r.conns {
		if id == identityID {
			out = append(out, conn)
		}
	}
	return out
}

// Connections returns every live connection, for broadcasts.
func (r *Registry) Connections() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Client, 0, len(r.conns))
	for conn := range r.conns {
		out = append(out, conn)
	}
	return out
}

// IdentityFor reports the identity a live connection is bound to.
func (r *Registry) IdentityFor(conn *Client) (identityID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.conns[conn]
	return id, ok
}

// IdentityByAddr returns a copy of the identity bound to a source address.
func (r *Registry) IdentityByAddr(addr string) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byAddr[addr]
	if !ok {
		return Identity{}, false
	}
	return *r.identities[id], true
}

// NameFor returns the identity's current display name, or empty if the
// identity is unknown or has not joined yet.
func (r *Registry) NameFor(identityID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ident, ok := r.identities[identityID]; ok {
		return ident.DisplayName
	}
	return ""
}
