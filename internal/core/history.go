package core

import "sync"

// ChannelAll is the public broadcast channel.
const ChannelAll = "all"

// DefaultHistoryLimit caps how many messages a channel retains.
const DefaultHistoryLimit = 200

// History is an in-memory, size-bounded message log keyed by channel.
// Channels are created on first append; once a log exceeds the limit the
// oldest entries are evicted.
type History struct {
	mu    sync.Mutex
	limit int
	logs  map[string][]Message
}

// NewHistory constructs an empty history store. A non-positive limit falls
// back to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit: limit,
		logs:  make(map[string][]Message),
	}
}

// Append stores msg at the tail of the channel log, then truncates the log
// to the most recent limit entries.
func (h *History) Append(channel string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	log := append(h.logs[channel], msg)
	if len(log) > h.limit {
		log = log[len(log)-h.limit:]
	}
	h.logs[channel] = log
}

// Read returns a snapshot of the channel log, oldest first. The returned
// slice is owned by the caller and never aliases internal storage, so it is
// safe to iterate while the store keeps mutating.
func (h *History) Read(channel string) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	log := h.logs[channel]
	out := make([]Message, len(log))
	copy(out, log)
	return out
}

// DMKey returns the canonical channel key for a direct conversation between
// two identities. The ids are sorted so both directions share one history.
func DMKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "dm:" + a + "|" + b
}
