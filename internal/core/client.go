package core

// Client is one live connection as seen by the core layer. The transport
// owns the underlying socket; the core only pushes events into the buffered
// Events channel and never blocks on a slow peer.
type Client struct {
	ID     string
	Addr   string // source address, used for identity stickiness
	Events chan *Event
}

// NewClient constructs a connection handle with an initialized event channel.
func NewClient(id, addr string) *Client {
	return &Client{
		ID:     id,
		Addr:   addr,
		Events: make(chan *Event, 32),
	}
}
