package core

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRouter() (*Router, *Registry, *History) {
	logger := zerolog.Nop()
	reg := NewRegistry()
	hist := NewHistory(0)
	return NewRouter(reg, hist, &logger), reg, hist
}

// connect registers a fresh connection from addr and drops the identity
// handed back; tests read it from events instead.
func connect(rt *Router, addr string) *Client {
	c := NewClient(addr+"-conn", addr)
	rt.Connect(c)
	return c
}

// mustEvent pops events until one of the wanted kind arrives.
func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent asserts the connection's queue is empty.
func noEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
