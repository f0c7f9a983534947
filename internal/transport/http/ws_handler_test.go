package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/parleychat/parley-server/internal/config"
	"github.com/parleychat/parley-server/internal/core"
	"github.com/parleychat/parley-server/internal/proto"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	registry := core.NewRegistry()
	history := core.NewHistory(0)
	router := core.NewRouter(registry, history, &logger)

	server := NewServer(router, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		HistoryLimit:      200,
		AvatarDir:         t.TempDir(),
		AvatarMaxBytes:    2 << 20,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// readFrame decodes the next frame into a generic map keyed by "type".
func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]any {
	t.Helper()

	var frame map[string]any
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// awaitFrame reads frames until one of the wanted type arrives.
func awaitFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()

	for i := 0; i < 20; i++ {
		frame := readFrame(t, ctx, conn)
		if frame["type"] == typ {
			return frame
		}
	}
	t.Fatalf("frame of type %q not received", typ)
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketJoinFlow(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeJoin, User: "alice"}); err != nil {
		t.Fatalf("send join: %v", err)
	}

	sys := readFrame(t, ctx, conn)
	if sys["type"] != proto.TypeMessage || sys["user"] != core.SystemUser || sys["text"] != "alice joined" {
		t.Fatalf("unexpected announcement frame: %v", sys)
	}

	list := readFrame(t, ctx, conn)
	if list["type"] != proto.TypeUserList {
		t.Fatalf("expected user_list, got %v", list)
	}
	users, _ := list["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("unexpected user list: %v", list)
	}

	joined := readFrame(t, ctx, conn)
	if joined["type"] != proto.TypeJoined || joined["user"] != "alice" {
		t.Fatalf("unexpected joined frame: %v", joined)
	}
	id, _ := joined["id"].(string)
	if len(id) < 8 {
		t.Fatalf("identity id too short: %q", id)
	}
	ts8601, _ := joined["ts"].(string)
	if _, err := time.Parse(time.RFC3339, ts8601); err != nil {
		t.Fatalf("ts is not ISO-8601: %q", ts8601)
	}

	hist := readFrame(t, ctx, conn)
	if hist["type"] != proto.TypeHistory || hist["channel"] != core.ChannelAll {
		t.Fatalf("unexpected history frame: %v", hist)
	}
}

func TestWebSocketPublicMessage(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeJoin, User: "alice"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	awaitFrame(t, ctx, conn, proto.TypeHistory)

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeMessage, Text: "hi there", To: "all"}); err != nil {
		t.Fatalf("send message: %v", err)
	}

	frame := awaitFrame(t, ctx, conn, proto.TypeMessage)
	if frame["text"] != "hi there" || frame["user"] != "alice" || frame["private"] != false {
		t.Fatalf("unexpected message frame: %v", frame)
	}
}

func TestWebSocketMalformedFrameIgnored(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts)
	if err := conn.Write(ctx, websocket.MessageText, []byte("this is not json")); err != nil {
		t.Fatalf("send garbage: %v", err)
	}
	if err := wsjson.Write(ctx, conn, map[string]any{"type": "no-such-event"}); err != nil {
		t.Fatalf("send unknown type: %v", err)
	}

	// The connection survives both frames and still processes a join.
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeJoin, User: "alice"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	joined := awaitFrame(t, ctx, conn, proto.TypeJoined)
	if joined["user"] != "alice" {
		t.Fatalf("unexpected joined frame: %v", joined)
	}
}

func TestWebSocketSameAddressSharesIdentity(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Both test connections originate from 127.0.0.1, like two tabs of one
	// browser, so they must resolve to the same identity.
	tab1 := dialWS(t, ctx, ts)
	if err := wsjson.Write(ctx, tab1, proto.Inbound{Type: proto.TypeJoin, User: "alice"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	first := awaitFrame(t, ctx, tab1, proto.TypeJoined)

	tab2 := dialWS(t, ctx, ts)
	if err := wsjson.Write(ctx, tab2, proto.Inbound{Type: proto.TypeJoin, User: "alice"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	list := awaitFrame(t, ctx, tab2, proto.TypeUserList)
	if users, _ := list["users"].([]any); len(users) != 1 {
		t.Fatalf("one identity with two connections must list once: %v", list)
	}
	second := awaitFrame(t, ctx, tab2, proto.TypeJoined)

	if first["id"] != second["id"] {
		t.Fatalf("expected one identity for one address, got %v and %v", first["id"], second["id"])
	}
	if second["user"] != "alice" {
		t.Fatalf("re-join of the same identity must not collide with itself: %v", second)
	}
}

func TestWebSocketLeaveClosesConnection(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeJoin, User: "alice"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	awaitFrame(t, ctx, conn, proto.TypeHistory)

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeLeave}); err != nil {
		t.Fatalf("send leave: %v", err)
	}

	// The server closes the socket after a leave; reads eventually fail with
	// a close frame instead of hanging.
	for {
		var frame json.RawMessage
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}
	}
}
