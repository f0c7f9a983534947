package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/parleychat/parley-server/internal/core"
	"github.com/parleychat/parley-server/internal/proto"
	"github.com/parleychat/parley-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to the router: one
// read loop parsing client frames, one write loop draining core events.
type WSHandler struct {
	router *core.Router
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(router *core.Router, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{router: router, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(utils.NewID(), sourceAddr(r))
	h.router.Connect(client)
	defer h.router.Disconnect(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop parses inbound frames and dispatches them to the router in
// arrival order. Malformed frames and unknown types are silently discarded;
// the connection stays open. A leave frame ends the loop cleanly.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Str("conn_id", client.ID).Msg("discarding malformed frame")
			continue
		}

		switch inbound.Type {
		case proto.TypeJoin:
			h.router.Join(client, inbound.User)
		case proto.TypeMessage:
			h.router.Message(client, inbound.Text, inbound.To)
		case proto.TypeRename:
			h.router.Rename(client, inbound.User)
		case proto.TypeHistory:
			h.router.History(client, inbound.Channel)
		case proto.TypeLeave:
			h.router.Leave(client)
			return nil
		default:
			h.log.Debug().Str("conn_id", client.ID).Str("type", inbound.Type).Msg("discarding unknown frame type")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sourceAddr extracts the client IP used for identity stickiness. Both the
// websocket and the avatar API key identities by it; forwarding headers are
// not consulted, so a forged header cannot select another identity.
func sourceAddr(r *stdhttp.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
