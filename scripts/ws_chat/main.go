// Interactive terminal client for manual testing.
//
// Usage: go run ./scripts/ws_chat -addr ws://localhost:8080/ws -user alice
//
// Plain lines go to the public channel. Commands:
//
//	@name text    send a private message to name
//	/rename name  change display name
//	/history ch   fetch history for "all" or a user
//	/leave        leave and exit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/parleychat/parley-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "desired display name")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(v proto.Inbound) {
		if writeErr := wsjson.Write(ctx, conn, v); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	send(proto.Inbound{Type: proto.TypeJoin, User: *user})

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println("Type to chat, @name for private messages, /leave to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame map[string]any
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		typ, _ := frame["type"].(string)
		switch typ {
		case proto.TypeMessage:
			user, _ := frame["user"].(string)
			text, _ := frame["text"].(string)
			if private, _ := frame["private"].(bool); private {
				fmt.Printf("[private] %s: %s\n", user, text)
			} else {
				fmt.Printf("%s: %s\n", user, text)
			}
		case proto.TypeUserList:
			users, _ := frame["users"].([]any)
			names := make([]string, 0, len(users))
			for _, u := range users {
				if m, ok := u.(map[string]any); ok {
					if name, ok := m["user"].(string); ok {
						names = append(names, name)
					}
				}
			}
			fmt.Printf("online: %s\n", strings.Join(names, ", "))
		case proto.TypeJoined:
			user, _ := frame["user"].(string)
			fmt.Printf("joined as %s\n", user)
		case proto.TypeRenamed:
			old, _ := frame["old"].(string)
			user, _ := frame["user"].(string)
			fmt.Printf("%s is now %s\n", old, user)
		case proto.TypeHistory:
			channel, _ := frame["channel"].(string)
			messages, _ := frame["messages"].([]any)
			fmt.Printf("-- history %s (%d messages) --\n", channel, len(messages))
			for _, m := range messages {
				if mm, ok := m.(map[string]any); ok {
					user, _ := mm["user"].(string)
					text, _ := mm["text"].(string)
					fmt.Printf("  %s: %s\n", user, text)
				}
			}
		default:
			fmt.Printf("event=%s data=%v\n", typ, frame)
		}
	}
}

func writeLoop(ctx context.Context, send func(proto.Inbound)) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			switch {
			case text == "/leave":
				send(proto.Inbound{Type: proto.TypeLeave})
				return
			case strings.HasPrefix(text, "/rename "):
				send(proto.Inbound{Type: proto.TypeRename, User: strings.TrimSpace(strings.TrimPrefix(text, "/rename "))})
			case strings.HasPrefix(text, "/history "):
				send(proto.Inbound{Type: proto.TypeHistory, Channel: strings.TrimSpace(strings.TrimPrefix(text, "/history "))})
			case strings.HasPrefix(text, "@"):
				to, body, found := strings.Cut(text[1:], " ")
				if !found || body == "" {
					fmt.Println("usage: @name text")
					continue
				}
				send(proto.Inbound{Type: proto.TypeMessage, Text: body, To: to})
			default:
				send(proto.Inbound{Type: proto.TypeMessage, Text: text, To: "all"})
			}
		}
	}
}
