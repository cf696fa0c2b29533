package client

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type joined struct {
	conn   int
	roomID domain.RoomID
}

// fakeServer upgrades every authorized request and reports the rooms joined
// on each connection.
type fakeServer struct {
	mu      sync.Mutex
	conns   []*websocket.Conn
	joins   chan joined
	history []domain.Message
}

func (f *fakeServer) handler() http.Handler {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		n := len(f.conns)
		f.mu.Unlock()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if evt, _, err := event.DecodeClientEvent(data); err == nil {
				if join, ok := evt.(event.JoinRoom); ok {
					f.joins <- joined{conn: n, roomID: join.RoomID}
				}
			}
		}
	})
	mux.HandleFunc("GET /api/rooms/{roomID}/messages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.MessagePage{Messages: f.history})
	})
	return mux
}

func (f *fakeServer) push(e event.ServerEvent) error {
	frame, err := event.EncodeServerEvent(e)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[len(f.conns)-1].WriteMessage(websocket.TextMessage, frame)
}

func (f *fakeServer) dropLast() {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.conns[len(f.conns)-1].UnderlyingConn().Close()
}

func nextJoin(t *testing.T, joins <-chan joined) joined {
	t.Helper()
	select {
	case j := <-joins:
		return j
	case <-time.After(3 * time.Second):
		t.Fatal("no join_room received")
		return joined{}
	}
}

func TestClient_RejoinsRoomsAfterReconnect(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	server := &fakeServer{
		joins:   make(chan joined, 10),
		history: []domain.Message{{ID: "m1", RoomID: "r1", SenderID: "bob", Content: "hello", CreatedAt: at, UpdatedAt: at}},
	}
	httpServer := httptest.NewServer(server.handler())
	defer httpServer.Close()

	c := New(logs.GetLoggerFromLevel(slog.LevelDebug), Config{
		ServerURL:      httpServer.URL,
		Token:          "good",
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Given a joined room with its history loaded
	req.Eventually(c.Connected, 2*time.Second, 10*time.Millisecond)
	_, err := c.Join(ctx, "r1")
	req.NoError(err)
	req.Equal(joined{conn: 1, roomID: "r1"}, nextJoin(t, server.joins))
	req.Len(c.State().Timeline("r1"), 1)

	// When the connection drops
	server.dropLast()

	// Then the client reconnects and joins r1 again
	req.Equal(joined{conn: 2, roomID: "r1"}, nextJoin(t, server.joins))
	req.Eventually(func() bool { return c.Reconnects() == 1 }, time.Second, 10*time.Millisecond)

	// And events on the new connection reach the state
	req.NoError(server.push(event.ReactionChanged{
		RoomID: "r1", MessageID: "m1",
		Reactions: []domain.Reaction{{Identity: "alice", Emoji: "👍", At: at.Add(time.Second)}},
		UpdatedAt: at.Add(time.Second),
	}))
	req.Eventually(func() bool {
		timeline := c.State().Timeline("r1")
		return len(timeline) == 1 && len(timeline[0].Reactions) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	req.NoError(<-done)
}

func TestClient_StopsOnInvalidCredential(t *testing.T) {
	server := &fakeServer{joins: make(chan joined, 1)}
	httpServer := httptest.NewServer(server.handler())
	defer httpServer.Close()

	c := New(logs.GetLoggerFromLevel(slog.LevelDebug), Config{ServerURL: httpServer.URL, Token: "bad"})

	err := c.Run(context.Background())

	require.ErrorIs(t, err, errors.ErrUnauthenticatedConnection)
}
