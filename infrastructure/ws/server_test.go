package ws

import (
	"chat-sync/auth"
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// fakeEngine acks every event and records the connection lifecycle.
type fakeEngine struct {
	mu           sync.Mutex
	connected    []domain.IdentityID
	disconnected chan domain.ConnectionID
	rejected     []errors.Code
	history      func(identity domain.IdentityID, cmd domain.GetMessagesCommand) ([]domain.Message, *string, error)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{disconnected: make(chan domain.ConnectionID, 10)}
}

func (f *fakeEngine) Connect(ctx context.Context, conn contract.Connection) error {
	f.mu.Lock()
	f.connected = append(f.connected, conn.Info().Identity)
	f.mu.Unlock()
	return conn.Consume(ctx, event.OnlineUsers{Identities: []domain.IdentityID{conn.Info().Identity}})
}

func (f *fakeEngine) Disconnect(_ context.Context, conn contract.Connection) {
	f.disconnected <- conn.Info().ID
}

func (f *fakeEngine) Handle(ctx context.Context, conn contract.Connection, requestID string, evt event.ClientEvent) error {
	return conn.Consume(ctx, event.Ack{RequestID: requestID, RoomID: evt.(event.JoinRoom).RoomID})
}

func (f *fakeEngine) Reject(ctx context.Context, conn contract.Connection, requestID string, err error) {
	f.mu.Lock()
	f.rejected = append(f.rejected, errors.ToCode(err))
	f.mu.Unlock()
	_ = conn.Consume(ctx, event.Error{RequestID: requestID, Code: string(errors.ToCode(err)), Message: err.Error()})
}

func (f *fakeEngine) GetHistory(_ context.Context, identity domain.IdentityID, cmd domain.GetMessagesCommand) ([]domain.Message, *string, error) {
	return f.history(identity, cmd)
}

func startServer(t *testing.T, engine *fakeEngine, cfg Config) (*httptest.Server, *auth.JWTVerifier, *Server) {
	t.Helper()
	verifier := auth.NewJWTVerifier("test-secret")
	server := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), engine, verifier, cfg)
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.CloseAll()
		httpServer.Close()
	})
	return httpServer, verifier, server
}

func dial(t *testing.T, httpServer *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial(u, header)
}

func readEvent(t *testing.T, conn *websocket.Conn) event.ServerEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	e, err := event.DecodeServerEvent(data)
	require.NoError(t, err)
	return e
}

func TestServer_RejectsMissingCredentialBeforeUpgrade(t *testing.T) {
	req := require.New(t)
	engine := newFakeEngine()
	httpServer, _, _ := startServer(t, engine, Config{})

	_, resp, err := dial(t, httpServer, "")

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Empty(engine.connected)
}

func TestServer_SessionLifecycle(t *testing.T) {
	req := require.New(t)
	engine := newFakeEngine()
	httpServer, verifier, server := startServer(t, engine, Config{})
	token, err := verifier.GenerateToken("alice", nil, time.Hour)
	req.NoError(err)

	// Given an authenticated connection
	conn, _, err := dial(t, httpServer, token)
	req.NoError(err)
	req.Equal(event.OnlineUsers{Identities: []domain.IdentityID{"alice"}}, readEvent(t, conn))

	// When it sends a valid frame then a malformed one
	frame, err := event.EncodeClientEvent("req-1", event.JoinRoom{RoomID: "r1"})
	req.NoError(err)
	req.NoError(conn.WriteMessage(websocket.TextMessage, frame))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_room","requestId":"req-2","payload":{}}`)))

	// Then the first is acked and the second rejected to the sender
	req.Equal(event.Ack{RequestID: "req-1", RoomID: "r1"}, readEvent(t, conn))
	rejection, ok := readEvent(t, conn).(event.Error)
	req.True(ok)
	req.Equal("req-2", rejection.RequestID)
	req.Equal(string(errors.CodeValidationFailed), rejection.Code)
	req.Equal(1, server.Open())

	// When the peer drops without a close handshake
	req.NoError(conn.UnderlyingConn().Close())

	// Then the disconnect path runs once
	select {
	case <-engine.disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect was not run")
	}
	req.Eventually(func() bool { return server.Open() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServer_RateLimit(t *testing.T) {
	req := require.New(t)
	engine := newFakeEngine()
	httpServer, verifier, _ := startServer(t, engine, Config{RateLimit: rate.Every(time.Hour), RateBurst: 1})
	token, err := verifier.GenerateToken("alice", nil, time.Hour)
	req.NoError(err)
	conn, _, err := dial(t, httpServer, token)
	req.NoError(err)
	readEvent(t, conn)

	frame, err := event.EncodeClientEvent("req-1", event.JoinRoom{RoomID: "r1"})
	req.NoError(err)
	req.NoError(conn.WriteMessage(websocket.TextMessage, frame))
	req.NoError(conn.WriteMessage(websocket.TextMessage, frame))

	req.IsType(event.Ack{}, readEvent(t, conn))
	rejection, ok := readEvent(t, conn).(event.Error)
	req.True(ok)
	req.Equal(string(errors.CodeRateLimited), rejection.Code)
}

func TestServer_History(t *testing.T) {
	req := require.New(t)
	engine := newFakeEngine()
	next := "cursor-2"
	var seen domain.GetMessagesCommand
	engine.history = func(identity domain.IdentityID, cmd domain.GetMessagesCommand) ([]domain.Message, *string, error) {
		if identity != "alice" {
			return nil, nil, errors.ErrAccessDenied
		}
		seen = cmd
		return []domain.Message{{ID: "m2", RoomID: "r1"}, {ID: "m1", RoomID: "r1"}}, &next, nil
	}
	httpServer, verifier, _ := startServer(t, engine, Config{})

	get := func(identity domain.IdentityID, limit int) *http.Response {
		token, err := verifier.GenerateToken(identity, nil, time.Hour)
		req.NoError(err)
		request, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/rooms/r1/messages?limit=%d", httpServer.URL, limit), nil)
		req.NoError(err)
		request.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(request)
		req.NoError(err)
		return resp
	}

	resp := get("alice", 2)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	var page domain.MessagePage
	req.NoError(json.NewDecoder(resp.Body).Decode(&page))
	req.Len(page.Messages, 2)
	req.Equal("cursor-2", *page.NextCursor)
	req.Equal(domain.GetMessagesCommand{Room: "r1", Limit: 2}, seen)

	denied := get("mallory", 2)
	defer denied.Body.Close()
	req.Equal(http.StatusForbidden, denied.StatusCode)

	// When a page larger than the cap is requested
	capped := get("alice", 100000)
	defer capped.Body.Close()

	// Then the store is asked for the capped size only
	req.Equal(http.StatusOK, capped.StatusCode)
	req.Equal(domain.GetMessagesCommand{Room: "r1", Limit: DefaultMaxHistory}, seen)
}

func TestServer_CheckOrigin(t *testing.T) {
	server := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), newFakeEngine(), auth.NewJWTVerifier("s"), Config{})
	restricted := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), newFakeEngine(), auth.NewJWTVerifier("s"),
		Config{AllowedOrigins: []string{"https://chat.example.com"}})

	request := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://localhost:8080/ws", nil)
		r.Header.Set("Origin", origin)
		return r
	}

	require.True(t, server.checkOrigin(request("http://localhost:8080")))
	require.False(t, server.checkOrigin(request("https://evil.example.com")))
	require.True(t, restricted.checkOrigin(request("https://chat.example.com")))
	require.False(t, restricted.checkOrigin(request("http://localhost:8080")))
}
