// Package ws exposes the sync layer over WebSocket and serves room history over HTTP.
package ws

import (
	"chat-sync/auth"
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/services"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxFrameBytes = 64 * 1024
	DefaultSendBuffer    = 256
	DefaultPongWait      = 60 * time.Second
	DefaultWriteWait     = 10 * time.Second
	DefaultMaxHistory    = 100
)

type Config struct {
	// AllowedOrigins empty means same host only
	AllowedOrigins []string
	MaxFrameBytes  int64
	SendBuffer     int
	PongWait       time.Duration
	PingInterval   time.Duration
	WriteWait      time.Duration
	RateLimit      rate.Limit
	RateBurst      int
	// MaxHistory caps the page size a history request may ask for
	MaxHistory int
}

func (c Config) withDefaults() Config {
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = DefaultSendBuffer
	}
	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.RateLimit <= 0 {
		c.RateLimit = rate.Inf
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = DefaultMaxHistory
	}
	return c
}

type Server struct {
	log      *slog.Logger
	engine   services.IEventEngine
	verifier contract.CredentialVerifier
	upgrader websocket.Upgrader
	cfg      Config

	mu    sync.Mutex
	conns map[domain.ConnectionID]*Connection
}

func NewServer(log *slog.Logger, engine services.IEventEngine, verifier contract.CredentialVerifier, cfg Config) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		log:      log,
		engine:   engine,
		verifier: verifier,
		cfg:      cfg,
		conns:    make(map[domain.ConnectionID]*Connection),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler routes the WebSocket endpoint, the history endpoint and the health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", auth.Authenticate(s.verifier, http.HandlerFunc(s.serveWS)))
	mux.Handle("GET /api/rooms/{roomID}/messages", auth.Authenticate(s.verifier, http.HandlerFunc(s.serveHistory)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
	return lo.Contains(s.cfg.AllowedOrigins, origin)
}

// serveWS runs behind Authenticate, so an invalid credential never reaches the upgrade.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "identity", identity, "error", err)
		return
	}
	info := domain.Connection{
		ID:        domain.ConnectionID(uuid.NewString()),
		Identity:  identity,
		CreatedAt: time.Now().UTC(),
	}
	conn := newConnection(s.log, info, socket, s.engine, s.cfg)
	go conn.writePump()

	ctx := r.Context()
	if err := s.engine.Connect(ctx, conn); err != nil {
		s.log.Error("Connect failed", "connection", info.ID, "error", err)
		s.engine.Disconnect(ctx, conn)
		conn.Close()
		return
	}
	s.track(conn)
	defer s.untrack(info.ID)
	s.log.Info("Connection opened", "connection", info.ID, "identity", identity, "remote", r.RemoteAddr)
	conn.readPump(ctx)
}

func (s *Server) serveHistory(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	cmd := domain.GetMessagesCommand{Room: domain.RoomID(r.PathValue("roomID"))}
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		cmd.Cursor = &cursor
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		cmd.Limit = min(limit, s.cfg.MaxHistory)
	}

	messages, next, err := s.engine.GetHistory(r.Context(), identity, cmd)
	if err != nil {
		s.log.Debug("History rejected", "identity", identity, "room", cmd.Room, "error", err)
		http.Error(w, http.StatusText(statusOf(err)), statusOf(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(domain.MessagePage{Messages: lo.Ternary(messages == nil, []domain.Message{}, messages), NextCursor: next})
}

func statusOf(err error) int {
	switch errors.ToCode(err) {
	case errors.CodeAccessDenied:
		return http.StatusForbidden
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeValidationFailed:
		return http.StatusBadRequest
	case errors.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) track(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.info.ID] = conn
}

func (s *Server) untrack(id domain.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

// CloseAll closes every live connection. http.Server.Shutdown does not wait
// for hijacked connections, so this runs first on shutdown.
func (s *Server) CloseAll() {
	s.mu.Lock()
	conns := lo.Values(s.conns)
	s.mu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}

// Open returns the number of live WebSocket connections.
func (s *Server) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
