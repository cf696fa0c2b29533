// Package client keeps a local projection in sync with the server across
// reconnects: every joined room is re-joined and its history reloaded.
package client

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/projection"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Config struct {
	// ServerURL is the http(s) base URL of the server
	ServerURL       string
	Token           string
	HistoryLimit    int
	MaxPending      int
	TypingTimeout   time.Duration
	EventBuffer     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	MaxReconnecting time.Duration
}

type Client struct {
	log        *slog.Logger
	cfg        Config
	httpClient *http.Client
	state      *projection.State
	events     chan event.ServerEvent
	requests   atomic.Uint64
	reconnects atomic.Uint64

	mu    sync.Mutex
	conn  *websocket.Conn
	rooms map[domain.RoomID]struct{}
}

func New(log *slog.Logger, cfg Config) *Client {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}
	return &Client{
		log:        log,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		state:      projection.NewState(cfg.MaxPending, cfg.TypingTimeout),
		events:     make(chan event.ServerEvent, cfg.EventBuffer),
		rooms:      make(map[domain.RoomID]struct{}),
	}
}

// State is the read side of the client.
func (c *Client) State() *projection.State { return c.state }

// Events streams every server event after it was applied to the state.
// Events are dropped when nobody reads them.
func (c *Client) Events() <-chan event.ServerEvent { return c.events }

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Reconnects counts the successful connections after the first one.
func (c *Client) Reconnects() uint64 { return c.reconnects.Load() }

// Run connects and keeps the connection alive until ctx is done.
// An invalid credential stops it for good.
func (c *Client) Run(ctx context.Context) error {
	first := true
	for {
		opts := []backoff.RetryOption{
			backoff.WithBackOff(c.backOff()),
			backoff.WithNotify(func(err error, next time.Duration) {
				c.log.Warn("Connection failed, retrying", "error", err, "in", next)
			}),
		}
		if c.cfg.MaxReconnecting > 0 {
			opts = append(opts, backoff.WithMaxElapsedTime(c.cfg.MaxReconnecting))
		}
		conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) { return c.connect(ctx) }, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !first {
			c.reconnects.Add(1)
		}
		first = false

		err = c.session(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("Connection lost", "error", err)
	}
}

func (c *Client) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		b.MaxInterval = c.cfg.MaxBackoff
	}
	return b
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	u, err := c.wsURL()
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.Token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, backoff.Permanent(errors.ErrUnauthenticatedConnection)
		}
		return nil, err
	}

	c.mu.Lock()
	c.conn = conn
	rooms := lo.Keys(c.rooms)
	c.mu.Unlock()

	for _, roomID := range rooms {
		if _, err := c.write(event.JoinRoom{RoomID: roomID}); err != nil {
			_ = conn.Close()
			return nil, err
		}
		if err := c.reload(ctx, roomID); err != nil {
			c.log.Warn("Failed to reload history", "room", roomID, "error", err)
		}
	}
	c.log.Info("Connected", "server", c.cfg.ServerURL, "rooms", len(rooms))
	return conn, nil
}

// session reads until the connection fails or ctx is done.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		e, err := event.DecodeServerEvent(data)
		if err != nil {
			c.log.Debug("Skipping frame", "error", err)
			continue
		}
		_ = c.state.Consume(ctx, e)
		select {
		case c.events <- e:
		default:
		}
	}
}

// Join subscribes to a room and loads its latest page. The room is joined
// again after every reconnect until Leave.
func (c *Client) Join(ctx context.Context, roomID domain.RoomID) (string, error) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
	requestID, err := c.write(event.JoinRoom{RoomID: roomID})
	if err != nil {
		return "", err
	}
	return requestID, c.reload(ctx, roomID)
}

func (c *Client) Leave(roomID domain.RoomID) (string, error) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
	c.state.Forget(roomID)
	return c.write(event.LeaveRoom{RoomID: roomID})
}

func (c *Client) Rooms() []domain.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Keys(c.rooms)
}

func (c *Client) Send(roomID domain.RoomID, content string) (string, error) {
	return c.write(event.SendMessage{RoomID: roomID, Content: content})
}

func (c *Client) Reply(roomID domain.RoomID, replyTo domain.MessageID, content string) (string, error) {
	return c.write(event.SendMessage{RoomID: roomID, Content: content, ReplyTo: &replyTo})
}

func (c *Client) Edit(messageID domain.MessageID, content string) (string, error) {
	return c.write(event.EditMessage{MessageID: messageID, Content: content})
}

func (c *Client) Delete(messageID domain.MessageID) (string, error) {
	return c.write(event.DeleteMessage{MessageID: messageID})
}

func (c *Client) React(messageID domain.MessageID, emoji string) (string, error) {
	return c.write(event.React{MessageID: messageID, Emoji: emoji})
}

// Unreact withdraws the reaction of this identity on the message.
func (c *Client) Unreact(messageID domain.MessageID) (string, error) {
	return c.write(event.React{MessageID: messageID})
}

func (c *Client) Typing(roomID domain.RoomID, typing bool) (string, error) {
	if typing {
		return c.write(event.TypingStart{RoomID: roomID})
	}
	return c.write(event.TypingStop{RoomID: roomID})
}

// History fetches one page of a room, newest first.
func (c *Client) History(ctx context.Context, roomID domain.RoomID, cursor *string, limit int) (domain.MessagePage, error) {
	var page domain.MessagePage
	endpoint, err := url.JoinPath(c.cfg.ServerURL, "api", "rooms", string(roomID), "messages")
	if err != nil {
		return page, err
	}
	query := url.Values{}
	if cursor != nil {
		query.Set("cursor", *cursor)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return page, err
	}
	request.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	resp, err := c.httpClient.Do(request)
	if err != nil {
		return page, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return page, json.NewDecoder(resp.Body).Decode(&page)
	case http.StatusUnauthorized:
		return page, errors.ErrUnauthenticatedConnection
	case http.StatusForbidden:
		return page, fmt.Errorf("history of %s: %w", roomID, errors.ErrAccessDenied)
	default:
		return page, fmt.Errorf("history of %s: unexpected status %d", roomID, resp.StatusCode)
	}
}

func (c *Client) reload(ctx context.Context, roomID domain.RoomID) error {
	page, err := c.History(ctx, roomID, nil, c.cfg.HistoryLimit)
	if err != nil {
		return err
	}
	c.state.LoadHistory(roomID, page.Messages)
	return nil
}

func (c *Client) write(e event.ClientEvent) (string, error) {
	requestID := fmt.Sprintf("req-%d", c.requests.Add(1))
	frame, err := event.EncodeClientEvent(requestID, e)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return "", errors.ErrConnectionClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return "", err
	}
	return requestID, c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.cfg.ServerURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
