package ws

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/services"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Connection is one WebSocket session. Outbound frames go through a bounded
// queue drained by writePump; inbound frames are applied one at a time by readPump.
type Connection struct {
	log       *slog.Logger
	info      domain.Connection
	conn      *websocket.Conn
	engine    services.IEventEngine
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
	cfg       Config
}

func newConnection(log *slog.Logger, info domain.Connection, conn *websocket.Conn, engine services.IEventEngine, cfg Config) *Connection {
	return &Connection{
		log:     log.With("connection", info.ID, "identity", info.Identity),
		info:    info,
		conn:    conn,
		engine:  engine,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		cfg:     cfg,
	}
}

func (c *Connection) Info() domain.Connection { return c.info }

// Consume never blocks: a full queue means the peer is too slow.
func (c *Connection) Consume(_ context.Context, e event.ServerEvent) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	frame, err := event.EncodeServerEvent(e)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

// Close stops writePump, which closes the socket and ends readPump.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) setupRead() {
	c.conn.SetReadLimit(c.cfg.MaxFrameBytes)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.log.Debug("Failed to set read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})
}

// readPump applies inbound frames until the socket fails, then runs the
// disconnect path. The same path serves clean closes and lost peers.
func (c *Connection) readPump(ctx context.Context) {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.WriteWait)
		defer cancel()
		c.engine.Disconnect(cleanup, c)
		c.log.Info("Connection closed")
	}()
	c.setupRead()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		evt, requestID, err := event.DecodeClientEvent(data)
		if err != nil {
			c.engine.Reject(ctx, c, requestID, err)
			continue
		}
		if !c.limiter.Allow() {
			c.engine.Reject(ctx, c, requestID, errors.ErrRateLimited)
			continue
		}
		// Rejections are already sent to the peer
		_ = c.engine.Handle(ctx, c, requestID, evt)
	}
}

func (c *Connection) logReadError(err error) {
	switch {
	case stderrors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "limit", c.cfg.MaxFrameBytes)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.log.Debug("Peer closed the connection")
	case stderrors.Is(err, io.EOF), websocket.IsUnexpectedCloseError(err):
		c.log.Info("Connection lost", "error", err)
	default:
		c.log.Debug("Read failed", "error", err)
	}
}

// writePump is the only writer of the socket.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Write failed", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
