package runtime

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"sync"
	"time"
)

// testConn mimics a transport connection: a bounded outbound queue,
// ErrSlowConsumer when full and ErrConnectionClosed once closed.
type testConn struct {
	info   domain.Connection
	out    chan event.ServerEvent
	mu     sync.Mutex
	closed bool
}

func newTestConn(id domain.ConnectionID, identity domain.IdentityID, capacity int) *testConn {
	return &testConn{
		info: domain.Connection{ID: id, Identity: identity, CreatedAt: time.Now()},
		out:  make(chan event.ServerEvent, capacity),
	}
}

func (c *testConn) Consume(_ context.Context, e event.ServerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrConnectionClosed
	}
	select {
	case c.out <- e:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

func (c *testConn) Info() domain.Connection { return c.info }

func (c *testConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *testConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// drain returns everything queued so far.
func (c *testConn) drain() []event.ServerEvent {
	var events []event.ServerEvent
	for {
		select {
		case e := <-c.out:
			events = append(events, e)
		default:
			return events
		}
	}
}

func typesOf(events []event.ServerEvent) []event.Type {
	types := make([]event.Type, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type())
	}
	return types
}

type manualClock struct {
	mu sync.Mutex
	at time.Time
}

func newManualClock(at time.Time) *manualClock {
	return &manualClock{at: at}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}
