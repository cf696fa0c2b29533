package workers

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// CommitFunc persists one mutation and returns the event to broadcast.
// It runs inside the room goroutine so that broadcasts leave in store order.
type CommitFunc func(ctx context.Context) (event.ServerEvent, error)

type roomOp struct {
	ctx   context.Context
	fn    func(ctx context.Context) error
	reply chan error
}

// RoomWorker owns the subscribers and the typing state of one room.
// Every operation is a closure executed by Run, one at a time.
type RoomWorker struct {
	room      domain.RoomID
	ops       chan roomOp
	members   map[domain.ConnectionID]contract.Connection
	typing    *TypingTracker
	deliverer contract.Deliverer
	log       *slog.Logger
	size      atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

func NewRoomWorker(
	room domain.RoomID,
	deliverer contract.Deliverer,
	typingTimeout time.Duration,
	now func() time.Time,
	log *slog.Logger,
) *RoomWorker {
	return &RoomWorker{
		room:      room,
		ops:       make(chan roomOp),
		members:   make(map[domain.ConnectionID]contract.Connection),
		typing:    NewTypingTracker(typingTimeout, now),
		deliverer: deliverer,
		log:       log.With("room", room),
		done:      make(chan struct{}),
	}
}

func (w *RoomWorker) Room() domain.RoomID { return w.room }

// Size is the number of subscribed connections, readable from any goroutine.
func (w *RoomWorker) Size() int { return int(w.size.Load()) }

func (w *RoomWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.closeOnce.Do(func() { close(w.done) })
			w.log.Debug("Stopping room worker")
			return ctx.Err()
		case op := <-w.ops:
			op.reply <- w.execute(op)
		}
	}
}

func (w *RoomWorker) execute(op roomOp) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Room operation panicked", "panic", r)
			err = errors.ErrWorkerPanic
		}
	}()
	w.pruneTyping(op.ctx)
	return op.fn(op.ctx)
}

// call hands fn to the room goroutine and waits for its result.
// The ops channel is unbuffered: once accepted, fn always runs to completion
// and its own result is returned, even if ctx is canceled meanwhile.
func (w *RoomWorker) call(ctx context.Context, fn func(ctx context.Context) error) error {
	op := roomOp{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case w.ops <- op:
	case <-w.done:
		return errors.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-op.reply
}

// Join adds conn and tells the other subscribers. Joining twice is a no-op.
func (w *RoomWorker) Join(ctx context.Context, conn contract.Connection) (bool, error) {
	var joined bool
	err := w.call(ctx, func(ctx context.Context) error {
		info := conn.Info()
		if _, ok := w.members[info.ID]; ok {
			return nil
		}
		w.members[info.ID] = conn
		w.size.Store(int64(len(w.members)))
		joined = true
		w.deliverer.Deliver(ctx, w.except(info.ID), event.MemberJoined{RoomID: w.room, Identity: info.Identity})
		return nil
	})
	return joined, err
}

// Leave removes the connection. When its identity has no other connection left
// in the room, its typing state is cleared as well.
func (w *RoomWorker) Leave(ctx context.Context, id domain.ConnectionID) (bool, error) {
	var left bool
	err := w.call(ctx, func(ctx context.Context) error {
		conn, ok := w.members[id]
		if !ok {
			return nil
		}
		delete(w.members, id)
		w.size.Store(int64(len(w.members)))
		left = true
		identity := conn.Info().Identity
		others := w.except(id)
		w.deliverer.Deliver(ctx, others, event.MemberLeft{RoomID: w.room, Identity: identity})
		if !w.hasIdentity(identity) && w.typing.Stop(identity) {
			w.deliverer.Deliver(ctx, others, event.TypingStopped{RoomID: w.room, Identity: identity})
		}
		return nil
	})
	return left, err
}

// Subscribers returns a snapshot of the subscribed connections.
func (w *RoomWorker) Subscribers(ctx context.Context) ([]contract.Connection, error) {
	var subscribers []contract.Connection
	err := w.call(ctx, func(context.Context) error {
		subscribers = lo.Values(w.members)
		return nil
	})
	return subscribers, err
}

// Broadcast delivers e to every subscriber.
func (w *RoomWorker) Broadcast(ctx context.Context, e event.ServerEvent) error {
	return w.call(ctx, func(ctx context.Context) error {
		w.deliverer.Deliver(ctx, lo.Values(w.members), e)
		return nil
	})
}

// Commit runs fn and broadcasts its event to every subscriber only if fn succeeded.
func (w *RoomWorker) Commit(ctx context.Context, fn CommitFunc) (event.ServerEvent, error) {
	var committed event.ServerEvent
	err := w.call(ctx, func(ctx context.Context) error {
		e, err := fn(ctx)
		if err != nil {
			return err
		}
		committed = e
		w.deliverer.Deliver(ctx, lo.Values(w.members), e)
		return nil
	})
	return committed, err
}

// CommitAsMember is Commit for an action that requires the connection to be subscribed.
func (w *RoomWorker) CommitAsMember(ctx context.Context, id domain.ConnectionID, fn CommitFunc) (event.ServerEvent, error) {
	return w.Commit(ctx, func(ctx context.Context) (event.ServerEvent, error) {
		if _, ok := w.members[id]; !ok {
			return nil, errors.ErrAccessDenied
		}
		return fn(ctx)
	})
}

// StartTyping refreshes the typing state of the connection's identity.
// typing_started is only sent when the identity was not already typing.
func (w *RoomWorker) StartTyping(ctx context.Context, conn contract.Connection) error {
	return w.call(ctx, func(ctx context.Context) error {
		info := conn.Info()
		if _, ok := w.members[info.ID]; !ok {
			return errors.ErrAccessDenied
		}
		if w.typing.Start(info.Identity) {
			w.deliverer.Deliver(ctx, w.exceptIdentity(info.Identity), event.TypingStarted{RoomID: w.room, Identity: info.Identity})
		}
		return nil
	})
}

// StopTyping is a no-op when the identity is not typing.
func (w *RoomWorker) StopTyping(ctx context.Context, conn contract.Connection) error {
	return w.call(ctx, func(ctx context.Context) error {
		identity := conn.Info().Identity
		if w.typing.Stop(identity) {
			w.deliverer.Deliver(ctx, w.exceptIdentity(identity), event.TypingStopped{RoomID: w.room, Identity: identity})
		}
		return nil
	})
}

func (w *RoomWorker) ActiveTypers(ctx context.Context) ([]domain.IdentityID, error) {
	var typers []domain.IdentityID
	err := w.call(ctx, func(context.Context) error {
		typers = w.typing.Active()
		return nil
	})
	return typers, err
}

func (w *RoomWorker) pruneTyping(ctx context.Context) {
	for _, identity := range w.typing.Prune() {
		w.deliverer.Deliver(ctx, w.exceptIdentity(identity), event.TypingStopped{RoomID: w.room, Identity: identity})
	}
}

func (w *RoomWorker) except(id domain.ConnectionID) []contract.Connection {
	return lo.Values(lo.OmitByKeys(w.members, []domain.ConnectionID{id}))
}

func (w *RoomWorker) exceptIdentity(identity domain.IdentityID) []contract.Connection {
	return lo.Values(lo.OmitBy(w.members, func(_ domain.ConnectionID, c contract.Connection) bool {
		return c.Info().Identity == identity
	}))
}

func (w *RoomWorker) hasIdentity(identity domain.IdentityID) bool {
	return lo.SomeBy(lo.Values(w.members), func(c contract.Connection) bool {
		return c.Info().Identity == identity
	})
}
