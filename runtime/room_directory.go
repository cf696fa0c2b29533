package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/runtime/workers"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

type roomHandle struct {
	worker *workers.RoomWorker
	refs   int
	cancel context.CancelFunc
}

// RoomDirectory maps each active room to its RoomWorker.
// A room is started on first use and stopped once it has no subscriber
// and no operation in flight. The map is guarded by a short mutex; the room
// state itself belongs to the worker.
type RoomDirectory struct {
	mu            sync.Mutex
	log           *slog.Logger
	rooms         map[domain.RoomID]*roomHandle
	byConn        map[domain.ConnectionID]map[domain.RoomID]struct{}
	supervisor    contract.ISupervisor
	verifier      contract.ParticipantVerifier
	deliverer     contract.Deliverer
	typingTimeout time.Duration
	now           func() time.Time
	base          context.Context
	cancel        context.CancelFunc
	ready         chan struct{}
	readyOnce     sync.Once
}

func NewRoomDirectory(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	verifier contract.ParticipantVerifier,
	deliverer contract.Deliverer,
	typingTimeout time.Duration,
	now func() time.Time,
) *RoomDirectory {
	return &RoomDirectory{
		log:           log,
		rooms:         make(map[domain.RoomID]*roomHandle),
		byConn:        make(map[domain.ConnectionID]map[domain.RoomID]struct{}),
		supervisor:    supervisor,
		verifier:      verifier,
		deliverer:     deliverer,
		typingTimeout: typingTimeout,
		now:           now,
		ready:         make(chan struct{}),
	}
}

// Run keeps the room workers alive until ctx is done, then stops all of them.
// Rooms only exist while Run is in progress: their contexts derive from ctx.
func (d *RoomDirectory) Run(ctx context.Context) error {
	d.mu.Lock()
	d.base, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()
	d.readyOnce.Do(func() { close(d.ready) })

	<-ctx.Done()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancel()
	d.rooms = make(map[domain.RoomID]*roomHandle)
	d.log.Debug("Room directory stopped")
	return ctx.Err()
}

// Ready is closed once Run has started; rooms cannot be opened before.
func (d *RoomDirectory) Ready() <-chan struct{} { return d.ready }

// acquire returns the room handle, starting the worker if needed, and takes a reference.
func (d *RoomDirectory) acquire(roomID domain.RoomID) (*roomHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.base == nil || d.base.Err() != nil {
		return nil, errors.ErrRoomClosed
	}
	h, ok := d.rooms[roomID]
	if !ok {
		ctx, cancel := context.WithCancel(d.base)
		worker := workers.NewRoomWorker(roomID, d.deliverer, d.typingTimeout, d.now, d.log)
		if err := d.supervisor.Start(ctx, worker); err != nil {
			cancel()
			return nil, fmt.Errorf("room %s: %w", roomID, errors.ErrRoomClosed)
		}
		h = &roomHandle{worker: worker, cancel: cancel}
		d.rooms[roomID] = h
		d.log.Debug("Room started", "room", roomID)
	}
	h.refs++
	return h, nil
}

// lookup takes a reference on an existing room only.
func (d *RoomDirectory) lookup(roomID domain.RoomID) *roomHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	h.refs++
	return h
}

// release drops a reference and stops the room once it is idle and empty.
func (d *RoomDirectory) release(roomID domain.RoomID, h *roomHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h.refs--
	if h.refs > 0 || h.worker.Size() > 0 {
		return
	}
	if d.rooms[roomID] == h {
		delete(d.rooms, roomID)
	}
	h.cancel()
	d.log.Debug("Room stopped", "room", roomID)
}

// Subscribe adds conn to the room after checking that its identity participates
// in the conversation. On refusal nothing changes.
func (d *RoomDirectory) Subscribe(ctx context.Context, conn contract.Connection, roomID domain.RoomID) error {
	info := conn.Info()
	ok, err := d.verifier.VerifyParticipant(ctx, info.Identity, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrAccessDenied
	}
	h, err := d.acquire(roomID)
	if err != nil {
		return err
	}
	defer d.release(roomID, h)
	if _, err := h.worker.Join(ctx, conn); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms, ok := d.byConn[info.ID]
	if !ok {
		rooms = make(map[domain.RoomID]struct{})
		d.byConn[info.ID] = rooms
	}
	rooms[roomID] = struct{}{}
	return nil
}

// Unsubscribe is idempotent.
func (d *RoomDirectory) Unsubscribe(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) error {
	defer d.forget(connID, roomID)
	h := d.lookup(roomID)
	if h == nil {
		return nil
	}
	defer d.release(roomID, h)
	_, err := h.worker.Leave(ctx, connID)
	return err
}

// UnsubscribeAll removes the connection from every room it joined.
func (d *RoomDirectory) UnsubscribeAll(ctx context.Context, connID domain.ConnectionID) error {
	var errs []error
	for _, roomID := range d.Rooms(connID) {
		if err := d.Unsubscribe(ctx, connID, roomID); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (d *RoomDirectory) forget(connID domain.ConnectionID, roomID domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms, ok := d.byConn[connID]
	if !ok {
		return
	}
	delete(rooms, roomID)
	if len(rooms) == 0 {
		delete(d.byConn, connID)
	}
}

// Rooms lists the rooms a connection is subscribed to, sorted.
func (d *RoomDirectory) Rooms(connID domain.ConnectionID) []domain.RoomID {
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms := lo.Keys(d.byConn[connID])
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

func (d *RoomDirectory) IsSubscribed(connID domain.ConnectionID, roomID domain.RoomID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.byConn[connID][roomID]
	return ok
}

// Count is the number of active rooms.
func (d *RoomDirectory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

// SubscribersOf returns the connections subscribed to the room when the call is served.
func (d *RoomDirectory) SubscribersOf(ctx context.Context, roomID domain.RoomID) ([]contract.Connection, error) {
	h := d.lookup(roomID)
	if h == nil {
		return nil, nil
	}
	defer d.release(roomID, h)
	return h.worker.Subscribers(ctx)
}

// Broadcast delivers e to every subscriber of the room.
func (d *RoomDirectory) Broadcast(ctx context.Context, roomID domain.RoomID, e event.ServerEvent) error {
	h := d.lookup(roomID)
	if h == nil {
		return nil
	}
	defer d.release(roomID, h)
	return h.worker.Broadcast(ctx, e)
}

// Commit persists through fn and broadcasts its event in the room's order.
func (d *RoomDirectory) Commit(ctx context.Context, roomID domain.RoomID, fn workers.CommitFunc) (event.ServerEvent, error) {
	h, err := d.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer d.release(roomID, h)
	return h.worker.Commit(ctx, fn)
}

// CommitAsMember is Commit restricted to a connection subscribed to the room.
func (d *RoomDirectory) CommitAsMember(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID, fn workers.CommitFunc) (event.ServerEvent, error) {
	h := d.lookup(roomID)
	if h == nil {
		return nil, errors.ErrAccessDenied
	}
	defer d.release(roomID, h)
	return h.worker.CommitAsMember(ctx, connID, fn)
}

func (d *RoomDirectory) StartTyping(ctx context.Context, conn contract.Connection, roomID domain.RoomID) error {
	h := d.lookup(roomID)
	if h == nil {
		return errors.ErrAccessDenied
	}
	defer d.release(roomID, h)
	return h.worker.StartTyping(ctx, conn)
}

func (d *RoomDirectory) StopTyping(ctx context.Context, conn contract.Connection, roomID domain.RoomID) error {
	h := d.lookup(roomID)
	if h == nil {
		return nil
	}
	defer d.release(roomID, h)
	return h.worker.StopTyping(ctx, conn)
}

func (d *RoomDirectory) ActiveTypers(ctx context.Context, roomID domain.RoomID) ([]domain.IdentityID, error) {
	h := d.lookup(roomID)
	if h == nil {
		return nil, nil
	}
	defer d.release(roomID, h)
	return h.worker.ActiveTypers(ctx)
}
