package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// SessionRegistry owns the table of live connections per identity.
// The table is only touched by Run; callers hand it closures and wait.
// A restart of Run keeps the table since it lives in the struct.
type SessionRegistry struct {
	log        *slog.Logger
	ops        chan func()
	identities map[domain.IdentityID]map[domain.ConnectionID]contract.Connection
	byConn     map[domain.ConnectionID]domain.IdentityID
	deliverer  contract.Deliverer
	presence   contract.PresenceStore
	now        func() time.Time

	connections   atomic.Int64
	identityCount atomic.Int64
	stopped       chan struct{}
	stopOnce      sync.Once
}

func NewSessionRegistry(log *slog.Logger, deliverer contract.Deliverer, presence contract.PresenceStore, now func() time.Time) *SessionRegistry {
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{
		log:        log,
		ops:        make(chan func()),
		identities: make(map[domain.IdentityID]map[domain.ConnectionID]contract.Connection),
		byConn:     make(map[domain.ConnectionID]domain.IdentityID),
		deliverer:  deliverer,
		presence:   presence,
		now:        now,
		stopped:    make(chan struct{}),
	}
}

func (r *SessionRegistry) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.stopOnce.Do(func() { close(r.stopped) })
			r.log.Debug("Stopping session registry")
			return ctx.Err()
		case op := <-r.ops:
			op()
		}
	}
}

// call runs fn on the registry goroutine and waits for it.
func (r *SessionRegistry) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn()
	}
	select {
	case r.ops <- op:
	case <-r.stopped:
		return errors.ErrRegistryStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Register adds a live connection. The first connection of an identity makes it
// online for every other connected identity.
func (r *SessionRegistry) Register(ctx context.Context, conn contract.Connection) error {
	info := conn.Info()
	if info.Identity == "" {
		return errors.ErrUnauthenticatedConnection
	}
	return r.call(ctx, func() {
		conns, ok := r.identities[info.Identity]
		if !ok {
			conns = make(map[domain.ConnectionID]contract.Connection)
			r.identities[info.Identity] = conns
		}
		if _, exists := conns[info.ID]; exists {
			return
		}
		conns[info.ID] = conn
		r.byConn[info.ID] = info.Identity
		r.updateCounts()
		if len(conns) == 1 {
			r.log.Debug("Identity online", "identity", info.Identity)
			r.deliverer.Deliver(ctx, r.othersThan(info.Identity), event.PresenceOnline{Identity: info.Identity})
		}
	})
}

// Unregister removes a connection and reports whether it was registered.
// The last connection of an identity makes it offline and records its last-seen.
func (r *SessionRegistry) Unregister(ctx context.Context, id domain.ConnectionID) (bool, error) {
	var removed bool
	var offline *event.PresenceOffline
	err := r.call(ctx, func() {
		identity, ok := r.byConn[id]
		if !ok {
			return
		}
		removed = true
		delete(r.byConn, id)
		conns := r.identities[identity]
		delete(conns, id)
		if len(conns) == 0 {
			delete(r.identities, identity)
			offline = &event.PresenceOffline{Identity: identity, LastSeenAt: r.now().UTC()}
			r.log.Debug("Identity offline", "identity", identity)
			r.deliverer.Deliver(ctx, r.othersThan(identity), *offline)
		}
		r.updateCounts()
	})
	if err != nil {
		return false, err
	}
	if offline != nil && r.presence != nil {
		if err := r.presence.TouchLastSeen(ctx, offline.Identity, offline.LastSeenAt); err != nil {
			r.log.Warn("Failed to record last seen", "identity", offline.Identity, "error", err)
		}
	}
	return removed, nil
}

func (r *SessionRegistry) IsOnline(ctx context.Context, identity domain.IdentityID) (bool, error) {
	var online bool
	err := r.call(ctx, func() {
		online = len(r.identities[identity]) > 0
	})
	return online, err
}

// Presence tells whether identity is online, or when it was last seen.
func (r *SessionRegistry) Presence(ctx context.Context, identity domain.IdentityID) (domain.Presence, error) {
	online, err := r.IsOnline(ctx, identity)
	if err != nil {
		return domain.Presence{}, err
	}
	presence := domain.Presence{Identity: identity, Online: online}
	if online || r.presence == nil {
		return presence, nil
	}
	presence.LastSeenAt, err = r.presence.LastSeen(ctx, identity)
	return presence, err
}

// Snapshot lists the online identities, sorted.
func (r *SessionRegistry) Snapshot(ctx context.Context) ([]domain.IdentityID, error) {
	var identities []domain.IdentityID
	err := r.call(ctx, func() {
		identities = lo.Keys(r.identities)
	})
	sort.Slice(identities, func(i, j int) bool { return identities[i] < identities[j] })
	return identities, err
}

// Connections lists the live connections of one identity.
func (r *SessionRegistry) Connections(ctx context.Context, identity domain.IdentityID) ([]contract.Connection, error) {
	var conns []contract.Connection
	err := r.call(ctx, func() {
		conns = lo.Values(r.identities[identity])
	})
	return conns, err
}

// SendToIdentity delivers e to every live connection of identity.
func (r *SessionRegistry) SendToIdentity(ctx context.Context, identity domain.IdentityID, e event.ServerEvent) error {
	conns, err := r.Connections(ctx, identity)
	if err != nil {
		return err
	}
	r.deliverer.Deliver(ctx, conns, e)
	return nil
}

// Stats returns the number of live connections and online identities.
// It does not go through the registry goroutine.
func (r *SessionRegistry) Stats() (connections, identities int) {
	return int(r.connections.Load()), int(r.identityCount.Load())
}

func (r *SessionRegistry) updateCounts() {
	r.connections.Store(int64(len(r.byConn)))
	r.identityCount.Store(int64(len(r.identities)))
}

func (r *SessionRegistry) othersThan(identity domain.IdentityID) []contract.Connection {
	var others []contract.Connection
	for id, conns := range r.identities {
		if id == identity {
			continue
		}
		others = append(others, lo.Values(conns)...)
	}
	return others
}
