package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/mocks"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func startRegistry(t *testing.T, presence contract.PresenceStore, now func() time.Time) *SessionRegistry {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewSessionRegistry(log, NewDispatcher(log, nil, nil, 0), presence, now)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = registry.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return registry
}

func TestSessionRegistry_PresenceTransitions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	presence := mocks.NewMockPresenceStore(ctrl)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	registry := startRegistry(t, presence, func() time.Time { return at })

	bob := newTestConn("c-b", "bob", 10)
	alice1 := newTestConn("c-a1", "alice", 10)
	alice2 := newTestConn("c-a2", "alice", 10)
	req.NoError(registry.Register(ctx, bob))

	// When alice connects from two devices
	req.NoError(registry.Register(ctx, alice1))
	req.NoError(registry.Register(ctx, alice2))

	// Then bob is told once that alice is online
	req.Equal([]event.ServerEvent{event.PresenceOnline{Identity: "alice"}}, bob.drain())
	req.Empty(alice1.drain())

	// When one device leaves, alice stays online
	removed, err := registry.Unregister(ctx, "c-a1")
	req.NoError(err)
	req.True(removed)
	req.Empty(bob.drain())

	// When the last device leaves
	presence.EXPECT().TouchLastSeen(gomock.Any(), domain.IdentityID("alice"), at).Return(nil).Times(1)
	_, err = registry.Unregister(ctx, "c-a2")
	req.NoError(err)

	// Then bob is told alice is offline with the last seen time
	req.Equal([]event.ServerEvent{event.PresenceOffline{Identity: "alice", LastSeenAt: at}}, bob.drain())

	// And a second unregister is a no-op
	removed, err = registry.Unregister(ctx, "c-a2")
	req.NoError(err)
	req.False(removed)

	presence.EXPECT().LastSeen(gomock.Any(), domain.IdentityID("alice")).Return(&at, nil).Times(1)
	p, err := registry.Presence(ctx, "alice")
	req.NoError(err)
	req.False(p.Online)
	req.Equal(at, *p.LastSeenAt)
}

func TestSessionRegistry_RejectsAnonymous(t *testing.T) {
	req := require.New(t)
	registry := startRegistry(t, nil, nil)

	err := registry.Register(context.Background(), newTestConn("c-x", "", 1))

	req.ErrorIs(err, errors.ErrUnauthenticatedConnection)
}

func TestSessionRegistry_IsOnlineMatchesLiveConnections(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	presence := mocks.NewMockPresenceStore(ctrl)
	presence.EXPECT().TouchLastSeen(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	registry := startRegistry(t, presence, nil)

	identities := []domain.IdentityID{"alice", "bob", "clara"}
	live := map[domain.ConnectionID]domain.IdentityID{}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		id := domain.ConnectionID(fmt.Sprintf("c-%d", rng.Intn(12)))
		if _, ok := live[id]; ok {
			_, err := registry.Unregister(ctx, id)
			req.NoError(err)
			delete(live, id)
		} else {
			identity := identities[rng.Intn(len(identities))]
			req.NoError(registry.Register(ctx, newTestConn(id, identity, 1000)))
			live[id] = identity
		}

		for _, identity := range identities {
			expected := false
			for _, owner := range live {
				if owner == identity {
					expected = true
				}
			}
			online, err := registry.IsOnline(ctx, identity)
			req.NoError(err)
			req.Equal(expected, online, "step %d identity %s", i, identity)
		}
		connections, _ := registry.Stats()
		req.Equal(len(live), connections)
	}
}

func TestSessionRegistry_SendToIdentityAndSnapshot(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := startRegistry(t, nil, nil)
	a1, a2, b := newTestConn("c-a1", "alice", 5), newTestConn("c-a2", "alice", 5), newTestConn("c-b", "bob", 5)
	req.NoError(registry.Register(ctx, a1))
	req.NoError(registry.Register(ctx, a2))
	req.NoError(registry.Register(ctx, b))
	a1.drain()
	a2.drain()
	b.drain()

	req.NoError(registry.SendToIdentity(ctx, "alice", event.OnlineUsers{}))

	req.Len(a1.drain(), 1)
	req.Len(a2.drain(), 1)
	req.Empty(b.drain())

	snapshot, err := registry.Snapshot(ctx)
	req.NoError(err)
	req.Equal([]domain.IdentityID{"alice", "bob"}, snapshot)
}
