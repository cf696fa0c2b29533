package projection

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func message(id domain.MessageID, sender domain.IdentityID, at time.Time) domain.Message {
	return domain.Message{ID: id, RoomID: "r1", SenderID: sender, Content: "hi " + string(id), CreatedAt: at, UpdatedAt: at}
}

func ids(messages []domain.Message) []domain.MessageID {
	return lo.Map(messages, func(m domain.Message, _ int) domain.MessageID { return m.ID })
}

func TestTimeline_OrdersAndDeduplicates(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("r1", 0)

	// Given live events arriving before an overlapping history page
	timeline.Apply(event.MessageCreated{Message: message("m3", "bob", t0.Add(3*time.Second))})
	timeline.Apply(event.MessageCreated{Message: message("m2", "alice", t0.Add(time.Second))})
	timeline.Apply(event.MessageCreated{Message: message("m2", "alice", t0.Add(time.Second))})

	// When history is loaded newest first
	timeline.Load([]domain.Message{
		message("m3", "bob", t0.Add(3*time.Second)),
		message("m2b", "clara", t0.Add(time.Second)),
		message("m1", "alice", t0),
	})

	// Then every message appears once, by time then id
	req.Equal([]domain.MessageID{"m1", "m2", "m2b", "m3"}, ids(timeline.Messages()))
}

func TestTimeline_IgnoresStaleUpdates(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("r1", 0)
	original := message("m1", "alice", t0)
	timeline.Apply(event.MessageCreated{Message: original})

	edited := original
	edited.Edit("fixed", t0.Add(time.Minute))
	timeline.Apply(event.MessageEdited{Message: edited})

	// When an older copy comes back from a history page
	timeline.Load([]domain.Message{original})

	// Then the newer edit wins
	req.Equal("fixed", timeline.Messages()[0].Content)

	timeline.Apply(event.ReactionChanged{
		RoomID:    "r1",
		MessageID: "m1",
		Reactions: []domain.Reaction{{Identity: "bob", Emoji: "👍", At: t0.Add(30 * time.Second)}},
		UpdatedAt: t0.Add(30 * time.Second),
	})
	req.Empty(timeline.Messages()[0].Reactions)
}

func TestTimeline_QueuesUpdatesForUnknownMessages(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("r1", 0)
	reactions := []domain.Reaction{{Identity: "bob", Emoji: "🎉", At: t0.Add(time.Minute)}}

	// Given a reaction for a message the client has not seen yet
	timeline.Apply(event.ReactionChanged{RoomID: "r1", MessageID: "m1", Reactions: reactions, UpdatedAt: t0.Add(time.Minute)})
	req.Zero(timeline.Len())
	req.Equal(1, timeline.Pending())

	// When the message arrives with history
	timeline.Load([]domain.Message{message("m1", "alice", t0)})

	// Then the reaction is replayed onto it
	req.Zero(timeline.Pending())
	req.Equal(reactions, timeline.Messages()[0].Reactions)
}

func TestTimeline_PendingIsBounded(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("r1", 2)

	for _, id := range []domain.MessageID{"m1", "m2", "m3"} {
		deleted := message(id, "alice", t0)
		deleted.SoftDelete(t0.Add(time.Second))
		timeline.Apply(event.MessageDeleted{Message: deleted})
	}

	// The oldest update was dropped
	req.Equal(2, timeline.Pending())
	timeline.Load([]domain.Message{message("m1", "alice", t0), message("m3", "alice", t0)})
	messages := timeline.Messages()
	req.False(messages[0].Deleted.IsDeleted)
	req.True(messages[1].Deleted.IsDeleted)
}

func TestState_PresenceAndTyping(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	state := NewState(0, 0)

	req.NoError(state.Consume(ctx, event.OnlineUsers{Identities: []domain.IdentityID{"bob", "alice"}}))
	req.NoError(state.Consume(ctx, event.TypingStarted{RoomID: "r1", Identity: "bob"}))
	req.Equal([]domain.IdentityID{"alice", "bob"}, state.Online())
	req.Equal([]domain.IdentityID{"bob"}, state.Typing("r1"))

	// When bob goes offline
	req.NoError(state.Consume(ctx, event.PresenceOffline{Identity: "bob", LastSeenAt: t0}))

	// Then bob is offline with a last seen time and no longer typing
	req.Equal([]domain.IdentityID{"alice"}, state.Online())
	p, ok := state.Presence("bob")
	req.True(ok)
	req.False(p.Online)
	req.Equal(t0, *p.LastSeenAt)
	req.Empty(state.Typing("r1"))

	// And a new message routes to its room
	req.NoError(state.Consume(ctx, event.MessageCreated{Message: message("m1", "alice", t0)}))
	req.Len(state.Timeline("r1"), 1)
	req.Nil(state.Timeline("r2"))
}

func TestState_TypingExpiresLocally(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	now := t0
	state := NewState(0, 3*time.Second).WithClock(func() time.Time { return now })

	// Given bob started typing and the typing_stopped frame never arrives
	req.NoError(state.Consume(ctx, event.TypingStarted{RoomID: "r1", Identity: "bob"}))
	now = now.Add(2 * time.Second)
	req.Equal([]domain.IdentityID{"bob"}, state.Typing("r1"))

	// When the timeout elapses
	now = now.Add(2 * time.Second)

	// Then bob is no longer shown as typing
	req.Empty(state.Typing("r1"))

	// And a refreshed typing_started shows bob again
	req.NoError(state.Consume(ctx, event.TypingStarted{RoomID: "r1", Identity: "bob"}))
	req.Equal([]domain.IdentityID{"bob"}, state.Typing("r1"))
}
