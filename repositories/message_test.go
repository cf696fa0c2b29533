package repositories

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, limit *int) (*Store, *badger.DB) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, slog.Default(), limit), db
}

func givenChat(t *testing.T, store *Store, id domain.RoomID, participants ...domain.IdentityID) {
	t.Helper()
	err := store.CreateChat(context.Background(), domain.Chat{
		ID:           id,
		Name:         string(id),
		Type:         domain.GROUP,
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
}

func post(t *testing.T, store *Store, room domain.RoomID, sender domain.IdentityID, content string, at time.Time) domain.Message {
	t.Helper()
	msg, err := store.WriteMessage(context.Background(), domain.PostMessageCommand{
		Room:      room,
		SenderID:  sender,
		Content:   content,
		CreatedAt: at,
	})
	require.NoError(t, err)
	return msg
}

func Test_Write_Message_Assigns_ID_And_Touches_Chat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := openStore(t, nil)
	givenChat(t, store, "r1", "alice", "bob")
	at := time.Now().UTC()

	msg := post(t, store, "r1", "alice", "hi", at)

	req.NotEmpty(msg.ID)
	req.Equal(domain.TEXT, msg.Type)
	req.Empty(msg.Reactions)

	stored, err := store.GetMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal(msg.Content, stored.Content)
	req.True(msg.CreatedAt.Equal(stored.CreatedAt))

	chat, err := store.GetChat(ctx, "r1")
	req.NoError(err)
	req.Equal(msg.ID, chat.LastMessageID)
	req.True(at.Equal(chat.LastActivity))
}

func Test_Write_Message_Rejects_Non_Participant(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := openStore(t, nil)
	givenChat(t, store, "r1", "alice", "bob")

	_, err := store.WriteMessage(ctx, domain.PostMessageCommand{Room: "r1", SenderID: "mallory", Content: "hi", CreatedAt: time.Now()})
	req.ErrorIs(err, errors.ErrAccessDenied)

	messages, cursor, err := store.GetMessages(ctx, domain.GetMessagesCommand{Room: "r1"})
	req.NoError(err)
	req.Empty(messages)
	req.Nil(cursor)
}

func Test_Write_Message_Reply_Must_Exist_In_Same_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := openStore(t, nil)
	givenChat(t, store, "r1", "alice", "bob")
	givenChat(t, store, "r2", "alice")
	other := post(t, store, "r2", "alice", "elsewhere", time.Now().UTC())

	_, err := store.WriteMessage(ctx, domain.PostMessageCommand{Room: "r1", SenderID: "alice", Content: "x", ReplyTo: lo.ToPtr(domain.MessageID("ghost")), CreatedAt: time.Now()})
	req.ErrorIs(err, errors.ErrValidationFailed)

	_, err = store.WriteMessage(ctx, domain.PostMessageCommand{Room: "r1", SenderID: "alice", Content: "x", ReplyTo: lo.ToPtr(other.ID), CreatedAt: time.Now()})
	req.ErrorIs(err, errors.ErrValidationFailed)

	parent := post(t, store, "r1", "bob", "question", time.Now().UTC())
	reply, err := store.WriteMessage(ctx, domain.PostMessageCommand{Room: "r1", SenderID: "alice", Content: "answer", ReplyTo: lo.ToPtr(parent.ID), CreatedAt: time.Now()})
	req.NoError(err)
	req.Equal(parent.ID, *reply.ReplyTo)
}

func Test_Record_Multiple_Message_And_Paginate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	limit := 2
	store, _ := openStore(t, &limit)
	givenChat(t, store, "r1", "alice", "bob", "clara")
	at := time.Now().UTC()
	first := post(t, store, "r1", "alice", "one", at)
	second := post(t, store, "r1", "bob", "two", at.Add(time.Minute))
	third := post(t, store, "r1", "clara", "three", at.Add(2*time.Minute))

	// When the newest page is read
	page, cursor, err := store.GetMessages(ctx, domain.GetMessagesCommand{Room: "r1"})
	req.NoError(err)
	req.NotNil(cursor)
	req.Equal([]domain.MessageID{third.ID, second.ID}, lo.Map(page, func(m domain.Message, _ int) domain.MessageID { return m.ID }))

	// Then the cursor gives the rest of the history
	page, cursor, err = store.GetMessages(ctx, domain.GetMessagesCommand{Room: "r1", Cursor: cursor})
	req.NoError(err)
	req.Nil(cursor)
	req.Len(page, 1)
	req.Equal(first.ID, page[0].ID)
}

func Test_Edit_Message(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t, nil)
	givenChat(t, store, "r1", "alice", "bob")
	now := time.Now().UTC()

	t.Run("sender within window", func(t *testing.T) {
		req := require.New(t)
		msg := post(t, store, "r1", "alice", "helo", now)
		edited, err := store.EditMessage(ctx, domain.EditMessageCommand{MessageID: msg.ID, EditorID: "alice", Content: "hello", At: now.Add(time.Minute), Window: domain.DefaultEditWindow})
		req.NoError(err)
		req.Equal("hello", edited.Content)
		req.Equal("helo", edited.Edited.OriginalContent)

		stored, err := store.GetMessage(ctx, msg.ID)
		req.NoError(err)
		req.Equal("hello", stored.Content)
		req.True(stored.Edited.IsEdited)
	})

	t.Run("stale edit leaves the record unchanged", func(t *testing.T) {
		req := require.New(t)
		msg := post(t, store, "r1", "alice", "old", now.Add(-time.Hour))
		_, err := store.EditMessage(ctx, domain.EditMessageCommand{MessageID: msg.ID, EditorID: "alice", Content: "new", At: now, Window: domain.DefaultEditWindow})
		req.ErrorIs(err, errors.ErrStaleEdit)

		stored, err := store.GetMessage(ctx, msg.ID)
		req.NoError(err)
		req.Equal("old", stored.Content)
	})

	t.Run("other identity", func(t *testing.T) {
		msg := post(t, store, "r1", "alice", "mine", now)
		_, err := store.EditMessage(ctx, domain.EditMessageCommand{MessageID: msg.ID, EditorID: "bob", Content: "yours", At: now, Window: domain.DefaultEditWindow})
		require.ErrorIs(t, err, errors.ErrAccessDenied)
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := store.EditMessage(ctx, domain.EditMessageCommand{MessageID: "ghost", EditorID: "alice", Content: "x", At: now, Window: domain.DefaultEditWindow})
		require.ErrorIs(t, err, errors.ErrMessageNotFound)
	})
}

func Test_Soft_Delete_Message(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := openStore(t, nil)
	givenChat(t, store, "r1", "alice", "bob")
	msg := post(t, store, "r1", "alice", "oops", time.Now().UTC())

	_, err := store.SoftDeleteMessage(ctx, domain.DeleteMessageCommand{MessageID: msg.ID, DeleterID: "bob", At: time.Now()})
	req.ErrorIs(err, errors.ErrAccessDenied)

	deleted, err := store.SoftDeleteMessage(ctx, domain.DeleteMessageCommand{MessageID: msg.ID, DeleterID: "alice", At: time.Now()})
	req.NoError(err)
	req.Equal(domain.DeletedContent, deleted.Content)

	// The record stays in the history as a tombstone
	page, _, err := store.GetMessages(ctx, domain.GetMessagesCommand{Room: "r1"})
	req.NoError(err)
	req.Len(page, 1)
	req.True(page[0].Deleted.IsDeleted)
	req.Equal(domain.DeletedContent, page[0].Content)
}

func Test_Upsert_Reaction_Keeps_One_Reaction_Per_Identity(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := openStore(t, nil)
	givenChat(t, store, "r1", "alice", "bob")
	msg := post(t, store, "r1", "alice", "party", time.Now().UTC())

	// When bob reacts twice with different emoji
	_, err := store.UpsertReaction(ctx, domain.ReactCommand{MessageID: msg.ID, Identity: "bob", Emoji: "👍", At: time.Now()})
	req.NoError(err)
	_, err = store.UpsertReaction(ctx, domain.ReactCommand{MessageID: msg.ID, Identity: "bob", Emoji: "🎉", At: time.Now()})
	req.NoError(err)

	// Then exactly one reaction matching the second call is stored
	stored, err := store.GetMessage(ctx, msg.ID)
	req.NoError(err)
	req.Len(stored.Reactions, 1)
	req.Equal(domain.IdentityID("bob"), stored.Reactions[0].Identity)
	req.Equal("🎉", stored.Reactions[0].Emoji)

	_, err = store.UpsertReaction(ctx, domain.ReactCommand{MessageID: msg.ID, Identity: "mallory", Emoji: "👎", At: time.Now()})
	req.ErrorIs(err, errors.ErrAccessDenied)
}

func Test_Empty_Emoji_Withdraws_Reaction(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := openStore(t, nil)
	givenChat(t, store, "r1", "alice", "bob")
	msg := post(t, store, "r1", "alice", "party", time.Now().UTC())
	_, err := store.UpsertReaction(ctx, domain.ReactCommand{MessageID: msg.ID, Identity: "bob", Emoji: "👍", At: time.Now()})
	req.NoError(err)
	_, err = store.UpsertReaction(ctx, domain.ReactCommand{MessageID: msg.ID, Identity: "alice", Emoji: "🎉", At: time.Now()})
	req.NoError(err)

	// When bob reacts with an empty emoji
	updated, err := store.UpsertReaction(ctx, domain.ReactCommand{MessageID: msg.ID, Identity: "bob", At: time.Now()})

	// Then only the reaction of alice is stored and returned
	req.NoError(err)
	req.Len(updated.Reactions, 1)
	stored, err := store.GetMessage(ctx, msg.ID)
	req.NoError(err)
	req.Len(stored.Reactions, 1)
	req.Equal(domain.IdentityID("alice"), stored.Reactions[0].Identity)
}

func Test_Concurrent_Reactions_Are_All_Persisted(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := openStore(t, nil)
	identities := []domain.IdentityID{"a", "b", "c", "d", "e"}
	givenChat(t, store, "r1", identities...)
	msg := post(t, store, "r1", "a", "vote", time.Now().UTC())

	var wg sync.WaitGroup
	errs := make(chan error, len(identities))
	for _, id := range identities {
		wg.Add(1)
		go func(id domain.IdentityID) {
			defer wg.Done()
			_, err := store.UpsertReaction(ctx, domain.ReactCommand{MessageID: msg.ID, Identity: id, Emoji: "✅", At: time.Now()})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	stored, err := store.GetMessage(ctx, msg.ID)
	req.NoError(err)
	req.Len(stored.Reactions, len(identities))
}

func Test_Chats_Of_And_Last_Seen(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := openStore(t, nil)
	givenChat(t, store, "r1", "alice", "bob")
	givenChat(t, store, "r2", "alice")

	rooms, err := store.ChatsOf(ctx, "alice")
	req.NoError(err)
	req.ElementsMatch([]domain.RoomID{"r1", "r2"}, rooms)

	ok, err := store.VerifyParticipant(ctx, "bob", "r2")
	req.NoError(err)
	req.False(ok)

	lastSeen, err := store.LastSeen(ctx, "bob")
	req.NoError(err)
	req.Nil(lastSeen)

	at := time.Now().UTC()
	req.NoError(store.TouchLastSeen(ctx, "bob", at))
	lastSeen, err = store.LastSeen(ctx, "bob")
	req.NoError(err)
	req.True(at.Equal(*lastSeen))

	req.ErrorIs(store.CreateChat(ctx, domain.Chat{ID: "a:b"}), errors.ErrValidationFailed)
}
