//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package contract

import (
	"chat-sync/domain"
	"context"
	"time"
)

type ParticipantVerifier interface {
	VerifyParticipant(ctx context.Context, identity domain.IdentityID, roomID domain.RoomID) (bool, error)
}

type PresenceStore interface {
	TouchLastSeen(ctx context.Context, identity domain.IdentityID, at time.Time) error
	LastSeen(ctx context.Context, identity domain.IdentityID) (*time.Time, error)
}

// Store is the system of record. Every mutation is a single atomic call and
// returns the persisted record, or a rejection from the errors package.
type Store interface {
	ParticipantVerifier
	PresenceStore
	WriteMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	GetMessage(ctx context.Context, id domain.MessageID) (domain.Message, error)
	EditMessage(ctx context.Context, cmd domain.EditMessageCommand) (domain.Message, error)
	SoftDeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) (domain.Message, error)
	UpsertReaction(ctx context.Context, cmd domain.ReactCommand) (domain.Message, error)
	GetMessages(ctx context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, *string, error)
	ChatsOf(ctx context.Context, identity domain.IdentityID) ([]domain.RoomID, error)
}

type CredentialVerifier interface {
	VerifyConnectionCredential(token string) (domain.IdentityID, error)
}
