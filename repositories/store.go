package repositories

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store gathers the repositories behind the single durable store interface
// consumed by the sync layer.
type Store struct {
	MessageRepository
	ChatRepository
	PresenceRepository
}

func NewStore(db *badger.DB, log *slog.Logger, limitMessages *int) *Store {
	return &Store{
		MessageRepository:  NewMessageRepository(db, log, limitMessages),
		ChatRepository:     NewChatRepository(db),
		PresenceRepository: NewPresenceRepository(db),
	}
}
