package repositories

import (
	"chat-sync/domain"
	"context"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// PresenceRepository persists the last time an identity went offline.
type PresenceRepository struct {
	db *badger.DB
}

func NewPresenceRepository(db *badger.DB) PresenceRepository {
	return PresenceRepository{db: db}
}

func (p PresenceRepository) TouchLastSeen(ctx context.Context, identity domain.IdentityID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return update(p.db, func(txn *badger.Txn) error {
		return txn.Set(lastSeenKey(identity), []byte(at.UTC().Format(time.RFC3339Nano)))
	})
}

// LastSeen returns nil when the identity was never seen going offline.
func (p PresenceRepository) LastSeen(ctx context.Context, identity domain.IdentityID) (*time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var lastSeen *time.Time
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastSeenKey(identity))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			at, err := time.Parse(time.RFC3339Nano, string(value))
			if err != nil {
				return err
			}
			lastSeen = lo.ToPtr(at)
			return nil
		})
	})
	return lastSeen, err
}
