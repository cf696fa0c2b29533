package repositories

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ChatRepository holds conversations and their participants.
// Creating chats is an administrative concern: the sync layer only reads
// participants and touches the last activity.
type ChatRepository struct {
	db *badger.DB
}

func NewChatRepository(db *badger.DB) ChatRepository {
	return ChatRepository{db: db}
}

// CreateChat stores the chat and indexes each participant both ways.
func (c ChatRepository) CreateChat(ctx context.Context, chat domain.Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if chat.ID == "" || strings.Contains(string(chat.ID), ":") {
		return fmt.Errorf("invalid chat id %q: %w", chat.ID, errors.ErrValidationFailed)
	}
	bytes, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	return update(c.db, func(txn *badger.Txn) error {
		if err := txn.Set(chatKey(chat.ID), bytes); err != nil {
			return err
		}
		for _, p := range chat.Participants {
			if err := txn.Set(memberKey(chat.ID, p), nil); err != nil {
				return err
			}
			if err := txn.Set(identityChatKey(p, chat.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c ChatRepository) GetChat(ctx context.Context, id domain.RoomID) (domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return domain.Chat{}, err
	}
	var chat domain.Chat
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("chat %s: %w", id, errors.ErrChatNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &chat)
		})
	})
	return chat, err
}

func (c ChatRepository) VerifyParticipant(ctx context.Context, identity domain.IdentityID, roomID domain.RoomID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var ok bool
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		ok, err = exists(txn, memberKey(roomID, identity))
		return err
	})
	return ok, err
}

// ChatsOf lists the conversations an identity participates in.
func (c ChatRepository) ChatsOf(ctx context.Context, identity domain.IdentityID) ([]domain.RoomID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rooms []domain.RoomID
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(identityChatPrefix(identity))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rooms = append(rooms, domain.RoomID(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return rooms, err
}
