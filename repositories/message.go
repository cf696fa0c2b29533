package repositories

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const defaultLimitMessages = 50

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// WriteMessage persists a new message and touches its chat in one transaction.
// The sender must be a participant and a reply must target a message of the same room.
func (m MessageRepository) WriteMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, storeFailure(err)
	}
	msg := domain.Message{
		ID:        cmd.ID,
		RoomID:    cmd.Room,
		SenderID:  cmd.SenderID,
		Content:   cmd.Content,
		Type:      cmd.Type,
		ReplyTo:   cmd.ReplyTo,
		Reactions: []domain.Reaction{},
		CreatedAt: cmd.CreatedAt,
		UpdatedAt: cmd.CreatedAt,
	}
	if msg.ID == "" {
		msg.ID = domain.MessageID(uuid.NewString())
	}
	if msg.Type == "" {
		msg.Type = domain.TEXT
	}

	err := update(m.db, func(txn *badger.Txn) error {
		ok, err := exists(txn, memberKey(msg.RoomID, msg.SenderID))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not a participant of %s: %w", msg.SenderID, msg.RoomID, errors.ErrAccessDenied)
		}
		if msg.ReplyTo != nil {
			parent, err := loadMessage(txn, *msg.ReplyTo)
			if err != nil {
				if stderrors.Is(err, errors.ErrMessageNotFound) {
					return fmt.Errorf("reply to unknown message %s: %w", *msg.ReplyTo, errors.ErrValidationFailed)
				}
				return err
			}
			if parent.RoomID != msg.RoomID {
				return fmt.Errorf("reply to a message of another room: %w", errors.ErrValidationFailed)
			}
		}
		bytes, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		key := messageKey(msg)
		if err = txn.Set(key, bytes); err != nil {
			return err
		}
		if err = txn.Set(messageIndexKey(msg.ID), key); err != nil {
			return err
		}
		return touchChat(txn, msg)
	})
	if err != nil {
		return domain.Message{}, storeFailure(err)
	}
	return msg, nil
}

func (m MessageRepository) GetMessage(ctx context.Context, id domain.MessageID) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		msg, err = loadMessage(txn, id)
		return err
	})
	return msg, err
}

func (m MessageRepository) EditMessage(ctx context.Context, cmd domain.EditMessageCommand) (domain.Message, error) {
	return m.mutate(ctx, cmd.MessageID, func(_ *badger.Txn, msg *domain.Message) error {
		if err := msg.CheckEdit(cmd.EditorID, cmd.At, cmd.Window); err != nil {
			return err
		}
		msg.Edit(cmd.Content, cmd.At)
		return nil
	})
}

func (m MessageRepository) SoftDeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) (domain.Message, error) {
	return m.mutate(ctx, cmd.MessageID, func(_ *badger.Txn, msg *domain.Message) error {
		if err := msg.CheckDelete(cmd.DeleterID); err != nil {
			return err
		}
		msg.SoftDelete(cmd.At)
		return nil
	})
}

func (m MessageRepository) UpsertReaction(ctx context.Context, cmd domain.ReactCommand) (domain.Message, error) {
	return m.mutate(ctx, cmd.MessageID, func(txn *badger.Txn, msg *domain.Message) error {
		ok, err := exists(txn, memberKey(msg.RoomID, cmd.Identity))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not a participant of %s: %w", cmd.Identity, msg.RoomID, errors.ErrAccessDenied)
		}
		if msg.Deleted.IsDeleted {
			return fmt.Errorf("message %s is deleted: %w", msg.ID, errors.ErrValidationFailed)
		}
		if cmd.Emoji == "" {
			msg.RemoveReaction(cmd.Identity, cmd.At)
			return nil
		}
		msg.UpsertReaction(domain.Reaction{Identity: cmd.Identity, Emoji: cmd.Emoji, At: cmd.At})
		return nil
	})
}

// mutate loads a message, applies fn and writes it back under the same key.
// A rejection returned by fn aborts the transaction.
func (m MessageRepository) mutate(ctx context.Context, id domain.MessageID, fn func(txn *badger.Txn, msg *domain.Message) error) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, storeFailure(err)
	}
	var msg domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		var err error
		if msg, err = loadMessage(txn, id); err != nil {
			return err
		}
		if err = fn(txn, &msg); err != nil {
			return err
		}
		bytes, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return txn.Set(messageKey(msg), bytes)
	})
	if err != nil {
		return domain.Message{}, storeFailure(err)
	}
	return msg, nil
}

// GetMessages retrieves messages of a room, newest first, using a reverse prefix scan.
// Thanks to the padded timestamp in the key, messages are naturally sorted by time.
// The returned cursor is the key suffix of the last message read, nil once the
// history is exhausted.
func (m MessageRepository) GetMessages(ctx context.Context, cmd domain.GetMessagesCommand) ([]domain.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultLimitMessages
		if m.limitMessages != nil {
			limit = *m.limitMessages
		}
	}

	var messages []domain.Message
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := messagePrefix(cmd.Room)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cmd.Cursor {
		case nil:
			// Start after the newest possible key, then walk back in time
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cmd.Cursor)...)
		}

		it.Seek(seekKey)
		if cmd.Cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				return nil
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		// History exhausted
		lastKey = ""
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastKey == "" {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func loadMessage(txn *badger.Txn, id domain.MessageID) (domain.Message, error) {
	var msg domain.Message
	item, err := txn.Get(messageIndexKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return msg, fmt.Errorf("message %s: %w", id, errors.ErrMessageNotFound)
	}
	if err != nil {
		return msg, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return msg, err
	}
	item, err = txn.Get(key)
	if err != nil {
		return msg, err
	}
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &msg)
	})
	return msg, err
}

func touchChat(txn *badger.Txn, msg domain.Message) error {
	item, err := txn.Get(chatKey(msg.RoomID))
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("chat %s: %w", msg.RoomID, errors.ErrChatNotFound)
		}
		return err
	}
	var chat domain.Chat
	if err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &chat)
	}); err != nil {
		return err
	}
	chat.Touch(msg.ID, msg.CreatedAt)
	bytes, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	return txn.Set(chatKey(chat.ID), bytes)
}
