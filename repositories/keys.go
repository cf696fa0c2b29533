package repositories

import (
	"chat-sync/domain"
	"chat-sync/errors"
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key layout
//
//	chat:{room}                       -> domain.Chat
//	member:{room}:{identity}          -> empty, participant check
//	identity_chat:{identity}:{room}   -> empty, rooms of an identity
//	msg:{room}:{timestamp}:{message}  -> domain.Message
//	msgid:{message}                   -> msg key
//	user:{identity}:last_seen         -> RFC3339Nano
const maxConflictRetries = 10

func chatKey(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("chat:%s", room))
}

func memberKey(room domain.RoomID, identity domain.IdentityID) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", room, identity))
}

func identityChatPrefix(identity domain.IdentityID) string {
	return fmt.Sprintf("identity_chat:%s:", identity)
}

func identityChatKey(identity domain.IdentityID, room domain.RoomID) []byte {
	return []byte(identityChatPrefix(identity) + string(room))
}

func messagePrefix(room domain.RoomID) string {
	return fmt.Sprintf("msg:%s:", room)
}

// messageKey uses a 19-digit zero padded timestamp so that lexicographical order
// is chronological, and the message id to keep two messages of the same
// nanosecond apart.
func messageKey(msg domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix(msg.RoomID), msg.CreatedAt.UnixNano(), msg.ID))
}

func messageIndexKey(id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("msgid:%s", id))
}

func lastSeenKey(identity domain.IdentityID) []byte {
	return []byte(fmt.Sprintf("user:%s:last_seen", identity))
}

// update runs fn in a read-write transaction and retries on write conflicts.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = db.Update(fn)
		if !stderrors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// storeFailure keeps domain rejections as they are and wraps everything else
// as a store write failure.
func storeFailure(err error) error {
	if err == nil || errors.IsRejection(err) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrStoreWriteFailed, err)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
