package domain

import (
	"time"
)

// Commands below are validated mutations handed to the store.
// Each one is applied in a single atomic store call.
type PostMessageCommand struct {
	ID        MessageID
	Room      RoomID
	SenderID  IdentityID
	Content   string
	Type      MessageType
	ReplyTo   *MessageID
	CreatedAt time.Time
}

type EditMessageCommand struct {
	MessageID MessageID
	EditorID  IdentityID
	Content   string
	At        time.Time
	Window    time.Duration
}

type DeleteMessageCommand struct {
	MessageID MessageID
	DeleterID IdentityID
	At        time.Time
}

type ReactCommand struct {
	MessageID MessageID
	Identity  IdentityID
	Emoji     string
	At        time.Time
}

type GetMessagesCommand struct {
	Room   RoomID
	Cursor *string
	Limit  int
}
