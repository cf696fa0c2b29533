package domain

import (
	"time"

	"github.com/samber/lo"
)

// RoomID identifies a conversation and its real-time broadcast group.
type RoomID string

type ChatType string

const (
	PRIVATE ChatType = "private"
	GROUP   ChatType = "group"
)

// Chat is the part of a conversation record the sync layer reads and updates.
type Chat struct {
	ID            RoomID       `json:"id"`
	Name          string       `json:"name"`
	Type          ChatType     `json:"type"`
	Participants  []IdentityID `json:"participants"`
	LastMessageID MessageID    `json:"lastMessageId,omitempty"`
	LastActivity  time.Time    `json:"lastActivity"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func (c Chat) HasParticipant(identity IdentityID) bool {
	return lo.Contains(c.Participants, identity)
}

// Touch records the last message of the chat.
func (c *Chat) Touch(messageID MessageID, at time.Time) {
	c.LastMessageID = messageID
	c.LastActivity = at
}
