// Package domain contains core concepts of the chat system.
// This file defines Message records and the rules applied to their mutations.
package domain

import (
	"chat-sync/errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

type MessageID string

type MessageType string

const (
	TEXT  MessageType = "text"
	IMAGE MessageType = "image"
	FILE  MessageType = "file"
	EMOJI MessageType = "emoji"
)

const (
	MaxContentLength  = 1000
	DeletedContent    = "This message was deleted"
	DefaultEditWindow = 15 * time.Minute
)

// Reaction is unique per (message, identity).
type Reaction struct {
	Identity IdentityID `json:"identity"`
	Emoji    string     `json:"emoji"`
	At       time.Time  `json:"at"`
}

type Edition struct {
	IsEdited        bool       `json:"isEdited"`
	EditedAt        *time.Time `json:"editedAt,omitempty"`
	OriginalContent string     `json:"originalContent,omitempty"`
}

type Deletion struct {
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Message is the authoritative record returned by the store.
type Message struct {
	ID        MessageID   `json:"id"`
	RoomID    RoomID      `json:"roomId"`
	SenderID  IdentityID  `json:"senderId"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	ReplyTo   *MessageID  `json:"replyTo,omitempty"`
	Reactions []Reaction  `json:"reactions"`
	Edited    Edition     `json:"edited"`
	Deleted   Deletion    `json:"deleted"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// CheckEdit applies the edit policy: only the sender may edit,
// only while the message is younger than window, never after deletion.
func (m Message) CheckEdit(editor IdentityID, at time.Time, window time.Duration) error {
	if m.SenderID != editor {
		return fmt.Errorf("only the sender can edit message %s: %w", m.ID, errors.ErrAccessDenied)
	}
	if m.Deleted.IsDeleted {
		return fmt.Errorf("message %s is deleted: %w", m.ID, errors.ErrValidationFailed)
	}
	if at.Sub(m.CreatedAt) > window {
		return fmt.Errorf("message %s is older than %s: %w", m.ID, window, errors.ErrStaleEdit)
	}
	return nil
}

func (m Message) CheckDelete(deleter IdentityID) error {
	if m.SenderID != deleter {
		return fmt.Errorf("only the sender can delete message %s: %w", m.ID, errors.ErrAccessDenied)
	}
	if m.Deleted.IsDeleted {
		return fmt.Errorf("message %s is already deleted: %w", m.ID, errors.ErrValidationFailed)
	}
	return nil
}

// Edit replaces the content and keeps the content of the first version.
func (m *Message) Edit(content string, at time.Time) {
	if !m.Edited.IsEdited {
		m.Edited.OriginalContent = m.Content
	}
	m.Content = content
	m.Edited.IsEdited = true
	m.Edited.EditedAt = lo.ToPtr(at)
	m.UpdatedAt = at
}

// SoftDelete turns the message into a tombstone.
func (m *Message) SoftDelete(at time.Time) {
	m.Content = DeletedContent
	m.Reactions = nil
	m.Deleted = Deletion{IsDeleted: true, DeletedAt: lo.ToPtr(at)}
	m.UpdatedAt = at
}

// UpsertReaction replaces any previous reaction of the same identity.
func (m *Message) UpsertReaction(reaction Reaction) {
	m.Reactions = append(lo.Reject(m.Reactions, func(r Reaction, _ int) bool {
		return r.Identity == reaction.Identity
	}), reaction)
	m.UpdatedAt = reaction.At
}

// RemoveReaction withdraws the reaction of identity, if any.
func (m *Message) RemoveReaction(identity IdentityID, at time.Time) {
	m.Reactions = lo.Reject(m.Reactions, func(r Reaction, _ int) bool {
		return r.Identity == identity
	})
	m.UpdatedAt = at
}

// MessagePage is one page of a room history, newest first.
// NextCursor is nil once the history is exhausted.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor *string   `json:"nextCursor,omitempty"`
}
