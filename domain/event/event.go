// Package event defines the real-time protocol as closed sets of variants.
// Server events leave the sync layer, client events enter it.
package event

import (
	"chat-sync/domain"
	"time"
)

type Type string

const (
	MessageCreatedType  Type = "message_created"
	MessageEditedType   Type = "message_edited"
	MessageDeletedType  Type = "message_deleted"
	ReactionChangedType Type = "reaction_changed"
	PresenceOnlineType  Type = "presence_online"
	PresenceOfflineType Type = "presence_offline"
	TypingStartedType   Type = "typing_started"
	TypingStoppedType   Type = "typing_stopped"
	MemberJoinedType    Type = "member_joined"
	MemberLeftType      Type = "member_left"
	OnlineUsersType     Type = "online_users"
	AckType             Type = "ack"
	ErrorType           Type = "error"
)

// ServerEvent is implemented only by the variants of this file.
type ServerEvent interface {
	Type() Type
	serverEvent()
}

// RoomScoped is implemented by the server events addressed to a room.
type RoomScoped interface {
	Room() domain.RoomID
}

type MessageCreated struct {
	Message domain.Message `json:"message"`
}

type MessageEdited struct {
	Message domain.Message `json:"message"`
}

type MessageDeleted struct {
	Message domain.Message `json:"message"`
}

type ReactionChanged struct {
	RoomID    domain.RoomID     `json:"roomId"`
	MessageID domain.MessageID  `json:"messageId"`
	Reactions []domain.Reaction `json:"reactions"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type PresenceOnline struct {
	Identity domain.IdentityID `json:"identity"`
}

type PresenceOffline struct {
	Identity   domain.IdentityID `json:"identity"`
	LastSeenAt time.Time         `json:"lastSeenAt"`
}

type TypingStarted struct {
	RoomID   domain.RoomID     `json:"roomId"`
	Identity domain.IdentityID `json:"identity"`
}

type TypingStopped struct {
	RoomID   domain.RoomID     `json:"roomId"`
	Identity domain.IdentityID `json:"identity"`
}

type MemberJoined struct {
	RoomID   domain.RoomID     `json:"roomId"`
	Identity domain.IdentityID `json:"identity"`
}

type MemberLeft struct {
	RoomID   domain.RoomID     `json:"roomId"`
	Identity domain.IdentityID `json:"identity"`
}

type OnlineUsers struct {
	Identities []domain.IdentityID `json:"identities"`
}

// Ack confirms an accepted client event to its sender.
type Ack struct {
	RequestID string           `json:"-"`
	RoomID    domain.RoomID    `json:"roomId,omitempty"`
	MessageID domain.MessageID `json:"messageId,omitempty"`
}

// Error reports a rejected client event to its sender only.
type Error struct {
	RequestID string `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (MessageCreated) Type() Type  { return MessageCreatedType }
func (MessageEdited) Type() Type   { return MessageEditedType }
func (MessageDeleted) Type() Type  { return MessageDeletedType }
func (ReactionChanged) Type() Type { return ReactionChangedType }
func (PresenceOnline) Type() Type  { return PresenceOnlineType }
func (PresenceOffline) Type() Type { return PresenceOfflineType }
func (TypingStarted) Type() Type   { return TypingStartedType }
func (TypingStopped) Type() Type   { return TypingStoppedType }
func (MemberJoined) Type() Type    { return MemberJoinedType }
func (MemberLeft) Type() Type      { return MemberLeftType }
func (OnlineUsers) Type() Type     { return OnlineUsersType }
func (Ack) Type() Type             { return AckType }
func (Error) Type() Type           { return ErrorType }

func (MessageCreated) serverEvent()  {}
func (MessageEdited) serverEvent()   {}
func (MessageDeleted) serverEvent()  {}
func (ReactionChanged) serverEvent() {}
func (PresenceOnline) serverEvent()  {}
func (PresenceOffline) serverEvent() {}
func (TypingStarted) serverEvent()   {}
func (TypingStopped) serverEvent()   {}
func (MemberJoined) serverEvent()    {}
func (MemberLeft) serverEvent()      {}
func (OnlineUsers) serverEvent()     {}
func (Ack) serverEvent()             {}
func (Error) serverEvent()           {}

func (e MessageCreated) Room() domain.RoomID  { return e.Message.RoomID }
func (e MessageEdited) Room() domain.RoomID   { return e.Message.RoomID }
func (e MessageDeleted) Room() domain.RoomID  { return e.Message.RoomID }
func (e ReactionChanged) Room() domain.RoomID { return e.RoomID }
func (e TypingStarted) Room() domain.RoomID   { return e.RoomID }
func (e TypingStopped) Room() domain.RoomID   { return e.RoomID }
func (e MemberJoined) Room() domain.RoomID    { return e.RoomID }
func (e MemberLeft) Room() domain.RoomID      { return e.RoomID }
