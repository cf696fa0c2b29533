package event

import (
	"chat-sync/domain"
)

const (
	JoinRoomType      Type = "join_room"
	LeaveRoomType     Type = "leave_room"
	SendMessageType   Type = "send_message"
	EditMessageType   Type = "edit_message"
	DeleteMessageType Type = "delete_message"
	ReactType         Type = "react"
	TypingStartType   Type = "typing_start"
	TypingStopType    Type = "typing_stop"
)

// ClientEvent is implemented only by the variants of this file.
// A decoded ClientEvent has already passed payload validation.
type ClientEvent interface {
	Type() Type
	clientEvent()
}

type JoinRoom struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
}

type LeaveRoom struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
}

type SendMessage struct {
	RoomID  domain.RoomID      `json:"roomId" validate:"required,max=128,excludes=:"`
	Content string             `json:"content" validate:"max=1000"`
	Kind    domain.MessageType `json:"type" validate:"omitempty,oneof=text image file emoji"`
	ReplyTo *domain.MessageID  `json:"replyTo,omitempty" validate:"omitempty,max=128,excludes=:"`
}

type EditMessage struct {
	MessageID domain.MessageID `json:"messageId" validate:"required,max=128,excludes=:"`
	Content   string           `json:"content" validate:"required,max=1000"`
}

type DeleteMessage struct {
	MessageID domain.MessageID `json:"messageId" validate:"required,max=128,excludes=:"`
}

// React sets the sender's reaction. An empty emoji withdraws it.
type React struct {
	MessageID domain.MessageID `json:"messageId" validate:"required,max=128,excludes=:"`
	Emoji     string           `json:"emoji" validate:"max=32"`
}

type TypingStart struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
}

type TypingStop struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
}

func (JoinRoom) Type() Type      { return JoinRoomType }
func (LeaveRoom) Type() Type     { return LeaveRoomType }
func (SendMessage) Type() Type   { return SendMessageType }
func (EditMessage) Type() Type   { return EditMessageType }
func (DeleteMessage) Type() Type { return DeleteMessageType }
func (React) Type() Type         { return ReactType }
func (TypingStart) Type() Type   { return TypingStartType }
func (TypingStop) Type() Type    { return TypingStopType }

func (JoinRoom) clientEvent()      {}
func (LeaveRoom) clientEvent()     {}
func (SendMessage) clientEvent()   {}
func (EditMessage) clientEvent()   {}
func (DeleteMessage) clientEvent() {}
func (React) clientEvent()         {}
func (TypingStart) clientEvent()   {}
func (TypingStop) clientEvent()    {}

// MessageType returns the declared type, text when none was given.
func (s SendMessage) MessageType() domain.MessageType {
	if s.Kind == "" {
		return domain.TEXT
	}
	return s.Kind
}
