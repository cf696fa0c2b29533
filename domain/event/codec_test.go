package event

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeClientEvent(t *testing.T) {
	t.Run("send message with default type", func(t *testing.T) {
		req := require.New(t)
		evt, requestID, err := DecodeClientEvent([]byte(`{"type":"send_message","requestId":"r-1","payload":{"roomId":"R1","content":"hi"}}`))
		req.NoError(err)
		req.Equal("r-1", requestID)
		msg, ok := evt.(SendMessage)
		req.True(ok)
		req.Equal(domain.RoomID("R1"), msg.RoomID)
		req.Equal(domain.TEXT, msg.MessageType())
	})

	t.Run("reply to", func(t *testing.T) {
		req := require.New(t)
		evt, _, err := DecodeClientEvent([]byte(`{"type":"send_message","payload":{"roomId":"R1","content":"yes","replyTo":"m0"}}`))
		req.NoError(err)
		req.Equal(domain.MessageID("m0"), *evt.(SendMessage).ReplyTo)
	})

	t.Run("image without caption", func(t *testing.T) {
		_, _, err := DecodeClientEvent([]byte(`{"type":"send_message","payload":{"roomId":"R1","type":"image"}}`))
		require.NoError(t, err)
	})

	invalid := []struct {
		name  string
		frame string
	}{
		{"not json", `{"type":`},
		{"missing payload", `{"type":"join_room"}`},
		{"missing room", `{"type":"join_room","payload":{}}`},
		{"blank text", `{"type":"send_message","payload":{"roomId":"R1","content":"   "}}`},
		{"unknown message type", `{"type":"send_message","payload":{"roomId":"R1","content":"x","type":"video"}}`},
		{"oversized content", `{"type":"send_message","payload":{"roomId":"R1","content":"` + strings.Repeat("a", domain.MaxContentLength+1) + `"}}`},
		{"edit without content", `{"type":"edit_message","payload":{"messageId":"m1","content":""}}`},
		{"react without message", `{"type":"react","payload":{"emoji":"x"}}`},
		{"oversized emoji", `{"type":"react","payload":{"messageId":"m1","emoji":"` + strings.Repeat("x", 33) + `"}}`},
		{"room id with separator", `{"type":"join_room","payload":{"roomId":"r1:x"}}`},
		{"wrong payload shape", `{"type":"typing_start","payload":{"roomId":42}}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeClientEvent([]byte(tt.frame))
			require.ErrorIs(t, err, errors.ErrValidationFailed)
		})
	}

	t.Run("unknown type keeps the request id", func(t *testing.T) {
		req := require.New(t)
		_, requestID, err := DecodeClientEvent([]byte(`{"type":"shout","requestId":"r-9","payload":{}}`))
		req.ErrorIs(err, errors.ErrUnknownEventType)
		req.Equal("r-9", requestID)
	})

	t.Run("react without emoji withdraws", func(t *testing.T) {
		req := require.New(t)
		evt, _, err := DecodeClientEvent([]byte(`{"type":"react","payload":{"messageId":"m1"}}`))
		req.NoError(err)
		req.Equal(React{MessageID: "m1"}, evt)
	})

	t.Run("content at the limit", func(t *testing.T) {
		content := strings.Repeat("é", domain.MaxContentLength)
		frame, err := EncodeClientEvent("", SendMessage{RoomID: "R1", Content: content})
		require.NoError(t, err)
		_, _, err = DecodeClientEvent(frame)
		require.NoError(t, err)
	})
}

func TestEncodeServerEvent(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := EncodeServerEvent(Error{RequestID: "r-2", Code: string(errors.CodeAccessDenied), Message: "access denied"})
	req.NoError(err)

	var frame Frame
	req.NoError(json.Unmarshal(data, &frame))
	req.Equal(ErrorType, frame.Type)
	req.Equal("r-2", frame.RequestID)
	req.JSONEq(`{"code":"access_denied","message":"access denied"}`, string(frame.Payload))

	// The client decodes the same variant back
	data, err = EncodeServerEvent(PresenceOffline{Identity: "alice", LastSeenAt: at})
	req.NoError(err)
	evt, err := DecodeServerEvent(data)
	req.NoError(err)
	req.Equal(PresenceOffline{Identity: "alice", LastSeenAt: at}, evt)
}

func TestRoomScopedEvents(t *testing.T) {
	req := require.New(t)
	msg := domain.Message{ID: "m1", RoomID: "R1"}
	for _, e := range []ServerEvent{
		MessageCreated{Message: msg},
		MessageEdited{Message: msg},
		MessageDeleted{Message: msg},
		ReactionChanged{RoomID: "R1"},
		TypingStarted{RoomID: "R1"},
		TypingStopped{RoomID: "R1"},
		MemberJoined{RoomID: "R1"},
		MemberLeft{RoomID: "R1"},
	} {
		scoped, ok := e.(RoomScoped)
		req.True(ok, e.Type())
		req.Equal(domain.RoomID("R1"), scoped.Room())
	}
	_, ok := ServerEvent(PresenceOnline{}).(RoomScoped)
	req.False(ok)
}
