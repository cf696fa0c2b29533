package event

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Frame is the envelope of every message exchanged on the wire.
type Frame struct {
	Type      Type            `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// EncodeServerEvent builds the wire frame of a server event.
func EncodeServerEvent(e ServerEvent) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	frame := Frame{Type: e.Type(), Payload: payload}
	switch evt := e.(type) {
	case Ack:
		frame.RequestID = evt.RequestID
	case Error:
		frame.RequestID = evt.RequestID
	}
	return json.Marshal(frame)
}

// DecodeServerEvent is used by clients to turn a frame into its variant.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch frame.Type {
	case MessageCreatedType:
		return decodePayload[MessageCreated](frame)
	case MessageEditedType:
		return decodePayload[MessageEdited](frame)
	case MessageDeletedType:
		return decodePayload[MessageDeleted](frame)
	case ReactionChangedType:
		return decodePayload[ReactionChanged](frame)
	case PresenceOnlineType:
		return decodePayload[PresenceOnline](frame)
	case PresenceOfflineType:
		return decodePayload[PresenceOffline](frame)
	case TypingStartedType:
		return decodePayload[TypingStarted](frame)
	case TypingStoppedType:
		return decodePayload[TypingStopped](frame)
	case MemberJoinedType:
		return decodePayload[MemberJoined](frame)
	case MemberLeftType:
		return decodePayload[MemberLeft](frame)
	case OnlineUsersType:
		return decodePayload[OnlineUsers](frame)
	case AckType:
		ack, err := decodePayload[Ack](frame)
		ack.RequestID = frame.RequestID
		return ack, err
	case ErrorType:
		e, err := decodePayload[Error](frame)
		e.RequestID = frame.RequestID
		return e, err
	default:
		return nil, fmt.Errorf("%q: %w", frame.Type, errors.ErrUnknownEventType)
	}
}

// EncodeClientEvent builds the wire frame of a client event.
func EncodeClientEvent(requestID string, e ClientEvent) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: e.Type(), RequestID: requestID, Payload: payload})
}

// DecodeClientEvent checks the frame at the boundary: the type must be known
// and the payload must satisfy its constraints. The request id is returned even
// when validation fails so that the rejection can reference it.
func DecodeClientEvent(data []byte) (ClientEvent, string, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, "", fmt.Errorf("malformed frame: %v: %w", err, errors.ErrValidationFailed)
	}
	var (
		evt ClientEvent
		err error
	)
	switch frame.Type {
	case JoinRoomType:
		evt, err = decodeValid[JoinRoom](frame)
	case LeaveRoomType:
		evt, err = decodeValid[LeaveRoom](frame)
	case SendMessageType:
		evt, err = decodeSendMessage(frame)
	case EditMessageType:
		evt, err = decodeEditMessage(frame)
	case DeleteMessageType:
		evt, err = decodeValid[DeleteMessage](frame)
	case ReactType:
		evt, err = decodeValid[React](frame)
	case TypingStartType:
		evt, err = decodeValid[TypingStart](frame)
	case TypingStopType:
		evt, err = decodeValid[TypingStop](frame)
	default:
		return nil, frame.RequestID, fmt.Errorf("%q: %w", frame.Type, errors.ErrUnknownEventType)
	}
	if err != nil {
		return nil, frame.RequestID, err
	}
	return evt, frame.RequestID, nil
}

func decodeSendMessage(frame Frame) (ClientEvent, error) {
	msg, err := decodeValid[SendMessage](frame)
	if err != nil {
		return nil, err
	}
	switch msg.MessageType() {
	case domain.TEXT, domain.EMOJI:
		if isBlank(msg.Content) {
			return nil, fmt.Errorf("empty %s message: %w", msg.MessageType(), errors.ErrValidationFailed)
		}
	}
	return msg, nil
}

func decodeEditMessage(frame Frame) (ClientEvent, error) {
	msg, err := decodeValid[EditMessage](frame)
	if err != nil {
		return nil, err
	}
	if isBlank(msg.Content) {
		return nil, fmt.Errorf("empty content: %w", errors.ErrValidationFailed)
	}
	return msg, nil
}

func decodePayload[T ServerEvent](frame Frame) (T, error) {
	var evt T
	if err := json.Unmarshal(frame.Payload, &evt); err != nil {
		return evt, fmt.Errorf("malformed %s payload: %w", frame.Type, err)
	}
	return evt, nil
}

func decodeValid[T ClientEvent](frame Frame) (T, error) {
	var evt T
	if len(frame.Payload) == 0 {
		return evt, fmt.Errorf("missing %s payload: %w", frame.Type, errors.ErrValidationFailed)
	}
	if err := json.Unmarshal(frame.Payload, &evt); err != nil {
		return evt, fmt.Errorf("malformed %s payload: %v: %w", frame.Type, err, errors.ErrValidationFailed)
	}
	if err := validate.Struct(evt); err != nil {
		return evt, fmt.Errorf("invalid %s payload: %v: %w", frame.Type, err, errors.ErrValidationFailed)
	}
	return evt, nil
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
