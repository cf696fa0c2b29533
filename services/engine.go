package services

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/observability"
	"chat-sync/runtime"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type IEventEngine interface {
	Connect(ctx context.Context, conn contract.Connection) error
	Disconnect(ctx context.Context, conn contract.Connection)
	Handle(ctx context.Context, conn contract.Connection, requestID string, evt event.ClientEvent) error
	Reject(ctx context.Context, conn contract.Connection, requestID string, err error)
	GetHistory(ctx context.Context, identity domain.IdentityID, cmd domain.GetMessagesCommand) ([]domain.Message, *string, error)
}

// EventEngine applies client events. Every event ends either accepted,
// persisted and broadcast, or rejected to its sender only.
type EventEngine struct {
	log        *slog.Logger
	store      contract.Store
	registry   *runtime.SessionRegistry
	directory  *runtime.RoomDirectory
	deliverer  contract.Deliverer
	monitoring *observability.MonitoringManager
	editWindow time.Duration
	autoJoin   bool
	now        func() time.Time
}

func NewEventEngine(
	log *slog.Logger,
	store contract.Store,
	registry *runtime.SessionRegistry,
	directory *runtime.RoomDirectory,
	deliverer contract.Deliverer,
	monitoring *observability.MonitoringManager,
	editWindow time.Duration,
	autoJoin bool,
) *EventEngine {
	if editWindow <= 0 {
		editWindow = domain.DefaultEditWindow
	}
	return &EventEngine{
		log:        log,
		store:      store,
		registry:   registry,
		directory:  directory,
		deliverer:  deliverer,
		monitoring: monitoring,
		editWindow: editWindow,
		autoJoin:   autoJoin,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for timestamps and the edit window.
func (e *EventEngine) WithClock(now func() time.Time) *EventEngine {
	e.now = now
	return e
}

// Connect registers the connection, sends it the online identities and
// subscribes it to its conversations when auto-join is on.
func (e *EventEngine) Connect(ctx context.Context, conn contract.Connection) error {
	info := conn.Info()
	if err := e.registry.Register(ctx, conn); err != nil {
		return err
	}
	online, err := e.registry.Snapshot(ctx)
	if err != nil {
		return err
	}
	e.deliverer.SendToConnection(ctx, conn, event.OnlineUsers{Identities: online})

	if !e.autoJoin {
		return nil
	}
	rooms, err := e.store.ChatsOf(ctx, info.Identity)
	if err != nil {
		e.log.Warn("Failed to list conversations", "identity", info.Identity, "error", err)
		return nil
	}
	for _, roomID := range rooms {
		if err := e.directory.Subscribe(ctx, conn, roomID); err != nil {
			e.log.Warn("Auto join failed", "connection", info.ID, "room", roomID, "error", err)
		}
	}
	return nil
}

// Disconnect runs the same cleanup for a clean close and a lost connection:
// every subscription is removed before the connection leaves the registry.
func (e *EventEngine) Disconnect(ctx context.Context, conn contract.Connection) {
	info := conn.Info()
	if err := e.directory.UnsubscribeAll(ctx, info.ID); err != nil {
		e.log.Warn("Failed to unsubscribe", "connection", info.ID, "error", err)
	}
	if _, err := e.registry.Unregister(ctx, info.ID); err != nil {
		e.log.Warn("Failed to unregister", "connection", info.ID, "error", err)
	}
}

// Handle applies evt for conn, then acks or rejects it to conn.
// Acks are only sent for events carrying a request id.
func (e *EventEngine) Handle(ctx context.Context, conn contract.Connection, requestID string, evt event.ClientEvent) error {
	ack, err := e.apply(ctx, conn, evt)
	if err != nil {
		e.Reject(ctx, conn, requestID, err)
		return err
	}
	if e.monitoring != nil {
		e.monitoring.IncrAccepted()
	}
	if requestID != "" {
		ack.RequestID = requestID
		e.deliverer.SendToConnection(ctx, conn, ack)
	}
	return nil
}

// Reject sends an error frame to conn only.
func (e *EventEngine) Reject(ctx context.Context, conn contract.Connection, requestID string, err error) {
	code := errors.ToCode(err)
	message := err.Error()
	switch code {
	case errors.CodeInternal:
		message = "internal error"
		e.log.Error("Event failed", "connection", conn.Info().ID, "error", err)
	case errors.CodeStoreWriteFailed:
		message = errors.ErrStoreWriteFailed.Error()
		e.log.Error("Store write failed", "connection", conn.Info().ID, "error", err)
	default:
		e.log.Debug("Event rejected", "connection", conn.Info().ID, "code", code, "error", err)
	}
	if e.monitoring != nil {
		e.monitoring.IncrRejected(code)
	}
	e.deliverer.SendToConnection(ctx, conn, event.Error{RequestID: requestID, Code: string(code), Message: message})
}

func (e *EventEngine) apply(ctx context.Context, conn contract.Connection, evt event.ClientEvent) (event.Ack, error) {
	info := conn.Info()
	switch evt := evt.(type) {
	case event.JoinRoom:
		return event.Ack{RoomID: evt.RoomID}, e.directory.Subscribe(ctx, conn, evt.RoomID)
	case event.LeaveRoom:
		return event.Ack{RoomID: evt.RoomID}, e.directory.Unsubscribe(ctx, info.ID, evt.RoomID)
	case event.SendMessage:
		return e.send(ctx, info, evt)
	case event.EditMessage:
		return e.edit(ctx, info, evt)
	case event.DeleteMessage:
		return e.delete(ctx, info, evt)
	case event.React:
		return e.react(ctx, info, evt)
	case event.TypingStart:
		return event.Ack{RoomID: evt.RoomID}, e.directory.StartTyping(ctx, conn, evt.RoomID)
	case event.TypingStop:
		return event.Ack{RoomID: evt.RoomID}, e.directory.StopTyping(ctx, conn, evt.RoomID)
	default:
		return event.Ack{}, fmt.Errorf("%w: %T", errors.ErrUnknownEventType, evt)
	}
}

func (e *EventEngine) send(ctx context.Context, conn domain.Connection, evt event.SendMessage) (event.Ack, error) {
	cmd := domain.PostMessageCommand{
		ID:        domain.MessageID(uuid.NewString()),
		Room:      evt.RoomID,
		SenderID:  conn.Identity,
		Content:   evt.Content,
		Type:      evt.MessageType(),
		ReplyTo:   evt.ReplyTo,
		CreatedAt: e.now().UTC(),
	}
	_, err := e.directory.CommitAsMember(ctx, conn.ID, evt.RoomID, func(ctx context.Context) (event.ServerEvent, error) {
		msg, err := e.store.WriteMessage(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return event.MessageCreated{Message: msg}, nil
	})
	return event.Ack{RoomID: evt.RoomID, MessageID: cmd.ID}, err
}

// edit checks the rules against the current record first, then lets the store
// apply them again atomically.
func (e *EventEngine) edit(ctx context.Context, conn domain.Connection, evt event.EditMessage) (event.Ack, error) {
	msg, err := e.store.GetMessage(ctx, evt.MessageID)
	if err != nil {
		return event.Ack{}, err
	}
	cmd := domain.EditMessageCommand{
		MessageID: evt.MessageID,
		EditorID:  conn.Identity,
		Content:   evt.Content,
		At:        e.now().UTC(),
		Window:    e.editWindow,
	}
	if err := msg.CheckEdit(cmd.EditorID, cmd.At, cmd.Window); err != nil {
		return event.Ack{}, err
	}
	_, err = e.directory.Commit(ctx, msg.RoomID, func(ctx context.Context) (event.ServerEvent, error) {
		edited, err := e.store.EditMessage(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return event.MessageEdited{Message: edited}, nil
	})
	return event.Ack{RoomID: msg.RoomID, MessageID: msg.ID}, err
}

func (e *EventEngine) delete(ctx context.Context, conn domain.Connection, evt event.DeleteMessage) (event.Ack, error) {
	msg, err := e.store.GetMessage(ctx, evt.MessageID)
	if err != nil {
		return event.Ack{}, err
	}
	if err := msg.CheckDelete(conn.Identity); err != nil {
		return event.Ack{}, err
	}
	cmd := domain.DeleteMessageCommand{MessageID: evt.MessageID, DeleterID: conn.Identity, At: e.now().UTC()}
	_, err = e.directory.Commit(ctx, msg.RoomID, func(ctx context.Context) (event.ServerEvent, error) {
		deleted, err := e.store.SoftDeleteMessage(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return event.MessageDeleted{Message: deleted}, nil
	})
	return event.Ack{RoomID: msg.RoomID, MessageID: msg.ID}, err
}

func (e *EventEngine) react(ctx context.Context, conn domain.Connection, evt event.React) (event.Ack, error) {
	msg, err := e.store.GetMessage(ctx, evt.MessageID)
	if err != nil {
		return event.Ack{}, err
	}
	cmd := domain.ReactCommand{MessageID: evt.MessageID, Identity: conn.Identity, Emoji: evt.Emoji, At: e.now().UTC()}
	_, err = e.directory.CommitAsMember(ctx, conn.ID, msg.RoomID, func(ctx context.Context) (event.ServerEvent, error) {
		updated, err := e.store.UpsertReaction(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return event.ReactionChanged{
			RoomID:    updated.RoomID,
			MessageID: updated.ID,
			Reactions: updated.Reactions,
			UpdatedAt: updated.UpdatedAt,
		}, nil
	})
	return event.Ack{RoomID: msg.RoomID, MessageID: msg.ID}, err
}

// GetHistory serves a page of a room's history to one of its participants.
func (e *EventEngine) GetHistory(ctx context.Context, identity domain.IdentityID, cmd domain.GetMessagesCommand) ([]domain.Message, *string, error) {
	ok, err := e.store.VerifyParticipant(ctx, identity, cmd.Room)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errors.ErrAccessDenied
	}
	return e.store.GetMessages(ctx, cmd)
}
