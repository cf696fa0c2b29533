package sink

import (
	"chat-sync/domain/event"
	"context"
	"log/slog"
)

// LogSink traces every delivered server event at debug level.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log.With("sink", "events")}
}

func (s LogSink) Consume(ctx context.Context, e event.ServerEvent) error {
	attrs := []any{"type", e.Type()}
	switch evt := e.(type) {
	case event.RoomScoped:
		attrs = append(attrs, "room", evt.Room())
	case event.PresenceOnline:
		attrs = append(attrs, "identity", evt.Identity)
	case event.PresenceOffline:
		attrs = append(attrs, "identity", evt.Identity, "last_seen", evt.LastSeenAt)
	case event.Error:
		attrs = append(attrs, "code", evt.Code, "request", evt.RequestID)
	}
	s.log.DebugContext(ctx, "Event delivered", attrs...)
	return nil
}
