package workers

import (
	"chat-sync/contract"
	"chat-sync/domain/event"
	"context"
	"fmt"
	"log/slog"
	"time"
)

const DefaultSinkTimeout = time.Second

// EventFanout copies every delivered server event to permanent in-process sinks.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. It is not on the delivery path to clients:
// it serves observability (counters, debug logs) only.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.ServerEvent
	sinks       []contract.EventSink
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, events <-chan event.ServerEvent, sinkTimeout time.Duration) *EventFanout {
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	return &EventFanout{log: log, events: events, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout hands evt to each sink with its own deadline.
// A sink that fails or times out is logged and skipped.
func (w *EventFanout) Fanout(ctx context.Context, evt event.ServerEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Debug("Sink dropped event", "type", evt.Type(), "sink", fmt.Sprintf("%T", sink), "error", err)
		}
		cancel()
	}
}
