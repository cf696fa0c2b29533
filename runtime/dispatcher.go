package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/observability"
	"context"
	stderrors "errors"
	"log/slog"
	"time"
)

const DefaultDeliveryTimeout = time.Second

// Dispatcher delivers server events to connections, each one independently.
// A connection whose outbound queue is full is closed, a closed one is skipped:
// neither delays nor fails the others.
type Dispatcher struct {
	log             *slog.Logger
	monitoring      *observability.MonitoringManager
	telemetry       chan<- event.ServerEvent
	deliveryTimeout time.Duration
}

func NewDispatcher(log *slog.Logger, monitoring *observability.MonitoringManager, telemetry chan<- event.ServerEvent, deliveryTimeout time.Duration) *Dispatcher {
	if deliveryTimeout <= 0 {
		deliveryTimeout = DefaultDeliveryTimeout
	}
	return &Dispatcher{log: log, monitoring: monitoring, telemetry: telemetry, deliveryTimeout: deliveryTimeout}
}

func (d *Dispatcher) Deliver(ctx context.Context, targets []contract.Connection, e event.ServerEvent) {
	for _, target := range targets {
		d.deliver(ctx, target, e)
	}
	d.offerTelemetry(e)
}

func (d *Dispatcher) SendToConnection(ctx context.Context, target contract.Connection, e event.ServerEvent) {
	d.deliver(ctx, target, e)
	d.offerTelemetry(e)
}

func (d *Dispatcher) deliver(ctx context.Context, target contract.Connection, e event.ServerEvent) {
	deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.deliveryTimeout)
	defer cancel()

	err := target.Consume(deliveryCtx, e)
	switch {
	case err == nil:
		d.count(func(m *observability.MonitoringManager) { m.IncrDelivered() })
	case stderrors.Is(err, errors.ErrConnectionClosed):
		d.count(func(m *observability.MonitoringManager) { m.IncrDropped() })
	case stderrors.Is(err, errors.ErrSlowConsumer):
		info := target.Info()
		d.log.Warn("Slow consumer evicted", "connection", info.ID, "identity", info.Identity, "type", e.Type())
		d.count(func(m *observability.MonitoringManager) { m.IncrEvicted() })
		target.Close()
	default:
		d.log.Warn("Delivery failed", "connection", target.Info().ID, "type", e.Type(), "error", err)
		d.count(func(m *observability.MonitoringManager) { m.IncrDropped() })
	}
}

// offerTelemetry never blocks: events are lost when the fanout lags behind.
func (d *Dispatcher) offerTelemetry(e event.ServerEvent) {
	if d.telemetry == nil {
		return
	}
	select {
	case d.telemetry <- e:
	default:
		d.log.Debug("Observability telemetry event lost", "type", e.Type())
	}
}

func (d *Dispatcher) count(fn func(m *observability.MonitoringManager)) {
	if d.monitoring != nil {
		fn(d.monitoring)
	}
}
