// Package runtime owns the live state of the sync layer: who is connected,
// who listens to which room, and how events reach them.
// It contains no business rules.
package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain/event"
	"chat-sync/observability"
	"chat-sync/runtime/workers"
	"context"
	"log/slog"
	"time"
)

const DefaultTelemetryBuffer = 1024

type Config struct {
	TypingTimeout     time.Duration
	DeliveryTimeout   time.Duration
	SinkTimeout       time.Duration
	HeartbeatInterval time.Duration
	RestartInterval   time.Duration
	TelemetryBuffer   int
}

// Orchestrator builds the runtime components and runs them under one supervisor.
type Orchestrator struct {
	log        *slog.Logger
	supervisor *workers.Supervisor
	registry   *SessionRegistry
	directory  *RoomDirectory
	dispatcher *Dispatcher
	monitoring *observability.MonitoringManager
	telemetry  chan event.ServerEvent
	fanout     *workers.EventFanout
	heartbeat  *workers.HeartbeatWorker
}

func NewOrchestrator(log *slog.Logger, store contract.Store, monitoring *observability.MonitoringManager, cfg Config) *Orchestrator {
	if cfg.TypingTimeout <= 0 {
		cfg.TypingTimeout = workers.DefaultTypingTimeout
	}
	if cfg.TelemetryBuffer <= 0 {
		cfg.TelemetryBuffer = DefaultTelemetryBuffer
	}
	telemetry := make(chan event.ServerEvent, cfg.TelemetryBuffer)
	supervisor := workers.NewSupervisor(log, cfg.RestartInterval)
	dispatcher := NewDispatcher(log, monitoring, telemetry, cfg.DeliveryTimeout)

	o := &Orchestrator{
		log:        log,
		supervisor: supervisor,
		registry:   NewSessionRegistry(log, dispatcher, store, time.Now),
		directory:  NewRoomDirectory(log, supervisor, store, dispatcher, cfg.TypingTimeout, time.Now),
		dispatcher: dispatcher,
		monitoring: monitoring,
		telemetry:  telemetry,
		fanout:     workers.NewEventFanout(log, telemetry, cfg.SinkTimeout),
	}
	if monitoring != nil {
		o.fanout.Add(monitoring)
		o.heartbeat = workers.NewHeartbeatWorker(log, monitoring, o.Gauges, cfg.HeartbeatInterval)
	}
	return o
}

// Add registers sinks that observe every delivered event.
func (o *Orchestrator) Add(sinks ...contract.EventSink) *Orchestrator {
	o.fanout.Add(sinks...)
	return o
}

func (o *Orchestrator) Registry() *SessionRegistry { return o.registry }

func (o *Orchestrator) Directory() *RoomDirectory { return o.directory }

func (o *Orchestrator) Dispatcher() *Dispatcher { return o.dispatcher }

// Ready is closed once rooms can be opened. Transports should not accept
// connections before.
func (o *Orchestrator) Ready() <-chan struct{} { return o.directory.Ready() }

func (o *Orchestrator) Gauges() observability.Gauges {
	connections, identities := o.registry.Stats()
	return observability.Gauges{Connections: connections, Identities: identities, Rooms: o.directory.Count()}
}

// Start runs every worker until ctx is done or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(o.registry, o.directory, o.fanout)
	if o.heartbeat != nil {
		o.supervisor.Add(o.heartbeat)
	}
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	o.log.Info("Orchestrator stopped")
	return nil
}

func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
