//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker) error
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives server events.
// Consume must not block on a slow consumer: it either enqueues or fails.
type EventSink interface {
	Consume(ctx context.Context, e event.ServerEvent) error
}

// Connection is one live transport session as seen by the sync layer.
// Close is asynchronous: the transport runs the disconnect path on its own task.
type Connection interface {
	EventSink
	Info() domain.Connection
	Close()
}

// Deliverer pushes one event to a set of connections, each one independently.
type Deliverer interface {
	Deliver(ctx context.Context, targets []Connection, e event.ServerEvent)
	SendToConnection(ctx context.Context, target Connection, e event.ServerEvent)
}
