package workers

import (
	"chat-sync/contract"
	"chat-sync/errors"
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultRestartInterval = 200 * time.Millisecond

// Supervisor owns a context and its Cancel function.
// It runs each worker in a goroutine, recovers panics and restarts the worker,
// and waits for all of them once the parent context is canceled.
// Workers may also be started later with Start (room workers are), but only
// while Run is in progress: every worker is bound to the supervised context.
type Supervisor struct {
	Cancel          context.CancelFunc
	log             *slog.Logger
	restartInterval time.Duration
	workers         []contract.Worker

	mu          sync.Mutex
	idle        *sync.Cond
	running     int
	ctx         context.Context
	closed      bool
	started     chan struct{}
	startedOnce sync.Once
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = DefaultRestartInterval
	}
	s := &Supervisor{log: log, restartInterval: restartInterval, started: make(chan struct{})}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Run starts the registered workers under a context tied to ctx and returns
// once every worker, registered or dynamic, has exited.
// If the parent cancels, every worker stops. Stop only cancels our children.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.ctx, s.Cancel = supervisedCtx, cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		if err := s.Start(supervisedCtx, worker); err != nil {
			s.log.Warn("Worker not started", "name", contract.GetWorkerName(worker), "error", err)
		}
	}
	s.startedOnce.Do(func() { close(s.started) })

	s.mu.Lock()
	for s.running > 0 {
		s.idle.Wait()
	}
	s.closed = true
	s.mu.Unlock()
}

// Started is closed once Run has launched the registered workers.
func (s *Supervisor) Started() <-chan struct{} { return s.started }

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision in a dedicated goroutine.
// A panic or an error restarts it after the restart interval; a nil return
// or a canceled context ends it for good. The worker also stops with the
// supervisor, whatever ctx it was given.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) error {
	s.mu.Lock()
	if s.ctx == nil || s.closed || s.ctx.Err() != nil {
		s.mu.Unlock()
		return errors.ErrSupervisorStopped
	}
	s.running++
	supervisedCtx := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(supervisedCtx, cancel)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.done()
		defer stop()
		defer cancel()

		for {
			if ctx.Err() != nil {
				s.log.Debug("Stopping worker", "name", workerName)
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						s.log.Error("Worker panicked", "name", workerName, "panic", r)
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				s.log.Debug("Worker finished", "name", workerName)
				return
			}

			if ctx.Err() != nil {
				s.log.Debug("Worker stopped (context canceled)", "name", workerName)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
	return nil
}

func (s *Supervisor) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--
	if s.running == 0 {
		s.idle.Broadcast()
	}
}

// Stop cancels every supervised worker. Run returns once they all exited.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Cancel != nil {
		s.Cancel()
	}
}
