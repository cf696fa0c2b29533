package main

import (
	"chat-sync/auth"
	"chat-sync/infrastructure/ws"
	"chat-sync/internal"
	"chat-sync/observability"
	"chat-sync/repositories"
	"chat-sync/runtime"
	"chat-sync/services"
	"chat-sync/sink"
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and returns once all of them stopped,
// so that deferred cleanups such as closing Badger always run.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Runtime & engine
	store := repositories.NewStore(db, log, config.LimitMessages)
	monitoring := observability.NewMonitoringManager(log)
	orchestrator := runtime.NewOrchestrator(log, store, monitoring, config.Runtime()).
		Add(sink.NewLogSink(log))
	engine := services.NewEventEngine(log, store,
		orchestrator.Registry(), orchestrator.Directory(), orchestrator.Dispatcher(),
		monitoring, config.EditWindow, config.AutoJoin)

	// 4. Transport
	verifier := auth.NewJWTVerifier(config.JWTSecret)
	transport := ws.NewServer(log, engine, verifier, config.Transport())
	server := &http.Server{
		Addr:              config.Address(),
		Handler:           transport.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	debugServer := internal.NewDebugServer(db, config.DebugPort, nil, func() any {
		stats := monitoring.GetLatest()
		stats.Gauges = orchestrator.Gauges()
		return stats
	})

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orchestrator.Start(ctx)
	})
	g.Go(func() error {
		// Rooms can only be opened once the orchestrator is supervised
		select {
		case <-ctx.Done():
			return nil
		case <-orchestrator.Ready():
		}
		log.Info("Starting WebSocket server", "address", server.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("Starting debug server", "address", debugServer.Addr)
		if err := debugServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("debug server error: %w", err)
		}
		return nil
	})

	// 6. Wait for Stop or Error, then drain
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		transport.CloseAll()
		err := stderrors.Join(server.Shutdown(shutdownCtx), debugServer.Shutdown(shutdownCtx))
		orchestrator.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Program stopped cleanly")
	return nil
}
