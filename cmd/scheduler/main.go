package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"

	"leadsignal_backend/internal/connections"
	"leadsignal_backend/internal/events"
	leadsrepo "leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/internal/metaapi"
	"leadsignal_backend/internal/scheduler"
	"leadsignal_backend/internal/signal"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/db"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/metrics"
)

// The scheduler binary consumes queued dispatch retries. It shares the
// database and the dispatcher with the API but serves no HTTP traffic.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler worker", "env", cfg.Env)

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	relayMetrics := metrics.New(nil)

	leadsRepo := leadsrepo.New(pool)
	connectionsRepo := connections.NewRepository(pool)
	graph := metaapi.NewClient(cfg)
	dispatcher := signal.NewDispatcher(leadsRepo, connectionsRepo, graph, eventBus, relayMetrics, cfg.GetSignalSourceName(), log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer client.Close()

	worker, err := scheduler.NewWorker(cfg, cfg, leadsRepo, dispatcher, client, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("scheduler worker stopped")
}
