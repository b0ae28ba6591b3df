package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"leadsignal_backend/internal/connections"
	"leadsignal_backend/internal/email"
	"leadsignal_backend/internal/events"
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/internal/http/router"
	"leadsignal_backend/internal/leads"
	"leadsignal_backend/internal/leads/management"
	leadsrepo "leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/internal/metaapi"
	"leadsignal_backend/internal/notify"
	"leadsignal_backend/internal/notify/sse"
	"leadsignal_backend/internal/rating"
	"leadsignal_backend/internal/scheduler"
	"leadsignal_backend/internal/signal"
	"leadsignal_backend/internal/webhook"
	"leadsignal_backend/internal/whatsapp"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/db"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/metrics"
	"leadsignal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	relayMetrics := metrics.New(nil)

	retryScheduler, closeScheduler := initRetryScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	graph := metaapi.NewClient(cfg)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsRepo := leadsrepo.New(pool)
	connectionsRepo := connections.NewRepository(pool)
	tokensRepo := rating.NewRepository(pool)

	dispatcher := signal.NewDispatcher(leadsRepo, connectionsRepo, graph, eventBus, relayMetrics, cfg.GetSignalSourceName(), log)

	var retries management.RetryScheduler
	if retryScheduler != nil {
		retries = retryScheduler
	}

	leadsModule := leads.NewModule(leadsRepo, dispatcher, retries, eventBus, cfg, val, log)
	connectionsModule := connections.NewModule(connectionsRepo, graph, val, log)
	webhookModule := webhook.NewModule(connectionsRepo, leadsRepo, graph, eventBus, relayMetrics, cfg, log)
	ratingModule := rating.NewModule(tokensRepo, leadsRepo, dispatcher, cfg, log)

	var emailSender email.Sender
	if cfg.GetEmailEnabled() {
		emailSender = email.NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		)
		log.Info("email sender initialized", "host", cfg.GetSMTPHost())
	} else {
		log.Warn("email disabled; lead notifications will not be mailed")
	}

	var waSender notify.WhatsAppSender
	if wa := whatsapp.NewClient(cfg, log); wa != nil {
		waSender = wa
		log.Info("whatsapp sidecar configured", "url", cfg.GetWhatsAppURL())
	}

	sseService := sse.New(log)
	fanout := notify.NewFanout(emailSender, waSender, sseService, ratingModule.Service(), cfg, relayMetrics, log)
	notifyModule := notify.NewModule(eventBus, fanout, sseService)
	defer notifyModule.Close()

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			connectionsModule,
			webhookModule,
			ratingModule,
			notifyModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRetryScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; dispatch retries disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch retry client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
