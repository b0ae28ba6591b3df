package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadsignal_backend/internal/leads/domain"
	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Dispatcher submits the conversion signal for a rated lead.
type Dispatcher interface {
	Dispatch(ctx context.Context, organizationID, leadID uuid.UUID, quality, channel string) (time.Time, error)
}

// LeadReader loads a lead to recover its quality for the retry.
type LeadReader interface {
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (repository.Lead, error)
}

// Worker consumes scheduler tasks.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	leads      LeadReader
	dispatcher Dispatcher
	client     *Client
	maxRetries int
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, signalCfg config.SignalConfig, leads LeadReader, dispatcher Dispatcher, client *Client, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	maxRetries := signalCfg.GetSignalMaxRetries()
	if maxRetries < 1 {
		maxRetries = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		leads:      leads,
		dispatcher: dispatcher,
		client:     client,
		maxRetries: maxRetries,
		log:        log,
	}

	mux.HandleFunc(TaskSignalDispatchRetry, w.handleSignalDispatchRetry)

	return w, nil
}

// handleSignalDispatchRetry re-attempts an automatic dispatch. A sent or
// unconfigurable signal ends the retry chain; an upstream failure
// re-enqueues with a larger backoff until the attempt cap.
func (w *Worker) handleSignalDispatchRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSignalDispatchRetryPayload(task)
	if err != nil {
		return err
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	lead, err := w.leads.GetByID(ctx, tenantID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if lead.Quality == domain.QualityPending {
		return nil
	}

	_, err = w.dispatcher.Dispatch(ctx, tenantID, leadID, lead.Quality, domain.ChannelAutomatic)
	if err == nil {
		return nil
	}
	if apperr.Is(err, apperr.KindConflict) || apperr.Is(err, apperr.KindConfigurationMissing) {
		return nil
	}

	if payload.Attempt >= w.maxRetries {
		w.log.Error("dispatch retry gave up", "leadId", leadID, "attempts", payload.Attempt, "error", err)
		return nil
	}

	w.log.Warn("dispatch retry failed, re-enqueueing",
		"leadId", leadID, "attempt", payload.Attempt, "error", err)
	return w.client.EnqueueDispatchRetry(ctx, tenantID, leadID, payload.Attempt+1)
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
