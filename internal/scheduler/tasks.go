// Package scheduler runs deferred work over asynq: retrying failed
// conversion-signal dispatches.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSignalDispatchRetry = "signal.dispatch.retry"

type SignalDispatchRetryPayload struct {
	LeadID   string `json:"leadId"`
	TenantID string `json:"tenantId"`
	Attempt  int    `json:"attempt"`
}

func NewSignalDispatchRetryTask(payload SignalDispatchRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSignalDispatchRetry, data), nil
}

func ParseSignalDispatchRetryPayload(task *asynq.Task) (SignalDispatchRetryPayload, error) {
	var payload SignalDispatchRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SignalDispatchRetryPayload{}, err
	}
	return payload, nil
}

// retryBackoff returns the delay before a given attempt runs. Attempts
// count from 1 and double from a one minute base.
func retryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Minute
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}
