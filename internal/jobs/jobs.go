package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Job represents a background job
type Job struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

// Job statuses.
const (
	StatusQueued = "queued"
	StatusRetry  = "retry"
	StatusDone   = "done"
	StatusFailed = "failed"
)

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *Job) error

// ErrMaxAttempts indicates the job reached max attempts
var ErrMaxAttempts = errors.New("max attempts reached")

// ErrPermanent marks a handler failure that must not be retried.
var ErrPermanent = errors.New("permanent job failure")

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	// base 2^attempt seconds, capped
	if attempt > 8 {
		return 5 * time.Minute
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	return min(d, 5*time.Minute)
}

// Enqueuer is what request handlers need to schedule work.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// EnqueuerFunc adapts a function to Enqueuer.
type EnqueuerFunc func(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)

func (f EnqueuerFunc) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	return f(ctx, typ, payload, priority, maxAttempts)
}
