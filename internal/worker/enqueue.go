package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/repository"
)

// Job type constants. These must match the JobHandler.Type() values.
const (
	JobTypeExpireSubscriptions = "expire_subscriptions"
	JobTypeUsageAlert          = "usage_alert"
)

// Priority constants for job scheduling.
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.RunAfter = time.Now().Add(delay)
	}
}

// Enqueuer puts jobs on the queue. It is the write-side counterpart of the
// Worker and is safe to share across services.
type Enqueuer struct {
	store *repository.Store
}

// NewEnqueuer creates an Enqueuer backed by the given store.
func NewEnqueuer(store *repository.Store) *Enqueuer {
	return &Enqueuer{store: store}
}

// Enqueue is the generic helper for enqueuing jobs with custom options.
func (e *Enqueuer) Enqueue(
	ctx context.Context,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		RunAfter:    time.Now(),
	}

	for _, opt := range opts {
		opt(&params)
	}

	job, err := e.store.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueUsageAlert enqueues a usage threshold notification.
// This satisfies the credit service's alerter dependency.
func (e *Enqueuer) EnqueueUsageAlert(ctx context.Context, params domain.UsageAlertParams) error {
	_, err := e.Enqueue(ctx, JobTypeUsageAlert, params, WithPriority(PriorityHigh))
	return err
}

// EnqueueExpireSubscriptions enqueues a sweep that expires lapsed
// subscriptions. Scheduled periodically by the server.
func (e *Enqueuer) EnqueueExpireSubscriptions(ctx context.Context, opts ...EnqueueOption) (repository.Job, error) {
	return e.Enqueue(ctx, JobTypeExpireSubscriptions, struct{}{}, opts...)
}
