package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job statuses
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is one row of the background job queue.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	RunAfter     time.Time
	ErrorMessage sql.NullString
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
}

// EnqueueJobParams contains the parameters for enqueueing a background job.
type EnqueueJobParams struct {
	JobType     string
	Payload     json.RawMessage
	Priority    int32
	MaxAttempts int32
	RunAfter    time.Time
}

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts,
	run_after, error_message, started_at, completed_at, created_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID,
		&j.JobType,
		&j.Payload,
		&j.Status,
		&j.Priority,
		&j.Attempts,
		&j.MaxAttempts,
		&j.RunAfter,
		&j.ErrorMessage,
		&j.StartedAt,
		&j.CompletedAt,
		&j.CreatedAt,
	)
	return j, err
}

// EnqueueJob inserts a new pending job and returns it.
func (s *Store) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	runAfter := params.RunAfter
	if runAfter.IsZero() {
		runAfter = time.Now().UTC()
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, job_type, payload, status, priority, max_attempts, run_after)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6)
		RETURNING `+jobColumns,
		uuid.New(), params.JobType, params.Payload, params.Priority, maxAttempts, runAfter)
	return scanJob(row)
}

// DequeueJob locks and returns the next runnable job. Uses FOR UPDATE SKIP
// LOCKED so concurrent workers never claim the same job. Must be called
// inside a transaction; returns sql.ErrNoRows when the queue is empty.
func (s *Store) DequeueJob(ctx context.Context) (Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'pending' AND run_after <= now()
		ORDER BY priority DESC, created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`)
	return scanJob(row)
}

// UpdateJobStarted marks a job as running and counts the attempt.
func (s *Store) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'running', attempts = attempts + 1, started_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateJobCompleted marks a job as successfully completed.
func (s *Store) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'completed', completed_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateJobFailedParams contains the parameters for marking a job failed.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
	Permanent    bool
}

// UpdateJobFailed records a job failure. Jobs that still have attempts left
// and are not permanently failed go back to pending with exponential backoff
// (1m, 2m, 4m, ...); otherwise they are marked failed.
func (s *Store) UpdateJobFailed(ctx context.Context, params UpdateJobFailedParams) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = CASE
				WHEN $3 OR attempts >= max_attempts THEN 'failed'
				ELSE 'pending'
			END,
			run_after = now() + (interval '1 minute' * power(2, greatest(attempts - 1, 0))),
			error_message = $2
		WHERE id = $1`, params.ID, params.ErrorMessage, params.Permanent)
	return err
}

// RecoverStaleJobs resets jobs stuck in 'running' longer than the threshold
// back to pending. Handles worker crashes; returns the number of recovered
// jobs.
func (s *Store) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'pending', started_at = NULL
		WHERE status = 'running'
		  AND started_at < now() - make_interval(secs => $1)`, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
