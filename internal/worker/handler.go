package worker

import (
	"context"
	"errors"
)

// JobHandler defines the interface that all job handlers implement.
// Each handler executes one job type.
type JobHandler interface {
	// Type returns the job type identifier this handler processes.
	// It must match the job_type column in the jobs table.
	Type() string

	// Handle executes the job with the given payload.
	// The payload is raw JSON from the database; the handler unmarshals it.
	// Use NewPermanentError to fail a job without retries.
	Handle(ctx context.Context, payload []byte) error
}

// PermanentError wraps an error to indicate it should not be retried.
// Jobs failing with a PermanentError are marked 'failed' immediately
// instead of being rescheduled.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a new PermanentError wrapping err.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err (or any error it wraps) is permanent.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
