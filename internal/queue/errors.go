package queue

import (
	"fmt"

	"github.com/google/uuid"
)

// DuplicateJobError reports an idempotency collision. ExistingID is the job
// already holding the (type, idempotency key) pair so callers can return it.
type DuplicateJobError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("duplicate job: existing job %s", e.ExistingID)
}

// RetryExhaustedError means retry_count has reached max_retries.
type RetryExhaustedError struct {
	JobID      uuid.UUID
	RetryCount int
	MaxRetries int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("job %s: retries exhausted (%d/%d)", e.JobID, e.RetryCount, e.MaxRetries)
}

// NotCancelableError means the job has left the queued state.
type NotCancelableError struct {
	JobID  uuid.UUID
	Status string
}

func (e *NotCancelableError) Error() string {
	return fmt.Sprintf("job %s: cannot cancel while %s", e.JobID, e.Status)
}
