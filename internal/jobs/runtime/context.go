package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/queue"
	"github.com/brightloop/geoscore-backend/internal/types"
)

/*
Context is the execution handle for a single claimed job. It wraps:
  - the cancellable execution context (runner-imposed timeout),
  - the claimed job row in memory,
  - the queue manager, the only sanctioned way to write job state or to
    enqueue the next pipeline stage.

Stage workers never touch the job table directly. They must go through this
object.
*/
type Context struct {
	Ctx   context.Context
	Log   *logger.Logger
	Job   *types.Job
	Queue *queue.Manager
}

func NewContext(ctx context.Context, log *logger.Logger, job *types.Job, q *queue.Manager) *Context {
	return &Context{
		Ctx:   ctx,
		Log:   log.With("job_id", job.ID, "job_type", job.JobType),
		Job:   job,
		Queue: q,
	}
}

// DecodePayload unmarshals the job payload into the stage's typed variant.
// A decode failure is a terminal validation error, not a retryable one.
func (c *Context) DecodePayload(v any) error {
	if c == nil || c.Job == nil {
		return fmt.Errorf("no job bound: %w", errs.ErrInvalidArgument)
	}
	if len(c.Job.Payload) == 0 {
		return fmt.Errorf("empty payload: %w", errs.ErrInvalidArgument)
	}
	if err := json.Unmarshal(c.Job.Payload, v); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, errs.ErrInvalidArgument)
	}
	return nil
}

// Progress publishes a non-terminal progress update. Best effort: a failed
// write is logged and ignored so it never aborts a running stage.
func (c *Context) Progress(pct int, msg string) {
	if c == nil || c.Job == nil || c.Queue == nil {
		return
	}
	if _, err := c.Queue.Update(c.Ctx, c.Job.ID, queue.UpdateParams{Progress: &pct}); err != nil {
		c.Log.Debug("Progress update failed", "pct", pct, "error", err)
		return
	}
	c.Job.Progress = pct
	if msg != "" {
		c.Log.Debug(msg, "pct", pct)
	}
}

// Complete marks the job complete and stores the stage result.
func (c *Context) Complete(result any) error {
	if c == nil || c.Job == nil || c.Queue == nil {
		return nil
	}
	updated, err := c.Queue.Update(c.Ctx, c.Job.ID, queue.UpdateParams{
		Status: types.JobStatusComplete,
		Result: result,
	})
	if err != nil {
		return err
	}
	*c.Job = *updated
	return nil
}

// EnqueueNext creates the follow-on stage job, declaring this job as a
// dependency so it only becomes claimable once this one is complete.
//
// The idempotency key is derived from this job's identity: if the handler
// already enqueued the next stage on an earlier attempt and then failed
// before completing, the re-run converges on the existing job instead of
// creating a second one.
func (c *Context) EnqueueNext(jobType string, payload any, extraDeps ...uuid.UUID) (*types.Job, error) {
	if c == nil || c.Job == nil || c.Queue == nil {
		return nil, fmt.Errorf("no job bound: %w", errs.ErrInvalidArgument)
	}
	dependsOn := append([]uuid.UUID{c.Job.ID}, extraDeps...)
	next, err := c.Queue.Enqueue(c.Ctx, queue.EnqueueParams{
		BrandID:        c.Job.BrandID,
		JobType:        jobType,
		Payload:        payload,
		DependsOn:      dependsOn,
		IdempotencyKey: fmt.Sprintf("next:%s:%s", c.Job.ID, jobType),
	})
	if err != nil {
		var dup *queue.DuplicateJobError
		if errors.As(err, &dup) && next != nil {
			c.Log.Info("Next stage already enqueued", "next_job_id", next.ID, "next_job_type", jobType)
			return next, nil
		}
		return nil, err
	}
	c.Log.Info("Next stage enqueued", "next_job_id", next.ID, "next_job_type", jobType)
	return next, nil
}
