package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/repos"
	"github.com/brightloop/geoscore-backend/internal/types"
)

const (
	// Retries jump ahead of fresh work. Priority is lower-first.
	retryPriorityBoost = 10

	defaultMaxRetries = 3

	statsCacheKey = "geoscore:queue:stats"
	statsCacheTTL = 5 * time.Second

	// Backlog size past which Stats reports the queue as congested.
	congestedBacklog = 500
)

type EnqueueParams struct {
	BrandID        uuid.UUID
	JobType        string
	Payload        any
	Priority       *int
	DependsOn      []uuid.UUID
	IdempotencyKey string
	MaxRetries     *int
}

type UpdateParams struct {
	Status       string
	Result       any
	ErrorMessage string
	Progress     *int
}

type Stats struct {
	ByStatus map[string]int64 `json:"by_status"`
	ByType   map[string]int64 `json:"by_type"`
	Backlog  int64            `json:"backlog"`
	Health   string           `json:"health"`
}

// Manager owns every job row mutation except the runner's claim-side status
// writes, which also go through it. Payloads pass through opaque: the queue
// never inspects stage data.
type Manager struct {
	db           *gorm.DB
	log          *logger.Logger
	jobs         repos.JobRepo
	brands       repos.BrandRepo
	rdb          *redis.Client
	staleRunning time.Duration
}

func NewManager(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobRepo, brands repos.BrandRepo, rdb *redis.Client, staleRunning time.Duration) *Manager {
	if staleRunning <= 0 {
		staleRunning = 5 * time.Minute
	}
	return &Manager{
		db:           db,
		log:          baseLog.With("component", "QueueManager"),
		jobs:         jobs,
		brands:       brands,
		rdb:          rdb,
		staleRunning: staleRunning,
	}
}

func (m *Manager) Enqueue(ctx context.Context, params EnqueueParams) (*types.Job, error) {
	if !types.ValidJobType(params.JobType) {
		return nil, fmt.Errorf("job type %q: %w", params.JobType, errs.ErrInvalidArgument)
	}
	if params.BrandID == uuid.Nil {
		return nil, fmt.Errorf("brand id required: %w", errs.ErrInvalidArgument)
	}
	exists, err := m.brands.Exists(dbctx.New(ctx), params.BrandID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("brand %s: %w", params.BrandID, errs.ErrNotFound)
	}

	if params.IdempotencyKey != "" {
		existing, err := m.jobs.FindByIdempotencyKey(dbctx.New(ctx), params.JobType, params.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, &DuplicateJobError{ExistingID: existing.ID}
		}
	}

	payload, err := json.Marshal(params.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	priority := 100
	if params.Priority != nil {
		priority = *params.Priority
	}
	maxRetries := defaultMaxRetries
	if params.MaxRetries != nil && *params.MaxRetries >= 0 {
		maxRetries = *params.MaxRetries
	}

	job := &types.Job{
		ID:         uuid.New(),
		BrandID:    params.BrandID,
		JobType:    params.JobType,
		Status:     types.JobStatusQueued,
		Priority:   priority,
		MaxRetries: maxRetries,
		Payload:    datatypes.JSON(payload),
	}
	if params.IdempotencyKey != "" {
		key := params.IdempotencyKey
		job.IdempotencyKey = &key
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		for _, depID := range params.DependsOn {
			dep, err := m.jobs.GetByID(dbc, depID)
			if err != nil {
				return err
			}
			if dep == nil {
				return fmt.Errorf("dependency job %s: %w", depID, errs.ErrNotFound)
			}
		}
		if _, err := m.jobs.Create(dbc, []*types.Job{job}); err != nil {
			return err
		}
		deps := make([]*types.JobDependency, 0, len(params.DependsOn))
		for _, depID := range params.DependsOn {
			deps = append(deps, &types.JobDependency{
				ID:          uuid.New(),
				JobID:       job.ID,
				DependsOnID: depID,
			})
		}
		return m.jobs.CreateDependencies(dbc, deps)
	})
	if err != nil {
		// The unique (job_type, idempotency_key) index closes the race the
		// pre-check leaves open; map the violation back to DuplicateJob.
		if params.IdempotencyKey != "" {
			existing, findErr := m.jobs.FindByIdempotencyKey(dbctx.New(ctx), params.JobType, params.IdempotencyKey)
			if findErr == nil && existing != nil && existing.ID != job.ID {
				return existing, &DuplicateJobError{ExistingID: existing.ID}
			}
		}
		return nil, err
	}

	m.invalidateStats(ctx)
	m.log.Debug("Job enqueued", "job_id", job.ID, "job_type", job.JobType, "brand_id", job.BrandID)
	return job, nil
}

// ClaimNext transitions the oldest, lowest-priority-value, dependency-satisfied
// queued job among jobTypes to running. Safe against concurrent managers: the
// row claim is a single SKIP LOCKED transaction in the repo.
func (m *Manager) ClaimNext(ctx context.Context, jobTypes []string) (*types.Job, error) {
	return m.jobs.ClaimNext(dbctx.New(ctx), jobTypes, m.staleRunning)
}

func (m *Manager) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*types.Job, error) {
	job, err := m.jobs.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", id, errs.ErrNotFound)
	}

	now := time.Now()
	updates := map[string]interface{}{"updated_at": now}
	switch params.Status {
	case "":
		// progress-only update
	case types.JobStatusComplete:
		updates["status"] = types.JobStatusComplete
		updates["completed_at"] = now
		updates["progress"] = 100
		updates["error"] = ""
		if params.Result != nil {
			b, err := json.Marshal(params.Result)
			if err != nil {
				return nil, fmt.Errorf("encode result: %w", err)
			}
			updates["result"] = datatypes.JSON(b)
		}
	case types.JobStatusFailed:
		updates["status"] = types.JobStatusFailed
		updates["completed_at"] = now
		updates["error"] = params.ErrorMessage
	default:
		// Only terminal transitions are accepted here. queued->running goes
		// through ClaimNext exclusively, so a job can never be demoted back
		// to queued and picked up by a second claimant.
		return nil, fmt.Errorf("status %q: %w", params.Status, errs.ErrInvalidArgument)
	}
	if params.Progress != nil {
		updates["progress"] = *params.Progress
	}

	// Terminal states stay terminal.
	ok, err := m.jobs.UpdateFieldsUnlessStatus(dbctx.New(ctx), id, []string{types.JobStatusComplete, types.JobStatusFailed}, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("job %s already %s: %w", id, job.Status, errs.ErrInvalidArgument)
	}
	m.invalidateStats(ctx)
	return m.jobs.GetByID(dbctx.New(ctx), id)
}

// Retry creates a new job row referencing the original. The original row is
// never mutated: the chain of retry_of pointers is the audit trail.
func (m *Manager) Retry(ctx context.Context, id uuid.UUID, reason string) (*types.Job, error) {
	original, err := m.jobs.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, fmt.Errorf("job %s: %w", id, errs.ErrNotFound)
	}
	if original.RetryCount >= original.MaxRetries {
		return nil, &RetryExhaustedError{JobID: id, RetryCount: original.RetryCount, MaxRetries: original.MaxRetries}
	}

	origID := original.ID
	retry := &types.Job{
		ID:         uuid.New(),
		BrandID:    original.BrandID,
		JobType:    original.JobType,
		Status:     types.JobStatusQueued,
		Priority:   original.Priority - retryPriorityBoost,
		RetryCount: original.RetryCount + 1,
		MaxRetries: original.MaxRetries,
		RetryOf:    &origID,
		Payload:    original.Payload,
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		if _, err := m.jobs.Create(dbc, []*types.Job{retry}); err != nil {
			return err
		}
		origDeps, err := m.jobs.DependenciesFor(dbc, original.ID)
		if err != nil {
			return err
		}
		deps := make([]*types.JobDependency, 0, len(origDeps))
		for _, d := range origDeps {
			deps = append(deps, &types.JobDependency{
				ID:          uuid.New(),
				JobID:       retry.ID,
				DependsOnID: d.DependsOnID,
			})
		}
		return m.jobs.CreateDependencies(dbc, deps)
	})
	if err != nil {
		return nil, err
	}

	m.invalidateStats(ctx)
	m.log.Info("Job retried", "job_id", original.ID, "new_job_id", retry.ID, "retry_count", retry.RetryCount, "reason", reason)
	return retry, nil
}

func (m *Manager) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	job, err := m.jobs.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s: %w", id, errs.ErrNotFound)
	}
	if reason == "" {
		reason = "canceled by operator"
	}
	now := time.Now()
	ok, err := m.jobs.UpdateFieldsUnlessStatus(dbctx.New(ctx), id,
		[]string{types.JobStatusRunning, types.JobStatusComplete, types.JobStatusFailed},
		map[string]interface{}{
			"status":       types.JobStatusFailed,
			"error":        reason,
			"completed_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return err
	}
	if !ok {
		return &NotCancelableError{JobID: id, Status: job.Status}
	}
	m.invalidateStats(ctx)
	return nil
}

// Heartbeat refreshes a running job's liveness marker so other managers do
// not treat it as stale and reclaim it.
func (m *Manager) Heartbeat(ctx context.Context, id uuid.UUID) error {
	return m.jobs.Heartbeat(dbctx.New(ctx), id)
}

func (m *Manager) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	job, err := m.jobs.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", id, errs.ErrNotFound)
	}
	return job, nil
}

func (m *Manager) List(ctx context.Context, filter repos.JobListFilter) ([]*types.Job, error) {
	return m.jobs.List(dbctx.New(ctx), filter)
}

// Stats is best-effort reporting. The redis cache keeps repeated dashboard
// polls off the job table; a cache failure falls through to the database.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	if m.rdb != nil {
		if raw, err := m.rdb.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var cached Stats
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	counts, err := m.jobs.Counts(dbctx.New(ctx))
	if err != nil {
		return nil, err
	}
	backlog := counts.ByStatus[types.JobStatusQueued]
	health := "ok"
	if backlog > congestedBacklog {
		health = "congested"
	}
	stats := &Stats{
		ByStatus: counts.ByStatus,
		ByType:   counts.ByType,
		Backlog:  backlog,
		Health:   health,
	}

	if m.rdb != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := m.rdb.Set(ctx, statsCacheKey, raw, statsCacheTTL).Err(); err != nil {
				m.log.Debug("Stats cache write failed", "error", err)
			}
		}
	}
	return stats, nil
}

func (m *Manager) invalidateStats(ctx context.Context) {
	if m.rdb == nil {
		return
	}
	if err := m.rdb.Del(ctx, statsCacheKey).Err(); err != nil {
		m.log.Debug("Stats cache invalidation failed", "error", err)
	}
}
