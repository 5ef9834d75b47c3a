package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/types"
)

// incompleteDepsPredicate filters out jobs with any dependency that has not
// reported complete. Runs inside the claim transaction so the gate and the
// claim are a single atomic decision.
const incompleteDepsPredicate = `
NOT EXISTS (
  SELECT 1
  FROM job_dependency d
  JOIN job dep ON dep.id = d.depends_on_id
  WHERE d.job_id = job.id
    AND dep.status <> 'complete'
)`

// staleReclaimMaxAttempts caps how many claims a job can accumulate through
// the stale-heartbeat branch. A handler that kills its process would
// otherwise be reclaimed and re-run forever.
const staleReclaimMaxAttempts = 5

type JobListFilter struct {
	BrandID *uuid.UUID
	JobType string
	Status  string
	Limit   int
	Offset  int
}

type JobCounts struct {
	ByStatus map[string]int64
	ByType   map[string]int64
}

type JobRepo interface {
	Create(dbc dbctx.Context, jobs []*types.Job) ([]*types.Job, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error)
	FindByIdempotencyKey(dbc dbctx.Context, jobType string, key string) (*types.Job, error)
	CreateDependencies(dbc dbctx.Context, deps []*types.JobDependency) error
	DependenciesFor(dbc dbctx.Context, jobID uuid.UUID) ([]*types.JobDependency, error)
	// ClaimNext atomically selects the next claimable job among jobTypes and
	// marks it running. Returns (nil, nil) when nothing is claimable.
	ClaimNext(dbc dbctx.Context, jobTypes []string, staleRunning time.Duration) (*types.Job, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	List(dbc dbctx.Context, filter JobListFilter) ([]*types.Job, error)
	Counts(dbc dbctx.Context) (*JobCounts, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) Create(dbc dbctx.Context, jobs []*types.Job) ([]*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.Job{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.Job
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) FindByIdempotencyKey(dbc dbctx.Context, jobType string, key string) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if jobType == "" || key == "" {
		return nil, nil
	}
	var job types.Job
	err := transaction.WithContext(dbc.Ctx).
		Where("job_type = ? AND idempotency_key = ?", jobType, key).
		Order("created_at ASC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) CreateDependencies(dbc dbctx.Context, deps []*types.JobDependency) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(deps) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&deps).Error
}

func (r *jobRepo) DependenciesFor(dbc dbctx.Context, jobID uuid.UUID) ([]*types.JobDependency, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.JobDependency
	if jobID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("job_id = ?", jobID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) ClaimNext(dbc dbctx.Context, jobTypes []string, staleRunning time.Duration) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobTypes) == 0 {
		return nil, nil
	}
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.Job
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var job types.Job
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("job_type IN ?", jobTypes).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
            AND attempts < ?
          )
        )
      `, types.JobStatusQueued, types.JobStatusRunning, staleCutoff, staleReclaimMaxAttempts).
			Where(incompleteDepsPredicate).
			Order("priority ASC, created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		updates := map[string]interface{}{
			"status":       types.JobStatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"heartbeat_at": now,
			"updated_at":   now,
		}
		if job.StartedAt == nil {
			updates["started_at"] = now
		}
		uErr := txx.Model(&types.Job{}).
			Where("id = ?", job.ID).
			Updates(updates).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusRunning
		job.Attempts++
		job.HeartbeatAt = &now
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
		job.UpdatedAt = now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *jobRepo) List(dbc dbctx.Context, filter JobListFilter) ([]*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Job{})
	if filter.BrandID != nil && *filter.BrandID != uuid.Nil {
		q = q.Where("brand_id = ?", *filter.BrandID)
	}
	if filter.JobType != "" {
		q = q.Where("job_type = ?", filter.JobType)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.Job
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) Counts(dbc dbctx.Context) (*JobCounts, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Key   string
		Count int64
	}
	counts := &JobCounts{
		ByStatus: map[string]int64{},
		ByType:   map[string]int64{},
	}
	var statusRows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, err
	}
	for _, s := range statusRows {
		counts.ByStatus[s.Key] = s.Count
	}
	var typeRows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Select("job_type AS key, COUNT(*) AS count").
		Group("job_type").
		Scan(&typeRows).Error; err != nil {
		return nil, err
	}
	for _, t := range typeRows {
		counts.ByType[t.Key] = t.Count
	}
	return counts, nil
}
