package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/queue"
	"github.com/brightloop/geoscore-backend/internal/repos"
	"github.com/brightloop/geoscore-backend/internal/repos/testutil"
	"github.com/brightloop/geoscore-backend/internal/types"
)

func newManager(t *testing.T, tx *gorm.DB) *queue.Manager {
	t.Helper()
	log := testutil.Logger(t)
	return queue.NewManager(tx, log,
		repos.NewJobRepo(tx, log),
		repos.NewBrandRepo(tx, log),
		nil, 5*time.Minute)
}

func TestEnqueueValidation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	if _, err := m.Enqueue(ctx, queue.EnqueueParams{BrandID: uuid.New(), JobType: "transmogrify"}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("unknown job type: got %v", err)
	}
	if _, err := m.Enqueue(ctx, queue.EnqueueParams{JobType: types.JobTypeScore}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("missing brand id: got %v", err)
	}
	if _, err := m.Enqueue(ctx, queue.EnqueueParams{BrandID: uuid.New(), JobType: types.JobTypeScore}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown brand: got %v", err)
	}
}

func TestEnqueueWithDependencies(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	upstream, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID: brand.ID,
		JobType: types.JobTypeNormalize,
		Payload: map[string]any{"page_keys": []string{"raw/home.html"}},
	})
	if err != nil {
		t.Fatalf("enqueue upstream: %v", err)
	}
	if upstream.Status != types.JobStatusQueued || upstream.Priority != 100 {
		t.Fatalf("unexpected defaults: %+v", upstream)
	}

	downstream, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID:   brand.ID,
		JobType:   types.JobTypeEmbed,
		DependsOn: []uuid.UUID{upstream.ID},
	})
	if err != nil {
		t.Fatalf("enqueue downstream: %v", err)
	}

	jobRepo := repos.NewJobRepo(tx, testutil.Logger(t))
	deps, err := jobRepo.DependenciesFor(dbctx.WithTx(ctx, tx), downstream.ID)
	if err != nil {
		t.Fatalf("DependenciesFor: %v", err)
	}
	if len(deps) != 1 || deps[0].DependsOnID != upstream.ID {
		t.Fatalf("dependency row missing: %+v", deps)
	}

	if _, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID:   brand.ID,
		JobType:   types.JobTypeEmbed,
		DependsOn: []uuid.UUID{uuid.New()},
	}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown dependency must fail enqueue: got %v", err)
	}
}

func TestEnqueueIdempotency(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	first, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID:        brand.ID,
		JobType:        types.JobTypeCrawl,
		IdempotencyKey: "onboard-acme",
	})
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}

	second, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID:        brand.ID,
		JobType:        types.JobTypeCrawl,
		IdempotencyKey: "onboard-acme",
	})
	var dup *queue.DuplicateJobError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateJobError, got %v", err)
	}
	if dup.ExistingID != first.ID {
		t.Fatalf("duplicate must reference the first job: %s", dup.ExistingID)
	}
	if second == nil || second.ID != first.ID {
		t.Fatalf("duplicate enqueue must return the existing job, got %+v", second)
	}

	// same key under a different type is a distinct job
	if _, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID:        brand.ID,
		JobType:        types.JobTypeNormalize,
		IdempotencyKey: "onboard-acme",
	}); err != nil {
		t.Fatalf("same key, different type: %v", err)
	}
}

func TestUpdateLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	job, err := m.Enqueue(ctx, queue.EnqueueParams{BrandID: brand.ID, JobType: types.JobTypeScore})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	progress := 40
	updated, err := m.Update(ctx, job.ID, queue.UpdateParams{Progress: &progress})
	if err != nil {
		t.Fatalf("progress update: %v", err)
	}
	if updated.Progress != 40 || updated.Status != types.JobStatusQueued {
		t.Fatalf("progress-only update changed too much: %+v", updated)
	}

	updated, err = m.Update(ctx, job.ID, queue.UpdateParams{
		Status: types.JobStatusComplete,
		Result: map[string]any{"overall": 73},
	})
	if err != nil {
		t.Fatalf("complete update: %v", err)
	}
	if updated.Status != types.JobStatusComplete || updated.CompletedAt == nil || updated.Progress != 100 {
		t.Fatalf("complete semantics: %+v", updated)
	}
	if len(updated.Result) == 0 {
		t.Fatalf("result not persisted")
	}

	// terminal states stay terminal
	if _, err := m.Update(ctx, job.ID, queue.UpdateParams{Status: types.JobStatusFailed, ErrorMessage: "late"}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("terminal overwrite must fail, got %v", err)
	}

	if _, err := m.Update(ctx, job.ID, queue.UpdateParams{Status: "resting"}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("unknown status must fail, got %v", err)
	}
	if _, err := m.Update(ctx, uuid.New(), queue.UpdateParams{Status: types.JobStatusFailed}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing job must 404, got %v", err)
	}
}

func TestUpdateRejectsClaimSideStatuses(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	job, err := m.Enqueue(ctx, queue.EnqueueParams{BrandID: brand.ID, JobType: types.JobTypeScore})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	claimed, err := m.ClaimNext(ctx, []string{types.JobTypeScore})
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}

	// demoting a running job back to queued would let a second claimant pick
	// it up while the first is still executing; only ClaimNext sets running
	if _, err := m.Update(ctx, job.ID, queue.UpdateParams{Status: types.JobStatusQueued}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("queued via Update must be rejected, got %v", err)
	}
	if _, err := m.Update(ctx, job.ID, queue.UpdateParams{Status: types.JobStatusRunning}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("running via Update must be rejected, got %v", err)
	}

	got, err := m.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.JobStatusRunning {
		t.Fatalf("rejected updates must not touch the row, got %s", got.Status)
	}
}

func TestRetryCreatesAuditTrail(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	upstream, err := m.Enqueue(ctx, queue.EnqueueParams{BrandID: brand.ID, JobType: types.JobTypeNormalize})
	if err != nil {
		t.Fatalf("enqueue upstream: %v", err)
	}
	original, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID:   brand.ID,
		JobType:   types.JobTypeEmbed,
		Payload:   map[string]any{"entry_ids": []string{}},
		DependsOn: []uuid.UUID{upstream.ID},
	})
	if err != nil {
		t.Fatalf("enqueue original: %v", err)
	}
	if _, err := m.Update(ctx, original.ID, queue.UpdateParams{Status: types.JobStatusFailed, ErrorMessage: "provider down"}); err != nil {
		t.Fatalf("fail original: %v", err)
	}

	retry, err := m.Retry(ctx, original.ID, "operator retry")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retry.ID == original.ID {
		t.Fatalf("retry must be a new row")
	}
	if retry.RetryOf == nil || *retry.RetryOf != original.ID {
		t.Fatalf("retry_of not set: %+v", retry)
	}
	if retry.RetryCount != 1 || retry.Priority != original.Priority-10 {
		t.Fatalf("retry bookkeeping wrong: %+v", retry)
	}
	if retry.Status != types.JobStatusQueued {
		t.Fatalf("retry must start queued, got %s", retry.Status)
	}

	// dependencies carry over
	jobRepo := repos.NewJobRepo(tx, testutil.Logger(t))
	deps, err := jobRepo.DependenciesFor(dbctx.WithTx(ctx, tx), retry.ID)
	if err != nil {
		t.Fatalf("DependenciesFor: %v", err)
	}
	if len(deps) != 1 || deps[0].DependsOnID != upstream.ID {
		t.Fatalf("retry must inherit dependencies: %+v", deps)
	}

	// the original stays untouched
	kept, err := m.GetJob(ctx, original.ID)
	if err != nil {
		t.Fatalf("GetJob original: %v", err)
	}
	if kept.Status != types.JobStatusFailed || kept.RetryCount != 0 {
		t.Fatalf("original mutated by retry: %+v", kept)
	}
}

func TestRetryExhaustion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	zero := 0
	job, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID:    brand.ID,
		JobType:    types.JobTypeScore,
		MaxRetries: &zero,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	_, err = m.Retry(ctx, job.ID, "test")
	var exhausted *queue.RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if exhausted.JobID != job.ID || exhausted.MaxRetries != 0 {
		t.Fatalf("exhaustion details wrong: %+v", exhausted)
	}
}

func TestCancelOnlyQueuedJobs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	job, err := m.Enqueue(ctx, queue.EnqueueParams{BrandID: brand.ID, JobType: types.JobTypeScore})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := m.Cancel(ctx, job.ID, "no longer needed"); err != nil {
		t.Fatalf("Cancel queued: %v", err)
	}
	canceled, err := m.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if canceled.Status != types.JobStatusFailed || canceled.Error != "no longer needed" {
		t.Fatalf("cancel semantics: %+v", canceled)
	}

	running := testutil.SeedJob(t, ctx, tx, brand.ID, types.JobTypeScore, types.JobStatusRunning)
	err = m.Cancel(ctx, running.ID, "")
	var notCancelable *queue.NotCancelableError
	if !errors.As(err, &notCancelable) {
		t.Fatalf("running job must not be cancelable, got %v", err)
	}
	if notCancelable.Status != types.JobStatusRunning {
		t.Fatalf("error must carry the blocking status: %+v", notCancelable)
	}
}

func TestStatsWithoutRedis(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	testutil.SeedJob(t, ctx, tx, brand.ID, types.JobTypeScore, types.JobStatusQueued)
	testutil.SeedJob(t, ctx, tx, brand.ID, types.JobTypeEmbed, types.JobStatusComplete)

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ByStatus[types.JobStatusQueued] != 1 || stats.ByType[types.JobTypeScore] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Backlog != 1 || stats.Health != "ok" {
		t.Fatalf("backlog health: %+v", stats)
	}
}
