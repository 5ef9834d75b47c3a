package runtime_test

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
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

func TestEnqueueNextConvergesOnRerun(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	m := newManager(t, tx)
	log := testutil.Logger(t)

	brand := testutil.SeedBrand(t, ctx, tx, "Acme", "acme.com")
	if _, err := m.Enqueue(ctx, queue.EnqueueParams{
		BrandID: brand.ID,
		JobType: types.JobTypeNormalize,
		Payload: map[string]any{"page_keys": []string{"raw/home.html"}},
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	claimed, err := m.ClaimNext(ctx, []string{types.JobTypeNormalize})
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}

	jc := runtime.NewContext(ctx, log, claimed, m)
	first, err := jc.EnqueueNext(types.JobTypeEmbed, map[string]any{"entry_ids": []string{}})
	if err != nil {
		t.Fatalf("first EnqueueNext: %v", err)
	}

	// a handler re-run after a partial failure replays the whole stage,
	// including the chaining call; it must land on the same follow-on job
	second, err := jc.EnqueueNext(types.JobTypeEmbed, map[string]any{"entry_ids": []string{}})
	if err != nil {
		t.Fatalf("second EnqueueNext: %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Fatalf("re-run must converge on the existing stage job: first=%s second=%+v", first.ID, second)
	}

	embeds, err := m.List(ctx, repos.JobListFilter{JobType: types.JobTypeEmbed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(embeds) != 1 {
		t.Fatalf("expected exactly one embed job, got %d", len(embeds))
	}

	jobRepo := repos.NewJobRepo(tx, log)
	deps, err := jobRepo.DependenciesFor(dbctx.WithTx(ctx, tx), first.ID)
	if err != nil {
		t.Fatalf("DependenciesFor: %v", err)
	}
	if len(deps) != 1 || deps[0].DependsOnID != claimed.ID {
		t.Fatalf("follow-on must depend on the current job: %+v", deps)
	}
}
