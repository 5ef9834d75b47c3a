package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/platform/blob"
	"github.com/brightloop/geoscore-backend/internal/repos"
	"github.com/brightloop/geoscore-backend/internal/types"
)

// Handler snapshots a GeoScore into a self-contained report row. The report
// is denormalized on purpose: it must stay readable as-is even if later
// scoring runs change the underlying rows.
type Handler struct {
	log     *logger.Logger
	store   blob.Store
	brands  repos.BrandRepo
	scores  repos.ScoreRepo
	reports repos.ReportRepo
}

func NewHandler(log *logger.Logger, store blob.Store, brands repos.BrandRepo, scores repos.ScoreRepo, reports repos.ReportRepo) *Handler {
	return &Handler{
		log:     log.With("stage", "report"),
		store:   store,
		brands:  brands,
		scores:  scores,
		reports: reports,
	}
}

// exportKey is the bucket location of a report's JSON export.
func exportKey(brandID, reportID uuid.UUID) string {
	return fmt.Sprintf("reports/%s/%s.json", brandID, reportID)
}

// export mirrors the persisted snapshot into the bucket so reports can be
// served or downloaded without a database round trip. Best effort: the row
// is the source of truth, a failed export only logs.
func (h *Handler) export(ctx context.Context, row *types.Report) {
	if h.store == nil {
		return
	}
	key := exportKey(row.BrandID, row.ID)
	if err := h.store.Write(ctx, key, row.Payload, "application/json"); err != nil {
		h.log.Warn("Report export failed", "report_id", row.ID, "key", key, "error", err)
		return
	}
	h.log.Debug("Report exported", "report_id", row.ID, "key", key)
}

func (h *Handler) Type() string { return types.JobTypeAssembleReport }

func (h *Handler) Run(c *runtime.Context) error {
	var payload runtime.ReportPayload
	if err := c.DecodePayload(&payload); err != nil {
		return err
	}

	dbc := dbctx.New(c.Ctx)
	brand, err := h.brands.GetByID(dbc, c.Job.BrandID)
	if err != nil {
		return fmt.Errorf("load brand: %w", err)
	}
	if brand == nil {
		return fmt.Errorf("brand %s: %w", c.Job.BrandID, errs.ErrNotFound)
	}

	var score *types.GeoScore
	if payload.ScoreID != nil {
		score, err = h.scores.GetByID(dbc, *payload.ScoreID)
	} else {
		score, err = h.scores.GetLatestByBrand(dbc, brand.ID)
	}
	if err != nil {
		return fmt.Errorf("load score: %w", err)
	}
	if score == nil {
		return fmt.Errorf("report: no score for brand %s: %w", brand.ID, errs.ErrNotFound)
	}

	var breakdown, ratios, evidence any
	_ = types.JSONInto(score.Breakdown, &breakdown)
	_ = types.JSONInto(score.CompetitorRatios, &ratios)
	_ = types.JSONInto(score.Evidence, &evidence)

	snapshot := map[string]any{
		"brand": map[string]any{
			"id":     brand.ID,
			"name":   brand.Name,
			"domain": brand.Domain,
		},
		"overall": score.Overall,
		"components": map[string]float64{
			"presence":   score.Presence,
			"accuracy":   score.Accuracy,
			"salience":   score.Salience,
			"authority":  score.Authority,
			"freshness":  score.Freshness,
			"robustness": score.Robustness,
		},
		"breakdown":           breakdown,
		"competitor_ratios":   ratios,
		"evidence":            evidence,
		"responses_total":     score.ResponsesTotal,
		"responses_mentioned": score.ResponsesMentioned,
		"scored_at":           score.CreatedAt,
		"generated_at":        time.Now().UTC(),
	}

	row := &types.Report{
		ID:      uuid.New(),
		BrandID: brand.ID,
		ScoreID: score.ID,
		Payload: types.MustJSON(snapshot),
	}
	if _, err := h.reports.Create(dbc, row); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	h.export(c.Ctx, row)
	return c.Complete(map[string]any{
		"report_id": row.ID,
		"score_id":  score.ID,
		"overall":   score.Overall,
	})
}
