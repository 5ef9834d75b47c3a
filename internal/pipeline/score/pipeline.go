package score

import (
	"fmt"
	"time"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/repos"
	"github.com/brightloop/geoscore-backend/internal/scoring"
	"github.com/brightloop/geoscore-backend/internal/types"
)

// Handler runs mention detection and composite scoring over the brand's
// sampled responses, persists the GeoScore, and chains report assembly.
type Handler struct {
	log       *logger.Logger
	brands    repos.BrandRepo
	responses repos.ResponseRepo
	scores    repos.ScoreRepo
}

func NewHandler(log *logger.Logger, brands repos.BrandRepo, responses repos.ResponseRepo, scores repos.ScoreRepo) *Handler {
	return &Handler{
		log:       log.With("stage", "score"),
		brands:    brands,
		responses: responses,
		scores:    scores,
	}
}

func (h *Handler) Type() string { return types.JobTypeScore }

func (h *Handler) Run(c *runtime.Context) error {
	var payload runtime.ScorePayload
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
	rows, err := h.responses.ListByBrand(dbc, brand.ID)
	if err != nil {
		return fmt.Errorf("load responses: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("score: no responses for brand %s: %w", brand.ID, errs.ErrInvalidArgument)
	}

	engine := scoring.NewEngine(brand.Name, brand.Domain)
	inputs := make([]scoring.Response, len(rows))
	mentions := make([]scoring.Mention, len(rows))
	for i, row := range rows {
		inputs[i] = scoring.Response{
			ID:     row.ID,
			Model:  row.Model,
			Prompt: row.Prompt,
			Intent: row.Intent,
			Text:   row.ResponseText,
		}
		mentions[i] = engine.Analyze(row.ResponseText)
	}

	c.Progress(50, "responses analyzed")

	var competitors []string
	if payload.IncludeCompetitors {
		competitors = brand.CompetitorNames()
	}
	result := engine.Score(inputs, mentions, competitors)

	score := &types.GeoScore{
		BrandID:    brand.ID,
		Overall:    result.Overall,
		Presence:   result.Components.Presence,
		Accuracy:   result.Components.Accuracy,
		Salience:   result.Components.Salience,
		Authority:  result.Components.Authority,
		Freshness:  result.Components.Freshness,
		Robustness: result.Components.Robustness,
		Breakdown: types.MustJSON(map[string]any{
			"by_model":  result.MentionRateByModel,
			"by_prompt": result.MentionRateByPrompt,
			"by_intent": result.MentionRateByIntent,
		}),
		CompetitorRatios:   types.MustJSON(result.CompetitorRatios),
		Evidence:           types.MustJSON(result.Evidence),
		ResponsesTotal:     result.ResponsesTotal,
		ResponsesMentioned: result.ResponsesMentioned,
	}
	if _, err := h.scores.Create(dbc, score); err != nil {
		return fmt.Errorf("persist score: %w", err)
	}

	// Write the per-response analysis back so listings show mention state
	// without re-running detection.
	now := time.Now()
	for i, row := range rows {
		m := mentions[i]
		updates := map[string]interface{}{
			"mentioned":      m.Mentioned,
			"mention_type":   m.MentionType,
			"mention_count":  m.MentionCount,
			"sentiment":      m.Sentiment,
			"confidence":     m.Confidence,
			"snippets":       types.MustJSON(m.Snippets),
			"response_score": scoring.ResponseScore(m),
			"scored_at":      now,
			"updated_at":     now,
		}
		if err := h.responses.UpdateFields(dbc, row.ID, updates); err != nil {
			return fmt.Errorf("update response %s: %w", row.ID, err)
		}
	}

	c.Progress(90, "score persisted")

	if _, err := c.EnqueueNext(types.JobTypeAssembleReport, runtime.ReportPayload{ScoreID: &score.ID}); err != nil {
		return fmt.Errorf("enqueue report: %w", err)
	}
	return c.Complete(map[string]any{
		"score_id":            score.ID,
		"overall":             score.Overall,
		"responses_total":     result.ResponsesTotal,
		"responses_mentioned": result.ResponsesMentioned,
	})
}
