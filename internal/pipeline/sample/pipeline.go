package sample

import (
	"fmt"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/platform/openai"
	"github.com/brightloop/geoscore-backend/internal/repos"
	"github.com/brightloop/geoscore-backend/internal/types"
)

// The system prompt stays generic on purpose: priming the model with the
// brand would corrupt the visibility measurement.
const systemPrompt = "You are a helpful assistant answering consumer questions. Answer naturally and concisely."

// Handler runs the prompt battery against each configured model and persists
// the raw responses for the score stage.
type Handler struct {
	log       *logger.Logger
	client    openai.Client
	responses repos.ResponseRepo
}

func NewHandler(log *logger.Logger, client openai.Client, responses repos.ResponseRepo) *Handler {
	return &Handler{
		log:       log.With("stage", "sample"),
		client:    client,
		responses: responses,
	}
}

func (h *Handler) Type() string { return types.JobTypeSample }

func (h *Handler) Run(c *runtime.Context) error {
	var payload runtime.SamplePayload
	if err := c.DecodePayload(&payload); err != nil {
		return err
	}
	if len(payload.Models) == 0 || len(payload.Prompts) == 0 {
		return fmt.Errorf("sample: empty model or prompt list: %w", errs.ErrInvalidArgument)
	}

	dbc := dbctx.New(c.Ctx)
	total := len(payload.Models) * len(payload.Prompts)
	done, failed := 0, 0
	for _, model := range payload.Models {
		for _, prompt := range payload.Prompts {
			text, err := h.client.GenerateText(c.Ctx, model, systemPrompt, prompt.Text)
			if err != nil {
				if c.Ctx.Err() != nil {
					return c.Ctx.Err()
				}
				failed++
				h.log.Warn("Prompt failed", "model", model, "intent", prompt.Intent, "error", err)
				continue
			}
			row := &types.PromptResponse{
				BrandID:      c.Job.BrandID,
				Model:        model,
				Prompt:       prompt.Text,
				Intent:       prompt.Intent,
				ResponseText: text,
				MentionType:  types.MentionTypeNone,
				Sentiment:    types.SentimentNeutral,
			}
			if _, err := h.responses.Create(dbc, []*types.PromptResponse{row}); err != nil {
				return fmt.Errorf("persist response: %w", err)
			}
			done++
			c.Progress((done+failed)*90/total, "")
		}
	}
	if done == 0 {
		return errs.External("openai", fmt.Errorf("all %d prompts failed", total))
	}

	if _, err := c.EnqueueNext(types.JobTypeScore, runtime.ScorePayload{IncludeCompetitors: true}); err != nil {
		return fmt.Errorf("enqueue score: %w", err)
	}
	return c.Complete(map[string]any{
		"responses": done,
		"failed":    failed,
		"models":    len(payload.Models),
		"prompts":   len(payload.Prompts),
	})
}
