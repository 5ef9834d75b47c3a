package embed

import (
	"fmt"
	"time"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pipeline/sample"
	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/platform/openai"
	"github.com/brightloop/geoscore-backend/internal/repos"
	"github.com/brightloop/geoscore-backend/internal/types"
)

const (
	embedBatchSize  = 50
	interBatchDelay = 500 * time.Millisecond
)

// Handler chunks normalized entries, embeds the chunks in batches, and
// chains the sample stage.
type Handler struct {
	log        *logger.Logger
	client     openai.Client
	brands     repos.BrandRepo
	entries    repos.ContentEntryRepo
	claims     repos.ContentClaimRepo
	chunks     repos.ContentChunkRepo
	embeddings repos.EmbeddingRepo
}

func NewHandler(log *logger.Logger, client openai.Client, brands repos.BrandRepo, entries repos.ContentEntryRepo, claims repos.ContentClaimRepo, chunks repos.ContentChunkRepo, embeddings repos.EmbeddingRepo) *Handler {
	return &Handler{
		log:        log.With("stage", "embed"),
		client:     client,
		brands:     brands,
		entries:    entries,
		claims:     claims,
		chunks:     chunks,
		embeddings: embeddings,
	}
}

func (h *Handler) Type() string { return types.JobTypeEmbed }

func (h *Handler) Run(c *runtime.Context) error {
	var payload runtime.EmbedPayload
	if err := c.DecodePayload(&payload); err != nil {
		return err
	}
	if len(payload.EntryIDs) == 0 {
		return fmt.Errorf("embed: no entry ids: %w", errs.ErrInvalidArgument)
	}

	dbc := dbctx.New(c.Ctx)
	entries, err := h.entries.GetByIDs(dbc, payload.EntryIDs)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("embed: entries missing: %w", errs.ErrNotFound)
	}

	var allChunks []*types.ContentChunk
	for _, entry := range entries {
		claims, err := h.claims.ListByEntry(dbc, entry.ID)
		if err != nil {
			return fmt.Errorf("load claims for %s: %w", entry.ID, err)
		}
		allChunks = append(allChunks, BuildChunks(entry, claims)...)
	}
	if len(allChunks) == 0 {
		return fmt.Errorf("embed: entries produced no chunks: %w", errs.ErrInvalidArgument)
	}
	if _, err := h.chunks.Create(dbc, allChunks); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}

	c.Progress(30, "chunks persisted")

	embedded, totalCost, err := h.embedBatches(c, dbc, allChunks)
	if err != nil {
		return err
	}
	if embedded == 0 {
		return fmt.Errorf("embed: every batch failed")
	}

	c.Progress(90, "embeddings persisted")

	brand, err := h.brands.GetByID(dbc, c.Job.BrandID)
	if err != nil {
		return fmt.Errorf("load brand: %w", err)
	}
	if brand == nil {
		return fmt.Errorf("brand %s: %w", c.Job.BrandID, errs.ErrNotFound)
	}
	if _, err := c.EnqueueNext(types.JobTypeSample, sample.BuildPayload(brand)); err != nil {
		return fmt.Errorf("enqueue sample: %w", err)
	}
	return c.Complete(map[string]any{
		"chunks":   len(allChunks),
		"embedded": embedded,
		"failed":   len(allChunks) - embedded,
		"cost":     totalCost,
	})
}

// embedBatches embeds chunks in fixed-size batches with a short pause in
// between. A failed batch is recorded as per-chunk error rows so reruns can
// see which chunks never got vectors; it does not abort the remaining
// batches.
func (h *Handler) embedBatches(c *runtime.Context, dbc dbctx.Context, chunks []*types.ContentChunk) (int, float64, error) {
	embedded := 0
	totalCost := 0.0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		if start > 0 {
			select {
			case <-c.Ctx.Done():
				return embedded, totalCost, c.Ctx.Err()
			case <-time.After(interBatchDelay):
			}
		}

		inputs := make([]string, len(batch))
		for i, chunk := range batch {
			inputs[i] = chunk.Text
		}
		vectors, cost, err := h.client.Embed(c.Ctx, inputs)
		rows := make([]*types.Embedding, len(batch))
		if err != nil {
			h.log.Warn("Embedding batch failed", "start", start, "size", len(batch), "error", err)
			for i, chunk := range batch {
				rows[i] = &types.Embedding{
					ChunkID:  chunk.ID,
					BrandID:  chunk.BrandID,
					Provider: "openai",
					Model:    h.client.EmbedModel(),
					Error:    err.Error(),
				}
			}
		} else {
			totalCost += cost
			perChunkCost := cost / float64(len(batch))
			for i, chunk := range batch {
				rows[i] = &types.Embedding{
					ChunkID:  chunk.ID,
					BrandID:  chunk.BrandID,
					Provider: "openai",
					Model:    h.client.EmbedModel(),
					Vector:   types.MustJSON(vectors[i]),
					Cost:     perChunkCost,
				}
			}
			embedded += len(batch)
		}
		if _, err := h.embeddings.Create(dbc, rows); err != nil {
			return embedded, totalCost, fmt.Errorf("persist embeddings: %w", err)
		}
		pct := 30 + (end*60)/len(chunks)
		c.Progress(pct, "")
	}
	return embedded, totalCost, nil
}
