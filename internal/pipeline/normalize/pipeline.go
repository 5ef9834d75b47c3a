package normalize

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/platform/blob"
	"github.com/brightloop/geoscore-backend/internal/repos"
	"github.com/brightloop/geoscore-backend/internal/types"

	"github.com/google/uuid"
)

const fetchConcurrency = 4

// Handler turns raw crawled pages into ContentEntry rows plus extracted
// claims, then chains the embed stage.
type Handler struct {
	log     *logger.Logger
	store   blob.Store
	brands  repos.BrandRepo
	entries repos.ContentEntryRepo
	claims  repos.ContentClaimRepo
}

func NewHandler(log *logger.Logger, store blob.Store, brands repos.BrandRepo, entries repos.ContentEntryRepo, claims repos.ContentClaimRepo) *Handler {
	return &Handler{
		log:     log.With("stage", "normalize"),
		store:   store,
		brands:  brands,
		entries: entries,
		claims:  claims,
	}
}

func (h *Handler) Type() string { return types.JobTypeNormalize }

type pageResult struct {
	key  string
	page *PageExtract
	err  error
}

func (h *Handler) Run(c *runtime.Context) error {
	var payload runtime.NormalizePayload
	if err := c.DecodePayload(&payload); err != nil {
		return err
	}
	if len(payload.PageKeys) == 0 {
		return fmt.Errorf("normalize: no page keys: %w", errs.ErrInvalidArgument)
	}

	dbc := dbctx.New(c.Ctx)
	brand, err := h.brands.GetByID(dbc, c.Job.BrandID)
	if err != nil {
		return fmt.Errorf("load brand: %w", err)
	}
	if brand == nil {
		return fmt.Errorf("brand %s: %w", c.Job.BrandID, errs.ErrNotFound)
	}

	// Bounded fan-out. Individual page failures are recorded, not fatal; the
	// errgroup only propagates context cancellation.
	results := make([]pageResult, len(payload.PageKeys))
	g, gctx := errgroup.WithContext(c.Ctx)
	g.SetLimit(fetchConcurrency)
	for i, key := range payload.PageKeys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := h.store.Read(gctx, key)
			if err != nil {
				results[i] = pageResult{key: key, err: errs.External("blob", err)}
				return nil
			}
			page, err := Extract(raw)
			if err != nil {
				results[i] = pageResult{key: key, err: fmt.Errorf("extract: %w", err)}
				return nil
			}
			results[i] = pageResult{key: key, page: page}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.Progress(40, "pages fetched")

	var entryIDs []uuid.UUID
	var claimCount, failed int
	for _, res := range results {
		if res.err != nil {
			failed++
			h.log.Warn("Page skipped", "key", res.key, "error", res.err)
			continue
		}
		sourceURL := res.page.CanonicalURL
		if sourceURL == "" {
			sourceURL = res.key
		}
		entry := &types.ContentEntry{
			BrandID:     brand.ID,
			SourceURL:   sourceURL,
			Title:       res.page.Title,
			Description: res.page.Description,
			MetaTags:    types.MustJSON(res.page.MetaTags),
			Headings:    types.MustJSON(res.page.Headings),
			LinkCount:   res.page.LinkCount,
			ImageCount:  res.page.ImageCount,
			MainContent: res.page.MainContent,
			WordCount:   res.page.WordCount,
		}
		if _, err := h.entries.Create(dbc, []*types.ContentEntry{entry}); err != nil {
			return fmt.Errorf("persist entry %q: %w", res.key, err)
		}
		claims := ExtractClaims(entry.ID, brand.ID, brand.Name, res.page)
		if _, err := h.claims.Create(dbc, claims); err != nil {
			return fmt.Errorf("persist claims for %q: %w", res.key, err)
		}
		claimCount += len(claims)
		entryIDs = append(entryIDs, entry.ID)
	}
	if len(entryIDs) == 0 {
		return fmt.Errorf("normalize: all %d pages failed", failed)
	}

	c.Progress(90, "entries persisted")

	if _, err := c.EnqueueNext(types.JobTypeEmbed, runtime.EmbedPayload{EntryIDs: entryIDs}); err != nil {
		return fmt.Errorf("enqueue embed: %w", err)
	}
	return c.Complete(map[string]any{
		"entries":      len(entryIDs),
		"claims":       claimCount,
		"pages_failed": failed,
		"pages_total":  len(payload.PageKeys),
	})
}
