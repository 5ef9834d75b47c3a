package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/types"
)

func SeedBrand(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, domain string) *types.Brand {
	tb.Helper()
	b := &types.Brand{
		ID:          uuid.New(),
		Name:        name,
		Domain:      domain,
		Competitors: datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed brand: %v", err)
	}
	return b
}

func SeedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, brandID uuid.UUID, jobType string, status string) *types.Job {
	tb.Helper()
	j := &types.Job{
		ID:         uuid.New(),
		BrandID:    brandID,
		JobType:    jobType,
		Status:     status,
		Priority:   100,
		MaxRetries: 3,
		Payload:    datatypes.JSON([]byte("{}")),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}

func SeedDependency(tb testing.TB, ctx context.Context, tx *gorm.DB, jobID uuid.UUID, dependsOnID uuid.UUID) *types.JobDependency {
	tb.Helper()
	d := &types.JobDependency{
		ID:          uuid.New(),
		JobID:       jobID,
		DependsOnID: dependsOnID,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed dependency: %v", err)
	}
	return d
}

func SeedResponse(tb testing.TB, ctx context.Context, tx *gorm.DB, brandID uuid.UUID, model string, text string) *types.PromptResponse {
	tb.Helper()
	r := &types.PromptResponse{
		ID:           uuid.New(),
		BrandID:      brandID,
		Model:        model,
		Prompt:       "prompt",
		Intent:       "informational",
		ResponseText: text,
		MentionType:  types.MentionTypeNone,
		Sentiment:    types.SentimentNeutral,
		Snippets:     datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed response: %v", err)
	}
	return r
}

func SeedEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, brandID uuid.UUID, url string, body string) *types.ContentEntry {
	tb.Helper()
	e := &types.ContentEntry{
		ID:          uuid.New(),
		BrandID:     brandID,
		SourceURL:   url,
		Title:       "title",
		MetaTags:    datatypes.JSON([]byte("{}")),
		Headings:    datatypes.JSON([]byte("[]")),
		MainContent: body,
		WordCount:   len(body),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed entry: %v", err)
	}
	return e
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
