package runtime

import (
	"github.com/google/uuid"
)

// Stage payloads form a tagged union keyed by job type. Each stage decodes
// only its own variant, so a stage-mismatch surfaces as a decode/validation
// failure instead of silent map lookups.

// CrawlPayload seeds onboarding: which pages the crawler stored for a brand.
type CrawlPayload struct {
	SeedURL  string   `json:"seed_url"`
	PageKeys []string `json:"page_keys"`
}

// NormalizePayload lists raw page blobs to normalize.
type NormalizePayload struct {
	PageKeys []string `json:"page_keys"`
}

// EmbedPayload lists the content entries produced by normalize.
type EmbedPayload struct {
	EntryIDs []uuid.UUID `json:"entry_ids"`
}

type SamplePrompt struct {
	Text   string `json:"text"`
	Intent string `json:"intent"`
}

// SamplePayload drives prompt execution against the external models.
type SamplePayload struct {
	Models  []string       `json:"models"`
	Prompts []SamplePrompt `json:"prompts"`
}

// ScorePayload configures the scoring pass.
type ScorePayload struct {
	IncludeCompetitors bool `json:"include_competitors"`
}

// ReportPayload points the report stage at a score; empty means latest.
type ReportPayload struct {
	ScoreID *uuid.UUID `json:"score_id,omitempty"`
}
