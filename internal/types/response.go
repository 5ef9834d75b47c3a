package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MentionTypeExplicit = "explicit"
	MentionTypeImplicit = "implicit"
	MentionTypeNone     = "none"
)

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// PromptResponse is one language-model answer to one derived prompt. The
// sample stage writes the prompt/response columns; the score stage fills in
// the mention analysis afterwards.
type PromptResponse struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BrandID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"brand_id"`
	Model         string         `gorm:"column:model;not null;index" json:"model"`
	Prompt        string         `gorm:"column:prompt;type:text;not null" json:"prompt"`
	Intent        string         `gorm:"column:intent;index" json:"intent"`
	ResponseText  string         `gorm:"column:response_text;type:text" json:"response_text"`
	Mentioned     bool           `gorm:"column:mentioned;not null;default:false;index" json:"mentioned"`
	MentionType   string         `gorm:"column:mention_type;not null;default:none" json:"mention_type"`
	MentionCount  int            `gorm:"column:mention_count;not null;default:0" json:"mention_count"`
	Sentiment     string         `gorm:"column:sentiment;not null;default:neutral" json:"sentiment"`
	Confidence    float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	Snippets      datatypes.JSON `gorm:"column:snippets;type:jsonb" json:"snippets,omitempty"`
	ResponseScore float64        `gorm:"column:response_score;not null;default:0" json:"response_score"`
	ScoredAt      *time.Time     `gorm:"column:scored_at" json:"scored_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (PromptResponse) TableName() string { return "prompt_response" }
