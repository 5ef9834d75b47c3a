package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ContentEntry is one normalized crawled page.
type ContentEntry struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BrandID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"brand_id"`
	SourceURL   string         `gorm:"column:source_url;not null" json:"source_url"`
	Title       string         `gorm:"column:title" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	MetaTags    datatypes.JSON `gorm:"column:meta_tags;type:jsonb" json:"meta_tags,omitempty"`
	Headings    datatypes.JSON `gorm:"column:headings;type:jsonb" json:"headings,omitempty"`
	LinkCount   int            `gorm:"column:link_count;not null;default:0" json:"link_count"`
	ImageCount  int            `gorm:"column:image_count;not null;default:0" json:"image_count"`
	MainContent string         `gorm:"column:main_content;type:text" json:"main_content"`
	WordCount   int            `gorm:"column:word_count;not null;default:0" json:"word_count"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ContentEntry) TableName() string { return "content_entry" }

const (
	ClaimTypeCompanyInfo    = "company_info"
	ClaimTypeLocation       = "location"
	ClaimTypeService        = "service"
	ClaimTypeContact        = "contact"
	ClaimTypeBrandStatement = "brand_statement"
)

const (
	ClaimSourceStructuredData = "structured_data"
	ClaimSourceHeading        = "heading"
	ClaimSourcePattern        = "pattern"
	ClaimSourceSentence       = "sentence"
)

// ContentClaim is a short factual assertion extracted from a page.
type ContentClaim struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EntryID    uuid.UUID `gorm:"type:uuid;not null;index" json:"entry_id"`
	BrandID    uuid.UUID `gorm:"type:uuid;not null;index" json:"brand_id"`
	Text       string    `gorm:"column:text;type:text;not null" json:"text"`
	ClaimType  string    `gorm:"column:claim_type;not null;index" json:"claim_type"`
	Source     string    `gorm:"column:source;not null" json:"source"`
	Confidence float64   `gorm:"column:confidence;not null" json:"confidence"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ContentClaim) TableName() string { return "content_claim" }

const (
	ChunkTypeTitle     = "title"
	ChunkTypeHeading   = "heading"
	ChunkTypeParagraph = "paragraph"
	ChunkTypeClaim     = "claim"
	ChunkTypeMetadata  = "metadata"
)

type ContentChunk struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EntryID    uuid.UUID `gorm:"type:uuid;not null;index" json:"entry_id"`
	BrandID    uuid.UUID `gorm:"type:uuid;not null;index" json:"brand_id"`
	ChunkIndex int       `gorm:"column:chunk_index;not null;default:0" json:"chunk_index"`
	ChunkType  string    `gorm:"column:chunk_type;not null;index" json:"chunk_type"`
	Text       string    `gorm:"column:text;type:text;not null" json:"text"`
	TokenCount int       `gorm:"column:token_count;not null;default:0" json:"token_count"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ContentChunk) TableName() string { return "content_chunk" }
