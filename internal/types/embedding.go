package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Embedding is 1:1 with a ContentChunk. A row with a non-empty Error and
// zero cost records a provider failure for that chunk.
type Embedding struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChunkID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"chunk_id"`
	BrandID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"brand_id"`
	Provider  string         `gorm:"column:provider;not null" json:"provider"`
	Model     string         `gorm:"column:model;not null" json:"model"`
	Vector    datatypes.JSON `gorm:"column:vector;type:jsonb" json:"vector,omitempty"`
	Cost      float64        `gorm:"column:cost;not null;default:0" json:"cost"`
	Error     string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Embedding) TableName() string { return "embedding" }
