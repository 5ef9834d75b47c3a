package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Brand struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Domain      string         `gorm:"column:domain;not null;index" json:"domain"`
	Competitors datatypes.JSON `gorm:"column:competitors;type:jsonb" json:"competitors,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Brand) TableName() string { return "brand" }

// CompetitorNames decodes the competitors JSON array, empty on any error.
func (b *Brand) CompetitorNames() []string {
	if b == nil || len(b.Competitors) == 0 {
		return nil
	}
	var out []string
	if err := jsonUnmarshal(b.Competitors, &out); err != nil {
		return nil
	}
	return out
}
