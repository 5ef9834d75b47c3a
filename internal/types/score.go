package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GeoScore is the composite visibility score for one brand at one point in
// time. Overall is always round(sum of the six weighted components).
type GeoScore struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BrandID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"brand_id"`
	Overall            int            `gorm:"column:overall;not null" json:"overall"`
	Presence           float64        `gorm:"column:presence;not null" json:"presence"`
	Accuracy           float64        `gorm:"column:accuracy;not null" json:"accuracy"`
	Salience           float64        `gorm:"column:salience;not null" json:"salience"`
	Authority          float64        `gorm:"column:authority;not null" json:"authority"`
	Freshness          float64        `gorm:"column:freshness;not null" json:"freshness"`
	Robustness         float64        `gorm:"column:robustness;not null" json:"robustness"`
	Breakdown          datatypes.JSON `gorm:"column:breakdown;type:jsonb" json:"breakdown,omitempty"`
	CompetitorRatios   datatypes.JSON `gorm:"column:competitor_ratios;type:jsonb" json:"competitor_ratios,omitempty"`
	Evidence           datatypes.JSON `gorm:"column:evidence;type:jsonb" json:"evidence,omitempty"`
	ResponsesTotal     int            `gorm:"column:responses_total;not null;default:0" json:"responses_total"`
	ResponsesMentioned int            `gorm:"column:responses_mentioned;not null;default:0" json:"responses_mentioned"`
	CreatedAt          time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (GeoScore) TableName() string { return "geo_score" }

// Report is the assembled snapshot the report stage produces from a score.
type Report struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BrandID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"brand_id"`
	ScoreID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"score_id"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (Report) TableName() string { return "report" }
