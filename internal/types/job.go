package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Job types form the fixed per-brand pipeline. The set is closed: the queue
// rejects anything else at enqueue time.
const (
	JobTypeCrawl          = "crawl"
	JobTypeNormalize      = "normalize"
	JobTypeEmbed          = "embed"
	JobTypeSample         = "sample"
	JobTypeScore          = "score"
	JobTypeAssembleReport = "assemble_report"
)

const (
	JobStatusQueued   = "queued"
	JobStatusRunning  = "running"
	JobStatusComplete = "complete"
	JobStatusFailed   = "failed"
)

func ValidJobType(t string) bool {
	switch t {
	case JobTypeCrawl, JobTypeNormalize, JobTypeEmbed, JobTypeSample, JobTypeScore, JobTypeAssembleReport:
		return true
	}
	return false
}

// Job is one unit of deferred pipeline work. Rows are append-only in normal
// operation: retries create new rows referencing the original via RetryOf.
type Job struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BrandID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"brand_id"`
	JobType        string         `gorm:"column:job_type;not null;index:idx_job_type_idem,unique,where:idempotency_key IS NOT NULL" json:"job_type"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	Priority       int            `gorm:"column:priority;not null;default:100;index" json:"priority"`
	RetryCount     int            `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	MaxRetries     int            `gorm:"column:max_retries;not null;default:3" json:"max_retries"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	IdempotencyKey *string        `gorm:"column:idempotency_key;index:idx_job_type_idem,unique,where:idempotency_key IS NOT NULL" json:"idempotency_key,omitempty"`
	RetryOf        *uuid.UUID     `gorm:"type:uuid;column:retry_of" json:"retry_of,omitempty"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result         datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	Progress       int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Error          string         `gorm:"column:error" json:"error,omitempty"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string { return "job" }

// JobDependency gates claiming: a job is claimable only once every row here
// points at a job whose status is complete.
type JobDependency struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_dep_pair" json:"job_id"`
	DependsOnID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_dep_pair" json:"depends_on_id"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (JobDependency) TableName() string { return "job_dependency" }
