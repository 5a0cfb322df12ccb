package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Job types dispatched by the maintenance worker.
const (
	TypeExpireSessions    = "sessions.expire"
	TypeAggregateOutcomes = "outcomes.aggregate"
	TypeDecayConfidence   = "learnings.decay"
)

// JobRun is one claimable unit of periodic/batch work. The external scheduler
// enqueues rows at-least-once; handlers are re-entrant so duplicate runs are
// harmless.
type JobRun struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;column:organization_id;index" json:"organization_id,omitempty"`

	JobType  string `gorm:"column:job_type;not null;index" json:"job_type"`
	Status   string `gorm:"column:status;not null;index" json:"status"`
	Attempts int    `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error    string `gorm:"column:error" json:"error,omitempty"`

	LockedAt    *time.Time `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`

	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Result  datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (JobRun) TableName() string { return "job_run" }
