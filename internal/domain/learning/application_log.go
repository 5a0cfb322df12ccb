package learning

import (
	"time"

	"github.com/google/uuid"
)

// Feedback values recorded out-of-band after an application.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// LearningApplicationLog records one application of a learning to a live
// interaction. ContextHash deduplicates repeat applications within the same
// conversation turn so counters are not double-bumped.
type LearningApplicationLog struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	LearningID     uuid.UUID `gorm:"type:uuid;not null;index" json:"learning_id"`

	ContextHash    string `gorm:"column:context_hash;not null;index" json:"context_hash"`
	TriggerMessage string `gorm:"column:trigger_message;type:text" json:"trigger_message,omitempty"`
	Succeeded      bool   `gorm:"column:succeeded;not null;default:true" json:"succeeded"`
	LatencyMS      int64  `gorm:"column:latency_ms;not null;default:0" json:"latency_ms"`
	Feedback       string `gorm:"column:feedback" json:"feedback,omitempty"`

	Classification string    `gorm:"column:classification;not null;default:'internal'" json:"classification"`
	CreatedAt      time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (LearningApplicationLog) TableName() string { return "learning_application_logs" }
