package outcomes

import (
	"time"

	"github.com/google/uuid"
)

// OutcomePattern aggregates resolved OutcomeEvents into a statistical rule.
// SuccessRate is the raw ratio; ConfidenceScore is a sample-size-aware lower
// bound and deliberately stays below the raw rate for small samples.
type OutcomePattern struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_outcome_pattern_group,unique,priority:1" json:"organization_id"`

	PatternType string `gorm:"column:pattern_type;not null;index:idx_outcome_pattern_group,unique,priority:2" json:"pattern_type"`
	Scope       string `gorm:"column:scope;not null;default:'global';index:idx_outcome_pattern_group,unique,priority:3" json:"scope"`
	ScopeTarget string `gorm:"column:scope_target;not null;default:'';index:idx_outcome_pattern_group,unique,priority:4" json:"scope_target"`

	Description string `gorm:"column:description;type:text" json:"description,omitempty"`

	SampleCount     int64   `gorm:"column:sample_count;not null;default:0" json:"sample_count"`
	SuccessCount    int64   `gorm:"column:success_count;not null;default:0" json:"success_count"`
	FailureCount    int64   `gorm:"column:failure_count;not null;default:0" json:"failure_count"`
	SuccessRate     float64 `gorm:"column:success_rate;not null;default:0" json:"success_rate"`
	ConfidenceScore float64 `gorm:"column:confidence_score;not null;default:0" json:"confidence_score"`

	PromotedToLearningID *uuid.UUID `gorm:"type:uuid;column:promoted_to_learning_id" json:"promoted_to_learning_id,omitempty"`

	LastAggregatedAt *time.Time `gorm:"column:last_aggregated_at" json:"last_aggregated_at,omitempty"`

	Classification string    `gorm:"column:classification;not null;default:'internal'" json:"classification"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (OutcomePattern) TableName() string { return "outcome_patterns" }
