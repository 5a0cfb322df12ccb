package outcomes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Observed outcomes of a proactive action.
const (
	OutcomePending  = "pending"
	OutcomeAdopted  = "adopted"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeDelayed  = "delayed"
	OutcomePartial  = "partial"
)

// OutcomeEvent records a single proactive action (reminder, notification) and
// the outcome eventually observed for it. Events stay pending until a later
// signal resolves them.
type OutcomeEvent struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`

	ActionType  string     `gorm:"column:action_type;not null;index" json:"action_type"`
	PatternType string     `gorm:"column:pattern_type;not null;index" json:"pattern_type"`
	Scope       string     `gorm:"column:scope;not null;default:'global'" json:"scope"`
	ScopeTarget string     `gorm:"column:scope_target" json:"scope_target,omitempty"`
	UserID      *uuid.UUID `gorm:"type:uuid;column:user_id;index" json:"user_id,omitempty"`

	Payload datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	SentAt  time.Time      `gorm:"column:sent_at;not null;default:now();index" json:"sent_at"`

	Outcome         string     `gorm:"column:outcome;not null;default:'pending'" json:"outcome"`
	OutcomeDetected bool       `gorm:"column:outcome_detected;not null;default:false;index" json:"outcome_detected"`
	OutcomeAt       *time.Time `gorm:"column:outcome_at" json:"outcome_at,omitempty"`

	PatternID *uuid.UUID `gorm:"type:uuid;column:pattern_id;index" json:"pattern_id,omitempty"`

	Classification string    `gorm:"column:classification;not null;default:'internal'" json:"classification"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (OutcomeEvent) TableName() string { return "outcome_events" }

// SuccessOutcomes are the resolved outcomes that count toward a pattern's
// success tally. Partial adoption counts; delayed does not. Aggregation
// queries take this slice directly, so the rule lives in one place.
var SuccessOutcomes = []string{OutcomeAdopted, OutcomePartial}
