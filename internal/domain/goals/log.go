package goals

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Turn results.
const (
	ResultAccepted  = "accepted"
	ResultRetry     = "retry"
	ResultAbandoned = "abandoned"
)

// GoalSettingLog is an append-only record of one turn within a session.
// Never mutated after insert.
type GoalSettingLog struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`

	Step        string `gorm:"column:step;not null" json:"step"`
	Attempt     int    `gorm:"column:attempt;not null" json:"attempt"`
	UserMessage string `gorm:"column:user_message;type:text;not null" json:"user_message"`
	AIResponse  string `gorm:"column:ai_response;type:text" json:"ai_response,omitempty"`

	PatternCode string         `gorm:"column:pattern_code;index" json:"pattern_code,omitempty"`
	Evaluation  datatypes.JSON `gorm:"type:jsonb;column:evaluation" json:"evaluation,omitempty"`
	Result      string         `gorm:"column:result;not null" json:"result"`

	Classification string    `gorm:"column:classification;not null;default:'internal'" json:"classification"`
	CreatedAt      time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (GoalSettingLog) TableName() string { return "goal_setting_logs" }

// Evaluation is the structured assessment of one answer, stored as jsonb on
// the turn log.
type Evaluation struct {
	Specificity    float64  `json:"specificity"`
	Direction      float64  `json:"direction"`
	Connection     float64  `json:"connection"`
	Issues         []string `json:"issues,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	ForcedAdvance  bool     `json:"forced_advance,omitempty"`
}
