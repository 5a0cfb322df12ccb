package goals

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Pattern codes for answer classification.
const (
	PatternOK           = "ok"
	PatternNGCareer     = "ng_career"
	PatternNGAbstract   = "ng_abstract"
	PatternNGOtherBlame = "ng_other_blame"
	PatternNGNoGoal     = "ng_no_goal"
	PatternNGTooHigh    = "ng_too_high"
	PatternNGNotConn    = "ng_not_connected"
	PatternNGMental     = "ng_mental_health"
	PatternNGPrivate    = "ng_private_only"
	PatternUnknown      = "unknown"
	PatternExit         = "exit"
)

// Response strategy codes recommended per pattern.
const (
	StrategyProceed           = "proceed"
	StrategyRedirectToCompany = "redirect_to_company"
	StrategyAskSpecificity    = "ask_for_specificity"
	StrategySelfFocus         = "empathize_then_self_focus"
	StrategyInspire           = "inspire_possibility"
	StrategyMilestone         = "suggest_milestone"
	StrategyConnectToResult   = "connect_to_result"
	StrategySuggestHuman      = "empathize_and_suggest_human"
	StrategyAddWorkGoal       = "add_work_goal"
	StrategyClarify           = "ask_for_clarification"
	StrategyAccept            = "accept"
)

// GoalSettingPattern is a shared (non tenant-scoped) catalog entry describing
// one answer-classification category and the strategy to respond with.
// Occurrence counts are bumped in the same transaction as each log insert.
type GoalSettingPattern struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code        string         `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Keywords    datatypes.JSON `gorm:"type:jsonb;column:keywords" json:"keywords,omitempty"`
	Strategy    string         `gorm:"column:strategy;not null" json:"strategy"`
	IsNG        bool           `gorm:"column:is_ng;not null;default:false" json:"is_ng"`
	Priority    int            `gorm:"column:priority;not null;default:100;index" json:"priority"`

	OccurrenceCount int64 `gorm:"column:occurrence_count;not null;default:0" json:"occurrence_count"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (GoalSettingPattern) TableName() string { return "goal_setting_patterns" }
