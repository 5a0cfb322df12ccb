package goals

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// Dialogue steps, in protocol order. No backward transitions.
const (
	StepIntro    = "intro"
	StepWhy      = "why"
	StepWhat     = "what"
	StepHow      = "how"
	StepComplete = "complete"
)

// NextStep returns the step following s, or "" when s is terminal or unknown.
func NextStep(s string) string {
	switch s {
	case StepIntro:
		return StepWhy
	case StepWhy:
		return StepWhat
	case StepWhat:
		return StepHow
	case StepHow:
		return StepComplete
	default:
		return ""
	}
}

// GoalSettingSession is one active WHY→WHAT→HOW dialogue per (org, user, room).
// The partial unique index keeps concurrent StartSession calls from both
// succeeding: only one in_progress row may exist per triple.
type GoalSettingSession struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_goal_session_active,unique,where:status = 'in_progress',priority:1" json:"organization_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index;index:idx_goal_session_active,unique,where:status = 'in_progress',priority:2" json:"user_id"`
	RoomID         string    `gorm:"column:room_id;not null;index:idx_goal_session_active,unique,where:status = 'in_progress',priority:3" json:"room_id"`

	Status      string `gorm:"column:status;not null;default:'in_progress';index" json:"status"`
	CurrentStep string `gorm:"column:current_step;not null;default:'intro'" json:"current_step"`
	StepAttempt int    `gorm:"column:step_attempt;not null;default:1" json:"step_attempt"`

	WhyAnswer  string `gorm:"column:why_answer;type:text" json:"why_answer,omitempty"`
	WhatAnswer string `gorm:"column:what_answer;type:text" json:"what_answer,omitempty"`
	HowAnswer  string `gorm:"column:how_answer;type:text" json:"how_answer,omitempty"`

	ResultingGoalID *uuid.UUID `gorm:"type:uuid;column:resulting_goal_id" json:"resulting_goal_id,omitempty"`
	Classification  string     `gorm:"column:classification;not null;default:'internal'" json:"classification"`

	StartedAt      time.Time  `gorm:"column:started_at;not null;default:now()" json:"started_at"`
	LastActivityAt time.Time  `gorm:"column:last_activity_at;not null;default:now()" json:"last_activity_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ExpiresAt      time.Time  `gorm:"column:expires_at;not null;index" json:"expires_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GoalSettingSession) TableName() string { return "goal_setting_sessions" }
