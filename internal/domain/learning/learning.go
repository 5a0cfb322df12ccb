package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Learning categories.
const (
	CategoryAlias        = "alias"
	CategoryPreference   = "preference"
	CategoryFact         = "fact"
	CategoryRule         = "rule"
	CategoryCorrection   = "correction"
	CategoryContext      = "context"
	CategoryRelationship = "relationship"
	CategoryProcedure    = "procedure"
)

// Trigger types.
const (
	TriggerKeyword = "keyword"
	TriggerPattern = "pattern"
	TriggerContext = "context"
	TriggerAlways  = "always"
)

// Scopes.
const (
	ScopeGlobal    = "global"
	ScopeUser      = "user"
	ScopeRoom      = "room"
	ScopeTemporary = "temporary"
)

// Learning is a taught fact or rule. Rows are never hard-deleted: a newer
// learning for the same trigger supersedes the old one, which stays linked
// through the supersession pointers with is_active=false.
type Learning struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`

	Category     string         `gorm:"column:category;not null;index" json:"category"`
	TriggerType  string         `gorm:"column:trigger_type;not null;default:'keyword'" json:"trigger_type"`
	TriggerValue string         `gorm:"column:trigger_value;not null;index" json:"trigger_value"`
	Content      datatypes.JSON `gorm:"type:jsonb;column:content;not null" json:"content"`
	ContentVer   int            `gorm:"column:content_version;not null;default:1" json:"content_version"`

	Scope       string         `gorm:"column:scope;not null;default:'global';index" json:"scope"`
	ScopeTarget string         `gorm:"column:scope_target" json:"scope_target,omitempty"`
	Authority   AuthorityLevel `gorm:"column:authority;not null;default:'user'" json:"authority"`

	ValidFrom  *time.Time `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidUntil *time.Time `gorm:"column:valid_until;index" json:"valid_until,omitempty"`

	TaughtBy        uuid.UUID `gorm:"type:uuid;column:taught_by" json:"taught_by,omitempty"`
	SourceMessageID string    `gorm:"column:source_message_id" json:"source_message_id,omitempty"`
	SourceContext   string    `gorm:"column:source_context;type:text" json:"source_context,omitempty"`

	Confidence          float64    `gorm:"column:confidence;not null;default:1.0" json:"confidence"`
	ConfidenceDecayRate float64    `gorm:"column:confidence_decay_rate;not null;default:0" json:"confidence_decay_rate"`
	LastDecayedAt       time.Time  `gorm:"column:last_decayed_at;not null;default:now()" json:"last_decayed_at"`
	AppliedCount        int64      `gorm:"column:applied_count;not null;default:0" json:"applied_count"`
	SuccessCount        int64      `gorm:"column:success_count;not null;default:0" json:"success_count"`
	FailureCount        int64      `gorm:"column:failure_count;not null;default:0" json:"failure_count"`
	LastAppliedAt       *time.Time `gorm:"column:last_applied_at" json:"last_applied_at,omitempty"`

	IsActive       bool       `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	SupersedesID   *uuid.UUID `gorm:"type:uuid;column:supersedes_id" json:"supersedes_id,omitempty"`
	SupersededByID *uuid.UUID `gorm:"type:uuid;column:superseded_by_id" json:"superseded_by_id,omitempty"`

	Classification string `gorm:"column:classification;not null;default:'internal'" json:"classification"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Learning) TableName() string { return "learnings" }

// ValidAt reports whether the learning's validity window covers t.
// Window expiry is a query-time filter: a temporary learning past valid_until
// stays is_active=true but must never be returned as applicable.
func (l *Learning) ValidAt(t time.Time) bool {
	if l.ValidFrom != nil && t.Before(*l.ValidFrom) {
		return false
	}
	if l.ValidUntil != nil && !t.Before(*l.ValidUntil) {
		return false
	}
	return true
}
