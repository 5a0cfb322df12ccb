package episodes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Episode records one discrete interaction event for later recall.
// Keywords and entities are stored as jsonb string arrays and drive
// keyword/entity recall; OccurredAt drives temporal recall.
type Episode struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RoomID         string    `gorm:"column:room_id;index" json:"room_id,omitempty"`

	EventType string `gorm:"column:event_type;not null;index" json:"event_type"`
	Summary   string `gorm:"column:summary;type:text;not null" json:"summary"`
	Content   string `gorm:"column:content;type:text" json:"content,omitempty"`

	Keywords   datatypes.JSON `gorm:"type:jsonb;column:keywords" json:"keywords,omitempty"`
	Entities   datatypes.JSON `gorm:"type:jsonb;column:entities" json:"entities,omitempty"`
	Importance float64        `gorm:"column:importance;not null;default:0.5" json:"importance"`

	OccurredAt time.Time `gorm:"column:occurred_at;not null;default:now();index" json:"occurred_at"`

	Classification string         `gorm:"column:classification;not null;default:'internal'" json:"classification"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Episode) TableName() string { return "episodes" }
