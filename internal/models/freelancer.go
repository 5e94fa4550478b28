package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Freelancer is the work profile attached to a user with RoleFreelancer.
// Funds accrue when a client approves a submitted project.
type Freelancer struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Skills      datatypes.JSON `json:"skills"` // JSON array of strings
	Description string         `gorm:"type:text" json:"description"`

	Applications      UUIDList `json:"applications"`
	CurrentProjects   UUIDList `json:"current_projects"`
	CompletedProjects UUIDList `json:"completed_projects"`

	Funds int64 `gorm:"not null;default:0" json:"funds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *Freelancer) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}
