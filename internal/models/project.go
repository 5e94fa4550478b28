package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusOpen      ProjectStatus = "Open"      // accepting bids
	ProjectStatusAssigned  ProjectStatus = "Assigned"  // awarded, bids frozen
	ProjectStatusCompleted ProjectStatus = "Completed" // terminal
)

type Project struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Budget      int64          `gorm:"not null" json:"budget"` // overwritten by the winning bid on award
	Skills      datatypes.JSON `json:"skills"`                 // JSON array of strings

	ClientID    uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`

	Status ProjectStatus `gorm:"type:varchar(20);not null;default:'Open';index" json:"status"`

	// Set on award.
	FreelancerID   *uuid.UUID `gorm:"type:uuid;index" json:"freelancer_id,omitempty"`
	FreelancerName string     `json:"freelancer_name,omitempty"`

	// Submission fields; only meaningful while Assigned or after completion.
	SubmissionLink        string `gorm:"type:text" json:"submission_link"`
	ManualLink            string `gorm:"type:text" json:"manual_link"`
	SubmissionDescription string `gorm:"type:text" json:"submission_description"`
	Submitted             bool   `gorm:"not null;default:false" json:"submitted"`
	SubmissionAccepted    bool   `gorm:"not null;default:false" json:"submission_accepted"`

	PostedAt  time.Time `json:"posted_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Bids []ProjectBid `gorm:"foreignKey:ProjectID" json:"bids"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// ProjectBid is one entry in a project's bid ledger. The (freelancer, amount)
// pairing is structural; Position preserves ledger order.
type ProjectBid struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;index;not null" json:"freelancer_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Position     int       `gorm:"not null" json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}
