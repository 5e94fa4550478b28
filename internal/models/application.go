package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "Pending"
	ApplicationStatusAccepted ApplicationStatus = "Accepted"
	ApplicationStatusRejected ApplicationStatus = "Rejected"
)

// ProjectSnapshot is the project and client data captured at bid time. It is
// immutable: later project edits do not propagate into submitted bids.
type ProjectSnapshot struct {
	Title          string         `json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Budget         int64          `json:"budget"`
	RequiredSkills datatypes.JSON `json:"required_skills"`
	ClientID       uuid.UUID      `gorm:"type:uuid" json:"client_id"`
	ClientName     string         `json:"client_name"`
	ClientEmail    string         `json:"client_email"`
}

// FreelancerSnapshot is the bidder's identity captured at bid time.
type FreelancerSnapshot struct {
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Skills datatypes.JSON `json:"skills"`
}

// Application is a single bid. Status is decided at most once by the award
// workflow; applications are never deleted.
type Application struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;index;not null" json:"freelancer_id"`

	Project    ProjectSnapshot    `gorm:"embedded;embeddedPrefix:project_" json:"project"`
	Freelancer FreelancerSnapshot `gorm:"embedded;embeddedPrefix:freelancer_" json:"freelancer"`

	Proposal      string `gorm:"type:text" json:"proposal"`
	BidAmount     int64  `gorm:"not null" json:"bid_amount"`
	EstimatedTime string `json:"estimated_time"`

	Status ApplicationStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
