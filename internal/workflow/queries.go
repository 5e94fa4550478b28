package workflow

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillbridge-app/backend/internal/models"
)

// Read-only lookups. Listings return the full current set in insertion
// order; filtering and pagination are the caller's problem.

func (e *Engine) GetProject(projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := e.DB.Preload("Bids", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&project, "id = ?", projectID).Error
	if err != nil {
		return nil, notFoundOr(err, "project")
	}
	return &project, nil
}

func (e *Engine) ListProjects() ([]models.Project, error) {
	var projects []models.Project
	err := e.DB.Preload("Bids", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("created_at ASC").Find(&projects).Error
	if err != nil {
		return nil, wrap(KindInternal, err, "listing projects")
	}
	return projects, nil
}

func (e *Engine) ListApplications() ([]models.Application, error) {
	var apps []models.Application
	if err := e.DB.Order("created_at ASC").Find(&apps).Error; err != nil {
		return nil, wrap(KindInternal, err, "listing applications")
	}
	return apps, nil
}

// GetFreelancer looks up a freelancer profile by the owning user's id.
func (e *Engine) GetFreelancer(userID uuid.UUID) (*models.Freelancer, error) {
	var profile models.Freelancer
	if err := e.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "freelancer profile")
	}
	return &profile, nil
}

func (e *Engine) GetUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := e.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

func (e *Engine) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := e.DB.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, wrap(KindInternal, err, "listing users")
	}
	return users, nil
}
