package workflow

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillbridge-app/backend/internal/models"
	"github.com/skillbridge-app/backend/internal/services/wallet"
)

// Engine implements the bid-and-award workflow across projects, applications
// and freelancer profiles. Every multi-record transition runs inside a DB
// transaction under the per-entity locks, with status guards on the UPDATEs
// so a racing transition observes Conflict instead of double-applying.
type Engine struct {
	DB       *gorm.DB
	Wallet   *wallet.Service
	Notifier Notifier

	locks *keyLocker
}

func NewEngine(db *gorm.DB, w *wallet.Service, n Notifier) *Engine {
	return &Engine{DB: db, Wallet: w, Notifier: n, locks: newKeyLocker()}
}

func (e *Engine) notify(evt Event) {
	if e.Notifier != nil {
		e.Notifier.Notify(evt)
	}
}

func notFoundOr(err error, what string) *Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errf(KindNotFound, "%s not found", what)
	}
	return wrap(KindInternal, err, "loading "+what)
}

// PlaceBidInput carries the raw bid submission. BidAmount arrives as the
// caller typed it and is parsed here.
type PlaceBidInput struct {
	ClientID      uuid.UUID
	FreelancerID  uuid.UUID
	ProjectID     uuid.UUID
	Proposal      string
	BidAmount     string
	EstimatedTime string
}

// PlaceBid creates a Pending application snapshotting the project, client and
// freelancer as of now, appends the bid to the project's ledger and records
// the application on the freelancer's profile. A freelancer may bid on the
// same project more than once; each bid is its own application and ledger
// entry.
func (e *Engine) PlaceBid(in PlaceBidInput) (*models.Application, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(in.BidAmount), 10, 64)
	if err != nil {
		return nil, errf(KindInvalidArgument, "bid amount %q is not a number", in.BidAmount)
	}
	if amount <= 0 {
		return nil, errf(KindInvalidArgument, "bid amount must be greater than zero, got %d", amount)
	}

	unlock := e.locks.Lock(in.ProjectID, in.FreelancerID)
	defer unlock()

	var app models.Application
	txErr := e.DB.Transaction(func(tx *gorm.DB) error {
		var client models.User
		if err := tx.First(&client, "id = ?", in.ClientID).Error; err != nil {
			return notFoundOr(err, "client")
		}
		var bidder models.User
		if err := tx.First(&bidder, "id = ?", in.FreelancerID).Error; err != nil {
			return notFoundOr(err, "freelancer")
		}
		var profile models.Freelancer
		if err := tx.First(&profile, "user_id = ?", in.FreelancerID).Error; err != nil {
			return notFoundOr(err, "freelancer profile")
		}
		var project models.Project
		if err := tx.First(&project, "id = ?", in.ProjectID).Error; err != nil {
			return notFoundOr(err, "project")
		}
		if project.Status != models.ProjectStatusOpen {
			return errf(KindInvalidState, "project is %s, bids are only accepted while Open", project.Status)
		}

		app = models.Application{
			ProjectID:    project.ID,
			FreelancerID: bidder.ID,
			Project: models.ProjectSnapshot{
				Title:          project.Title,
				Description:    project.Description,
				Budget:         project.Budget,
				RequiredSkills: project.Skills,
				ClientID:       client.ID,
				ClientName:     client.Username,
				ClientEmail:    client.Email,
			},
			Freelancer: models.FreelancerSnapshot{
				Name:   bidder.Username,
				Email:  bidder.Email,
				Skills: profile.Skills,
			},
			Proposal:      in.Proposal,
			BidAmount:     amount,
			EstimatedTime: in.EstimatedTime,
			Status:        models.ApplicationStatusPending,
		}
		if err := tx.Create(&app).Error; err != nil {
			return wrap(KindInternal, err, "creating application")
		}

		var count int64
		if err := tx.Model(&models.ProjectBid{}).Where("project_id = ?", project.ID).Count(&count).Error; err != nil {
			return wrap(KindInternal, err, "counting bids")
		}
		bid := models.ProjectBid{
			ProjectID:    project.ID,
			FreelancerID: bidder.ID,
			Amount:       amount,
			Position:     int(count),
		}
		if err := tx.Create(&bid).Error; err != nil {
			return wrap(KindInternal, err, "appending bid ledger entry")
		}

		apps := append(profile.Applications, app.ID)
		if err := tx.Model(&models.Freelancer{}).Where("id = ?", profile.ID).
			Update("applications", apps).Error; err != nil {
			return wrap(KindInternal, err, "recording application on freelancer")
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	e.notify(Event{
		Type:          EventBidPlaced,
		ProjectID:     app.ProjectID,
		ApplicationID: &app.ID,
		ClientID:      app.Project.ClientID,
		FreelancerID:  app.FreelancerID,
	})
	return &app, nil
}

// ApproveApplication accepts one pending bid. Exactly one application per
// project can ever be accepted: the project row only leaves Open under a
// status guard, every other pending application is rejected in the same
// transaction, and the winner's profile gains the project. Concurrent
// approvals on the same project fail with Conflict.
func (e *Engine) ApproveApplication(applicationID uuid.UUID) (*models.Application, error) {
	var peek models.Application
	if err := e.DB.First(&peek, "id = ?", applicationID).Error; err != nil {
		return nil, notFoundOr(err, "application")
	}

	unlock := e.locks.Lock(peek.ProjectID, peek.FreelancerID)
	defer unlock()

	var app models.Application
	txErr := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", applicationID).Error; err != nil {
			return notFoundOr(err, "application")
		}
		if app.Status != models.ApplicationStatusPending {
			return errf(KindConflict, "application already %s", app.Status)
		}

		var project models.Project
		if err := tx.First(&project, "id = ?", app.ProjectID).Error; err != nil {
			return notFoundOr(err, "project")
		}
		if project.Status != models.ProjectStatusOpen {
			return errf(KindConflict, "project already %s", project.Status)
		}

		var winner models.User
		if err := tx.First(&winner, "id = ?", app.FreelancerID).Error; err != nil {
			return notFoundOr(err, "freelancer")
		}
		var profile models.Freelancer
		if err := tx.First(&profile, "user_id = ?", app.FreelancerID).Error; err != nil {
			return notFoundOr(err, "freelancer profile")
		}

		// Status guard: only an Open project can be awarded. The winning bid
		// amount overwrites the client's posted budget.
		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", project.ID, models.ProjectStatusOpen).
			Updates(map[string]interface{}{
				"status":          models.ProjectStatusAssigned,
				"freelancer_id":   winner.ID,
				"freelancer_name": winner.Username,
				"budget":          app.BidAmount,
			})
		if res.Error != nil {
			return wrap(KindInternal, res.Error, "assigning project")
		}
		if res.RowsAffected == 0 {
			return errf(KindConflict, "project already left Open")
		}

		res = tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", app.ID, models.ApplicationStatusPending).
			Update("status", models.ApplicationStatusAccepted)
		if res.Error != nil {
			return wrap(KindInternal, res.Error, "accepting application")
		}
		if res.RowsAffected == 0 {
			return errf(KindConflict, "application already decided")
		}

		// Losing side effect of acceptance, not an external action.
		if err := tx.Model(&models.Application{}).
			Where("project_id = ? AND status = ?", project.ID, models.ApplicationStatusPending).
			Update("status", models.ApplicationStatusRejected).Error; err != nil {
			return wrap(KindInternal, err, "rejecting sibling applications")
		}

		current := append(profile.CurrentProjects, project.ID)
		if err := tx.Model(&models.Freelancer{}).Where("id = ?", profile.ID).
			Update("current_projects", current).Error; err != nil {
			return wrap(KindInternal, err, "recording project on freelancer")
		}

		app.Status = models.ApplicationStatusAccepted
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	e.notify(Event{
		Type:          EventApplicationApproved,
		ProjectID:     app.ProjectID,
		ApplicationID: &app.ID,
		ClientID:      app.Project.ClientID,
		FreelancerID:  app.FreelancerID,
	})
	return &app, nil
}

// RejectApplication rejects a single pending bid without touching the
// project. Rejecting an already-rejected application is a no-op; rejecting
// an accepted one is a Conflict.
func (e *Engine) RejectApplication(applicationID uuid.UUID) (*models.Application, error) {
	var peek models.Application
	if err := e.DB.First(&peek, "id = ?", applicationID).Error; err != nil {
		return nil, notFoundOr(err, "application")
	}

	unlock := e.locks.Lock(peek.ProjectID)
	defer unlock()

	var app models.Application
	alreadyRejected := false
	txErr := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", applicationID).Error; err != nil {
			return notFoundOr(err, "application")
		}
		switch app.Status {
		case models.ApplicationStatusRejected:
			alreadyRejected = true // idempotent
			return nil
		case models.ApplicationStatusAccepted:
			return errf(KindConflict, "application already accepted")
		}

		res := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", app.ID, models.ApplicationStatusPending).
			Update("status", models.ApplicationStatusRejected)
		if res.Error != nil {
			return wrap(KindInternal, res.Error, "rejecting application")
		}
		if res.RowsAffected == 0 {
			return errf(KindConflict, "application already decided")
		}
		app.Status = models.ApplicationStatusRejected
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if !alreadyRejected {
		e.notify(Event{
			Type:          EventApplicationRejected,
			ProjectID:     app.ProjectID,
			ApplicationID: &app.ID,
			ClientID:      app.Project.ClientID,
			FreelancerID:  app.FreelancerID,
		})
	}
	return &app, nil
}

// SubmitProject records the freelancer's deliverables on an assigned
// project. Status stays Assigned; re-submitting overwrites the previous
// deliverable fields.
func (e *Engine) SubmitProject(projectID uuid.UUID, link, manualLink, description string) (*models.Project, error) {
	if _, err := e.peekProject(projectID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(projectID)
	defer unlock()

	var project models.Project
	txErr := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			return notFoundOr(err, "project")
		}
		if project.Status != models.ProjectStatusAssigned {
			return errf(KindInvalidState, "project is %s, deliverables can only be submitted while Assigned", project.Status)
		}

		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", project.ID, models.ProjectStatusAssigned).
			Updates(map[string]interface{}{
				"submission_link":        link,
				"manual_link":            manualLink,
				"submission_description": description,
				"submitted":              true,
			})
		if res.Error != nil {
			return wrap(KindInternal, res.Error, "recording submission")
		}
		if res.RowsAffected == 0 {
			return errf(KindConflict, "project already left Assigned")
		}

		project.SubmissionLink = link
		project.ManualLink = manualLink
		project.SubmissionDescription = description
		project.Submitted = true
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	e.notifyProject(EventProjectSubmitted, &project)
	return &project, nil
}

// ApproveSubmission completes an assigned, submitted project: status moves to
// Completed, the project id moves from the freelancer's active list to the
// completed list, and the freelancer is credited the project's current
// budget (the post-award value, i.e. the accepted bid amount).
func (e *Engine) ApproveSubmission(projectID uuid.UUID) (*models.Project, error) {
	peek, err := e.peekProject(projectID)
	if err != nil {
		return nil, err
	}

	lockIDs := []uuid.UUID{projectID}
	if peek.FreelancerID != nil {
		lockIDs = append(lockIDs, *peek.FreelancerID)
	}
	unlock := e.locks.Lock(lockIDs...)
	defer unlock()

	var project models.Project
	txErr := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			return notFoundOr(err, "project")
		}
		if project.Status != models.ProjectStatusAssigned {
			return errf(KindInvalidState, "project is %s, only Assigned projects can be reviewed", project.Status)
		}
		if !project.Submitted {
			return errf(KindInvalidState, "project has no pending submission")
		}
		if project.FreelancerID == nil {
			return errf(KindInternal, "assigned project has no freelancer recorded")
		}

		var profile models.Freelancer
		if err := tx.First(&profile, "user_id = ?", *project.FreelancerID).Error; err != nil {
			return wrap(KindInternal, err, "assigned freelancer profile missing")
		}

		current, present := profile.CurrentProjects.Without(project.ID)
		if !present {
			return errf(KindInternal, "project %s missing from freelancer active list", project.ID)
		}
		completed := append(profile.CompletedProjects, project.ID)

		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ? AND submitted = ?", project.ID, models.ProjectStatusAssigned, true).
			Updates(map[string]interface{}{
				"status":              models.ProjectStatusCompleted,
				"submission_accepted": true,
			})
		if res.Error != nil {
			return wrap(KindInternal, res.Error, "completing project")
		}
		if res.RowsAffected == 0 {
			return errf(KindConflict, "project already left Assigned")
		}

		if err := tx.Model(&models.Freelancer{}).Where("id = ?", profile.ID).
			Updates(map[string]interface{}{
				"current_projects":   current,
				"completed_projects": completed,
			}).Error; err != nil {
			return wrap(KindInternal, err, "moving project to completed list")
		}

		if err := e.Wallet.CreditFreelancer(tx, *project.FreelancerID, project.Budget, project.ID,
			"Payout for project "+project.Title); err != nil {
			return wrap(KindInternal, err, "crediting freelancer funds")
		}

		project.Status = models.ProjectStatusCompleted
		project.SubmissionAccepted = true
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	e.notifyProject(EventSubmissionApproved, &project)
	return &project, nil
}

// RejectSubmission clears the deliverable fields and returns the project to
// its unsubmitted state. The assignment itself is untouched.
func (e *Engine) RejectSubmission(projectID uuid.UUID) (*models.Project, error) {
	if _, err := e.peekProject(projectID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(projectID)
	defer unlock()

	var project models.Project
	txErr := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			return notFoundOr(err, "project")
		}
		if project.Status != models.ProjectStatusAssigned {
			return errf(KindInvalidState, "project is %s, only Assigned projects can be reviewed", project.Status)
		}
		if !project.Submitted {
			return errf(KindInvalidState, "project has no pending submission")
		}

		res := tx.Model(&models.Project{}).
			Where("id = ? AND submitted = ?", project.ID, true).
			Updates(map[string]interface{}{
				"submission_link":        "",
				"manual_link":            "",
				"submission_description": "",
				"submitted":              false,
			})
		if res.Error != nil {
			return wrap(KindInternal, res.Error, "clearing submission")
		}
		if res.RowsAffected == 0 {
			return errf(KindConflict, "submission already reviewed")
		}

		project.SubmissionLink = ""
		project.ManualLink = ""
		project.SubmissionDescription = ""
		project.Submitted = false
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	e.notifyProject(EventSubmissionRejected, &project)
	return &project, nil
}

func (e *Engine) peekProject(projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := e.DB.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, notFoundOr(err, "project")
	}
	return &project, nil
}

func (e *Engine) notifyProject(t EventType, p *models.Project) {
	evt := Event{Type: t, ProjectID: p.ID, ClientID: p.ClientID}
	if p.FreelancerID != nil {
		evt.FreelancerID = *p.FreelancerID
	}
	e.notify(evt)
}
