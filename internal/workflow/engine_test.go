package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skillbridge-app/backend/internal/models"
	"github.com/skillbridge-app/backend/internal/services/wallet"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Freelancer{},
		&models.Project{},
		&models.ProjectBid{},
		&models.Application{},
		&models.WalletTransaction{},
	))
	return db
}

func newTestEngine(t *testing.T) (*Engine, *eventRecorder) {
	t.Helper()
	db := newTestDB(t)
	rec := &eventRecorder{}
	return NewEngine(db, wallet.NewService(db), rec), rec
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     role,
	}
	require.NoError(t, db.Create(&u).Error)
	if role == models.RoleFreelancer {
		profile := models.Freelancer{
			UserID: u.ID,
			Skills: models.SkillsJSON([]string{"go"}),
		}
		require.NoError(t, db.Create(&profile).Error)
	}
	return u
}

func seedProject(t *testing.T, db *gorm.DB, client models.User, budget int64) models.Project {
	t.Helper()
	p := models.Project{
		Title:       "landing page",
		Description: "build a landing page",
		Budget:      budget,
		Skills:      models.SkillsJSON([]string{"go", "html"}),
		ClientID:    client.ID,
		ClientName:  client.Username,
		ClientEmail: client.Email,
		Status:      models.ProjectStatusOpen,
		PostedAt:    time.Now(),
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func loadProject(t *testing.T, db *gorm.DB, id uuid.UUID) models.Project {
	t.Helper()
	var p models.Project
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return p
}

func loadProfile(t *testing.T, db *gorm.DB, userID uuid.UUID) models.Freelancer {
	t.Helper()
	var f models.Freelancer
	require.NoError(t, db.First(&f, "user_id = ?", userID).Error)
	return f
}

func loadApplication(t *testing.T, db *gorm.DB, id uuid.UUID) models.Application {
	t.Helper()
	var a models.Application
	require.NoError(t, db.First(&a, "id = ?", id).Error)
	return a
}

func ledgerFor(t *testing.T, db *gorm.DB, projectID uuid.UUID) []models.ProjectBid {
	t.Helper()
	var bids []models.ProjectBid
	require.NoError(t, db.Where("project_id = ?", projectID).Order("position ASC").Find(&bids).Error)
	return bids
}

func placeBid(t *testing.T, e *Engine, client, freelancer models.User, project models.Project, amount string) *models.Application {
	t.Helper()
	app, err := e.PlaceBid(PlaceBidInput{
		ClientID:      client.ID,
		FreelancerID:  freelancer.ID,
		ProjectID:     project.ID,
		Proposal:      "I can do this",
		BidAmount:     amount,
		EstimatedTime: "2 weeks",
	})
	require.NoError(t, err)
	return app
}

func TestPlaceBid_CreatesApplicationAndLedgerEntry(t *testing.T) {
	e, rec := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	freelancer := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	app := placeBid(t, e, client, freelancer, project, "300")

	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, int64(300), app.BidAmount)

	// Snapshot captured at bid time.
	assert.Equal(t, project.Title, app.Project.Title)
	assert.Equal(t, int64(500), app.Project.Budget)
	assert.Equal(t, client.ID, app.Project.ClientID)
	assert.Equal(t, client.Email, app.Project.ClientEmail)
	assert.Equal(t, freelancer.Username, app.Freelancer.Name)

	bids := ledgerFor(t, e.DB, project.ID)
	require.Len(t, bids, 1)
	assert.Equal(t, freelancer.ID, bids[0].FreelancerID)
	assert.Equal(t, int64(300), bids[0].Amount)
	assert.Equal(t, 0, bids[0].Position)

	profile := loadProfile(t, e.DB, freelancer.ID)
	assert.True(t, profile.Applications.Contains(app.ID))

	assert.Equal(t, []EventType{EventBidPlaced}, rec.types())
}

func TestPlaceBid_SameFreelancerMayBidTwice(t *testing.T) {
	// Duplicate bids are a deliberate policy: each one is its own
	// application and ledger entry.
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	freelancer := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	first := placeBid(t, e, client, freelancer, project, "300")
	second := placeBid(t, e, client, freelancer, project, "280")
	assert.NotEqual(t, first.ID, second.ID)

	bids := ledgerFor(t, e.DB, project.ID)
	require.Len(t, bids, 2)
	assert.Equal(t, 0, bids[0].Position)
	assert.Equal(t, 1, bids[1].Position)
	assert.Equal(t, int64(300), bids[0].Amount)
	assert.Equal(t, int64(280), bids[1].Amount)

	profile := loadProfile(t, e.DB, freelancer.ID)
	assert.Len(t, profile.Applications, 2)
}

func TestPlaceBid_NonNumericAmount(t *testing.T) {
	e, rec := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	freelancer := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	_, err := e.PlaceBid(PlaceBidInput{
		ClientID:     client.ID,
		FreelancerID: freelancer.ID,
		ProjectID:    project.ID,
		BidAmount:    "three hundred",
	})
	require.Error(t, err)
	assert.Equal(t, KindInvalidArgument, KindOf(err))

	var count int64
	require.NoError(t, e.DB.Model(&models.Application{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, rec.types())
}

func TestPlaceBid_NonPositiveAmount(t *testing.T) {
	// A zero-value bid would be unpayable on submission approval, so it is
	// rejected before any record exists.
	for _, amount := range []string{"0", "-50"} {
		t.Run(amount, func(t *testing.T) {
			e, rec := newTestEngine(t)
			client := seedUser(t, e.DB, "alice", models.RoleClient)
			freelancer := seedUser(t, e.DB, "bob", models.RoleFreelancer)
			project := seedProject(t, e.DB, client, 500)

			_, err := e.PlaceBid(PlaceBidInput{
				ClientID:     client.ID,
				FreelancerID: freelancer.ID,
				ProjectID:    project.ID,
				BidAmount:    amount,
			})
			require.Error(t, err)
			assert.Equal(t, KindInvalidArgument, KindOf(err))

			var count int64
			require.NoError(t, e.DB.Model(&models.Application{}).Count(&count).Error)
			assert.Zero(t, count)
			assert.Empty(t, rec.types())
		})
	}
}

func TestPlaceBid_ProjectNotOpen(t *testing.T) {
	for _, status := range []models.ProjectStatus{
		models.ProjectStatusAssigned,
		models.ProjectStatusCompleted,
	} {
		t.Run(string(status), func(t *testing.T) {
			e, rec := newTestEngine(t)
			client := seedUser(t, e.DB, "alice", models.RoleClient)
			freelancer := seedUser(t, e.DB, "bob", models.RoleFreelancer)
			project := seedProject(t, e.DB, client, 500)
			require.NoError(t, e.DB.Model(&models.Project{}).
				Where("id = ?", project.ID).
				Update("status", status).Error)

			_, err := e.PlaceBid(PlaceBidInput{
				ClientID:     client.ID,
				FreelancerID: freelancer.ID,
				ProjectID:    project.ID,
				BidAmount:    "300",
			})
			require.Error(t, err)
			assert.Equal(t, KindInvalidState, KindOf(err))

			// No application, no ledger entry.
			var count int64
			require.NoError(t, e.DB.Model(&models.Application{}).Count(&count).Error)
			assert.Zero(t, count)
			assert.Empty(t, ledgerFor(t, e.DB, project.ID))
			assert.Empty(t, rec.types())
		})
	}
}

func TestPlaceBid_MissingEntities(t *testing.T) {
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	freelancer := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	tests := []struct {
		name  string
		input PlaceBidInput
	}{
		{"unknown client", PlaceBidInput{ClientID: uuid.New(), FreelancerID: freelancer.ID, ProjectID: project.ID, BidAmount: "300"}},
		{"unknown freelancer", PlaceBidInput{ClientID: client.ID, FreelancerID: uuid.New(), ProjectID: project.ID, BidAmount: "300"}},
		{"unknown project", PlaceBidInput{ClientID: client.ID, FreelancerID: freelancer.ID, ProjectID: uuid.New(), BidAmount: "300"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.PlaceBid(tc.input)
			require.Error(t, err)
			assert.Equal(t, KindNotFound, KindOf(err))
		})
	}
}

func TestApproveApplication_AwardsProject(t *testing.T) {
	e, rec := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	f1 := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	f2 := seedUser(t, e.DB, "carol", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	appF1 := placeBid(t, e, client, f1, project, "300")
	appF2 := placeBid(t, e, client, f2, project, "250")

	won, err := e.ApproveApplication(appF2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, won.Status)

	got := loadProject(t, e.DB, project.ID)
	assert.Equal(t, models.ProjectStatusAssigned, got.Status)
	assert.Equal(t, int64(250), got.Budget, "winning bid overwrites the posted budget")
	require.NotNil(t, got.FreelancerID)
	assert.Equal(t, f2.ID, *got.FreelancerID)
	assert.Equal(t, f2.Username, got.FreelancerName)

	assert.Equal(t, models.ApplicationStatusRejected, loadApplication(t, e.DB, appF1.ID).Status)
	assert.Equal(t, models.ApplicationStatusAccepted, loadApplication(t, e.DB, appF2.ID).Status)

	assert.True(t, loadProfile(t, e.DB, f2.ID).CurrentProjects.Contains(project.ID))
	assert.False(t, loadProfile(t, e.DB, f1.ID).CurrentProjects.Contains(project.ID))

	assert.Contains(t, rec.types(), EventApplicationApproved)
}

func TestApproveApplication_AlreadyDecided(t *testing.T) {
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	f1 := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	f2 := seedUser(t, e.DB, "carol", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	appF1 := placeBid(t, e, client, f1, project, "300")
	appF2 := placeBid(t, e, client, f2, project, "250")

	_, err := e.ApproveApplication(appF2.ID)
	require.NoError(t, err)

	// The sibling was auto-rejected by the award.
	_, err = e.ApproveApplication(appF1.ID)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	// Approving the winner again is also a conflict.
	_, err = e.ApproveApplication(appF2.ID)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestApproveApplication_ProjectAlreadyLeftOpen(t *testing.T) {
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	f1 := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	f2 := seedUser(t, e.DB, "carol", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	appF1 := placeBid(t, e, client, f1, project, "300")
	_ = placeBid(t, e, client, f2, project, "250")

	// Simulate a pending application surviving past the award.
	require.NoError(t, e.DB.Model(&models.Project{}).
		Where("id = ?", project.ID).
		Update("status", models.ProjectStatusAssigned).Error)

	_, err := e.ApproveApplication(appF1.ID)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	// Nothing changed: the application is still pending, the budget intact.
	assert.Equal(t, models.ApplicationStatusPending, loadApplication(t, e.DB, appF1.ID).Status)
	assert.Equal(t, int64(500), loadProject(t, e.DB, project.ID).Budget)
	assert.Empty(t, loadProfile(t, e.DB, f1.ID).CurrentProjects)
}

func TestApproveApplication_ConcurrentApprovalsSingleWinner(t *testing.T) {
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	f1 := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	f2 := seedUser(t, e.DB, "carol", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	appF1 := placeBid(t, e, client, f1, project, "300")
	appF2 := placeBid(t, e, client, f2, project, "250")

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = e.ApproveApplication(appF1.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = e.ApproveApplication(appF2.ID)
	}()
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			lost++
			assert.Equal(t, KindConflict, KindOf(err))
		}
	}
	assert.Equal(t, 1, won, "exactly one approval wins")
	assert.Equal(t, 1, lost)

	// Final state matches the winner's effect.
	var accepted []models.Application
	require.NoError(t, e.DB.Where("project_id = ? AND status = ?", project.ID, models.ApplicationStatusAccepted).Find(&accepted).Error)
	require.Len(t, accepted, 1)

	got := loadProject(t, e.DB, project.ID)
	assert.Equal(t, models.ProjectStatusAssigned, got.Status)
	require.NotNil(t, got.FreelancerID)
	assert.Equal(t, accepted[0].FreelancerID, *got.FreelancerID)
	assert.Equal(t, accepted[0].BidAmount, got.Budget)

	winnerProfile := loadProfile(t, e.DB, accepted[0].FreelancerID)
	assert.True(t, winnerProfile.CurrentProjects.Contains(project.ID))
}

func TestRejectApplication(t *testing.T) {
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	f1 := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)
	app := placeBid(t, e, client, f1, project, "300")

	rejected, err := e.RejectApplication(app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, rejected.Status)

	// Project untouched.
	assert.Equal(t, models.ProjectStatusOpen, loadProject(t, e.DB, project.ID).Status)

	// Idempotent on an already-rejected application.
	_, err = e.RejectApplication(app.ID)
	require.NoError(t, err)
}

func TestRejectApplication_AcceptedIsConflict(t *testing.T) {
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	f1 := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)
	app := placeBid(t, e, client, f1, project, "300")

	_, err := e.ApproveApplication(app.ID)
	require.NoError(t, err)

	_, err = e.RejectApplication(app.ID)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestRejectApplication_NotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.RejectApplication(uuid.New())
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func awardedProject(t *testing.T, e *Engine) (models.User, models.User, models.Project) {
	t.Helper()
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	freelancer := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)
	app := placeBid(t, e, client, freelancer, project, "250")
	_, err := e.ApproveApplication(app.ID)
	require.NoError(t, err)
	return client, freelancer, loadProject(t, e.DB, project.ID)
}

func TestSubmitProject(t *testing.T) {
	e, rec := newTestEngine(t)
	_, _, project := awardedProject(t, e)

	got, err := e.SubmitProject(project.ID, "https://repo.example.com", "https://docs.example.com", "done")
	require.NoError(t, err)
	assert.True(t, got.Submitted)
	assert.Equal(t, models.ProjectStatusAssigned, got.Status, "submission does not change status")
	assert.Equal(t, "https://repo.example.com", got.SubmissionLink)
	assert.Equal(t, "https://docs.example.com", got.ManualLink)
	assert.Equal(t, "done", got.SubmissionDescription)

	// Re-submission overwrites the previous deliverables.
	got, err = e.SubmitProject(project.ID, "https://repo2.example.com", "", "v2")
	require.NoError(t, err)
	assert.Equal(t, "https://repo2.example.com", got.SubmissionLink)

	assert.Contains(t, rec.types(), EventProjectSubmitted)
}

func TestSubmitProject_RequiresAssigned(t *testing.T) {
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	project := seedProject(t, e.DB, client, 500)

	_, err := e.SubmitProject(project.ID, "link", "", "")
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestRejectSubmission_RoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	_, freelancer, project := awardedProject(t, e)

	_, err := e.SubmitProject(project.ID, "link", "manual", "desc")
	require.NoError(t, err)

	activeBefore := loadProfile(t, e.DB, freelancer.ID).CurrentProjects

	got, err := e.RejectSubmission(project.ID)
	require.NoError(t, err)
	assert.False(t, got.Submitted)
	assert.Empty(t, got.SubmissionLink)
	assert.Empty(t, got.ManualLink)
	assert.Empty(t, got.SubmissionDescription)
	assert.Equal(t, models.ProjectStatusAssigned, got.Status)

	// The assignment is untouched.
	assert.Equal(t, activeBefore, loadProfile(t, e.DB, freelancer.ID).CurrentProjects)

	// Nothing left to review.
	_, err = e.RejectSubmission(project.ID)
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestApproveSubmission(t *testing.T) {
	e, rec := newTestEngine(t)
	_, freelancer, project := awardedProject(t, e)

	_, err := e.SubmitProject(project.ID, "link", "", "")
	require.NoError(t, err)

	got, err := e.ApproveSubmission(project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCompleted, got.Status)
	assert.True(t, got.SubmissionAccepted)

	profile := loadProfile(t, e.DB, freelancer.ID)
	assert.False(t, profile.CurrentProjects.Contains(project.ID))
	assert.True(t, profile.CompletedProjects.Contains(project.ID))

	// Funds grow by the post-award budget, i.e. the accepted bid amount.
	assert.Equal(t, int64(250), profile.Funds)

	var ledger []models.WalletTransaction
	require.NoError(t, e.DB.Where("user_id = ?", freelancer.ID).Find(&ledger).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, models.WalletTrxCredit, ledger[0].Type)
	assert.Equal(t, int64(250), ledger[0].Amount)
	require.NotNil(t, ledger[0].ReferenceID)
	assert.Equal(t, project.ID, *ledger[0].ReferenceID)

	assert.Contains(t, rec.types(), EventSubmissionApproved)

	// The submission flag is consumed with the completion.
	_, err = e.ApproveSubmission(project.ID)
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestApproveSubmission_RequiresSubmission(t *testing.T) {
	e, _ := newTestEngine(t)
	_, _, project := awardedProject(t, e)

	_, err := e.ApproveSubmission(project.ID)
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestApproveSubmission_ActiveListMismatchRollsBack(t *testing.T) {
	e, _ := newTestEngine(t)
	_, freelancer, project := awardedProject(t, e)

	_, err := e.SubmitProject(project.ID, "link", "", "")
	require.NoError(t, err)

	// Corrupt the active list to simulate a consistency violation.
	require.NoError(t, e.DB.Model(&models.Freelancer{}).
		Where("user_id = ?", freelancer.ID).
		Update("current_projects", models.UUIDList{}).Error)

	_, err = e.ApproveSubmission(project.ID)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	// The whole transition rolled back: still Assigned, no funds credited.
	got := loadProject(t, e.DB, project.ID)
	assert.Equal(t, models.ProjectStatusAssigned, got.Status)
	assert.False(t, got.SubmissionAccepted)
	assert.Zero(t, loadProfile(t, e.DB, freelancer.ID).Funds)
}

func TestBidLedgerMatchesApplications(t *testing.T) {
	e, _ := newTestEngine(t)
	client := seedUser(t, e.DB, "alice", models.RoleClient)
	f1 := seedUser(t, e.DB, "bob", models.RoleFreelancer)
	f2 := seedUser(t, e.DB, "carol", models.RoleFreelancer)
	project := seedProject(t, e.DB, client, 500)

	placeBid(t, e, client, f1, project, "300")
	placeBid(t, e, client, f2, project, "250")
	placeBid(t, e, client, f1, project, "290")

	var apps int64
	require.NoError(t, e.DB.Model(&models.Application{}).
		Where("project_id = ?", project.ID).Count(&apps).Error)
	bids := ledgerFor(t, e.DB, project.ID)
	assert.Equal(t, int(apps), len(bids), "one ledger entry per application")
	for i, b := range bids {
		assert.Equal(t, i, b.Position)
	}
}
