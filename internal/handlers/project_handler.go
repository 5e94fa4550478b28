package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillbridge-app/backend/internal/models"
	"github.com/skillbridge-app/backend/internal/workflow"
)

type ProjectHandler struct {
	DB     *gorm.DB
	Engine *workflow.Engine
}

func NewProjectHandler(db *gorm.DB, engine *workflow.Engine) *ProjectHandler {
	return &ProjectHandler{DB: db, Engine: engine}
}

type CreateProjectReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Budget      string `json:"budget"`
	Skills      string `json:"skills"` // comma-separated
}

// Create posts a new Open project owned by the authenticated client.
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	clientID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req CreateProjectReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "title is required",
		})
	}
	budget, err := strconv.ParseInt(strings.TrimSpace(req.Budget), 10, 64)
	if err != nil || budget < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "budget must be a non-negative number",
		})
	}

	var client models.User
	if err := h.DB.First(&client, "id = ?", clientID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "client not found",
		})
	}

	project := models.Project{
		Title:       title,
		Description: req.Description,
		Budget:      budget,
		Skills:      models.SkillsFromCSV(req.Skills),
		ClientID:    client.ID,
		ClientName:  client.Username,
		ClientEmail: client.Email,
		Status:      models.ProjectStatusOpen,
		PostedAt:    time.Now(),
	}
	if err := h.DB.Create(&project).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "failed to create project",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    project,
	})
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	projectID, ok := parseIDParam(c)
	if !ok {
		return invalidID(c)
	}
	project, werr := h.Engine.GetProject(projectID)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(fiber.Map{"success": true, "data": project})
}

func (h *ProjectHandler) List(c *fiber.Ctx) error {
	projects, err := h.Engine.ListProjects()
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": projects})
}

type SubmitProjectReq struct {
	ProjectID   string `json:"project_id"`
	Link        string `json:"link"`
	ManualLink  string `json:"manual_link"`
	Description string `json:"description"`
}

// Submit records the freelancer's deliverables on an assigned project.
func (h *ProjectHandler) Submit(c *fiber.Ctx) error {
	var req SubmitProjectReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid project id",
		})
	}

	project, werr := h.Engine.SubmitProject(projectID, req.Link, req.ManualLink, req.Description)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(fiber.Map{"success": true, "data": project})
}

// ApproveSubmission completes the project and credits the freelancer.
func (h *ProjectHandler) ApproveSubmission(c *fiber.Ctx) error {
	projectID, ok := parseIDParam(c)
	if !ok {
		return invalidID(c)
	}
	project, werr := h.Engine.ApproveSubmission(projectID)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(fiber.Map{"success": true, "data": project})
}

// RejectSubmission sends the project back to the freelancer for rework.
func (h *ProjectHandler) RejectSubmission(c *fiber.Ctx) error {
	projectID, ok := parseIDParam(c)
	if !ok {
		return invalidID(c)
	}
	project, werr := h.Engine.RejectSubmission(projectID)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(fiber.Map{"success": true, "data": project})
}

func parseIDParam(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "invalid id",
	})
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals("userId").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return id, nil
}
