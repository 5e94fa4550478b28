package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/skillbridge-app/backend/internal/models"
	"github.com/skillbridge-app/backend/internal/workflow"
)

type FreelancerHandler struct {
	DB     *gorm.DB
	Engine *workflow.Engine
}

func NewFreelancerHandler(db *gorm.DB, engine *workflow.Engine) *FreelancerHandler {
	return &FreelancerHandler{DB: db, Engine: engine}
}

// Get fetches a freelancer profile by the owning user's id.
func (h *FreelancerHandler) Get(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c)
	if !ok {
		return invalidID(c)
	}
	profile, err := h.Engine.GetFreelancer(userID)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

type UpdateFreelancerReq struct {
	Skills      string `json:"skills"` // comma-separated
	Description string `json:"description"`
}

// Update edits the authenticated freelancer's skills and description.
// Workflow-owned fields (applications, project lists, funds) are not
// reachable from here.
func (h *FreelancerHandler) Update(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req UpdateFreelancerReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	res := h.DB.Model(&models.Freelancer{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"skills":      models.SkillsFromCSV(req.Skills),
			"description": req.Description,
		})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "failed to update profile",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "freelancer profile not found",
		})
	}

	profile, werr := h.Engine.GetFreelancer(userID)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}
