package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/skillbridge-app/backend/internal/workflow"
)

type ApplicationHandler struct {
	Engine *workflow.Engine
}

func NewApplicationHandler(engine *workflow.Engine) *ApplicationHandler {
	return &ApplicationHandler{Engine: engine}
}

type PlaceBidReq struct {
	ClientID      string `json:"client_id"`
	ProjectID     string `json:"project_id"`
	Proposal      string `json:"proposal"`
	BidAmount     string `json:"bid_amount"`
	EstimatedTime string `json:"estimated_time"`
}

// PlaceBid submits a bid by the authenticated freelancer on an open project.
func (h *ApplicationHandler) PlaceBid(c *fiber.Ctx) error {
	freelancerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req PlaceBidReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid client id",
		})
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid project id",
		})
	}

	app, werr := h.Engine.PlaceBid(workflow.PlaceBidInput{
		ClientID:      clientID,
		FreelancerID:  freelancerID,
		ProjectID:     projectID,
		Proposal:      req.Proposal,
		BidAmount:     req.BidAmount,
		EstimatedTime: req.EstimatedTime,
	})
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": app})
}

func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	apps, err := h.Engine.ListApplications()
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": apps})
}

// Approve awards the project to this application's freelancer.
func (h *ApplicationHandler) Approve(c *fiber.Ctx) error {
	appID, ok := parseIDParam(c)
	if !ok {
		return invalidID(c)
	}
	app, werr := h.Engine.ApproveApplication(appID)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(fiber.Map{"success": true, "data": app})
}

func (h *ApplicationHandler) Reject(c *fiber.Ctx) error {
	appID, ok := parseIDParam(c)
	if !ok {
		return invalidID(c)
	}
	app, werr := h.Engine.RejectApplication(appID)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(fiber.Map{"success": true, "data": app})
}
