package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skillbridge-app/backend/internal/workflow"
)

type UserHandler struct {
	Engine *workflow.Engine
}

func NewUserHandler(engine *workflow.Engine) *UserHandler {
	return &UserHandler{Engine: engine}
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c)
	if !ok {
		return invalidID(c)
	}
	user, err := h.Engine.GetUser(userID)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.Engine.ListUsers()
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": users})
}
