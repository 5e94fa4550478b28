package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/skillbridge-app/backend/internal/workflow"
)

// workflowError maps an engine error to an HTTP response. Internal details
// are logged, not leaked.
func workflowError(c *fiber.Ctx, err error) error {
	kind := workflow.KindOf(err)

	status := fiber.StatusInternalServerError
	switch kind {
	case workflow.KindNotFound:
		status = fiber.StatusNotFound
	case workflow.KindInvalidArgument, workflow.KindInvalidState:
		status = fiber.StatusBadRequest
	case workflow.KindConflict:
		status = fiber.StatusConflict
	}

	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Printf("workflow error: %v", err)
		msg = "internal error"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   kind.String(),
		"message": msg,
	})
}
