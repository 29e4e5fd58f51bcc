package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"

	businessflow "github.com/hermes-crm/hermes/business_flow"
)

// AdminHandlerInterface defines the contract for admin handlers
type AdminHandlerInterface interface {
	ResetRuntime(c fiber.Ctx) error
	Health(c fiber.Ctx) error
}

// AdminHandler handles maintenance endpoints
type AdminHandler struct {
	resetFlow businessflow.ResetFlow
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(resetFlow businessflow.ResetFlow) *AdminHandler {
	return &AdminHandler{resetFlow: resetFlow}
}

// ResetRuntime wipes agent-produced state while keeping clients and holidays
func (h *AdminHandler) ResetRuntime(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.resetFlow.ResetRuntime(ctx)
	if err != nil {
		log.Println("Reset runtime failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to reset runtime state", "RESET_RUNTIME_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Runtime state cleared", result)
}

// Health reports service liveness
func (h *AdminHandler) Health(c fiber.Ctx) error {
	return successResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
