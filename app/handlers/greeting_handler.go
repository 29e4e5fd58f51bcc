package handlers

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/hermes-crm/hermes/app/dto"
	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/models"
)

// GreetingHandlerInterface defines the contract for greeting review handlers
type GreetingHandlerInterface interface {
	ListGreetings(c fiber.Ctx) error
	ApproveGreeting(c fiber.Ctx) error
	RejectGreeting(c fiber.Ctx) error
}

// GreetingHandler handles the review UI endpoints
type GreetingHandler struct {
	approvalFlow businessflow.ApprovalFlow
	validator    *validator.Validate
}

// NewGreetingHandler creates a new greeting handler
func NewGreetingHandler(approvalFlow businessflow.ApprovalFlow) *GreetingHandler {
	return &GreetingHandler{
		approvalFlow: approvalFlow,
		validator:    validator.New(),
	}
}

// ListGreetings returns greetings filtered by optional query params
func (h *GreetingHandler) ListGreetings(c fiber.Ctx) error {
	filter := models.GreetingFilter{}
	if v := c.Query("status"); v != "" {
		status := models.GreetingStatus(v)
		filter.Status = &status
	}

	limit, offset := pagination(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	greetings, err := h.approvalFlow.ListGreetings(ctx, filter, limit, offset)
	if err != nil {
		log.Println("List greetings failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list greetings", "LIST_GREETINGS_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Greetings retrieved", greetings)
}

// ApproveGreeting approves a greeting, delivering it when the event is due today
func (h *GreetingHandler) ApproveGreeting(c fiber.Ctx) error {
	return h.review(c, h.approvalFlow.ApproveGreeting)
}

// RejectGreeting rejects a greeting permanently
func (h *GreetingHandler) RejectGreeting(c fiber.Ctx) error {
	return h.review(c, h.approvalFlow.RejectGreeting)
}

func (h *GreetingHandler) review(c fiber.Ctx, action func(ctx context.Context, req *dto.ReviewGreetingRequest) (*dto.ReviewGreetingResponse, error)) error {
	id, ok := pathID(c, "id")
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Greeting id must be a positive integer", "INVALID_REQUEST", nil)
	}

	var req dto.ReviewGreetingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.GreetingID = id
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorList(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := action(ctx, &req)
	if err != nil {
		if businessflow.IsGreetingNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Greeting not found", "GREETING_NOT_FOUND", nil)
		}
		log.Println("Greeting review failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to review greeting", "REVIEW_GREETING_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Review recorded", result)
}
