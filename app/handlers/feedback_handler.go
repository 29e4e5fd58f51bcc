package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/hermes-crm/hermes/app/dto"
	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/models"
)

// FeedbackHandlerInterface defines the contract for feedback handlers
type FeedbackHandlerInterface interface {
	SubmitFeedback(c fiber.Ctx) error
	ListFeedback(c fiber.Ctx) error
}

// FeedbackHandler handles greeting feedback requests
type FeedbackHandler struct {
	feedbackFlow businessflow.FeedbackFlow
	validator    *validator.Validate
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedbackFlow businessflow.FeedbackFlow) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackFlow: feedbackFlow,
		validator:    validator.New(),
	}
}

// SubmitFeedback records a manager-entered reaction to a greeting
func (h *FeedbackHandler) SubmitFeedback(c fiber.Ctx) error {
	var req dto.SubmitFeedbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorList(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	feedback, err := h.feedbackFlow.SubmitFeedback(ctx, &req)
	if err != nil {
		if businessflow.IsGreetingNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Greeting not found", "GREETING_NOT_FOUND", nil)
		}
		if businessflow.IsFeedbackOutcomeInvalid(err) || businessflow.IsFeedbackScoreOutOfRange(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid feedback payload", "VALIDATION_ERROR", nil)
		}
		log.Println("Submit feedback failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to submit feedback", "SUBMIT_FEEDBACK_FAILED", nil)
	}
	return successResponse(c, fiber.StatusCreated, "Feedback recorded", feedback)
}

// ListFeedback returns feedback rows filtered by optional query params
func (h *FeedbackHandler) ListFeedback(c fiber.Ctx) error {
	filter := models.FeedbackFilter{}
	if v := c.Query("outcome"); v != "" {
		filter.Outcome = &v
	}

	limit, offset := pagination(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	rows, err := h.feedbackFlow.ListFeedback(ctx, filter, limit, offset)
	if err != nil {
		log.Println("List feedback failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list feedback", "LIST_FEEDBACK_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Feedback retrieved", rows)
}
