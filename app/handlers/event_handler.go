package handlers

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/hermes-crm/hermes/app/dto"
	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/models"
)

// EventHandlerInterface defines the contract for event handlers
type EventHandlerInterface interface {
	ListEvents(c fiber.Ctx) error
	CreateManualEvent(c fiber.Ctx) error
}

// EventHandler handles event management requests
type EventHandler struct {
	eventFlow businessflow.EventFlow
	validator *validator.Validate
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventFlow businessflow.EventFlow) *EventHandler {
	return &EventHandler{
		eventFlow: eventFlow,
		validator: validator.New(),
	}
}

// ListEvents returns events filtered by optional query params
func (h *EventHandler) ListEvents(c fiber.Ctx) error {
	filter := models.EventFilter{}
	if v := c.Query("type"); v != "" {
		eventType := models.EventType(v)
		filter.EventType = &eventType
	}
	if v := c.Query("date_from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "date_from must be formatted as YYYY-MM-DD", "INVALID_REQUEST", nil)
		}
		filter.DateFrom = &parsed
	}
	if v := c.Query("date_to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "date_to must be formatted as YYYY-MM-DD", "INVALID_REQUEST", nil)
		}
		filter.DateTo = &parsed
	}

	limit, offset := pagination(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	events, err := h.eventFlow.ListEvents(ctx, filter, limit, offset)
	if err != nil {
		log.Println("List events failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list events", "LIST_EVENTS_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Events retrieved", events)
}

// CreateManualEvent records an operator-entered occasion
func (h *EventHandler) CreateManualEvent(c fiber.Ctx) error {
	var req dto.CreateManualEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrorList(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	event, created, err := h.eventFlow.CreateManualEvent(ctx, &req)
	if err != nil {
		if businessflow.IsClientNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Client not found", "CLIENT_NOT_FOUND", nil)
		}
		if businessflow.IsEventTitleRequired(err) || businessflow.IsEventDateRequired(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Title and a YYYY-MM-DD date are required", "VALIDATION_ERROR", nil)
		}
		log.Println("Create manual event failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to create event", "CREATE_EVENT_FAILED", nil)
	}

	if !created {
		return successResponse(c, fiber.StatusOK, "Event already exists", event)
	}
	return successResponse(c, fiber.StatusCreated, "Event created", event)
}
