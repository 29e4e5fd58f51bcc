package businessflow

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/hermes-crm/hermes/app/dto"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
	"github.com/hermes-crm/hermes/utils"
)

// EventFlow defines the interface for event management
type EventFlow interface {
	ListEvents(ctx context.Context, filter models.EventFilter, limit, offset int) ([]*models.Event, error)
	CreateManualEvent(ctx context.Context, req *dto.CreateManualEventRequest) (*models.Event, bool, error)
}

// EventFlowImpl implements the event management flow
type EventFlowImpl struct {
	eventRepo  repository.EventRepository
	clientRepo repository.ClientRepository
	logger     *log.Logger
}

// NewEventFlow creates a new event flow instance
func NewEventFlow(eventRepo repository.EventRepository, clientRepo repository.ClientRepository, logger *log.Logger) EventFlow {
	return &EventFlowImpl{eventRepo: eventRepo, clientRepo: clientRepo, logger: logger}
}

// ListEvents returns events matching the filter, newest date first
func (s *EventFlowImpl) ListEvents(ctx context.Context, filter models.EventFilter, limit, offset int) ([]*models.Event, error) {
	events, err := s.eventRepo.ByFilter(ctx, filter, "event_date ASC, id ASC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_EVENTS_FAILED", "Failed to list events", err)
	}
	return events, nil
}

// CreateManualEvent records an operator-entered occasion for a client. The
// boolean reports whether a new row was created; false means the same
// occasion already existed.
func (s *EventFlowImpl) CreateManualEvent(ctx context.Context, req *dto.CreateManualEventRequest) (*models.Event, bool, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, false, NewBusinessError("EVENT_TITLE_REQUIRED", "Event title is required", ErrEventTitleRequired)
	}
	if req.EventDate == "" {
		return nil, false, NewBusinessError("EVENT_DATE_REQUIRED", "Event date is required", ErrEventDateRequired)
	}
	eventDate, err := time.Parse("2006-01-02", req.EventDate)
	if err != nil {
		return nil, false, NewBusinessError("EVENT_DATE_REQUIRED", "Event date must be formatted as YYYY-MM-DD", ErrEventDateRequired)
	}

	client, err := s.clientRepo.ByID(ctx, req.ClientID)
	if err != nil {
		return nil, false, NewBusinessError("CREATE_EVENT_FAILED", "Failed to load client", err)
	}
	if client == nil {
		return nil, false, NewBusinessError("CLIENT_NOT_FOUND", "Client does not exist", ErrClientNotFound)
	}

	details := models.JSONMap{"source": "manual"}
	if req.Note != nil && *req.Note != "" {
		details["note"] = *req.Note
	}

	event := &models.Event{
		ClientID:  &client.ID,
		EventType: models.EventTypeManual,
		EventDate: utils.DateOnly(eventDate),
		Title:     title,
		Details:   details,
	}

	inserted, err := s.eventRepo.SaveIgnoreDuplicate(ctx, event)
	if err != nil {
		return nil, false, NewBusinessError("CREATE_EVENT_FAILED", "Failed to create event", err)
	}
	return event, inserted, nil
}
