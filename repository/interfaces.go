// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/hermes-crm/hermes/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Update(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ClientRepository defines operations for clients
type ClientRepository interface {
	Repository[models.Client, models.ClientFilter]
	ByEmail(ctx context.Context, email string) (*models.Client, error)
	ListAll(ctx context.Context) ([]*models.Client, error)
}

// HolidayRepository defines operations for holiday reference rows
type HolidayRepository interface {
	Repository[models.Holiday, models.HolidayFilter]
	ListInWindow(ctx context.Context, from, to time.Time) ([]*models.Holiday, error)
}

// EventRepository defines operations for events
type EventRepository interface {
	Repository[models.Event, models.EventFilter]
	// SaveIgnoreDuplicate inserts the event unless a row with the same
	// (client, type, date, title) already exists. It reports whether a new
	// row was created.
	SaveIgnoreDuplicate(ctx context.Context, event *models.Event) (bool, error)
	ListInWindow(ctx context.Context, from, to time.Time) ([]*models.Event, error)
}

// GreetingRepository defines operations for greetings
type GreetingRepository interface {
	Repository[models.Greeting, models.GreetingFilter]
	ExistsForEvent(ctx context.Context, eventID uint) (bool, error)
	// ListDueOn returns greetings whose event falls on the given day and
	// whose status is one of the provided set, with Event and Client loaded.
	ListDueOn(ctx context.Context, day time.Time, statuses []models.GreetingStatus) ([]*models.Greeting, error)
	UpdateStatus(ctx context.Context, id uint, status models.GreetingStatus) error
}

// DeliveryRepository defines operations for deliveries
type DeliveryRepository interface {
	Repository[models.Delivery, models.DeliveryFilter]
	ByIdempotencyKey(ctx context.Context, key string) (*models.Delivery, error)
}

// AgentRunRepository defines operations for agent run audit records
type AgentRunRepository interface {
	Repository[models.AgentRun, models.AgentRunFilter]
}

// FeedbackRepository defines operations for greeting feedback
type FeedbackRepository interface {
	Repository[models.Feedback, models.FeedbackFilter]
}
