package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/hermes-crm/hermes/utils"
	"gorm.io/gorm"
)

// EventType represents the kind of occasion an event records
type EventType string

const (
	EventTypeBirthday EventType = "birthday"
	EventTypeHoliday  EventType = "holiday"
	EventTypeManual   EventType = "manual"
)

// String returns the string representation of the event type
func (t EventType) String() string {
	return string(t)
}

// Valid checks if the event type is valid
func (t EventType) Valid() bool {
	switch t {
	case EventTypeBirthday, EventTypeHoliday, EventTypeManual:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EventType
func (t *EventType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = EventType(v)
	case []byte:
		*t = EventType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EventType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EventType
func (t EventType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid EventType: %s", t)
	}
	return string(t), nil
}

// Event is a dated occasion tied to at most one client.
//
// The composite unique index over (client_id, event_type, event_date, title)
// is what makes the materializer idempotent: re-running the same window never
// creates a second row for the same occasion.
type Event struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	ClientID *uint `gorm:"uniqueIndex:uk_events_client_type_date_title;index:idx_events_client_id" json:"client_id,omitempty"`

	EventType EventType `gorm:"size:50;not null;uniqueIndex:uk_events_client_type_date_title" json:"event_type"`
	EventDate time.Time `gorm:"type:date;not null;uniqueIndex:uk_events_client_type_date_title;index:idx_events_event_date" json:"event_date"`
	Title     string    `gorm:"size:250;not null;uniqueIndex:uk_events_client_type_date_title" json:"title"`
	Details   JSONMap   `gorm:"type:jsonb" json:"details"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Client    *Client    `gorm:"foreignKey:ClientID;references:ID" json:"client,omitempty"`
	Greetings []Greeting `gorm:"foreignKey:EventID" json:"greetings,omitempty"`
}

// TableName returns the table name for the model
func (Event) TableName() string {
	return "events"
}

// BeforeCreate is called before creating a new record
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.Details == nil {
		e.Details = JSONMap{}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utils.UTCNow()
	}
	return nil
}

// HolidayTags returns the holiday tag object attached by the materializer,
// or an empty map for events that carry none.
func (e *Event) HolidayTags() JSONMap {
	if e.Details == nil {
		return JSONMap{}
	}
	if tags, ok := e.Details["holiday_tags"].(map[string]any); ok {
		return JSONMap(tags)
	}
	return JSONMap{}
}

// IsProfessionalHoliday reports whether the event is a profession-specific
// holiday rather than a general one.
func (e *Event) IsProfessionalHoliday() bool {
	return e.EventType == EventTypeHoliday &&
		e.HolidayTags().GetString(HolidayTagType) == HolidayTypeProfessional
}

// EventFilter represents filter criteria for events
type EventFilter struct {
	ID            *uint      `json:"id,omitempty"`
	ClientID      *uint      `json:"client_id,omitempty"`
	EventType     *EventType `json:"event_type,omitempty"`
	Title         *string    `json:"title,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
