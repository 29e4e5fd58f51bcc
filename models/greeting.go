package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/hermes-crm/hermes/utils"
	"gorm.io/gorm"
)

// GreetingStatus represents the lifecycle state of a greeting
type GreetingStatus string

const (
	GreetingStatusGenerated     GreetingStatus = "generated"
	GreetingStatusNeedsApproval GreetingStatus = "needs_approval"
	GreetingStatusApproved      GreetingStatus = "approved"
	GreetingStatusRejected      GreetingStatus = "rejected"
	GreetingStatusSent          GreetingStatus = "sent"
	GreetingStatusSkipped       GreetingStatus = "skipped"
	GreetingStatusError         GreetingStatus = "error"
)

// String returns the string representation of the status
func (s GreetingStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s GreetingStatus) Valid() bool {
	switch s {
	case GreetingStatusGenerated, GreetingStatusNeedsApproval, GreetingStatusApproved,
		GreetingStatusRejected, GreetingStatusSent, GreetingStatusSkipped, GreetingStatusError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no component may move the greeting further.
func (s GreetingStatus) IsTerminal() bool {
	switch s {
	case GreetingStatusSent, GreetingStatusRejected, GreetingStatusSkipped:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the greeting can transition to the given status
func (s GreetingStatus) CanTransitionTo(newStatus GreetingStatus) bool {
	switch s {
	case GreetingStatusGenerated:
		return newStatus == GreetingStatusApproved ||
			newStatus == GreetingStatusRejected ||
			newStatus == GreetingStatusSent ||
			newStatus == GreetingStatusSkipped ||
			newStatus == GreetingStatusError
	case GreetingStatusNeedsApproval:
		return newStatus == GreetingStatusApproved ||
			newStatus == GreetingStatusRejected
	case GreetingStatusApproved:
		return newStatus == GreetingStatusSent ||
			newStatus == GreetingStatusSkipped ||
			newStatus == GreetingStatusError
	case GreetingStatusError:
		return newStatus == GreetingStatusSent ||
			newStatus == GreetingStatusSkipped ||
			newStatus == GreetingStatusError
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for GreetingStatus
func (s *GreetingStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = GreetingStatus(v)
	case []byte:
		*s = GreetingStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into GreetingStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for GreetingStatus
func (s GreetingStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid GreetingStatus: %s", s)
	}
	return string(s), nil
}

// Greeting tones
const (
	ToneOfficial = "official"
	ToneWarm     = "warm"
)

// Greeting is one generated message for one event.
type Greeting struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	EventID  uint  `gorm:"not null;index:idx_greetings_event_id" json:"event_id"`
	ClientID *uint `gorm:"index:idx_greetings_client_id" json:"client_id,omitempty"`

	Tone      string         `gorm:"size:50;not null;default:'official'" json:"tone"`
	Subject   string         `gorm:"size:250;not null" json:"subject"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	ImagePath *string        `gorm:"size:500" json:"image_path,omitempty"`
	Status    GreetingStatus `gorm:"size:50;not null;default:'generated';index:idx_greetings_status" json:"status"`

	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	ApprovedBy    *string    `gorm:"size:120" json:"approved_by,omitempty"`
	ReviewComment *string    `gorm:"type:text" json:"review_comment,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Event      *Event     `gorm:"foreignKey:EventID;references:ID" json:"event,omitempty"`
	Client     *Client    `gorm:"foreignKey:ClientID;references:ID" json:"client,omitempty"`
	Deliveries []Delivery `gorm:"foreignKey:GreetingID" json:"deliveries,omitempty"`
}

// TableName returns the table name for the model
func (Greeting) TableName() string {
	return "greetings"
}

// BeforeCreate is called before creating a new record
func (g *Greeting) BeforeCreate(tx *gorm.DB) error {
	if g.Status == "" {
		g.Status = GreetingStatusGenerated
	}
	if g.Tone == "" {
		g.Tone = ToneOfficial
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = utils.UTCNow()
	}
	return nil
}

// IsReviewable reports whether an operator can still approve or reject.
func (g *Greeting) IsReviewable() bool {
	return g.Status == GreetingStatusNeedsApproval || g.Status == GreetingStatusGenerated
}

// GreetingFilter represents filter criteria for greetings
type GreetingFilter struct {
	ID            *uint           `json:"id,omitempty"`
	EventID       *uint           `json:"event_id,omitempty"`
	ClientID      *uint           `json:"client_id,omitempty"`
	Status        *GreetingStatus `json:"status,omitempty"`
	Tone          *string         `json:"tone,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
