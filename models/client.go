// Package models contains domain entities and business models for the greeting agent
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/hermes-crm/hermes/utils"
	"gorm.io/gorm"
)

// ClientSegment classifies a client for approval and tone purposes
type ClientSegment string

const (
	ClientSegmentStandard ClientSegment = "standard"
	ClientSegmentNew      ClientSegment = "new"
	ClientSegmentLoyal    ClientSegment = "loyal"
	ClientSegmentVIP      ClientSegment = "vip"
)

// String returns the string representation of the segment
func (s ClientSegment) String() string {
	return string(s)
}

// Valid checks if the segment is valid
func (s ClientSegment) Valid() bool {
	switch s {
	case ClientSegmentStandard, ClientSegmentNew, ClientSegmentLoyal, ClientSegmentVIP:
		return true
	default:
		return false
	}
}

// RequiresApproval reports whether greetings for this segment must pass the
// human approval gate before any delivery attempt.
func (s ClientSegment) RequiresApproval() bool {
	return s == ClientSegmentVIP
}

// Scan implements the sql.Scanner interface for ClientSegment
func (s *ClientSegment) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ClientSegment(v)
	case []byte:
		*s = ClientSegment(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ClientSegment", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ClientSegment
func (s ClientSegment) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ClientSegment: %s", s)
	}
	return string(s), nil
}

// Channel constants for Client.PreferredChannel
const (
	PreferredChannelEmail     = "email"
	PreferredChannelSMS       = "sms"
	PreferredChannelMessenger = "messenger"
)

// Client represents a client the agent congratulates
type Client struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	FirstName   string        `gorm:"size:100;not null" json:"first_name"`
	MiddleName  *string       `gorm:"size:100" json:"middle_name,omitempty"`
	LastName    string        `gorm:"size:100;not null" json:"last_name"`
	CompanyName *string       `gorm:"size:200" json:"company_name,omitempty"`
	Position    *string       `gorm:"size:200" json:"position,omitempty"`
	Profession  *string       `gorm:"size:80;index:idx_clients_profession" json:"profession,omitempty"`
	Segment     ClientSegment `gorm:"size:50;not null;default:'standard';index:idx_clients_segment" json:"segment"`

	Email            *string `gorm:"size:320" json:"email,omitempty"`
	Phone            *string `gorm:"size:40" json:"phone,omitempty"`
	PreferredChannel string  `gorm:"size:20;not null;default:'email'" json:"preferred_channel"`

	BirthDate              *time.Time `gorm:"type:date" json:"birth_date,omitempty"`
	Preferences            JSONMap    `gorm:"type:jsonb" json:"preferences"`
	LastInteractionSummary *string    `gorm:"type:text" json:"last_interaction_summary,omitempty"`

	// Demo clients must never receive real outbound email, ever.
	IsDemo bool `gorm:"not null;default:false" json:"is_demo"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Events    []Event    `gorm:"foreignKey:ClientID" json:"events,omitempty"`
	Greetings []Greeting `gorm:"foreignKey:ClientID" json:"greetings,omitempty"`
}

// TableName returns the table name for the model
func (Client) TableName() string {
	return "clients"
}

// BeforeCreate is called before creating a new record
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.Segment == "" {
		c.Segment = ClientSegmentStandard
	}
	if c.PreferredChannel == "" {
		c.PreferredChannel = PreferredChannelEmail
	}
	if c.Preferences == nil {
		c.Preferences = JSONMap{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (c *Client) FullName() string {
	name := c.FirstName
	if c.LastName != "" {
		name = name + " " + c.LastName
	}
	return name
}

// Recipient returns the delivery address for the client: email first, then
// phone. Empty string means the client cannot be delivered to.
func (c *Client) Recipient() string {
	if c.Email != nil && *c.Email != "" {
		return *c.Email
	}
	if c.Phone != nil && *c.Phone != "" {
		return *c.Phone
	}
	return ""
}

// ClientFilter represents filter criteria for clients
type ClientFilter struct {
	ID            *uint          `json:"id,omitempty"`
	FirstName     *string        `json:"first_name,omitempty"`
	LastName      *string        `json:"last_name,omitempty"`
	Segment       *ClientSegment `json:"segment,omitempty"`
	Profession    *string        `json:"profession,omitempty"`
	Email         *string        `json:"email,omitempty"`
	IsDemo        *bool          `json:"is_demo,omitempty"`
	CreatedAfter  *time.Time     `json:"created_after,omitempty"`
	CreatedBefore *time.Time     `json:"created_before,omitempty"`
}
