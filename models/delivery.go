package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DeliveryChannel identifies the transport a delivery went through
type DeliveryChannel string

const (
	DeliveryChannelEmail DeliveryChannel = "email"
	DeliveryChannelFile  DeliveryChannel = "file"
	DeliveryChannelNoop  DeliveryChannel = "noop"
)

// String returns the string representation of the channel
func (c DeliveryChannel) String() string {
	return string(c)
}

// Valid checks if the channel is valid
func (c DeliveryChannel) Valid() bool {
	switch c {
	case DeliveryChannelEmail, DeliveryChannelFile, DeliveryChannelNoop:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DeliveryChannel
func (c *DeliveryChannel) Scan(value any) error {
	if value == nil {
		*c = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*c = DeliveryChannel(v)
	case []byte:
		*c = DeliveryChannel(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryChannel", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryChannel
func (c DeliveryChannel) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid DeliveryChannel: %s", c)
	}
	return string(c), nil
}

// DeliveryStatus is the resolved outcome of one delivery attempt.
// There is no pending state: deliveries are attempted synchronously and
// resolved before the row is written.
type DeliveryStatus string

const (
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusError   DeliveryStatus = "error"
	DeliveryStatusSkipped DeliveryStatus = "skipped"
)

// String returns the string representation of the status
func (s DeliveryStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusSent, DeliveryStatusError, DeliveryStatusSkipped:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DeliveryStatus
func (s *DeliveryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DeliveryStatus(v)
	case []byte:
		*s = DeliveryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryStatus
func (s DeliveryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliveryStatus: %s", s)
	}
	return string(s), nil
}

// Delivery is one attempted or completed transmission of a greeting.
//
// The unique index on idempotency_key is the hard at-most-once guarantee:
// whatever races or retries happen above this table, a second row for the
// same (greeting, channel, recipient) cannot exist.
type Delivery struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	GreetingID uint `gorm:"not null;index:idx_deliveries_greeting_id" json:"greeting_id"`

	Channel         DeliveryChannel `gorm:"size:20;not null" json:"channel"`
	Recipient       string          `gorm:"size:320;not null" json:"recipient"`
	Status          DeliveryStatus  `gorm:"size:50;not null" json:"status"`
	ProviderMessage *string         `gorm:"type:text" json:"provider_message,omitempty"`
	SentAt          *time.Time      `json:"sent_at,omitempty"`
	IdempotencyKey  string          `gorm:"size:120;not null;uniqueIndex:uk_deliveries_idempotency_key" json:"idempotency_key"`

	// Relations
	Greeting *Greeting `gorm:"foreignKey:GreetingID;references:ID" json:"greeting,omitempty"`
}

// TableName returns the table name for the model
func (Delivery) TableName() string {
	return "deliveries"
}

// BeforeCreate is called before creating a new record
func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.IdempotencyKey == "" {
		return fmt.Errorf("delivery requires an idempotency key")
	}
	return nil
}

// DeliveryFilter represents filter criteria for deliveries
type DeliveryFilter struct {
	ID             *uint            `json:"id,omitempty"`
	GreetingID     *uint            `json:"greeting_id,omitempty"`
	Channel        *DeliveryChannel `json:"channel,omitempty"`
	Recipient      *string          `json:"recipient,omitempty"`
	Status         *DeliveryStatus  `json:"status,omitempty"`
	IdempotencyKey *string          `json:"idempotency_key,omitempty"`
	SentAfter      *time.Time       `json:"sent_after,omitempty"`
	SentBefore     *time.Time       `json:"sent_before,omitempty"`
}
