package models

import (
	"time"

	"github.com/hermes-crm/hermes/utils"
	"gorm.io/gorm"
)

// Feedback outcome constants
const (
	FeedbackOutcomeOpened  = "opened"
	FeedbackOutcomeReplied = "replied"
	FeedbackOutcomeIgnored = "ignored"
	FeedbackOutcomeUnknown = "unknown"
)

// Feedback is a manager-entered reaction to a delivered greeting.
type Feedback struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	GreetingID uint      `gorm:"not null;index:idx_feedback_greeting_id" json:"greeting_id"`
	Outcome    string    `gorm:"size:50;not null;default:'unknown'" json:"outcome"`
	Score      *int      `json:"score,omitempty"` // 1..5
	Notes      *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	Greeting *Greeting `gorm:"foreignKey:GreetingID;references:ID" json:"greeting,omitempty"`
}

// TableName returns the table name for the model
func (Feedback) TableName() string {
	return "feedback"
}

// BeforeCreate is called before creating a new record
func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.Outcome == "" {
		f.Outcome = FeedbackOutcomeUnknown
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	return nil
}

// FeedbackFilter represents filter criteria for feedback rows
type FeedbackFilter struct {
	ID         *uint   `json:"id,omitempty"`
	GreetingID *uint   `json:"greeting_id,omitempty"`
	Outcome    *string `json:"outcome,omitempty"`
}
