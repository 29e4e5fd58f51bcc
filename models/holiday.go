package models

import (
	"time"

	"github.com/hermes-crm/hermes/utils"
	"gorm.io/gorm"
)

// Holiday tag keys and values consumed by the content producer.
const (
	HolidayTagType       = "type"
	HolidayTagToneHint   = "tone_hint"
	HolidayTagProfession = "profession"
	HolidayTagSource     = "source"

	HolidayTypeGeneral      = "holiday"
	HolidayTypeProfessional = "professional"
)

// Holiday is a dated reference row used by the materializer to fan events out
// to clients. Recurring built-in holidays are generated in code; this table
// holds fixed-date rows (seeded or operator-managed).
type Holiday struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Date               time.Time `gorm:"type:date;not null;uniqueIndex:uk_holidays_date_title;index:idx_holidays_date" json:"date"`
	Title              string    `gorm:"size:200;not null;uniqueIndex:uk_holidays_date_title" json:"title"`
	Tags               JSONMap   `gorm:"type:jsonb" json:"tags"`
	IsBusinessRelevant bool      `gorm:"not null;default:true" json:"is_business_relevant"`
	CreatedAt          time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

// TableName returns the table name for the model
func (Holiday) TableName() string {
	return "holidays"
}

// BeforeCreate is called before creating a new record
func (h *Holiday) BeforeCreate(tx *gorm.DB) error {
	if h.Tags == nil {
		h.Tags = JSONMap{}
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = utils.UTCNow()
	}
	return nil
}

// HolidayFilter represents filter criteria for holidays
type HolidayFilter struct {
	ID                 *uint      `json:"id,omitempty"`
	Title              *string    `json:"title,omitempty"`
	DateFrom           *time.Time `json:"date_from,omitempty"`
	DateTo             *time.Time `json:"date_to,omitempty"`
	IsBusinessRelevant *bool      `json:"is_business_relevant,omitempty"`
}
