package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hermes-crm/hermes/utils"
	"gorm.io/gorm"
)

// AgentRunStatus represents the state of one materialize-and-generate sweep
type AgentRunStatus string

const (
	AgentRunStatusRunning AgentRunStatus = "running"
	AgentRunStatusSuccess AgentRunStatus = "success"
	AgentRunStatusPartial AgentRunStatus = "partial"
	AgentRunStatusError   AgentRunStatus = "error"
)

// String returns the string representation of the status
func (s AgentRunStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s AgentRunStatus) Valid() bool {
	switch s {
	case AgentRunStatusRunning, AgentRunStatusSuccess, AgentRunStatusPartial, AgentRunStatusError:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for AgentRunStatus
func (s *AgentRunStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = AgentRunStatus(v)
	case []byte:
		*s = AgentRunStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AgentRunStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AgentRunStatus
func (s AgentRunStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid AgentRunStatus: %s", s)
	}
	return string(s), nil
}

// Trigger source constants for AgentRun.TriggeredBy
const (
	TriggeredByWebUI     = "web-ui"
	TriggeredByAPI       = "api"
	TriggeredByScheduler = "scheduler"
	TriggeredByUnknown   = "unknown"
)

// AgentRun is an append-only audit record of one sweep. It is created with
// status running before any work starts and always finalized afterwards.
type AgentRun struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_agent_runs_uuid" json:"uuid"`

	TriggeredBy string         `gorm:"size:50;not null;default:'unknown'" json:"triggered_by"`
	Status      AgentRunStatus `gorm:"size:50;not null;default:'running';index:idx_agent_runs_status" json:"status"`

	StartedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_agent_runs_started_at" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	LookaheadDays int    `gorm:"not null;default:7" json:"lookahead_days"`
	LLMMode       string `gorm:"size:30;not null;default:'template'" json:"llm_mode"`
	ImageMode     string `gorm:"size:30;not null;default:'card'" json:"image_mode"`

	ScannedEvents      int `gorm:"not null;default:0" json:"scanned_events"`
	GeneratedGreetings int `gorm:"not null;default:0" json:"generated_greetings"`
	SentDeliveries     int `gorm:"not null;default:0" json:"sent_deliveries"`
	SkippedExisting    int `gorm:"not null;default:0" json:"skipped_existing"`
	Errors             int `gorm:"not null;default:0" json:"errors"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`
}

// TableName returns the table name for the model
func (AgentRun) TableName() string {
	return "agent_runs"
}

// BeforeCreate is called before creating a new record
func (r *AgentRun) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.Status == "" {
		r.Status = AgentRunStatusRunning
	}
	if r.TriggeredBy == "" {
		r.TriggeredBy = TriggeredByUnknown
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = utils.UTCNow()
	}
	return nil
}

// AgentRunFilter represents filter criteria for agent runs
type AgentRunFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	TriggeredBy   *string         `json:"triggered_by,omitempty"`
	Status        *AgentRunStatus `json:"status,omitempty"`
	StartedAfter  *time.Time      `json:"started_after,omitempty"`
	StartedBefore *time.Time      `json:"started_before,omitempty"`
}
