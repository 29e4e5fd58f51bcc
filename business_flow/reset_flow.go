package businessflow

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/hermes-crm/hermes/app/dto"
	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
)

// ResetFlow defines the interface for clearing runtime state
type ResetFlow interface {
	ResetRuntime(ctx context.Context) (*dto.ResetRuntimeResponse, error)
}

// ResetFlowImpl wipes everything the agent produced while keeping the
// reference data (clients and holidays) intact. Intended for demo
// installations where the same run is replayed over and over.
type ResetFlowImpl struct {
	db             *gorm.DB
	deliveryPolicy config.DeliveryPolicy
	imageConfig    config.Image
	logger         *log.Logger
}

// NewResetFlow creates a new reset flow instance
func NewResetFlow(db *gorm.DB, deliveryPolicy config.DeliveryPolicy, imageConfig config.Image, logger *log.Logger) ResetFlow {
	return &ResetFlowImpl{
		db:             db,
		deliveryPolicy: deliveryPolicy,
		imageConfig:    imageConfig,
		logger:         logger,
	}
}

// ResetRuntime deletes deliveries, greetings, events and agent runs, then
// clears the outbox and card directories. Clients and holidays stay.
func (s *ResetFlowImpl) ResetRuntime(ctx context.Context) (*dto.ResetRuntimeResponse, error) {
	resp := &dto.ResetRuntimeResponse{}

	// Children first so foreign keys never block the sweep.
	tables := []struct {
		model any
		count *int64
	}{
		{&models.Feedback{}, &resp.DeletedFeedback},
		{&models.Delivery{}, &resp.DeletedDeliveries},
		{&models.Greeting{}, &resp.DeletedGreetings},
		{&models.Event{}, &resp.DeletedEvents},
		{&models.AgentRun{}, &resp.DeletedAgentRuns},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			result := tx.Where("1 = 1").Delete(t.model)
			if result.Error != nil {
				return result.Error
			}
			*t.count = result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("RESET_RUNTIME_FAILED", "Failed to clear runtime tables", err)
	}

	resp.DeletedFiles += s.clearDir(s.deliveryPolicy.OutboxDir)
	resp.DeletedFiles += s.clearDir(s.imageConfig.Dir)

	s.logger.Printf("reset: deliveries=%d greetings=%d events=%d runs=%d files=%d",
		resp.DeletedDeliveries, resp.DeletedGreetings, resp.DeletedEvents, resp.DeletedAgentRuns, resp.DeletedFiles)

	return resp, nil
}

// clearDir removes the regular files in dir. A missing directory is fine.
func (s *ResetFlowImpl) clearDir(dir string) int64 {
	if dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var removed int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			s.logger.Printf("reset: failed to remove %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed
}
