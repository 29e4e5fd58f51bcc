package repository

import (
	"context"

	"github.com/hermes-crm/hermes/models"
	"gorm.io/gorm"
)

// AgentRunRepositoryImpl implements the AgentRunRepository interface
type AgentRunRepositoryImpl struct {
	*BaseRepository[models.AgentRun, models.AgentRunFilter]
}

// NewAgentRunRepository creates a new agent run repository
func NewAgentRunRepository(db *gorm.DB) AgentRunRepository {
	return &AgentRunRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AgentRun, models.AgentRunFilter](db),
	}
}

// ByFilter retrieves agent runs based on filter criteria
func (r *AgentRunRepositoryImpl) ByFilter(ctx context.Context, filter models.AgentRunFilter, orderBy string, limit, offset int) ([]*models.AgentRun, error) {
	db := r.getDB(ctx)

	var runs []*models.AgentRun
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&runs).Error
	if err != nil {
		return nil, err
	}

	return runs, nil
}

// Count returns the number of agent runs matching the filter
func (r *AgentRunRepositoryImpl) Count(ctx context.Context, filter models.AgentRunFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.AgentRun{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any agent run matching the filter exists
func (r *AgentRunRepositoryImpl) Exists(ctx context.Context, filter models.AgentRunFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *AgentRunRepositoryImpl) applyFilter(db *gorm.DB, filter models.AgentRunFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TriggeredBy != nil {
		db = db.Where("triggered_by = ?", *filter.TriggeredBy)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.StartedAfter != nil {
		db = db.Where("started_at >= ?", *filter.StartedAfter)
	}
	if filter.StartedBefore != nil {
		db = db.Where("started_at <= ?", *filter.StartedBefore)
	}
	return db
}
