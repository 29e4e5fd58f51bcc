package repository

import (
	"context"

	"github.com/hermes-crm/hermes/models"
	"gorm.io/gorm"
)

// FeedbackRepositoryImpl implements the FeedbackRepository interface
type FeedbackRepositoryImpl struct {
	*BaseRepository[models.Feedback, models.FeedbackFilter]
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &FeedbackRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Feedback, models.FeedbackFilter](db),
	}
}

// ByFilter retrieves feedback rows based on filter criteria
func (r *FeedbackRepositoryImpl) ByFilter(ctx context.Context, filter models.FeedbackFilter, orderBy string, limit, offset int) ([]*models.Feedback, error) {
	db := r.getDB(ctx)

	var rows []*models.Feedback
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

	err := query.Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Count returns the number of feedback rows matching the filter
func (r *FeedbackRepositoryImpl) Count(ctx context.Context, filter models.FeedbackFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Feedback{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any feedback row matching the filter exists
func (r *FeedbackRepositoryImpl) Exists(ctx context.Context, filter models.FeedbackFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *FeedbackRepositoryImpl) applyFilter(db *gorm.DB, filter models.FeedbackFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.GreetingID != nil {
		db = db.Where("greeting_id = ?", *filter.GreetingID)
	}
	if filter.Outcome != nil {
		db = db.Where("outcome = ?", *filter.Outcome)
	}
	return db
}
