package repository

import (
	"context"
	"time"

	"github.com/hermes-crm/hermes/models"
	"gorm.io/gorm"
)

// GreetingRepositoryImpl implements the GreetingRepository interface
type GreetingRepositoryImpl struct {
	*BaseRepository[models.Greeting, models.GreetingFilter]
}

// NewGreetingRepository creates a new greeting repository
func NewGreetingRepository(db *gorm.DB) GreetingRepository {
	return &GreetingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Greeting, models.GreetingFilter](db),
	}
}

// ExistsForEvent checks whether any greeting was already generated for the event
func (r *GreetingRepositoryImpl) ExistsForEvent(ctx context.Context, eventID uint) (bool, error) {
	return r.Exists(ctx, models.GreetingFilter{EventID: &eventID})
}

// ListDueOn returns greetings whose event is dated exactly on the given day
// and whose status is in the provided set, with Event and Client preloaded.
func (r *GreetingRepositoryImpl) ListDueOn(ctx context.Context, day time.Time, statuses []models.GreetingStatus) ([]*models.Greeting, error) {
	db := r.getDB(ctx)

	var greetings []*models.Greeting
	err := db.
		Joins("JOIN events ON events.id = greetings.event_id").
		Where("events.event_date = ?", day).
		Where("greetings.status IN ?", statuses).
		Order("greetings.id ASC").
		Preload("Event").
		Preload("Client").
		Find(&greetings).Error
	if err != nil {
		return nil, err
	}

	return greetings, nil
}

// UpdateStatus updates only the status of a greeting
func (r *GreetingRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.GreetingStatus) error {
	db := r.getDB(ctx)
	return db.Model(&models.Greeting{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ByFilter retrieves greetings based on filter criteria
func (r *GreetingRepositoryImpl) ByFilter(ctx context.Context, filter models.GreetingFilter, orderBy string, limit, offset int) ([]*models.Greeting, error) {
	db := r.getDB(ctx)

	var greetings []*models.Greeting
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

	query = query.Preload("Event").Preload("Client")

	err := query.Find(&greetings).Error
	if err != nil {
		return nil, err
	}

	return greetings, nil
}

// Count returns the number of greetings matching the filter
func (r *GreetingRepositoryImpl) Count(ctx context.Context, filter models.GreetingFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Greeting{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any greeting matching the filter exists
func (r *GreetingRepositoryImpl) Exists(ctx context.Context, filter models.GreetingFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *GreetingRepositoryImpl) applyFilter(db *gorm.DB, filter models.GreetingFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.EventID != nil {
		db = db.Where("event_id = ?", *filter.EventID)
	}
	if filter.ClientID != nil {
		db = db.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Tone != nil {
		db = db.Where("tone = ?", *filter.Tone)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
