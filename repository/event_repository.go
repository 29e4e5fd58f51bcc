package repository

import (
	"context"
	"time"

	"github.com/hermes-crm/hermes/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepositoryImpl implements the EventRepository interface
type EventRepositoryImpl struct {
	*BaseRepository[models.Event, models.EventFilter]
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &EventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Event, models.EventFilter](db),
	}
}

// SaveIgnoreDuplicate inserts the event, relying on the composite unique
// index to drop duplicates. The materializer calls this for every candidate
// and only counts actual inserts.
func (r *EventRepositoryImpl) SaveIgnoreDuplicate(ctx context.Context, event *models.Event) (bool, error) {
	db := r.getDB(ctx)

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// ListInWindow retrieves events dated inside [from, to] with clients loaded
func (r *EventRepositoryImpl) ListInWindow(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	filter := models.EventFilter{DateFrom: &from, DateTo: &to}
	return r.ByFilter(ctx, filter, "event_date ASC, id ASC", 0, 0)
}

// ByFilter retrieves events based on filter criteria
func (r *EventRepositoryImpl) ByFilter(ctx context.Context, filter models.EventFilter, orderBy string, limit, offset int) ([]*models.Event, error) {
	db := r.getDB(ctx)

	var events []*models.Event
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

	query = query.Preload("Client")

	err := query.Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Count returns the number of events matching the filter
func (r *EventRepositoryImpl) Count(ctx context.Context, filter models.EventFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Event{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any event matching the filter exists
func (r *EventRepositoryImpl) Exists(ctx context.Context, filter models.EventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *EventRepositoryImpl) applyFilter(db *gorm.DB, filter models.EventFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ClientID != nil {
		db = db.Where("client_id = ?", *filter.ClientID)
	}
	if filter.EventType != nil {
		db = db.Where("event_type = ?", *filter.EventType)
	}
	if filter.Title != nil {
		db = db.Where("title = ?", *filter.Title)
	}
	if filter.DateFrom != nil {
		db = db.Where("event_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		db = db.Where("event_date <= ?", *filter.DateTo)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
