package repository

import (
	"context"

	"github.com/hermes-crm/hermes/models"
	"gorm.io/gorm"
)

// DeliveryRepositoryImpl implements the DeliveryRepository interface
type DeliveryRepositoryImpl struct {
	*BaseRepository[models.Delivery, models.DeliveryFilter]
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &DeliveryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Delivery, models.DeliveryFilter](db),
	}
}

// ByIdempotencyKey retrieves the delivery recorded under the given key, if any
func (r *DeliveryRepositoryImpl) ByIdempotencyKey(ctx context.Context, key string) (*models.Delivery, error) {
	filter := models.DeliveryFilter{IdempotencyKey: &key}
	deliveries, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(deliveries) == 0 {
		return nil, nil
	}
	return deliveries[0], nil
}

// ByFilter retrieves deliveries based on filter criteria
func (r *DeliveryRepositoryImpl) ByFilter(ctx context.Context, filter models.DeliveryFilter, orderBy string, limit, offset int) ([]*models.Delivery, error) {
	db := r.getDB(ctx)

	var deliveries []*models.Delivery
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

	err := query.Find(&deliveries).Error
	if err != nil {
		return nil, err
	}

	return deliveries, nil
}

// Count returns the number of deliveries matching the filter
func (r *DeliveryRepositoryImpl) Count(ctx context.Context, filter models.DeliveryFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Delivery{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any delivery matching the filter exists
func (r *DeliveryRepositoryImpl) Exists(ctx context.Context, filter models.DeliveryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DeliveryRepositoryImpl) applyFilter(db *gorm.DB, filter models.DeliveryFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.GreetingID != nil {
		db = db.Where("greeting_id = ?", *filter.GreetingID)
	}
	if filter.Channel != nil {
		db = db.Where("channel = ?", *filter.Channel)
	}
	if filter.Recipient != nil {
		db = db.Where("recipient = ?", *filter.Recipient)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.IdempotencyKey != nil {
		db = db.Where("idempotency_key = ?", *filter.IdempotencyKey)
	}
	if filter.SentAfter != nil {
		db = db.Where("sent_at >= ?", *filter.SentAfter)
	}
	if filter.SentBefore != nil {
		db = db.Where("sent_at <= ?", *filter.SentBefore)
	}
	return db
}
