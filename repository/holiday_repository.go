package repository

import (
	"context"
	"time"

	"github.com/hermes-crm/hermes/models"
	"gorm.io/gorm"
)

// HolidayRepositoryImpl implements the HolidayRepository interface
type HolidayRepositoryImpl struct {
	*BaseRepository[models.Holiday, models.HolidayFilter]
}

// NewHolidayRepository creates a new holiday repository
func NewHolidayRepository(db *gorm.DB) HolidayRepository {
	return &HolidayRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Holiday, models.HolidayFilter](db),
	}
}

// ListInWindow retrieves holidays dated inside [from, to]
func (r *HolidayRepositoryImpl) ListInWindow(ctx context.Context, from, to time.Time) ([]*models.Holiday, error) {
	filter := models.HolidayFilter{DateFrom: &from, DateTo: &to}
	return r.ByFilter(ctx, filter, "date ASC", 0, 0)
}

// ByFilter retrieves holidays based on filter criteria
func (r *HolidayRepositoryImpl) ByFilter(ctx context.Context, filter models.HolidayFilter, orderBy string, limit, offset int) ([]*models.Holiday, error) {
	db := r.getDB(ctx)

	var holidays []*models.Holiday
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

	err := query.Find(&holidays).Error
	if err != nil {
		return nil, err
	}

	return holidays, nil
}

// Count returns the number of holidays matching the filter
func (r *HolidayRepositoryImpl) Count(ctx context.Context, filter models.HolidayFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Holiday{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any holiday matching the filter exists
func (r *HolidayRepositoryImpl) Exists(ctx context.Context, filter models.HolidayFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *HolidayRepositoryImpl) applyFilter(db *gorm.DB, filter models.HolidayFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Title != nil {
		db = db.Where("title = ?", *filter.Title)
	}
	if filter.DateFrom != nil {
		db = db.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		db = db.Where("date <= ?", *filter.DateTo)
	}
	if filter.IsBusinessRelevant != nil {
		db = db.Where("is_business_relevant = ?", *filter.IsBusinessRelevant)
	}
	return db
}
