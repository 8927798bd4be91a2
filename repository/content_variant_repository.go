package repository

import (
	"context"

	"github.com/casaflow/casaflow/models"
	"gorm.io/gorm"
)

// ContentVariantRepositoryImpl implements the ContentVariantRepository interface
type ContentVariantRepositoryImpl struct {
	*BaseRepository[models.ContentVariant, models.ContentVariantFilter]
}

// NewContentVariantRepository creates a new content variant repository
func NewContentVariantRepository(db *gorm.DB) ContentVariantRepository {
	return &ContentVariantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ContentVariant, models.ContentVariantFilter](db),
	}
}

// ListByItem retrieves every platform variant of a content item
func (r *ContentVariantRepositoryImpl) ListByItem(ctx context.Context, itemID uint) ([]*models.ContentVariant, error) {
	return r.ByFilter(ctx, models.ContentVariantFilter{ItemID: &itemID}, "platform ASC", 0, 0)
}

// ByFilter retrieves content variants based on filter criteria
func (r *ContentVariantRepositoryImpl) ByFilter(ctx context.Context, filter models.ContentVariantFilter, orderBy string, limit, offset int) ([]*models.ContentVariant, error) {
	db := r.getDB(ctx)

	var variants []*models.ContentVariant
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

	err := query.Find(&variants).Error
	if err != nil {
		return nil, err
	}

	return variants, nil
}

// Count returns the number of content variants matching the filter
func (r *ContentVariantRepositoryImpl) Count(ctx context.Context, filter models.ContentVariantFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.ContentVariant{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any content variant matching the filter exists
func (r *ContentVariantRepositoryImpl) Exists(ctx context.Context, filter models.ContentVariantFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ContentVariantRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContentVariantFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ItemID != nil {
		db = db.Where("item_id = ?", *filter.ItemID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Platform != nil {
		db = db.Where("platform = ?", *filter.Platform)
	}
	return db
}
