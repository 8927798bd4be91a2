package repository

import (
	"context"

	"github.com/casaflow/casaflow/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements the TenantRepository interface
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.TenantFilter]
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tenant, models.TenantFilter](db),
	}
}

// ByUUID retrieves a tenant by UUID
func (r *TenantRepositoryImpl) ByUUID(ctx context.Context, raw string) (*models.Tenant, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}

	tenants, err := r.ByFilter(ctx, models.TenantFilter{UUID: &parsed}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, nil
	}
	return tenants[0], nil
}

// BySlug retrieves a tenant by slug
func (r *TenantRepositoryImpl) BySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	tenants, err := r.ByFilter(ctx, models.TenantFilter{Slug: &slug}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, nil
	}
	return tenants[0], nil
}

// ByFilter retrieves tenants based on filter criteria
func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)

	var tenants []*models.Tenant
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

	err := query.Find(&tenants).Error
	if err != nil {
		return nil, err
	}

	return tenants, nil
}

// Count returns the number of tenants matching the filter
func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.TenantFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Tenant{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any tenant matching the filter exists
func (r *TenantRepositoryImpl) Exists(ctx context.Context, filter models.TenantFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *TenantRepositoryImpl) applyFilter(db *gorm.DB, filter models.TenantFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Slug != nil {
		db = db.Where("slug = ?", *filter.Slug)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	return db
}
