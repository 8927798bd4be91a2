package repository

import (
	"context"

	"github.com/casaflow/casaflow/models"
	"gorm.io/gorm"
)

// TenantMemberRepositoryImpl implements the TenantMemberRepository interface
type TenantMemberRepositoryImpl struct {
	*BaseRepository[models.TenantMember, models.TenantMemberFilter]
}

// NewTenantMemberRepository creates a new tenant membership repository
func NewTenantMemberRepository(db *gorm.DB) TenantMemberRepository {
	return &TenantMemberRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TenantMember, models.TenantMemberFilter](db),
	}
}

// ByTenantAndUser retrieves the membership of a user in a tenant, nil when absent
func (r *TenantMemberRepositoryImpl) ByTenantAndUser(ctx context.Context, tenantID, userID uint) (*models.TenantMember, error) {
	members, err := r.ByFilter(ctx, models.TenantMemberFilter{TenantID: &tenantID, UserID: &userID}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return members[0], nil
}

// ListByUser retrieves all memberships of a user
func (r *TenantMemberRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.TenantMember, error) {
	db := r.getDB(ctx)

	var members []*models.TenantMember
	err := db.Where("user_id = ?", userID).
		Preload("Tenant").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	return members, nil
}

// ByFilter retrieves memberships based on filter criteria
func (r *TenantMemberRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantMemberFilter, orderBy string, limit, offset int) ([]*models.TenantMember, error) {
	db := r.getDB(ctx)

	var members []*models.TenantMember
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

	err := query.Find(&members).Error
	if err != nil {
		return nil, err
	}

	return members, nil
}

// Count returns the number of memberships matching the filter
func (r *TenantMemberRepositoryImpl) Count(ctx context.Context, filter models.TenantMemberFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.TenantMember{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any membership matching the filter exists
func (r *TenantMemberRepositoryImpl) Exists(ctx context.Context, filter models.TenantMemberFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *TenantMemberRepositoryImpl) applyFilter(db *gorm.DB, filter models.TenantMemberFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Role != nil {
		db = db.Where("role = ?", *filter.Role)
	}
	return db
}
