package repository

import (
	"context"

	"github.com/casaflow/casaflow/models"
	"gorm.io/gorm"
)

// LeadInteractionRepositoryImpl implements the LeadInteractionRepository interface
type LeadInteractionRepositoryImpl struct {
	*BaseRepository[models.LeadInteraction, models.LeadInteractionFilter]
}

// NewLeadInteractionRepository creates a new lead interaction repository
func NewLeadInteractionRepository(db *gorm.DB) LeadInteractionRepository {
	return &LeadInteractionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LeadInteraction, models.LeadInteractionFilter](db),
	}
}

// ListRecentByLead retrieves the most recent interactions for a lead,
// newest first
func (r *LeadInteractionRepositoryImpl) ListRecentByLead(ctx context.Context, leadID uint, limit int) ([]*models.LeadInteraction, error) {
	return r.ByFilter(ctx, models.LeadInteractionFilter{LeadID: &leadID}, "occurred_at DESC", limit, 0)
}

// ByFilter retrieves lead interactions based on filter criteria
func (r *LeadInteractionRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadInteractionFilter, orderBy string, limit, offset int) ([]*models.LeadInteraction, error) {
	db := r.getDB(ctx)

	var interactions []*models.LeadInteraction
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

	err := query.Find(&interactions).Error
	if err != nil {
		return nil, err
	}

	return interactions, nil
}

// Count returns the number of lead interactions matching the filter
func (r *LeadInteractionRepositoryImpl) Count(ctx context.Context, filter models.LeadInteractionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.LeadInteraction{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any lead interaction matching the filter exists
func (r *LeadInteractionRepositoryImpl) Exists(ctx context.Context, filter models.LeadInteractionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *LeadInteractionRepositoryImpl) applyFilter(db *gorm.DB, filter models.LeadInteractionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.LeadID != nil {
		db = db.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Channel != nil {
		db = db.Where("channel = ?", *filter.Channel)
	}
	if filter.Direction != nil {
		db = db.Where("direction = ?", *filter.Direction)
	}
	return db
}
