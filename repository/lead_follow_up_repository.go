package repository

import (
	"context"

	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

// LeadFollowUpRepositoryImpl implements the LeadFollowUpRepository interface
type LeadFollowUpRepositoryImpl struct {
	*BaseRepository[models.LeadFollowUp, models.LeadFollowUpFilter]
}

// NewLeadFollowUpRepository creates a new lead follow-up repository
func NewLeadFollowUpRepository(db *gorm.DB) LeadFollowUpRepository {
	return &LeadFollowUpRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LeadFollowUp, models.LeadFollowUpFilter](db),
	}
}

// ListByLead retrieves all follow-ups for a lead, soonest first
func (r *LeadFollowUpRepositoryImpl) ListByLead(ctx context.Context, leadID uint) ([]*models.LeadFollowUp, error) {
	return r.ByFilter(ctx, models.LeadFollowUpFilter{LeadID: &leadID}, "scheduled_for ASC", 0, 0)
}

// UpdateStatus updates only the status of a follow-up
func (r *LeadFollowUpRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.FollowUpStatus) error {
	db := r.getDB(ctx)
	return db.Model(&models.LeadFollowUp{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves follow-ups based on filter criteria
func (r *LeadFollowUpRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFollowUpFilter, orderBy string, limit, offset int) ([]*models.LeadFollowUp, error) {
	db := r.getDB(ctx)

	var followUps []*models.LeadFollowUp
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

	err := query.Find(&followUps).Error
	if err != nil {
		return nil, err
	}

	return followUps, nil
}

// Count returns the number of follow-ups matching the filter
func (r *LeadFollowUpRepositoryImpl) Count(ctx context.Context, filter models.LeadFollowUpFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.LeadFollowUp{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any follow-up matching the filter exists
func (r *LeadFollowUpRepositoryImpl) Exists(ctx context.Context, filter models.LeadFollowUpFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *LeadFollowUpRepositoryImpl) applyFilter(db *gorm.DB, filter models.LeadFollowUpFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.LeadID != nil {
		db = db.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.AIRequestID != nil {
		db = db.Where("ai_request_id = ?", *filter.AIRequestID)
	}
	return db
}
