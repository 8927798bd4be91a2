package repository

import (
	"context"

	"github.com/casaflow/casaflow/models"
	"gorm.io/gorm"
)

// AdsInsightRepositoryImpl implements the AdsInsightRepository interface
type AdsInsightRepositoryImpl struct {
	*BaseRepository[models.AdsInsight, models.AdsInsightFilter]
}

// NewAdsInsightRepository creates a new ads insight repository
func NewAdsInsightRepository(db *gorm.DB) AdsInsightRepository {
	return &AdsInsightRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdsInsight, models.AdsInsightFilter](db),
	}
}

// ListByCampaign retrieves insights for a campaign, newest first
func (r *AdsInsightRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.AdsInsight, error) {
	return r.ByFilter(ctx, models.AdsInsightFilter{CampaignID: &campaignID}, "created_at DESC", limit, offset)
}

// ByFilter retrieves ads insights based on filter criteria
func (r *AdsInsightRepositoryImpl) ByFilter(ctx context.Context, filter models.AdsInsightFilter, orderBy string, limit, offset int) ([]*models.AdsInsight, error) {
	db := r.getDB(ctx)

	var insights []*models.AdsInsight
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

	err := query.Find(&insights).Error
	if err != nil {
		return nil, err
	}

	return insights, nil
}

// Count returns the number of ads insights matching the filter
func (r *AdsInsightRepositoryImpl) Count(ctx context.Context, filter models.AdsInsightFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.AdsInsight{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any ads insight matching the filter exists
func (r *AdsInsightRepositoryImpl) Exists(ctx context.Context, filter models.AdsInsightFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *AdsInsightRepositoryImpl) applyFilter(db *gorm.DB, filter models.AdsInsightFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Severity != nil {
		db = db.Where("severity = ?", *filter.Severity)
	}
	if filter.AIRequestID != nil {
		db = db.Where("ai_request_id = ?", *filter.AIRequestID)
	}
	return db
}
