package repository

import (
	"context"
	"time"

	"github.com/casaflow/casaflow/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdsMetricRepositoryImpl implements the AdsMetricRepository interface
type AdsMetricRepositoryImpl struct {
	*BaseRepository[models.AdsMetric, models.AdsMetricFilter]
}

// NewAdsMetricRepository creates a new ads metric repository
func NewAdsMetricRepository(db *gorm.DB) AdsMetricRepository {
	return &AdsMetricRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdsMetric, models.AdsMetricFilter](db),
	}
}

// ListByCampaignRange retrieves daily snapshots for a campaign inside the window,
// oldest first
func (r *AdsMetricRepositoryImpl) ListByCampaignRange(ctx context.Context, campaignID uint, from, to time.Time) ([]*models.AdsMetric, error) {
	return r.ByFilter(ctx, models.AdsMetricFilter{
		CampaignID: &campaignID,
		DateFrom:   &from,
		DateTo:     &to,
	}, "date ASC", 0, 0)
}

// SumByCampaignRange aggregates the daily snapshots of a campaign inside the
// window into a single totals row
func (r *AdsMetricRepositoryImpl) SumByCampaignRange(ctx context.Context, campaignID uint, from, to time.Time) (*models.AdsMetricTotals, error) {
	db := r.getDB(ctx)

	var totals models.AdsMetricTotals
	err := db.Model(&models.AdsMetric{}).
		Where("campaign_id = ? AND date >= ? AND date <= ?", campaignID, from, to).
		Select("COALESCE(SUM(impressions), 0) AS impressions, " +
			"COALESCE(SUM(clicks), 0) AS clicks, " +
			"COALESCE(SUM(conversions), 0) AS conversions, " +
			"COALESCE(SUM(spend_usd), 0) AS spend_usd, " +
			"COALESCE(SUM(revenue_usd), 0) AS revenue_usd").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	return &totals, nil
}

// SaveSkipDuplicate inserts one daily snapshot, relying on the
// (campaign_id, date) unique index to reject rows for days that already have
// one. Returns false when the row was skipped.
func (r *AdsMetricRepositoryImpl) SaveSkipDuplicate(ctx context.Context, metric *models.AdsMetric) (bool, error) {
	db := r.getDB(ctx)

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "campaign_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(metric)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// ByFilter retrieves ads metrics based on filter criteria
func (r *AdsMetricRepositoryImpl) ByFilter(ctx context.Context, filter models.AdsMetricFilter, orderBy string, limit, offset int) ([]*models.AdsMetric, error) {
	db := r.getDB(ctx)

	var metrics []*models.AdsMetric
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

	err := query.Find(&metrics).Error
	if err != nil {
		return nil, err
	}

	return metrics, nil
}

// Count returns the number of ads metrics matching the filter
func (r *AdsMetricRepositoryImpl) Count(ctx context.Context, filter models.AdsMetricFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.AdsMetric{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any ads metric matching the filter exists
func (r *AdsMetricRepositoryImpl) Exists(ctx context.Context, filter models.AdsMetricFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *AdsMetricRepositoryImpl) applyFilter(db *gorm.DB, filter models.AdsMetricFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.DateFrom != nil {
		db = db.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		db = db.Where("date <= ?", *filter.DateTo)
	}
	return db
}
