package repository

import (
	"context"

	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdsCampaignRepositoryImpl implements the AdsCampaignRepository interface
type AdsCampaignRepositoryImpl struct {
	*BaseRepository[models.AdsCampaign, models.AdsCampaignFilter]
}

// NewAdsCampaignRepository creates a new ads campaign repository
func NewAdsCampaignRepository(db *gorm.DB) AdsCampaignRepository {
	return &AdsCampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdsCampaign, models.AdsCampaignFilter](db),
	}
}

// ByUUID retrieves an ads campaign by UUID
func (r *AdsCampaignRepositoryImpl) ByUUID(ctx context.Context, raw string) (*models.AdsCampaign, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}

	campaigns, err := r.ByFilter(ctx, models.AdsCampaignFilter{UUID: &parsed}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return nil, nil
	}
	return campaigns[0], nil
}

// Update updates an ads campaign
func (r *AdsCampaignRepositoryImpl) Update(ctx context.Context, campaign models.AdsCampaign) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	campaign.UpdatedAt = &now

	err = db.Save(&campaign).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves ads campaigns based on filter criteria
func (r *AdsCampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.AdsCampaignFilter, orderBy string, limit, offset int) ([]*models.AdsCampaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.AdsCampaign
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

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of ads campaigns matching the filter
func (r *AdsCampaignRepositoryImpl) Count(ctx context.Context, filter models.AdsCampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.AdsCampaign{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any ads campaign matching the filter exists
func (r *AdsCampaignRepositoryImpl) Exists(ctx context.Context, filter models.AdsCampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *AdsCampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.AdsCampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Channel != nil {
		db = db.Where("channel = ?", *filter.Channel)
	}
	return db
}
