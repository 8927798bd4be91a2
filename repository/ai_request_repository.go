package repository

import (
	"context"
	"time"

	"github.com/casaflow/casaflow/models"
	"gorm.io/gorm"
)

// AIRequestRepositoryImpl implements the AIRequestRepository interface.
// The ledger is append-only so no Update method is exposed.
type AIRequestRepositoryImpl struct {
	*BaseRepository[models.AIRequest, models.AIRequestFilter]
}

// NewAIRequestRepository creates a new AI request repository
func NewAIRequestRepository(db *gorm.DB) AIRequestRepository {
	return &AIRequestRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AIRequest, models.AIRequestFilter](db),
	}
}

// TotalCostByTenant sums the recorded USD cost of every AI call a tenant
// made inside the optional time window
func (r *AIRequestRepositoryImpl) TotalCostByTenant(ctx context.Context, tenantID uint, from, to *time.Time) (float64, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.AIRequest{}).Where("tenant_id = ?", tenantID)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var total float64
	err := query.Select("COALESCE(SUM(cost_usd), 0)").Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return total, nil
}

// ByFilter retrieves AI requests based on filter criteria
func (r *AIRequestRepositoryImpl) ByFilter(ctx context.Context, filter models.AIRequestFilter, orderBy string, limit, offset int) ([]*models.AIRequest, error) {
	db := r.getDB(ctx)

	var requests []*models.AIRequest
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

	err := query.Find(&requests).Error
	if err != nil {
		return nil, err
	}

	return requests, nil
}

// Count returns the number of AI requests matching the filter
func (r *AIRequestRepositoryImpl) Count(ctx context.Context, filter models.AIRequestFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.AIRequest{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any AI request matching the filter exists
func (r *AIRequestRepositoryImpl) Exists(ctx context.Context, filter models.AIRequestFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *AIRequestRepositoryImpl) applyFilter(db *gorm.DB, filter models.AIRequestFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Provider != nil {
		db = db.Where("provider = ?", *filter.Provider)
	}
	if filter.Model != nil {
		db = db.Where("model = ?", *filter.Model)
	}
	if filter.RequestType != nil {
		db = db.Where("request_type = ?", *filter.RequestType)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.RequesterID != nil {
		db = db.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
