package repository

import (
	"context"
	"fmt"

	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentCalendarRepositoryImpl implements the ContentCalendarRepository interface
type ContentCalendarRepositoryImpl struct {
	*BaseRepository[models.ContentCalendar, models.ContentCalendarFilter]
}

// NewContentCalendarRepository creates a new content calendar repository
func NewContentCalendarRepository(db *gorm.DB) ContentCalendarRepository {
	return &ContentCalendarRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ContentCalendar, models.ContentCalendarFilter](db),
	}
}

// ByUUID retrieves a content calendar by UUID
func (r *ContentCalendarRepositoryImpl) ByUUID(ctx context.Context, raw string) (*models.ContentCalendar, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}

	calendars, err := r.ByFilter(ctx, models.ContentCalendarFilter{UUID: &parsed}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(calendars) == 0 {
		return nil, nil
	}
	return calendars[0], nil
}

// ByTenantPeriod retrieves the calendar occupying a tenant's (month, year) slot
func (r *ContentCalendarRepositoryImpl) ByTenantPeriod(ctx context.Context, tenantID uint, month, year int) (*models.ContentCalendar, error) {
	calendars, err := r.ByFilter(ctx, models.ContentCalendarFilter{
		TenantID: &tenantID,
		Month:    &month,
		Year:     &year,
	}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(calendars) == 0 {
		return nil, nil
	}
	return calendars[0], nil
}

// SaveConflictFree inserts the calendar relying on the (tenant_id, month, year)
// unique index to serialize concurrent writers. When another row already holds
// the slot the insert is a no-op and the surviving row is fetched and returned.
func (r *ContentCalendarRepositoryImpl) SaveConflictFree(ctx context.Context, calendar *models.ContentCalendar) (*models.ContentCalendar, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, err
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

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "month"}, {Name: "year"}},
		DoNothing: true,
	}).Create(calendar)
	if result.Error != nil {
		err = result.Error
		return nil, err
	}

	if result.RowsAffected > 0 {
		return calendar, nil
	}

	// The slot was taken by a concurrent writer; hand back the winner.
	var survivor models.ContentCalendar
	err = db.Where("tenant_id = ? AND month = ? AND year = ?", calendar.TenantID, calendar.Month, calendar.Year).
		First(&survivor).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load surviving calendar: %w", err)
	}

	return &survivor, nil
}

// Update updates a content calendar
func (r *ContentCalendarRepositoryImpl) Update(ctx context.Context, calendar models.ContentCalendar) error {
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
	calendar.UpdatedAt = &now

	err = db.Save(&calendar).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves content calendars based on filter criteria
func (r *ContentCalendarRepositoryImpl) ByFilter(ctx context.Context, filter models.ContentCalendarFilter, orderBy string, limit, offset int) ([]*models.ContentCalendar, error) {
	db := r.getDB(ctx)

	var calendars []*models.ContentCalendar
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

	err := query.Find(&calendars).Error
	if err != nil {
		return nil, err
	}

	return calendars, nil
}

// Count returns the number of content calendars matching the filter
func (r *ContentCalendarRepositoryImpl) Count(ctx context.Context, filter models.ContentCalendarFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.ContentCalendar{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any content calendar matching the filter exists
func (r *ContentCalendarRepositoryImpl) Exists(ctx context.Context, filter models.ContentCalendarFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ContentCalendarRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContentCalendarFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Month != nil {
		db = db.Where("month = ?", *filter.Month)
	}
	if filter.Year != nil {
		db = db.Where("year = ?", *filter.Year)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}
