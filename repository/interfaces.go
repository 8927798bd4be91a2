// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/casaflow/casaflow/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Tenant, error)
	BySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// TenantMemberRepository defines operations for tenant memberships
type TenantMemberRepository interface {
	Repository[models.TenantMember, models.TenantMemberFilter]
	ByTenantAndUser(ctx context.Context, tenantID, userID uint) (*models.TenantMember, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.TenantMember, error)
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Lead, error)
	Update(ctx context.Context, lead models.Lead) error
	UpdateStatus(ctx context.Context, id uint, status models.LeadStatus) error
}

// LeadInteractionRepository defines operations for lead interactions
type LeadInteractionRepository interface {
	Repository[models.LeadInteraction, models.LeadInteractionFilter]
	ListRecentByLead(ctx context.Context, leadID uint, limit int) ([]*models.LeadInteraction, error)
}

// LeadFollowUpRepository defines operations for lead follow-ups
type LeadFollowUpRepository interface {
	Repository[models.LeadFollowUp, models.LeadFollowUpFilter]
	ListByLead(ctx context.Context, leadID uint) ([]*models.LeadFollowUp, error)
	UpdateStatus(ctx context.Context, id uint, status models.FollowUpStatus) error
}

// AIRequestRepository defines operations for the append-only AI call ledger
type AIRequestRepository interface {
	Repository[models.AIRequest, models.AIRequestFilter]
	TotalCostByTenant(ctx context.Context, tenantID uint, from, to *time.Time) (float64, error)
}

// ContentCalendarRepository defines operations for content calendars
type ContentCalendarRepository interface {
	Repository[models.ContentCalendar, models.ContentCalendarFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ContentCalendar, error)
	ByTenantPeriod(ctx context.Context, tenantID uint, month, year int) (*models.ContentCalendar, error)
	// SaveConflictFree inserts the calendar unless another row already holds
	// the (tenant, month, year) slot; either way the surviving row is returned.
	SaveConflictFree(ctx context.Context, calendar *models.ContentCalendar) (*models.ContentCalendar, error)
	Update(ctx context.Context, calendar models.ContentCalendar) error
}

// ContentItemRepository defines operations for content items
type ContentItemRepository interface {
	Repository[models.ContentItem, models.ContentItemFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ContentItem, error)
	ByCalendarAndTopic(ctx context.Context, calendarID uint, topic string) (*models.ContentItem, error)
	Update(ctx context.Context, item models.ContentItem) error
}

// ContentVariantRepository defines operations for content variants
type ContentVariantRepository interface {
	Repository[models.ContentVariant, models.ContentVariantFilter]
	ListByItem(ctx context.Context, itemID uint) ([]*models.ContentVariant, error)
}

// AdsCampaignRepository defines operations for ads campaigns
type AdsCampaignRepository interface {
	Repository[models.AdsCampaign, models.AdsCampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.AdsCampaign, error)
	Update(ctx context.Context, campaign models.AdsCampaign) error
}

// AdsMetricRepository defines operations for daily campaign metrics
type AdsMetricRepository interface {
	Repository[models.AdsMetric, models.AdsMetricFilter]
	SaveSkipDuplicate(ctx context.Context, metric *models.AdsMetric) (bool, error)
	ListByCampaignRange(ctx context.Context, campaignID uint, from, to time.Time) ([]*models.AdsMetric, error)
	SumByCampaignRange(ctx context.Context, campaignID uint, from, to time.Time) (*models.AdsMetricTotals, error)
}

// AdsInsightRepository defines operations for campaign insights
type AdsInsightRepository interface {
	Repository[models.AdsInsight, models.AdsInsightFilter]
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.AdsInsight, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByTenant(ctx context.Context, tenantID uint, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
