// Package testing provides test utilities and database setup for integration tests
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates an active tenant with a unique slug
func (tf *TestFixtures) CreateTestTenant() (*models.Tenant, error) {
	suffix := fmt.Sprintf("%d", rand.Intn(1000000))

	tenant := &models.Tenant{
		Name:     fmt.Sprintf("Horizon Realty %s", suffix),
		Slug:     fmt.Sprintf("horizon-realty-%s", suffix),
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return tenant, nil
}

// CreateTestUser creates an active user with a known password ("TestPass123!")
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := fmt.Sprintf("%d", rand.Intn(1000000))
	user := &models.User{
		Email:        fmt.Sprintf("jane.agent.%s@example.com", suffix),
		FullName:     "Jane Agent",
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestMembership links a user to a tenant with the given role
func (tf *TestFixtures) CreateTestMembership(tenant *models.Tenant, user *models.User, role models.MemberRole) (*models.TenantMember, error) {
	member := &models.TenantMember{
		TenantID: tenant.ID,
		UserID:   user.ID,
		Role:     role,
	}

	if err := tf.DB.DB.Create(member).Error; err != nil {
		return nil, fmt.Errorf("failed to create test membership: %w", err)
	}
	return member, nil
}

// CreateTestTenantWithAgent creates a tenant, a user, and an agent membership in one call
func (tf *TestFixtures) CreateTestTenantWithAgent() (*models.Tenant, *models.User, error) {
	tenant, err := tf.CreateTestTenant()
	if err != nil {
		return nil, nil, err
	}
	user, err := tf.CreateTestUser()
	if err != nil {
		return nil, nil, err
	}
	if _, err := tf.CreateTestMembership(tenant, user, models.MemberRoleAgent); err != nil {
		return nil, nil, err
	}
	return tenant, user, nil
}

// CreateTestLead creates a new lead for the tenant
func (tf *TestFixtures) CreateTestLead(tenant *models.Tenant) (*models.Lead, error) {
	email := fmt.Sprintf("prospect.%d@example.com", rand.Intn(1000000))
	phone := "+34600111222"
	message := "Interested in the 3-bedroom apartment near the marina. Budget around 450k."

	lead := &models.Lead{
		TenantID: tenant.ID,
		FullName: "Carlos Prospect",
		Email:    &email,
		Phone:    &phone,
		Source:   "website",
		Message:  &message,
		Status:   models.LeadStatusNew,
	}

	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}
	return lead, nil
}

// CreateTestInteraction records a touchpoint on the lead
func (tf *TestFixtures) CreateTestInteraction(lead *models.Lead, channel, content string) (*models.LeadInteraction, error) {
	interaction := &models.LeadInteraction{
		LeadID:     lead.ID,
		TenantID:   lead.TenantID,
		Channel:    channel,
		Direction:  models.InteractionDirectionInbound,
		Content:    content,
		OccurredAt: utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(interaction).Error; err != nil {
		return nil, fmt.Errorf("failed to create test interaction: %w", err)
	}
	return interaction, nil
}

// CreateTestCalendar creates a draft calendar for the tenant and period
func (tf *TestFixtures) CreateTestCalendar(tenant *models.Tenant, month, year int) (*models.ContentCalendar, error) {
	calendar := &models.ContentCalendar{
		TenantID:   tenant.ID,
		Month:      month,
		Year:       year,
		Objectives: models.StringSlice{"grow instagram reach"},
		Status:     models.CalendarStatusDraft,
	}

	if err := tf.DB.DB.Create(calendar).Error; err != nil {
		return nil, fmt.Errorf("failed to create test calendar: %w", err)
	}
	return calendar, nil
}

// CreateTestContentItem creates a generated item on the calendar
func (tf *TestFixtures) CreateTestContentItem(tenant *models.Tenant, calendar *models.ContentCalendar) (*models.ContentItem, error) {
	item := &models.ContentItem{
		TenantID:    tenant.ID,
		CalendarID:  calendar.ID,
		Topic:       fmt.Sprintf("Tour: 3br house in Moema %d", rand.Intn(1000000)),
		ContentType: "post",
		BaseCopy:    "Sun-drenched three bedroom in Moema, steps from Ibirapuera.",
		Hashtags:    models.StringSlice{"#moema"},
		Status:      models.ContentItemStatusAIGenerated,
	}

	if err := tf.DB.DB.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create test content item: %w", err)
	}
	return item, nil
}

// CreateTestCampaign creates an ads campaign for the tenant
func (tf *TestFixtures) CreateTestCampaign(tenant *models.Tenant, channel string) (*models.AdsCampaign, error) {
	campaign := &models.AdsCampaign{
		TenantID: tenant.ID,
		Name:     fmt.Sprintf("Spring Listings %d", rand.Intn(1000000)),
		Channel:  channel,
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestMetric inserts one daily metric row for the campaign
func (tf *TestFixtures) CreateTestMetric(campaign *models.AdsCampaign, date time.Time, impressions, clicks, conversions int64, spend, revenue float64) (*models.AdsMetric, error) {
	metric := &models.AdsMetric{
		CampaignID:  campaign.ID,
		TenantID:    campaign.TenantID,
		Date:        date,
		Impressions: impressions,
		Clicks:      clicks,
		Conversions: conversions,
		SpendUSD:    spend,
		RevenueUSD:  revenue,
	}

	if err := tf.DB.DB.Create(metric).Error; err != nil {
		return nil, fmt.Errorf("failed to create test metric: %w", err)
	}
	return metric, nil
}
