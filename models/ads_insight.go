package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

// InsightSeverity represents how serious a diagnosed campaign issue is
type InsightSeverity string

const (
	InsightSeverityCritical InsightSeverity = "critical"
	InsightSeverityHigh     InsightSeverity = "high"
	InsightSeverityMedium   InsightSeverity = "medium"
	InsightSeverityLow      InsightSeverity = "low"
)

// String returns the string representation of the severity
func (s InsightSeverity) String() string {
	return string(s)
}

// Valid checks if the severity is valid
func (s InsightSeverity) Valid() bool {
	switch s {
	case InsightSeverityCritical, InsightSeverityHigh, InsightSeverityMedium, InsightSeverityLow:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for InsightSeverity
func (s *InsightSeverity) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = InsightSeverity(v)
	case []byte:
		*s = InsightSeverity(string(v))
	default:
		return fmt.Errorf("cannot scan %T into InsightSeverity", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for InsightSeverity
func (s InsightSeverity) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid InsightSeverity: %s", s)
	}
	return string(s), nil
}

// AdsInsight is one diagnosed issue produced by a campaign analysis run
type AdsInsight struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	CampaignID          uint            `gorm:"not null;index:idx_ads_insights_campaign_id" json:"campaign_id"`
	TenantID            uint            `gorm:"not null;index:idx_ads_insights_tenant_id" json:"tenant_id"`
	Severity            InsightSeverity `gorm:"type:insight_severity;not null;index:idx_ads_insights_severity" json:"severity"`
	Issue               string          `gorm:"type:text;not null" json:"issue"`
	EstimatedImpact     *string         `gorm:"type:text" json:"estimated_impact,omitempty"`
	BenchmarkComparison *string         `gorm:"type:text" json:"benchmark_comparison,omitempty"`
	AIRequestID         uint            `gorm:"not null;index:idx_ads_insights_ai_request_id" json:"ai_request_id"`
	CreatedAt           time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign  *AdsCampaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	AIRequest *AIRequest   `gorm:"foreignKey:AIRequestID;references:ID" json:"ai_request,omitempty"`
}

// TableName returns the table name for the model
func (AdsInsight) TableName() string {
	return "ads_insights"
}

// BeforeCreate is called before creating a new record
func (i *AdsInsight) BeforeCreate(tx *gorm.DB) error {
	if i.Severity == "" {
		i.Severity = InsightSeverityMedium
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = utils.UTCNow()
	}
	return nil
}

// AdsInsightFilter represents filter criteria for insight queries
type AdsInsightFilter struct {
	ID          *uint
	CampaignID  *uint
	TenantID    *uint
	Severity    *InsightSeverity
	AIRequestID *uint
}
