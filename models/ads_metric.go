package models

import (
	"time"

	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

// AdsMetric is one daily metric snapshot for a campaign
type AdsMetric struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CampaignID  uint      `gorm:"not null;uniqueIndex:uk_ads_metrics_campaign_date;index:idx_ads_metrics_campaign_id" json:"campaign_id"`
	TenantID    uint      `gorm:"not null;index:idx_ads_metrics_tenant_id" json:"tenant_id"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex:uk_ads_metrics_campaign_date" json:"date"`
	Impressions int64     `gorm:"not null;default:0" json:"impressions"`
	Clicks      int64     `gorm:"not null;default:0" json:"clicks"`
	Conversions int64     `gorm:"not null;default:0" json:"conversions"`
	SpendUSD    float64   `gorm:"type:decimal(12,2);not null;default:0" json:"spend_usd"`
	RevenueUSD  float64   `gorm:"type:decimal(12,2);not null;default:0" json:"revenue_usd"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign *AdsCampaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName returns the table name for the model
func (AdsMetric) TableName() string {
	return "ads_metrics"
}

// BeforeCreate is called before creating a new record
func (m *AdsMetric) BeforeCreate(tx *gorm.DB) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// AdsMetricTotals is the summed view of a date-ranged set of metrics
type AdsMetricTotals struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	SpendUSD    float64 `json:"spend_usd"`
	RevenueUSD  float64 `json:"revenue_usd"`
}

// CTR returns clicks over impressions, zero-guarded
func (t AdsMetricTotals) CTR() float64 {
	if t.Impressions == 0 {
		return 0
	}
	return float64(t.Clicks) / float64(t.Impressions)
}

// CPA returns spend per conversion, zero-guarded
func (t AdsMetricTotals) CPA() float64 {
	if t.Conversions == 0 {
		return 0
	}
	return t.SpendUSD / float64(t.Conversions)
}

// ROAS returns revenue over spend, zero-guarded
func (t AdsMetricTotals) ROAS() float64 {
	if t.SpendUSD == 0 {
		return 0
	}
	return t.RevenueUSD / t.SpendUSD
}

// AdsMetricFilter represents filter criteria for metric queries
type AdsMetricFilter struct {
	ID         *uint
	CampaignID *uint
	TenantID   *uint
	DateFrom   *time.Time
	DateTo     *time.Time
}
