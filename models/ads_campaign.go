package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/casaflow/casaflow/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ads channel constants
const (
	AdsChannelMeta   = "meta"
	AdsChannelGoogle = "google"
	AdsChannelTikTok = "tiktok"
)

// CampaignAnalysis is the latest structured diagnostic stored on a campaign.
// Only the most recent analysis is kept; history lives in the ledger.
type CampaignAnalysis struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Value implements the driver.Valuer interface for CampaignAnalysis
func (a CampaignAnalysis) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for CampaignAnalysis
func (a *CampaignAnalysis) Scan(value any) error {
	if value == nil {
		*a = CampaignAnalysis{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CampaignAnalysis", value)
	}

	return json.Unmarshal(bytes, a)
}

// AdsCampaign identifies one advertising campaign of a tenant
type AdsCampaign struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uk_ads_campaigns_uuid" json:"uuid"`
	TenantID       uint              `gorm:"not null;index:idx_ads_campaigns_tenant_id" json:"tenant_id"`
	Name           string            `gorm:"size:255;not null" json:"name"`
	Channel        string            `gorm:"size:50;not null;default:'meta'" json:"channel"`
	ExternalID     *string           `gorm:"size:255" json:"external_id,omitempty"`
	AIAnalysis     *CampaignAnalysis `gorm:"type:jsonb" json:"ai_analysis,omitempty"`
	AIRequestID    *uint             `gorm:"index:idx_ads_campaigns_ai_request_id" json:"ai_request_id,omitempty"`
	LastAnalyzedAt *time.Time        `json:"last_analyzed_at,omitempty"`
	CreatedAt      time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt      *time.Time        `json:"updated_at,omitempty"`

	// Relations
	Tenant   *Tenant      `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	Metrics  []AdsMetric  `gorm:"foreignKey:CampaignID" json:"metrics,omitempty"`
	Insights []AdsInsight `gorm:"foreignKey:CampaignID" json:"insights,omitempty"`
}

// TableName returns the table name for the model
func (AdsCampaign) TableName() string {
	return "ads_campaigns"
}

// BeforeCreate is called before creating a new record
func (c *AdsCampaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Channel == "" {
		c.Channel = AdsChannelMeta
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// AdsCampaignFilter represents filter criteria for campaign queries
type AdsCampaignFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	TenantID *uint
	Channel  *string
}
