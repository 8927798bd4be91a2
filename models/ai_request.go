package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

// AIRequestStatus represents the outcome of an external AI provider call
type AIRequestStatus string

const (
	AIRequestStatusSuccess AIRequestStatus = "success"
	AIRequestStatusError   AIRequestStatus = "error"
	AIRequestStatusTimeout AIRequestStatus = "timeout"
)

// String returns the string representation of the status
func (s AIRequestStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s AIRequestStatus) Valid() bool {
	switch s {
	case AIRequestStatusSuccess, AIRequestStatusError, AIRequestStatusTimeout:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for AIRequestStatus
func (s *AIRequestStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = AIRequestStatus(v)
	case []byte:
		*s = AIRequestStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AIRequestStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AIRequestStatus
func (s AIRequestStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid AIRequestStatus: %s", s)
	}
	return string(s), nil
}

// AI request type constants
const (
	AIRequestTypeLeadQualification  = "lead_qualification"
	AIRequestTypeCalendarGeneration = "calendar_generation"
	AIRequestTypeContentGeneration  = "content_generation"
	AIRequestTypeCampaignAnalysis   = "campaign_analysis"
	AIRequestTypeImagePrompt        = "image_prompt"
	AIRequestTypeImageGeneration    = "image_generation"
)

// AI provider constants
const (
	AIProviderClaude = "claude"
	AIProviderGemini = "gemini"
)

// Related entity type constants for ledger back-references
const (
	AIRelatedEntityLead            = "lead"
	AIRelatedEntityContentCalendar = "content_calendar"
	AIRelatedEntityContentItem     = "content_item"
	AIRelatedEntityAdsCampaign     = "ads_campaign"
)

// AIRequest is the append-only ledger row written once per external AI
// provider call. Rows are created exactly once and never mutated, so cost
// and provenance stay traceable.
type AIRequest struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	TenantID          uint            `gorm:"not null;index:idx_ai_requests_tenant_id" json:"tenant_id"`
	Provider          string          `gorm:"size:50;not null" json:"provider"`
	Model             string          `gorm:"size:100;not null" json:"model"`
	RequestType       string          `gorm:"size:50;not null;index:idx_ai_requests_request_type" json:"request_type"`
	Prompt            string          `gorm:"type:text;not null" json:"prompt"`
	RawResponse       *string         `gorm:"type:text" json:"raw_response,omitempty"`
	ParsedResponse    json.RawMessage `gorm:"type:jsonb" json:"parsed_response,omitempty"`
	TokensIn          int             `gorm:"not null;default:0" json:"tokens_in"`
	TokensOut         int             `gorm:"not null;default:0" json:"tokens_out"`
	CostUSD           float64         `gorm:"type:decimal(12,6);not null;default:0" json:"cost_usd"`
	LatencyMs         int64           `gorm:"not null;default:0" json:"latency_ms"`
	Status            AIRequestStatus `gorm:"type:ai_request_status;not null;index:idx_ai_requests_status" json:"status"`
	ErrorMessage      *string         `gorm:"type:text" json:"error_message,omitempty"`
	RelatedEntityType *string         `gorm:"size:50" json:"related_entity_type,omitempty"`
	RelatedEntityID   *uint           `gorm:"index:idx_ai_requests_related_entity_id" json:"related_entity_id,omitempty"`
	RequesterID       *uint           `gorm:"index:idx_ai_requests_requester_id" json:"requester_id,omitempty"`
	CreatedAt         time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_ai_requests_created_at" json:"created_at"`

	// Relations
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
}

// TableName returns the table name for the model
func (AIRequest) TableName() string {
	return "ai_requests"
}

// BeforeCreate is called before creating a new record
func (r *AIRequest) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = AIRequestStatusSuccess
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// AIRequestFilter represents filter criteria for ledger queries
type AIRequestFilter struct {
	ID            *uint
	TenantID      *uint
	Provider      *string
	Model         *string
	RequestType   *string
	Status        *AIRequestStatus
	RequesterID   *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
