package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

// FollowUpStatus represents the status of a suggested follow-up action
type FollowUpStatus string

const (
	FollowUpStatusPending FollowUpStatus = "pending"
	FollowUpStatusDone    FollowUpStatus = "done"
	FollowUpStatusSkipped FollowUpStatus = "skipped"
)

// String returns the string representation of the status
func (s FollowUpStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s FollowUpStatus) Valid() bool {
	switch s {
	case FollowUpStatusPending, FollowUpStatusDone, FollowUpStatusSkipped:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for FollowUpStatus
func (s *FollowUpStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = FollowUpStatus(v)
	case []byte:
		*s = FollowUpStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into FollowUpStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for FollowUpStatus
func (s FollowUpStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid FollowUpStatus: %s", s)
	}
	return string(s), nil
}

// LeadFollowUp is a suggested action derived from one qualification run.
// Rows are created in batches, one per action in the parsed response, and
// earlier batches are never deleted or overwritten by later runs.
type LeadFollowUp struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	LeadID       uint           `gorm:"not null;index:idx_lead_follow_ups_lead_id" json:"lead_id"`
	TenantID     uint           `gorm:"not null;index:idx_lead_follow_ups_tenant_id" json:"tenant_id"`
	Channel      string         `gorm:"size:50;not null" json:"channel"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	Rationale    string         `gorm:"type:text" json:"rationale"`
	Confidence   float64        `json:"confidence"`
	Status       FollowUpStatus `gorm:"type:follow_up_status;not null;default:'pending';index:idx_lead_follow_ups_status" json:"status"`
	AIRequestID  uint           `gorm:"not null;index:idx_lead_follow_ups_ai_request_id" json:"ai_request_id"`
	CreatedAt    time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`

	// Relations
	Lead      *Lead      `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	AIRequest *AIRequest `gorm:"foreignKey:AIRequestID;references:ID" json:"ai_request,omitempty"`
}

// TableName returns the table name for the model
func (LeadFollowUp) TableName() string {
	return "lead_follow_ups"
}

// BeforeCreate is called before creating a new record
func (f *LeadFollowUp) BeforeCreate(tx *gorm.DB) error {
	if f.Status == "" {
		f.Status = FollowUpStatusPending
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	return nil
}

// LeadFollowUpFilter represents filter criteria for follow-up queries
type LeadFollowUpFilter struct {
	ID          *uint
	LeadID      *uint
	TenantID    *uint
	Status      *FollowUpStatus
	AIRequestID *uint
}
