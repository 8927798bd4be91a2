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

// LeadStatus represents the status of a lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusLost      LeadStatus = "lost"
)

// String returns the string representation of the status
func (s LeadStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusLost:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for LeadStatus
func (s *LeadStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = LeadStatus(v)
	case []byte:
		*s = LeadStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LeadStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for LeadStatus
func (s LeadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid LeadStatus: %s", s)
	}
	return string(s), nil
}

// LeadPriority represents the AI-derived priority of a lead
type LeadPriority string

const (
	LeadPriorityCritical LeadPriority = "critical"
	LeadPriorityHigh     LeadPriority = "high"
	LeadPriorityMedium   LeadPriority = "medium"
	LeadPriorityLow      LeadPriority = "low"
)

// String returns the string representation of the priority
func (p LeadPriority) String() string {
	return string(p)
}

// Valid checks if the priority is valid
func (p LeadPriority) Valid() bool {
	switch p {
	case LeadPriorityCritical, LeadPriorityHigh, LeadPriorityMedium, LeadPriorityLow:
		return true
	default:
		return false
	}
}

// LeadQualification represents the structured AI qualification attached to a lead
type LeadQualification struct {
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths,omitempty"`
	Concerns   []string `json:"concerns,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Value implements the driver.Valuer interface for LeadQualification
func (q LeadQualification) Value() (driver.Value, error) {
	return json.Marshal(q)
}

// Scan implements the sql.Scanner interface for LeadQualification
func (q *LeadQualification) Scan(value any) error {
	if value == nil {
		*q = LeadQualification{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into LeadQualification", value)
	}

	return json.Unmarshal(bytes, q)
}

// Lead represents a prospective customer captured from a form or campaign.
// Leads are never hard-deleted; only status transitions apply.
type Lead struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	TenantID uint       `gorm:"not null;index:idx_leads_tenant_id" json:"tenant_id"`
	FullName string     `gorm:"size:255;not null" json:"full_name"`
	Email    *string    `gorm:"size:255;index:idx_leads_email" json:"email,omitempty"`
	Phone    *string    `gorm:"size:50" json:"phone,omitempty"`
	Source   string     `gorm:"size:100;not null;default:'website'" json:"source"`
	Message  *string    `gorm:"type:text" json:"message,omitempty"`
	Status   LeadStatus `gorm:"type:lead_status;not null;default:'new';index:idx_leads_status" json:"status"`

	// Optional listing reference the lead asked about
	PropertyRef *string `gorm:"size:100" json:"property_ref,omitempty"`

	// AI-derived fields; AIRequestID ties them back to the ledger row that produced them
	AIScore              *int               `json:"ai_score,omitempty"`
	AIPriority           *LeadPriority      `gorm:"type:lead_priority" json:"ai_priority,omitempty"`
	AIQualification      *LeadQualification `gorm:"type:jsonb" json:"ai_qualification,omitempty"`
	AINextAction         *string            `gorm:"type:text" json:"ai_next_action,omitempty"`
	AINextActionDeadline *time.Time         `json:"ai_next_action_deadline,omitempty"`
	AIRequestID          *uint              `gorm:"index:idx_leads_ai_request_id" json:"ai_request_id,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_leads_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Tenant       *Tenant           `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	AIRequest    *AIRequest        `gorm:"foreignKey:AIRequestID;references:ID" json:"ai_request,omitempty"`
	Interactions []LeadInteraction `gorm:"foreignKey:LeadID" json:"interactions,omitempty"`
	FollowUps    []LeadFollowUp    `gorm:"foreignKey:LeadID" json:"follow_ups,omitempty"`
}

// TableName returns the table name for the model
func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate is called before creating a new record
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	return nil
}

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID            *uint       `json:"id,omitempty"`
	UUID          *uuid.UUID  `json:"uuid,omitempty"`
	TenantID      *uint       `json:"tenant_id,omitempty"`
	Status        *LeadStatus `json:"status,omitempty"`
	Source        *string     `json:"source,omitempty"`
	Email         *string     `json:"email,omitempty"`
	CreatedAfter  *time.Time  `json:"created_after,omitempty"`
	CreatedBefore *time.Time  `json:"created_before,omitempty"`
}
