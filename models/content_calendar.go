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

// CalendarStatus represents the status of a content calendar
type CalendarStatus string

const (
	CalendarStatusDraft       CalendarStatus = "draft"
	CalendarStatusAIGenerated CalendarStatus = "ai_generated"
	CalendarStatusApproved    CalendarStatus = "approved"
)

// String returns the string representation of the status
func (s CalendarStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CalendarStatus) Valid() bool {
	switch s {
	case CalendarStatusDraft, CalendarStatusAIGenerated, CalendarStatusApproved:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CalendarStatus
func (s *CalendarStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CalendarStatus(v)
	case []byte:
		*s = CalendarStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CalendarStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CalendarStatus
func (s CalendarStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CalendarStatus: %s", s)
	}
	return string(s), nil
}

// CalendarSuggestion is a single planned post inside an AI-generated plan
type CalendarSuggestion struct {
	Day         int    `json:"day"`
	Topic       string `json:"topic"`
	ContentType string `json:"content_type,omitempty"`
	Rationale   string `json:"rationale,omitempty"`
}

// CalendarPlan is the structured AI plan stored on the calendar
type CalendarPlan struct {
	Theme       string               `json:"theme,omitempty"`
	Suggestions []CalendarSuggestion `json:"suggestions,omitempty"`
	Notes       string               `json:"notes,omitempty"`
}

// Value implements the driver.Valuer interface for CalendarPlan
func (p CalendarPlan) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for CalendarPlan
func (p *CalendarPlan) Scan(value any) error {
	if value == nil {
		*p = CalendarPlan{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CalendarPlan", value)
	}

	return json.Unmarshal(bytes, p)
}

// StringSlice is a jsonb-backed list of strings
type StringSlice []string

// Value implements the driver.Valuer interface for StringSlice
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for StringSlice
func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}

	return json.Unmarshal(bytes, s)
}

// ContentCalendar is the per-tenant monthly planning container.
// The (tenant_id, month, year) unique index backs the idempotent create.
type ContentCalendar struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_content_calendars_uuid" json:"uuid"`
	TenantID       uint           `gorm:"not null;uniqueIndex:uk_content_calendars_period;index:idx_content_calendars_tenant_id" json:"tenant_id"`
	Month          int            `gorm:"not null;uniqueIndex:uk_content_calendars_period" json:"month"`
	Year           int            `gorm:"not null;uniqueIndex:uk_content_calendars_period" json:"year"`
	Objectives     StringSlice    `gorm:"type:jsonb" json:"objectives,omitempty"`
	Offers         StringSlice    `gorm:"type:jsonb" json:"offers,omitempty"`
	StrategicDates StringSlice    `gorm:"type:jsonb" json:"strategic_dates,omitempty"`
	Status         CalendarStatus `gorm:"type:calendar_status;not null;default:'draft';index:idx_content_calendars_status" json:"status"`
	AIPlan         *CalendarPlan  `gorm:"type:jsonb" json:"ai_plan,omitempty"`
	AIRequestID    *uint          `gorm:"index:idx_content_calendars_ai_request_id" json:"ai_request_id,omitempty"`
	CreatedAt      time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`

	// Relations
	Tenant    *Tenant       `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	AIRequest *AIRequest    `gorm:"foreignKey:AIRequestID;references:ID" json:"ai_request,omitempty"`
	Items     []ContentItem `gorm:"foreignKey:CalendarID" json:"items,omitempty"`
}

// TableName returns the table name for the model
func (ContentCalendar) TableName() string {
	return "content_calendars"
}

// BeforeCreate is called before creating a new record
func (c *ContentCalendar) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CalendarStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ContentCalendarFilter represents filter criteria for calendar queries
type ContentCalendarFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	TenantID *uint
	Month    *int
	Year     *int
	Status   *CalendarStatus
}
