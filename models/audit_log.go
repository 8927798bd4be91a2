// Package models contains domain entities and business models for the platform
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       *uint           `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	User         *User           `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	TenantID     *uint           `gorm:"index:idx_audit_tenant_id" json:"tenant_id,omitempty"`
	Action       string          `gorm:"type:audit_action_enum;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionLoginSuccess            = "login_success"
	AuditActionLoginFailed             = "login_failed"
	AuditActionLeadCaptured            = "lead_captured"
	AuditActionLeadCaptureFailed       = "lead_capture_failed"
	AuditActionLeadQualified           = "lead_qualified"
	AuditActionLeadQualificationFailed = "lead_qualification_failed"
	AuditActionCalendarGenerated       = "calendar_generated"
	AuditActionCalendarFailed          = "calendar_generation_failed"
	AuditActionContentGenerated        = "content_generated"
	AuditActionContentFailed           = "content_generation_failed"
	AuditActionCampaignCreated         = "campaign_created"
	AuditActionMetricsIngested         = "campaign_metrics_ingested"
	AuditActionCampaignAnalyzed        = "campaign_analyzed"
	AuditActionCampaignAnalysisFailed  = "campaign_analysis_failed"
	AuditActionImageGenerated          = "image_generated"
	AuditActionImageFailed             = "image_generation_failed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	UserID        *uint
	TenantID      *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
