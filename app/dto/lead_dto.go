package dto

import "time"

// CaptureLeadRequest represents the public lead-capture form payload
type CaptureLeadRequest struct {
	TenantSlug   string  `json:"tenant_slug" validate:"required,min=2,max=100" example:"horizonte-imoveis"`
	FullName     string  `json:"full_name" validate:"required,min=2,max=255" example:"Carlos Pereira"`
	Email        string  `json:"email" validate:"omitempty,email,max=255" example:"carlos@example.com"`
	Phone        string  `json:"phone" validate:"omitempty,max=32" example:"+5511987654321"`
	Message      string  `json:"message" validate:"omitempty,max=4000" example:"Interested in the 2br apartment listed on Vila Madalena"`
	Source       string  `json:"source" validate:"omitempty,max=100" example:"instagram"`
	PropertyRef  *string `json:"property_ref,omitempty" validate:"omitempty,max=100" example:"VM-2041"`
	CaptchaID    string  `json:"captcha_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440002"`
	CaptchaAngle float64 `json:"captcha_angle" validate:"required" example:"87"`
}

// LeadDTO represents a lead in API responses
type LeadDTO struct {
	ID               uint                  `json:"id" example:"42"`
	UUID             string                `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440003"`
	FullName         string                `json:"full_name" example:"Carlos Pereira"`
	Email            string                `json:"email,omitempty" example:"carlos@example.com"`
	Phone            string                `json:"phone,omitempty" example:"+5511987654321"`
	Message          string                `json:"message,omitempty"`
	Source           string                `json:"source,omitempty" example:"instagram"`
	PropertyRef      *string               `json:"property_ref,omitempty" example:"VM-2041"`
	Status           string                `json:"status" example:"new"`
	AIScore          *int                  `json:"ai_score,omitempty" example:"78"`
	AIPriority       string                `json:"ai_priority,omitempty" example:"high"`
	AIQualification  *LeadQualificationDTO `json:"ai_qualification,omitempty"`
	AINextAction     string                `json:"ai_next_action,omitempty" example:"Call within 2 hours to schedule a visit"`
	AINextActionDue  *time.Time            `json:"ai_next_action_due,omitempty"`
	CreatedAt        string                `json:"created_at" example:"2026-02-03T14:22:00Z"`
}

// LeadQualificationDTO mirrors the stored qualification verdict
type LeadQualificationDTO struct {
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths,omitempty"`
	Concerns   []string `json:"concerns,omitempty"`
	Confidence float64  `json:"confidence" example:"0.82"`
}

// ListLeadsRequest represents query parameters for listing leads
type ListLeadsRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=new contacted qualified lost"`
	Source   string `query:"source" validate:"omitempty,max=100"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListLeadsResponse represents the paged lead list
type ListLeadsResponse struct {
	Leads      []LeadDTO  `json:"leads"`
	Pagination Pagination `json:"pagination"`
}

// UpdateLeadStatusRequest represents a manual status transition
type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified lost" example:"contacted"`
}

// AddInteractionRequest represents a logged touchpoint with a lead
type AddInteractionRequest struct {
	Channel    string     `json:"channel" validate:"required,oneof=email phone whatsapp visit note" example:"whatsapp"`
	Direction  string     `json:"direction" validate:"required,oneof=inbound outbound" example:"outbound"`
	Content    string     `json:"content" validate:"required,max=8000"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// LeadInteractionDTO represents an interaction in API responses
type LeadInteractionDTO struct {
	ID         uint      `json:"id" example:"311"`
	Channel    string    `json:"channel" example:"whatsapp"`
	Direction  string    `json:"direction" example:"outbound"`
	Content    string    `json:"content"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  string    `json:"created_at"`
}

// LeadFollowUpDTO represents a suggested follow-up in API responses
type LeadFollowUpDTO struct {
	ID           uint       `json:"id" example:"18"`
	Channel      string     `json:"channel" example:"whatsapp"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Rationale    string     `json:"rationale,omitempty"`
	Confidence   float64    `json:"confidence" example:"0.7"`
	Status       string     `json:"status" example:"pending"`
}
