// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	"github.com/casaflow/casaflow/utils"
)

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// requireMembership loads the tenant and verifies the user belongs to it.
// Every orchestrator operation goes through this check before touching
// tenant data.
func requireMembership(ctx context.Context, tenantRepo repository.TenantRepository, memberRepo repository.TenantMemberRepository, tenantUUID string, userID uint) (*models.Tenant, *models.TenantMember, error) {
	tenant, err := tenantRepo.ByUUID(ctx, tenantUUID)
	if err != nil {
		return nil, nil, err
	}
	if tenant == nil {
		return nil, nil, ErrTenantNotFound
	}
	if !utils.IsTrue(tenant.IsActive) {
		return nil, nil, ErrTenantInactive
	}

	member, err := memberRepo.ByTenantAndUser(ctx, tenant.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil {
		return nil, nil, ErrNotTenantMember
	}

	return tenant, member, nil
}

// recordAudit writes one audit row; failures are the caller's to ignore
func recordAudit(ctx context.Context, auditRepo repository.AuditLogRepository, userID, tenantID *uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		TenantID:     tenantID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(utils.RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return auditRepo.Save(ctx, audit)
}

// ledgerEntry collects everything needed to write one AI request ledger row
type ledgerEntry struct {
	TenantID          uint
	Provider          string
	Model             string
	RequestType       string
	Prompt            string
	RawResponse       *string
	ParsedResponse    json.RawMessage
	TokensIn          int
	TokensOut         int
	LatencyMs         int64
	Status            models.AIRequestStatus
	ErrorMessage      *string
	RelatedEntityType *string
	RelatedEntityID   *uint
	RequesterID       *uint
}

// writeLedger records exactly one AI request row. It is called once per
// provider call, on success and on failure alike.
func writeLedger(ctx context.Context, ledgerRepo repository.AIRequestRepository, e ledgerEntry) (*models.AIRequest, error) {
	row := &models.AIRequest{
		TenantID:          e.TenantID,
		Provider:          e.Provider,
		Model:             e.Model,
		RequestType:       e.RequestType,
		Prompt:            e.Prompt,
		RawResponse:       e.RawResponse,
		ParsedResponse:    e.ParsedResponse,
		TokensIn:          e.TokensIn,
		TokensOut:         e.TokensOut,
		CostUSD:           services.CostUSD(e.Model, e.TokensIn, e.TokensOut),
		LatencyMs:         e.LatencyMs,
		Status:            e.Status,
		ErrorMessage:      e.ErrorMessage,
		RelatedEntityType: e.RelatedEntityType,
		RelatedEntityID:   e.RelatedEntityID,
		RequesterID:       e.RequesterID,
	}

	if err := ledgerRepo.Save(ctx, row); err != nil {
		return nil, err
	}

	services.RecordAIRequest(e.Provider, e.Model, e.Status.String(), e.TokensIn, e.TokensOut, row.CostUSD)

	return row, nil
}

// classifyProviderError maps a provider failure onto the flow error taxonomy
func classifyProviderError(err error) error {
	var provErr *services.ProviderError
	if errors.As(err, &provErr) && provErr.Timeout {
		return ErrProviderTimeout
	}
	return ErrProviderUnavailable
}

// ToLeadDTO converts a lead model to its API representation
func ToLeadDTO(lead models.Lead) dto.LeadDTO {
	out := dto.LeadDTO{
		ID:          lead.ID,
		UUID:        lead.UUID.String(),
		FullName:    lead.FullName,
		Source:      lead.Source,
		PropertyRef: lead.PropertyRef,
		Status:      lead.Status.String(),
		AIScore:     lead.AIScore,
		CreatedAt:   lead.CreatedAt.Format(time.RFC3339),
	}
	if lead.Email != nil {
		out.Email = *lead.Email
	}
	if lead.Phone != nil {
		out.Phone = *lead.Phone
	}
	if lead.Message != nil {
		out.Message = *lead.Message
	}
	if lead.AIPriority != nil {
		out.AIPriority = lead.AIPriority.String()
	}
	if lead.AIQualification != nil {
		out.AIQualification = &dto.LeadQualificationDTO{
			Summary:    lead.AIQualification.Summary,
			Strengths:  lead.AIQualification.Strengths,
			Concerns:   lead.AIQualification.Concerns,
			Confidence: lead.AIQualification.Confidence,
		}
	}
	if lead.AINextAction != nil {
		out.AINextAction = *lead.AINextAction
	}
	out.AINextActionDue = lead.AINextActionDeadline
	return out
}

// ToLeadFollowUpDTO converts a follow-up model to its API representation
func ToLeadFollowUpDTO(f models.LeadFollowUp) dto.LeadFollowUpDTO {
	return dto.LeadFollowUpDTO{
		ID:           f.ID,
		Channel:      f.Channel,
		ScheduledFor: f.ScheduledFor,
		Rationale:    f.Rationale,
		Confidence:   f.Confidence,
		Status:       f.Status.String(),
	}
}

// ToLeadInteractionDTO converts an interaction model to its API representation
func ToLeadInteractionDTO(i models.LeadInteraction) dto.LeadInteractionDTO {
	return dto.LeadInteractionDTO{
		ID:         i.ID,
		Channel:    i.Channel,
		Direction:  i.Direction,
		Content:    i.Content,
		OccurredAt: i.OccurredAt,
		CreatedAt:  i.CreatedAt.Format(time.RFC3339),
	}
}

// ToContentCalendarDTO converts a calendar model to its API representation
func ToContentCalendarDTO(c models.ContentCalendar) dto.ContentCalendarDTO {
	out := dto.ContentCalendarDTO{
		ID:          c.ID,
		UUID:        c.UUID.String(),
		Month:       c.Month,
		Year:        c.Year,
		Status:      c.Status.String(),
		AIRequestID: c.AIRequestID,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if c.AIPlan != nil {
		out.Theme = c.AIPlan.Theme
		out.Notes = c.AIPlan.Notes
		for _, s := range c.AIPlan.Suggestions {
			out.Suggestions = append(out.Suggestions, dto.CalendarSuggestionDTO{
				Day:         s.Day,
				Topic:       s.Topic,
				ContentType: s.ContentType,
				Rationale:   s.Rationale,
			})
		}
	}
	return out
}

// ToContentItemDTO converts a content item model with variants to its API representation
func ToContentItemDTO(item models.ContentItem, variants []*models.ContentVariant) dto.ContentItemDTO {
	out := dto.ContentItemDTO{
		ID:          item.ID,
		UUID:        item.UUID.String(),
		Topic:       item.Topic,
		ContentType: item.ContentType,
		BaseCopy:    item.BaseCopy,
		Hashtags:    item.Hashtags,
		Status:      item.Status.String(),
		AIRequestID: item.AIRequestID,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
	}
	if item.CTA != nil {
		out.CTA = *item.CTA
	}
	if item.ImageURL != nil {
		out.ImageURL = *item.ImageURL
	}
	for _, v := range variants {
		out.Variants = append(out.Variants, dto.ContentVariantDTO{
			ID:             v.ID,
			Platform:       v.Platform,
			Copy:           v.Copy,
			CharacterCount: v.CharacterCount,
		})
	}
	return out
}

// ToAdsCampaignDTO converts a campaign model to its API representation
func ToAdsCampaignDTO(c models.AdsCampaign) dto.AdsCampaignDTO {
	out := dto.AdsCampaignDTO{
		ID:             c.ID,
		UUID:           c.UUID.String(),
		Name:           c.Name,
		Channel:        c.Channel,
		LastAnalyzedAt: c.LastAnalyzedAt,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
	if c.ExternalID != nil {
		out.ExternalID = *c.ExternalID
	}
	return out
}

// ToAdsInsightDTO converts an insight model to its API representation
func ToAdsInsightDTO(i models.AdsInsight) dto.AdsInsightDTO {
	out := dto.AdsInsightDTO{
		ID:       i.ID,
		Severity: i.Severity.String(),
		Issue:    i.Issue,
	}
	if i.EstimatedImpact != nil {
		out.EstimatedImpact = *i.EstimatedImpact
	}
	if i.BenchmarkComparison != nil {
		out.BenchmarkComparison = *i.BenchmarkComparison
	}
	return out
}
