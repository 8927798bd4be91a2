package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

const (
	// fallback applied when the model answer cannot be parsed
	fallbackScore    = 50
	fallbackPriority = models.LeadPriorityMedium
	fallbackSummary  = "Automatic qualification could not be completed; manual review recommended."

	maxPromptMessage   = 2000
	qualifyMaxTokens   = 2048
	qualifyTemperature = 0.2
)

// LeadQualificationFlow runs AI qualification over a lead
type LeadQualificationFlow interface {
	QualifyLead(ctx context.Context, tenantUUID string, userID uint, request *dto.QualifyLeadRequest, metadata *ClientMetadata) (*dto.QualifyLeadResponse, error)
}

// LeadQualificationFlowImpl implements the lead qualification business flow
type LeadQualificationFlowImpl struct {
	leadRepo        repository.LeadRepository
	interactionRepo repository.LeadInteractionRepository
	followUpRepo    repository.LeadFollowUpRepository
	ledgerRepo      repository.AIRequestRepository
	tenantRepo      repository.TenantRepository
	memberRepo      repository.TenantMemberRepository
	auditRepo       repository.AuditLogRepository
	llm             services.LLMService
	db              *gorm.DB
}

// NewLeadQualificationFlow creates a new lead qualification flow instance
func NewLeadQualificationFlow(
	leadRepo repository.LeadRepository,
	interactionRepo repository.LeadInteractionRepository,
	followUpRepo repository.LeadFollowUpRepository,
	ledgerRepo repository.AIRequestRepository,
	tenantRepo repository.TenantRepository,
	memberRepo repository.TenantMemberRepository,
	auditRepo repository.AuditLogRepository,
	llm services.LLMService,
	db *gorm.DB,
) LeadQualificationFlow {
	return &LeadQualificationFlowImpl{
		leadRepo:        leadRepo,
		interactionRepo: interactionRepo,
		followUpRepo:    followUpRepo,
		ledgerRepo:      ledgerRepo,
		tenantRepo:      tenantRepo,
		memberRepo:      memberRepo,
		auditRepo:       auditRepo,
		llm:             llm,
		db:              db,
	}
}

// aiQualificationPayload is the JSON shape the model is instructed to return
type aiQualificationPayload struct {
	Score      int      `json:"score"`
	Priority   string   `json:"priority"`
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Concerns   []string `json:"concerns"`
	NextAction struct {
		Action        string `json:"action"`
		DeadlineHours int    `json:"deadline_hours"`
	} `json:"next_action"`
	FollowUps []struct {
		Channel    string  `json:"channel"`
		InHours    int     `json:"in_hours"`
		Rationale  string  `json:"rationale"`
		Confidence float64 `json:"confidence"`
	} `json:"follow_ups"`
}

// QualifyLead calls the LLM once, records the call in the ledger, and applies
// the verdict to the lead. An unparsable answer does not fail the operation:
// the fallback verdict is stored and the response flags it.
func (qf *LeadQualificationFlowImpl) QualifyLead(ctx context.Context, tenantUUID string, userID uint, request *dto.QualifyLeadRequest, metadata *ClientMetadata) (*dto.QualifyLeadResponse, error) {
	tenant, _, err := requireMembership(ctx, qf.tenantRepo, qf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", err)
	}

	lead, err := qf.leadRepo.ByUUID(ctx, request.LeadUUID)
	if err != nil {
		return nil, NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", err)
	}
	if lead == nil || lead.TenantID != tenant.ID {
		return nil, NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", ErrLeadNotFound)
	}

	// Interaction history is embedded unless the caller opted out
	var interactions []*models.LeadInteraction
	if request.IncludeInteractions == nil || *request.IncludeInteractions {
		interactions, err = qf.interactionRepo.ListRecentByLead(ctx, lead.ID, utils.MaxQualificationInteractions)
		if err != nil {
			return nil, NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", err)
		}
	}

	prompt := qf.buildPrompt(lead, interactions)

	// The provider is called exactly once; the ledger row below is written
	// for that call whether it succeeded or not.
	completion, callErr := qf.llm.Complete(ctx, services.CompletionRequest{
		System:      qualificationSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   qualifyMaxTokens,
		Temperature: qualifyTemperature,
	})

	entry := ledgerEntry{
		TenantID:          tenant.ID,
		Provider:          qf.llm.Provider(),
		Model:             qf.llm.Model(),
		RequestType:       models.AIRequestTypeLeadQualification,
		Prompt:            prompt,
		RelatedEntityType: utils.ToPtr(models.AIRelatedEntityLead),
		RelatedEntityID:   &lead.ID,
		RequesterID:       &userID,
	}

	if callErr != nil {
		entry.Status = models.AIRequestStatusError
		flowErr := classifyProviderError(callErr)
		if flowErr == ErrProviderTimeout {
			entry.Status = models.AIRequestStatusTimeout
		}
		entry.ErrorMessage = utils.ToPtr(callErr.Error())

		if _, ledgerErr := writeLedger(ctx, qf.ledgerRepo, entry); ledgerErr != nil {
			return nil, NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", ledgerErr)
		}

		errMsg := fmt.Sprintf("Lead qualification failed: %s", callErr.Error())
		_ = recordAudit(ctx, qf.auditRepo, &userID, &tenant.ID, models.AuditActionLeadQualificationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", flowErr)
	}

	entry.RawResponse = &completion.Text
	entry.TokensIn = completion.TokensIn
	entry.TokensOut = completion.TokensOut
	entry.LatencyMs = completion.LatencyMs
	entry.Status = models.AIRequestStatusSuccess

	payload, parseErr := qf.parseVerdict(completion.Text)
	if parseErr == nil {
		entry.ParsedResponse, _ = json.Marshal(payload)
	}

	ledgerRow, err := writeLedger(ctx, qf.ledgerRepo, entry)
	if err != nil {
		return nil, NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", err)
	}

	fallback := parseErr != nil
	if fallback {
		payload = &aiQualificationPayload{
			Score:    fallbackScore,
			Priority: fallbackPriority.String(),
			Summary:  fallbackSummary,
		}
	}

	resp, err := qf.applyVerdict(ctx, lead, ledgerRow, payload, fallback)
	if err != nil {
		errMsg := fmt.Sprintf("Lead qualification failed: %s", err.Error())
		_ = recordAudit(ctx, qf.auditRepo, &userID, &tenant.ID, models.AuditActionLeadQualificationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", err)
	}

	msg := fmt.Sprintf("Lead qualified: %d (score %d, fallback %t)", lead.ID, payload.Score, fallback)
	_ = recordAudit(ctx, qf.auditRepo, &userID, &tenant.ID, models.AuditActionLeadQualified, msg, true, nil, metadata)

	return resp, nil
}

// Private helper methods

const qualificationSystemPrompt = `You are a real-estate lead qualification analyst. ` +
	`Given a lead and its interaction history, answer with a single JSON object and nothing else, ` +
	`with keys: score (0-100 integer), priority (critical|high|medium|low), summary (string), ` +
	`strengths (string array), concerns (string array), ` +
	`next_action ({action: string, deadline_hours: integer}), ` +
	`follow_ups (array of {channel: email|phone|whatsapp|visit, in_hours: integer, rationale: string, confidence: 0..1}).`

func (qf *LeadQualificationFlowImpl) buildPrompt(lead *models.Lead, interactions []*models.LeadInteraction) string {
	var b strings.Builder

	b.WriteString("Lead:\n")
	fmt.Fprintf(&b, "- Name: %s\n", lead.FullName)
	if lead.Email != nil {
		fmt.Fprintf(&b, "- Email: %s\n", *lead.Email)
	}
	if lead.Phone != nil {
		fmt.Fprintf(&b, "- Phone: %s\n", *lead.Phone)
	}
	fmt.Fprintf(&b, "- Source: %s\n", lead.Source)
	if lead.PropertyRef != nil {
		fmt.Fprintf(&b, "- Property of interest: %s\n", *lead.PropertyRef)
	}
	if lead.Message != nil {
		fmt.Fprintf(&b, "- Initial message: %s\n", truncate(*lead.Message, maxPromptMessage))
	}
	fmt.Fprintf(&b, "- Captured at: %s\n", lead.CreatedAt.Format(time.RFC3339))

	if len(interactions) > 0 {
		b.WriteString("\nRecent interactions (newest first):\n")
		for _, i := range interactions {
			fmt.Fprintf(&b, "- [%s %s %s] %s\n",
				i.OccurredAt.Format("2006-01-02 15:04"),
				i.Channel,
				i.Direction,
				truncate(i.Content, maxPromptMessage))
		}
	}

	return b.String()
}

func (qf *LeadQualificationFlowImpl) parseVerdict(raw string) (*aiQualificationPayload, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, ErrUnparsableAIOutput
	}

	var payload aiQualificationPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, ErrUnparsableAIOutput
	}

	return &payload, nil
}

// applyVerdict persists the verdict, supersedes pending follow-ups, and
// inserts the new ones. Prior follow-ups are marked skipped, never removed.
func (qf *LeadQualificationFlowImpl) applyVerdict(ctx context.Context, lead *models.Lead, ledgerRow *models.AIRequest, payload *aiQualificationPayload, fallback bool) (*dto.QualifyLeadResponse, error) {
	var followUps []*models.LeadFollowUp

	err := repository.WithTransaction(ctx, qf.db, func(ctx context.Context) error {
		now := utils.UTCNow()

		score := clampScore(payload.Score)
		priority := normalizePriority(payload.Priority)

		lead.AIScore = &score
		lead.AIPriority = &priority
		lead.AIQualification = &models.LeadQualification{
			Summary:    payload.Summary,
			Strengths:  payload.Strengths,
			Concerns:   payload.Concerns,
			Confidence: clampConfidence(highestConfidence(payload)),
		}
		lead.AIRequestID = &ledgerRow.ID

		if action := strings.TrimSpace(payload.NextAction.Action); action != "" {
			lead.AINextAction = &action
			if payload.NextAction.DeadlineHours > 0 {
				deadline := now.Add(time.Duration(payload.NextAction.DeadlineHours) * time.Hour)
				lead.AINextActionDeadline = &deadline
			}
		}

		if err := qf.leadRepo.Update(ctx, *lead); err != nil {
			return err
		}

		// Supersede earlier pending suggestions before inserting new ones
		pending, err := qf.followUpRepo.ByFilter(ctx, models.LeadFollowUpFilter{
			LeadID: &lead.ID,
			Status: utils.ToPtr(models.FollowUpStatusPending),
		}, "", 0, 0)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if err := qf.followUpRepo.UpdateStatus(ctx, p.ID, models.FollowUpStatusSkipped); err != nil {
				return err
			}
		}

		for _, f := range payload.FollowUps {
			followUp := &models.LeadFollowUp{
				LeadID:      lead.ID,
				TenantID:    lead.TenantID,
				Channel:     normalizeFollowUpChannel(f.Channel),
				Rationale:   f.Rationale,
				Confidence:  clampConfidence(f.Confidence),
				Status:      models.FollowUpStatusPending,
				AIRequestID: ledgerRow.ID,
			}
			if f.InHours > 0 {
				scheduled := now.Add(time.Duration(f.InHours) * time.Hour)
				followUp.ScheduledFor = &scheduled
			}
			followUps = append(followUps, followUp)
		}

		if len(followUps) > 0 {
			return qf.followUpRepo.SaveBatch(ctx, followUps)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	followUpDTOs := make([]dto.LeadFollowUpDTO, 0, len(followUps))
	for _, f := range followUps {
		followUpDTOs = append(followUpDTOs, ToLeadFollowUpDTO(*f))
	}

	return &dto.QualifyLeadResponse{
		Lead:        ToLeadDTO(*lead),
		FollowUps:   followUpDTOs,
		Fallback:    fallback,
		AIRequestID: ledgerRow.ID,
		CostUSD:     ledgerRow.CostUSD,
	}, nil
}

func highestConfidence(payload *aiQualificationPayload) float64 {
	best := 0.0
	for _, f := range payload.FollowUps {
		if f.Confidence > best {
			best = f.Confidence
		}
	}
	if best == 0 && payload.Score > 0 {
		best = float64(payload.Score) / 100
	}
	return best
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
