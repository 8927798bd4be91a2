package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

const (
	calendarMaxTokens   = 4096
	contentMaxTokens    = 4096
	creativeTemperature = 0.8
)

// ContentFlow handles calendar and content generation
type ContentFlow interface {
	GenerateCalendar(ctx context.Context, tenantUUID string, userID uint, request *dto.GenerateCalendarRequest, metadata *ClientMetadata) (*dto.ContentCalendarDTO, error)
	GetCalendar(ctx context.Context, tenantUUID, calendarUUID string, userID uint) (*dto.ContentCalendarDTO, error)
	GenerateContentItem(ctx context.Context, tenantUUID string, userID uint, request *dto.GenerateContentRequest, metadata *ClientMetadata) (*dto.GenerateContentResponse, error)
}

// ContentFlowImpl implements the content business flow
type ContentFlowImpl struct {
	calendarRepo repository.ContentCalendarRepository
	itemRepo     repository.ContentItemRepository
	variantRepo  repository.ContentVariantRepository
	ledgerRepo   repository.AIRequestRepository
	tenantRepo   repository.TenantRepository
	memberRepo   repository.TenantMemberRepository
	auditRepo    repository.AuditLogRepository
	llm          services.LLMService
	db           *gorm.DB
}

// NewContentFlow creates a new content flow instance
func NewContentFlow(
	calendarRepo repository.ContentCalendarRepository,
	itemRepo repository.ContentItemRepository,
	variantRepo repository.ContentVariantRepository,
	ledgerRepo repository.AIRequestRepository,
	tenantRepo repository.TenantRepository,
	memberRepo repository.TenantMemberRepository,
	auditRepo repository.AuditLogRepository,
	llm services.LLMService,
	db *gorm.DB,
) ContentFlow {
	return &ContentFlowImpl{
		calendarRepo: calendarRepo,
		itemRepo:     itemRepo,
		variantRepo:  variantRepo,
		ledgerRepo:   ledgerRepo,
		tenantRepo:   tenantRepo,
		memberRepo:   memberRepo,
		auditRepo:    auditRepo,
		llm:          llm,
		db:           db,
	}
}

// aiCalendarPayload is the JSON shape the model returns for a calendar plan
type aiCalendarPayload struct {
	Theme       string `json:"theme"`
	Suggestions []struct {
		Day         int    `json:"day"`
		Topic       string `json:"topic"`
		ContentType string `json:"content_type"`
		Rationale   string `json:"rationale"`
	} `json:"suggestions"`
	Notes string `json:"notes"`
}

// aiContentPayload is the JSON shape the model returns for a content item
type aiContentPayload struct {
	BaseCopy string            `json:"base_copy"`
	CTA      string            `json:"cta"`
	Hashtags []string          `json:"hashtags"`
	Variants map[string]string `json:"variants"`
}

// GenerateCalendar creates or fills the tenant's calendar for a month. The
// (tenant, month, year) slot is reserved through the unique index before the
// provider is called, so concurrent requests converge on a single row. A
// non-draft calendar already holding the slot rejects the request.
func (cf *ContentFlowImpl) GenerateCalendar(ctx context.Context, tenantUUID string, userID uint, request *dto.GenerateCalendarRequest, metadata *ClientMetadata) (*dto.ContentCalendarDTO, error) {
	tenant, _, err := requireMembership(ctx, cf.tenantRepo, cf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", err)
	}

	calendar := &models.ContentCalendar{
		TenantID:       tenant.ID,
		Month:          request.Month,
		Year:           request.Year,
		Objectives:     models.StringSlice(request.Objectives),
		Offers:         models.StringSlice(request.Offers),
		StrategicDates: models.StringSlice(request.StrategicDates),
		Status:         models.CalendarStatusDraft,
	}

	calendar, err = cf.calendarRepo.SaveConflictFree(ctx, calendar)
	if err != nil {
		return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", err)
	}

	if calendar.Status != models.CalendarStatusDraft {
		return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", ErrCalendarSlotOccupied)
	}

	// A surviving draft keeps its row but is regenerated against the new
	// request, so the stored briefing follows the request too
	calendar.Objectives = models.StringSlice(request.Objectives)
	calendar.Offers = models.StringSlice(request.Offers)
	calendar.StrategicDates = models.StringSlice(request.StrategicDates)

	prompt := cf.buildCalendarPrompt(tenant, request)

	completion, callErr := cf.llm.Complete(ctx, services.CompletionRequest{
		System:      calendarSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   calendarMaxTokens,
		Temperature: creativeTemperature,
	})

	entry := ledgerEntry{
		TenantID:          tenant.ID,
		Provider:          cf.llm.Provider(),
		Model:             cf.llm.Model(),
		RequestType:       models.AIRequestTypeCalendarGeneration,
		Prompt:            prompt,
		RelatedEntityType: utils.ToPtr(models.AIRelatedEntityContentCalendar),
		RelatedEntityID:   &calendar.ID,
		RequesterID:       &userID,
	}

	if callErr != nil {
		entry.Status = models.AIRequestStatusError
		flowErr := classifyProviderError(callErr)
		if flowErr == ErrProviderTimeout {
			entry.Status = models.AIRequestStatusTimeout
		}
		entry.ErrorMessage = utils.ToPtr(callErr.Error())

		if _, ledgerErr := writeLedger(ctx, cf.ledgerRepo, entry); ledgerErr != nil {
			return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", ledgerErr)
		}

		errMsg := fmt.Sprintf("Calendar generation failed: %s", callErr.Error())
		_ = recordAudit(ctx, cf.auditRepo, &userID, &tenant.ID, models.AuditActionCalendarFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", flowErr)
	}

	entry.RawResponse = &completion.Text
	entry.TokensIn = completion.TokensIn
	entry.TokensOut = completion.TokensOut
	entry.LatencyMs = completion.LatencyMs
	entry.Status = models.AIRequestStatusSuccess

	payload, parseErr := cf.parseCalendarPlan(completion.Text)
	if parseErr != nil {
		if _, ledgerErr := writeLedger(ctx, cf.ledgerRepo, entry); ledgerErr != nil {
			return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", ledgerErr)
		}

		errMsg := fmt.Sprintf("Calendar generation failed: %s", parseErr.Error())
		_ = recordAudit(ctx, cf.auditRepo, &userID, &tenant.ID, models.AuditActionCalendarFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", parseErr)
	}

	entry.ParsedResponse, _ = json.Marshal(payload)

	ledgerRow, err := writeLedger(ctx, cf.ledgerRepo, entry)
	if err != nil {
		return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", err)
	}

	plan := &models.CalendarPlan{
		Theme: payload.Theme,
		Notes: payload.Notes,
	}
	for _, s := range payload.Suggestions {
		plan.Suggestions = append(plan.Suggestions, models.CalendarSuggestion{
			Day:         s.Day,
			Topic:       s.Topic,
			ContentType: s.ContentType,
			Rationale:   s.Rationale,
		})
	}

	calendar.AIPlan = plan
	calendar.AIRequestID = &ledgerRow.ID
	calendar.Status = models.CalendarStatusAIGenerated

	if err := cf.calendarRepo.Update(ctx, *calendar); err != nil {
		return nil, NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", err)
	}

	msg := fmt.Sprintf("Calendar generated: %d (%d/%d)", calendar.ID, calendar.Month, calendar.Year)
	_ = recordAudit(ctx, cf.auditRepo, &userID, &tenant.ID, models.AuditActionCalendarGenerated, msg, true, nil, metadata)

	out := ToContentCalendarDTO(*calendar)
	out.CostUSD = ledgerRow.CostUSD
	return &out, nil
}

// GetCalendar returns a calendar by UUID
func (cf *ContentFlowImpl) GetCalendar(ctx context.Context, tenantUUID, calendarUUID string, userID uint) (*dto.ContentCalendarDTO, error) {
	tenant, _, err := requireMembership(ctx, cf.tenantRepo, cf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("CALENDAR_GET_FAILED", "Calendar lookup failed", err)
	}

	calendar, err := cf.calendarRepo.ByUUID(ctx, calendarUUID)
	if err != nil {
		return nil, NewBusinessError("CALENDAR_GET_FAILED", "Calendar lookup failed", err)
	}
	if calendar == nil || calendar.TenantID != tenant.ID {
		return nil, NewBusinessError("CALENDAR_GET_FAILED", "Calendar lookup failed", ErrCalendarNotFound)
	}

	out := ToContentCalendarDTO(*calendar)
	return &out, nil
}

// GenerateContentItem generates the copy for one calendar topic plus its
// per-platform variants. The item and every variant land in one transaction:
// either all of them exist afterwards or none do.
func (cf *ContentFlowImpl) GenerateContentItem(ctx context.Context, tenantUUID string, userID uint, request *dto.GenerateContentRequest, metadata *ClientMetadata) (*dto.GenerateContentResponse, error) {
	tenant, _, err := requireMembership(ctx, cf.tenantRepo, cf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", err)
	}

	calendar, err := cf.calendarRepo.ByUUID(ctx, request.CalendarUUID)
	if err != nil {
		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", err)
	}
	if calendar == nil || calendar.TenantID != tenant.ID {
		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", ErrCalendarNotFound)
	}

	topic := strings.TrimSpace(request.Topic)

	existing, err := cf.itemRepo.ByCalendarAndTopic(ctx, calendar.ID, topic)
	if err != nil {
		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", ErrDuplicateContentTopic)
	}

	platforms := request.Platforms
	if len(platforms) == 0 {
		platforms = models.DefaultPlatforms
	}
	for _, p := range platforms {
		if !models.ValidPlatform(p) {
			return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", ErrInvalidPlatform)
		}
	}

	prompt := cf.buildContentPrompt(tenant, calendar, topic, request.ContentType, platforms)

	completion, callErr := cf.llm.Complete(ctx, services.CompletionRequest{
		System:      contentSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   contentMaxTokens,
		Temperature: creativeTemperature,
	})

	entry := ledgerEntry{
		TenantID:          tenant.ID,
		Provider:          cf.llm.Provider(),
		Model:             cf.llm.Model(),
		RequestType:       models.AIRequestTypeContentGeneration,
		Prompt:            prompt,
		RelatedEntityType: utils.ToPtr(models.AIRelatedEntityContentCalendar),
		RelatedEntityID:   &calendar.ID,
		RequesterID:       &userID,
	}

	if callErr != nil {
		entry.Status = models.AIRequestStatusError
		flowErr := classifyProviderError(callErr)
		if flowErr == ErrProviderTimeout {
			entry.Status = models.AIRequestStatusTimeout
		}
		entry.ErrorMessage = utils.ToPtr(callErr.Error())

		if _, ledgerErr := writeLedger(ctx, cf.ledgerRepo, entry); ledgerErr != nil {
			return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", ledgerErr)
		}

		errMsg := fmt.Sprintf("Content generation failed: %s", callErr.Error())
		_ = recordAudit(ctx, cf.auditRepo, &userID, &tenant.ID, models.AuditActionContentFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", flowErr)
	}

	entry.RawResponse = &completion.Text
	entry.TokensIn = completion.TokensIn
	entry.TokensOut = completion.TokensOut
	entry.LatencyMs = completion.LatencyMs
	entry.Status = models.AIRequestStatusSuccess

	payload, parseErr := cf.parseContent(completion.Text)
	if parseErr != nil {
		if _, ledgerErr := writeLedger(ctx, cf.ledgerRepo, entry); ledgerErr != nil {
			return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", ledgerErr)
		}

		errMsg := fmt.Sprintf("Content generation failed: %s", parseErr.Error())
		_ = recordAudit(ctx, cf.auditRepo, &userID, &tenant.ID, models.AuditActionContentFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", parseErr)
	}

	entry.ParsedResponse, _ = json.Marshal(payload)

	ledgerRow, err := writeLedger(ctx, cf.ledgerRepo, entry)
	if err != nil {
		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", err)
	}

	item := &models.ContentItem{
		TenantID:    tenant.ID,
		CalendarID:  calendar.ID,
		Topic:       topic,
		ContentType: request.ContentType,
		BaseCopy:    payload.BaseCopy,
		Hashtags:    models.StringSlice(payload.Hashtags),
		Status:      models.ContentItemStatusAIGenerated,
		AIRequestID: &ledgerRow.ID,
	}
	if cta := strings.TrimSpace(payload.CTA); cta != "" {
		item.CTA = &cta
	}

	var variants []*models.ContentVariant

	err = repository.WithTransaction(ctx, cf.db, func(ctx context.Context) error {
		if err := cf.itemRepo.Save(ctx, item); err != nil {
			return err
		}

		for _, platform := range platforms {
			copyText := payload.BaseCopy
			if adapted, ok := payload.Variants[platform]; ok && strings.TrimSpace(adapted) != "" {
				copyText = adapted
			}
			variants = append(variants, &models.ContentVariant{
				ItemID:         item.ID,
				TenantID:       tenant.ID,
				Platform:       platform,
				Copy:           copyText,
				CharacterCount: utf8.RuneCountInString(copyText),
			})
		}

		return cf.variantRepo.SaveBatch(ctx, variants)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Content generation failed: %s", err.Error())
		_ = recordAudit(ctx, cf.auditRepo, &userID, &tenant.ID, models.AuditActionContentFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CONTENT_GENERATION_FAILED", "Content generation failed", err)
	}

	msg := fmt.Sprintf("Content generated: %d (topic %q, %d variants)", item.ID, topic, len(variants))
	_ = recordAudit(ctx, cf.auditRepo, &userID, &tenant.ID, models.AuditActionContentGenerated, msg, true, nil, metadata)

	out := ToContentItemDTO(*item, variants)
	return &dto.GenerateContentResponse{Item: out, CostUSD: ledgerRow.CostUSD}, nil
}

// Private helper methods

const calendarSystemPrompt = `You are a social media strategist for real-estate agencies. ` +
	`Answer with a single JSON object and nothing else, with keys: theme (string), ` +
	`suggestions (array of {day: 1-31 integer, topic: string, content_type: post|reel|story|carousel|ad_copy|listing_ad, rationale: string}), ` +
	`notes (string).`

const contentSystemPrompt = `You are a real-estate social media copywriter. ` +
	`Answer with a single JSON object and nothing else, with keys: base_copy (string), ` +
	`cta (string), hashtags (string array), ` +
	`variants (object mapping platform name to adapted copy).`

func (cf *ContentFlowImpl) buildCalendarPrompt(tenant *models.Tenant, request *dto.GenerateCalendarRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Plan the %d/%d content calendar for the real-estate agency %q.\n", request.Month, request.Year, tenant.Name)
	if len(request.Objectives) > 0 {
		fmt.Fprintf(&b, "Objectives: %s\n", strings.Join(request.Objectives, "; "))
	}
	if len(request.Offers) > 0 {
		fmt.Fprintf(&b, "Current offers: %s\n", strings.Join(request.Offers, "; "))
	}
	if len(request.StrategicDates) > 0 {
		fmt.Fprintf(&b, "Strategic dates: %s\n", strings.Join(request.StrategicDates, "; "))
	}
	b.WriteString("Suggest 8 to 12 posts spread across the month.\n")

	return b.String()
}

func (cf *ContentFlowImpl) buildContentPrompt(tenant *models.Tenant, calendar *models.ContentCalendar, topic, contentType string, platforms []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a %s for the real-estate agency %q.\n", contentType, tenant.Name)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if calendar.AIPlan != nil && calendar.AIPlan.Theme != "" {
		fmt.Fprintf(&b, "Monthly theme: %s\n", calendar.AIPlan.Theme)
	}
	if len(calendar.Objectives) > 0 {
		fmt.Fprintf(&b, "Objectives: %s\n", strings.Join(calendar.Objectives, "; "))
	}
	fmt.Fprintf(&b, "Adapt the copy for these platforms: %s\n", strings.Join(platforms, ", "))

	return b.String()
}

func (cf *ContentFlowImpl) parseCalendarPlan(raw string) (*aiCalendarPayload, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, ErrUnparsableAIOutput
	}

	var payload aiCalendarPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, ErrUnparsableAIOutput
	}
	if len(payload.Suggestions) == 0 {
		return nil, ErrUnparsableAIOutput
	}

	return &payload, nil
}

func (cf *ContentFlowImpl) parseContent(raw string) (*aiContentPayload, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, ErrUnparsableAIOutput
	}

	var payload aiContentPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, ErrUnparsableAIOutput
	}
	if strings.TrimSpace(payload.BaseCopy) == "" {
		return nil, ErrUnparsableAIOutput
	}

	return &payload, nil
}
