package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	"github.com/casaflow/casaflow/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// LeadFlow handles lead capture and lead management operations
type LeadFlow interface {
	CaptureLead(ctx context.Context, request *dto.CaptureLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error)
	ListLeads(ctx context.Context, tenantUUID string, userID uint, request *dto.ListLeadsRequest) (*dto.ListLeadsResponse, error)
	GetLead(ctx context.Context, tenantUUID, leadUUID string, userID uint) (*dto.LeadDTO, []dto.LeadInteractionDTO, []dto.LeadFollowUpDTO, error)
	AddInteraction(ctx context.Context, tenantUUID, leadUUID string, userID uint, request *dto.AddInteractionRequest) (*dto.LeadInteractionDTO, error)
	UpdateLeadStatus(ctx context.Context, tenantUUID, leadUUID string, userID uint, request *dto.UpdateLeadStatusRequest) (*dto.LeadDTO, error)
	ExportLeadsXLSX(ctx context.Context, tenantUUID string, userID uint) ([]byte, error)
}

// LeadFlowImpl implements the lead business flow
type LeadFlowImpl struct {
	leadRepo        repository.LeadRepository
	interactionRepo repository.LeadInteractionRepository
	followUpRepo    repository.LeadFollowUpRepository
	tenantRepo      repository.TenantRepository
	memberRepo      repository.TenantMemberRepository
	auditRepo       repository.AuditLogRepository
	captchaService  services.CaptchaService
	db              *gorm.DB
}

// NewLeadFlow creates a new lead flow instance
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	interactionRepo repository.LeadInteractionRepository,
	followUpRepo repository.LeadFollowUpRepository,
	tenantRepo repository.TenantRepository,
	memberRepo repository.TenantMemberRepository,
	auditRepo repository.AuditLogRepository,
	captchaService services.CaptchaService,
	db *gorm.DB,
) LeadFlow {
	return &LeadFlowImpl{
		leadRepo:        leadRepo,
		interactionRepo: interactionRepo,
		followUpRepo:    followUpRepo,
		tenantRepo:      tenantRepo,
		memberRepo:      memberRepo,
		auditRepo:       auditRepo,
		captchaService:  captchaService,
		db:              db,
	}
}

// CaptureLead stores a lead submitted through the public form. The endpoint
// is unauthenticated, so the captcha gate runs before anything touches the
// database.
func (lf *LeadFlowImpl) CaptureLead(ctx context.Context, request *dto.CaptureLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	if err := lf.validateCaptureRequest(ctx, request); err != nil {
		return nil, NewBusinessError("LEAD_CAPTURE_VALIDATION_FAILED", "Lead capture validation failed", err)
	}

	var tenant *models.Tenant

	resp, err := lf.withCaptureTransaction(ctx, func(ctx context.Context) (*dto.LeadDTO, error) {
		var err error
		tenant, err = lf.tenantRepo.BySlug(ctx, request.TenantSlug)
		if err != nil {
			return nil, err
		}
		if tenant == nil {
			return nil, ErrTenantNotFound
		}
		if !utils.IsTrue(tenant.IsActive) {
			return nil, ErrTenantInactive
		}

		source := strings.TrimSpace(request.Source)
		if source == "" {
			source = "website"
		}

		lead := &models.Lead{
			TenantID:    tenant.ID,
			FullName:    strings.TrimSpace(request.FullName),
			Source:      source,
			Status:      models.LeadStatusNew,
			PropertyRef: request.PropertyRef,
		}
		if email := strings.TrimSpace(request.Email); email != "" {
			lead.Email = &email
		}
		if phone := strings.TrimSpace(request.Phone); phone != "" {
			lead.Phone = &phone
		}
		if message := strings.TrimSpace(request.Message); message != "" {
			lead.Message = &message
		}

		if err := lf.leadRepo.Save(ctx, lead); err != nil {
			return nil, err
		}

		// The form message doubles as the first inbound interaction so the
		// qualification prompt has something to work with.
		if lead.Message != nil {
			interaction := &models.LeadInteraction{
				LeadID:     lead.ID,
				TenantID:   tenant.ID,
				Channel:    models.InteractionChannelNote,
				Direction:  models.InteractionDirectionInbound,
				Content:    *lead.Message,
				OccurredAt: utils.UTCNow(),
			}
			if err := lf.interactionRepo.Save(ctx, interaction); err != nil {
				return nil, err
			}
		}

		leadDTO := ToLeadDTO(*lead)
		return &leadDTO, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Lead capture failed: %s", err.Error())
		var tenantID *uint
		if tenant != nil {
			tenantID = &tenant.ID
		}
		_ = recordAudit(ctx, lf.auditRepo, nil, tenantID, models.AuditActionLeadCaptureFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LEAD_CAPTURE_FAILED", "Lead capture failed", err)
	}

	msg := fmt.Sprintf("Lead captured successfully: %d", resp.ID)
	_ = recordAudit(ctx, lf.auditRepo, nil, &tenant.ID, models.AuditActionLeadCaptured, msg, true, nil, metadata)

	return resp, nil
}

// ListLeads returns a page of the tenant's leads, newest first
func (lf *LeadFlowImpl) ListLeads(ctx context.Context, tenantUUID string, userID uint, request *dto.ListLeadsRequest) (*dto.ListLeadsResponse, error) {
	tenant, _, err := requireMembership(ctx, lf.tenantRepo, lf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Lead listing failed", err)
	}

	page := request.Page
	if page < 1 {
		page = 1
	}
	pageSize := request.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := models.LeadFilter{TenantID: &tenant.ID}
	if request.Status != "" {
		status := models.LeadStatus(request.Status)
		filter.Status = &status
	}
	if request.Source != "" {
		filter.Source = &request.Source
	}

	total, err := lf.leadRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Lead listing failed", err)
	}

	leads, err := lf.leadRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Lead listing failed", err)
	}

	out := make([]dto.LeadDTO, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadDTO(*lead))
	}

	return &dto.ListLeadsResponse{
		Leads: out,
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}

// GetLead returns a lead with its interactions and follow-ups
func (lf *LeadFlowImpl) GetLead(ctx context.Context, tenantUUID, leadUUID string, userID uint) (*dto.LeadDTO, []dto.LeadInteractionDTO, []dto.LeadFollowUpDTO, error) {
	tenant, _, err := requireMembership(ctx, lf.tenantRepo, lf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, nil, nil, NewBusinessError("LEAD_GET_FAILED", "Lead lookup failed", err)
	}

	lead, err := lf.findTenantLead(ctx, tenant.ID, leadUUID)
	if err != nil {
		return nil, nil, nil, NewBusinessError("LEAD_GET_FAILED", "Lead lookup failed", err)
	}

	interactions, err := lf.interactionRepo.ByFilter(ctx, models.LeadInteractionFilter{LeadID: &lead.ID}, "occurred_at ASC", 0, 0)
	if err != nil {
		return nil, nil, nil, NewBusinessError("LEAD_GET_FAILED", "Lead lookup failed", err)
	}

	followUps, err := lf.followUpRepo.ListByLead(ctx, lead.ID)
	if err != nil {
		return nil, nil, nil, NewBusinessError("LEAD_GET_FAILED", "Lead lookup failed", err)
	}

	leadDTO := ToLeadDTO(*lead)
	interactionDTOs := make([]dto.LeadInteractionDTO, 0, len(interactions))
	for _, i := range interactions {
		interactionDTOs = append(interactionDTOs, ToLeadInteractionDTO(*i))
	}
	followUpDTOs := make([]dto.LeadFollowUpDTO, 0, len(followUps))
	for _, f := range followUps {
		followUpDTOs = append(followUpDTOs, ToLeadFollowUpDTO(*f))
	}

	return &leadDTO, interactionDTOs, followUpDTOs, nil
}

// AddInteraction records a touchpoint with a lead
func (lf *LeadFlowImpl) AddInteraction(ctx context.Context, tenantUUID, leadUUID string, userID uint, request *dto.AddInteractionRequest) (*dto.LeadInteractionDTO, error) {
	tenant, _, err := requireMembership(ctx, lf.tenantRepo, lf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("INTERACTION_ADD_FAILED", "Interaction logging failed", err)
	}

	if strings.TrimSpace(request.Content) == "" {
		return nil, NewBusinessError("INTERACTION_ADD_FAILED", "Interaction logging failed", ErrInteractionNotAllowed)
	}

	lead, err := lf.findTenantLead(ctx, tenant.ID, leadUUID)
	if err != nil {
		return nil, NewBusinessError("INTERACTION_ADD_FAILED", "Interaction logging failed", err)
	}

	occurredAt := utils.UTCNow()
	if request.OccurredAt != nil {
		occurredAt = request.OccurredAt.UTC()
	}

	interaction := &models.LeadInteraction{
		LeadID:     lead.ID,
		TenantID:   tenant.ID,
		Channel:    request.Channel,
		Direction:  request.Direction,
		Content:    request.Content,
		AuthorID:   &userID,
		OccurredAt: occurredAt,
	}

	if err := lf.interactionRepo.Save(ctx, interaction); err != nil {
		return nil, NewBusinessError("INTERACTION_ADD_FAILED", "Interaction logging failed", err)
	}

	out := ToLeadInteractionDTO(*interaction)
	return &out, nil
}

// UpdateLeadStatus applies a manual status transition. Leads are never
// deleted; "lost" is as final as it gets.
func (lf *LeadFlowImpl) UpdateLeadStatus(ctx context.Context, tenantUUID, leadUUID string, userID uint, request *dto.UpdateLeadStatusRequest) (*dto.LeadDTO, error) {
	tenant, _, err := requireMembership(ctx, lf.tenantRepo, lf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("LEAD_STATUS_UPDATE_FAILED", "Lead status update failed", err)
	}

	lead, err := lf.findTenantLead(ctx, tenant.ID, leadUUID)
	if err != nil {
		return nil, NewBusinessError("LEAD_STATUS_UPDATE_FAILED", "Lead status update failed", err)
	}

	status := models.LeadStatus(request.Status)
	if err := lf.leadRepo.UpdateStatus(ctx, lead.ID, status); err != nil {
		return nil, NewBusinessError("LEAD_STATUS_UPDATE_FAILED", "Lead status update failed", err)
	}

	lead.Status = status
	out := ToLeadDTO(*lead)
	return &out, nil
}

// ExportLeadsXLSX renders every lead of the tenant into a spreadsheet
func (lf *LeadFlowImpl) ExportLeadsXLSX(ctx context.Context, tenantUUID string, userID uint) ([]byte, error) {
	tenant, _, err := requireMembership(ctx, lf.tenantRepo, lf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("LEAD_EXPORT_FAILED", "Lead export failed", err)
	}

	leads, err := lf.leadRepo.ByFilter(ctx, models.LeadFilter{TenantID: &tenant.ID}, "created_at DESC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LEAD_EXPORT_FAILED", "Lead export failed", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Leads"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"UUID", "Full Name", "Email", "Phone", "Source", "Property", "Status", "AI Score", "AI Priority", "Next Action", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, NewBusinessError("LEAD_EXPORT_FAILED", "Lead export failed", err)
		}
	}

	for row, lead := range leads {
		values := []any{
			lead.UUID.String(),
			lead.FullName,
			deref(lead.Email),
			deref(lead.Phone),
			lead.Source,
			deref(lead.PropertyRef),
			lead.Status.String(),
			derefInt(lead.AIScore),
			priorityString(lead.AIPriority),
			deref(lead.AINextAction),
			lead.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, NewBusinessError("LEAD_EXPORT_FAILED", "Lead export failed", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, NewBusinessError("LEAD_EXPORT_FAILED", "Lead export failed", err)
	}

	return buf.Bytes(), nil
}

// Private helper methods

func (lf *LeadFlowImpl) validateCaptureRequest(ctx context.Context, request *dto.CaptureLeadRequest) error {
	if !lf.captchaService.VerifyRotate(ctx, request.CaptchaID, request.CaptchaAngle) {
		return ErrCaptchaFailed
	}

	if strings.TrimSpace(request.Email) == "" && strings.TrimSpace(request.Phone) == "" {
		return ErrLeadContactRequired
	}

	return nil
}

func (lf *LeadFlowImpl) findTenantLead(ctx context.Context, tenantID uint, leadUUID string) (*models.Lead, error) {
	lead, err := lf.leadRepo.ByUUID(ctx, leadUUID)
	if err != nil {
		return nil, err
	}
	if lead == nil || lead.TenantID != tenantID {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

func (lf *LeadFlowImpl) withCaptureTransaction(ctx context.Context, fn func(context.Context) (*dto.LeadDTO, error)) (*dto.LeadDTO, error) {
	var result *dto.LeadDTO
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) any {
	if i == nil {
		return ""
	}
	return *i
}

func priorityString(p *models.LeadPriority) string {
	if p == nil {
		return ""
	}
	return p.String()
}
