package handlers

import (
	"context"
	"log"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/middleware"
	businessflow "github.com/casaflow/casaflow/business_flow"
	"github.com/casaflow/casaflow/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AI orchestrations chain provider calls, so they get a longer deadline than
// the plain CRUD endpoints.
const aiRequestTimeout = 150 * time.Second

// AIHandlerInterface defines the contract for AI orchestration handlers
type AIHandlerInterface interface {
	QualifyLead(c fiber.Ctx) error
	GenerateCalendar(c fiber.Ctx) error
	GetCalendar(c fiber.Ctx) error
	GenerateContent(c fiber.Ctx) error
	GenerateImage(c fiber.Ctx) error
	AnalyzeCampaign(c fiber.Ctx) error
}

// AIHandler handles AI orchestration HTTP requests
type AIHandler struct {
	qualificationFlow businessflow.LeadQualificationFlow
	contentFlow       businessflow.ContentFlow
	imageFlow         businessflow.ImageFlow
	campaignFlow      businessflow.CampaignFlow
	validator         *validator.Validate
}

// NewAIHandler creates a new AI orchestration handler
func NewAIHandler(
	qualificationFlow businessflow.LeadQualificationFlow,
	contentFlow businessflow.ContentFlow,
	imageFlow businessflow.ImageFlow,
	campaignFlow businessflow.CampaignFlow,
) *AIHandler {
	return &AIHandler{
		qualificationFlow: qualificationFlow,
		contentFlow:       contentFlow,
		imageFlow:         imageFlow,
		campaignFlow:      campaignFlow,
		validator:         validator.New(),
	}
}

func (h *AIHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AIHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// QualifyLead runs the AI qualification pipeline on a lead
// @Summary Qualify Lead
// @Description Score and prioritize a lead using the AI qualification pipeline
// @Tags AI
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param request body dto.QualifyLeadRequest true "Lead to qualify"
// @Success 200 {object} dto.APIResponse{data=dto.QualifyLeadResponse} "Lead qualified"
// @Failure 403 {object} dto.APIResponse "Not a tenant member"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 500 {object} dto.APIResponse "AI provider unavailable"
// @Router /api/v1/tenants/{tenant_uuid}/ai/qualify-lead [post]
func (h *AIHandler) QualifyLead(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.QualifyLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.qualificationFlow.QualifyLead(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/ai/qualify-lead"), c.Params("tenant_uuid"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		return h.aiFlowError(c, err, "Lead qualification failed", "LEAD_QUALIFICATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead qualified", result)
}

// GenerateCalendar plans a month of content for the tenant
// @Summary Generate Calendar
// @Description Generate the tenant's monthly content calendar with AI suggestions
// @Tags AI
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param request body dto.GenerateCalendarRequest true "Calendar parameters"
// @Success 200 {object} dto.APIResponse{data=dto.ContentCalendarDTO} "Calendar generated"
// @Failure 400 {object} dto.APIResponse "Calendar slot occupied"
// @Failure 500 {object} dto.APIResponse "AI provider unavailable"
// @Router /api/v1/tenants/{tenant_uuid}/ai/generate-calendar [post]
func (h *AIHandler) GenerateCalendar(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.GenerateCalendarRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	calendar, err := h.contentFlow.GenerateCalendar(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/ai/generate-calendar"), c.Params("tenant_uuid"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsCalendarSlotOccupied(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "A calendar already exists for this month", "CALENDAR_SLOT_OCCUPIED", nil)
		}
		return h.aiFlowError(c, err, "Calendar generation failed", "CALENDAR_GENERATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Calendar generated", calendar)
}

// GetCalendar returns a previously generated calendar
// @Summary Get Calendar
// @Description Fetch a content calendar with its AI plan by UUID
// @Tags AI
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param uuid path string true "Calendar UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ContentCalendarDTO} "Calendar"
// @Failure 404 {object} dto.APIResponse "Calendar not found"
// @Router /api/v1/tenants/{tenant_uuid}/calendars/{uuid} [get]
func (h *AIHandler) GetCalendar(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	calendar, err := h.contentFlow.GetCalendar(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/calendars/:uuid"), c.Params("tenant_uuid"), c.Params("uuid"), userID)
	if err != nil {
		if businessflow.IsCalendarNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Calendar not found", "CALENDAR_NOT_FOUND", nil)
		}
		return h.aiFlowError(c, err, "Calendar lookup failed", "CALENDAR_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Calendar retrieved", calendar)
}

// GenerateContent writes the copy and platform variants for a calendar topic
// @Summary Generate Content
// @Description Generate a content item with per-platform variants for a calendar topic
// @Tags AI
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param request body dto.GenerateContentRequest true "Content parameters"
// @Success 200 {object} dto.APIResponse{data=dto.GenerateContentResponse} "Content generated"
// @Failure 404 {object} dto.APIResponse "Calendar not found"
// @Failure 409 {object} dto.APIResponse "Topic already generated"
// @Failure 500 {object} dto.APIResponse "AI provider unavailable"
// @Router /api/v1/tenants/{tenant_uuid}/ai/generate-content [post]
func (h *AIHandler) GenerateContent(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.GenerateContentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.contentFlow.GenerateContentItem(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/ai/generate-content"), c.Params("tenant_uuid"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsCalendarNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Calendar not found", "CALENDAR_NOT_FOUND", nil)
		}
		if businessflow.IsDuplicateContentTopic(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Content for this topic already exists", "DUPLICATE_TOPIC", nil)
		}
		if businessflow.IsInvalidPlatform(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported platform", "INVALID_PLATFORM", nil)
		}
		return h.aiFlowError(c, err, "Content generation failed", "CONTENT_GENERATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Content generated", result)
}

// GenerateImage renders and stores the visual for a content item
// @Summary Generate Image
// @Description Generate, normalize and store the image for a content item
// @Tags AI
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param request body dto.GenerateImageRequest true "Image parameters"
// @Success 200 {object} dto.APIResponse{data=dto.GenerateImageResponse} "Image generated"
// @Failure 404 {object} dto.APIResponse "Content item not found"
// @Failure 500 {object} dto.APIResponse "AI provider unavailable"
// @Router /api/v1/tenants/{tenant_uuid}/ai/generate-image [post]
func (h *AIHandler) GenerateImage(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.GenerateImageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.imageFlow.GenerateImage(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/ai/generate-image"), c.Params("tenant_uuid"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsContentItemNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Content item not found", "CONTENT_ITEM_NOT_FOUND", nil)
		}
		if businessflow.IsItemHasNoImagePending(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Content item is not awaiting an image", "ITEM_NOT_AWAITING_IMAGE", nil)
		}
		return h.aiFlowError(c, err, "Image generation failed", "IMAGE_GENERATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Image generated", result)
}

// AnalyzeCampaign reviews a campaign window and stores the findings
// @Summary Analyze Campaign
// @Description Aggregate a campaign window and produce AI insights
// @Tags AI
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param request body dto.AnalyzeCampaignRequest true "Analysis parameters"
// @Success 200 {object} dto.APIResponse{data=dto.AnalyzeCampaignResponse} "Campaign analyzed"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 422 {object} dto.APIResponse "No metrics in window"
// @Failure 500 {object} dto.APIResponse "AI provider unavailable"
// @Router /api/v1/tenants/{tenant_uuid}/ai/analyze-campaign [post]
func (h *AIHandler) AnalyzeCampaign(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.AnalyzeCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.AnalyzeCampaign(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/ai/analyze-campaign"), c.Params("tenant_uuid"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsNoMetricsInWindow(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "No metrics in the requested window", "NO_METRICS_IN_WINDOW", nil)
		}
		if businessflow.IsInvalidDateRange(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", nil)
		}
		return h.aiFlowError(c, err, "Campaign analysis failed", "CAMPAIGN_ANALYSIS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign analyzed", result)
}

// aiFlowError maps the shared AI flow failures onto HTTP responses
func (h *AIHandler) aiFlowError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsNotTenantMember(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this tenant", "NOT_TENANT_MEMBER", nil)
	}
	if businessflow.IsTenantNotFound(err) || businessflow.IsTenantInactive(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
	}
	if businessflow.IsProviderTimeout(err) {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "AI provider timed out", "PROVIDER_TIMEOUT", nil)
	}
	if businessflow.IsProviderUnavailable(err) {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "AI provider unavailable", "PROVIDER_UNAVAILABLE", nil)
	}
	if businessflow.IsUnparsableAIOutput(err) {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "AI response could not be parsed", "UNPARSABLE_AI_OUTPUT", nil)
	}

	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *AIHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), aiRequestTimeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
