package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/middleware"
	"github.com/casaflow/casaflow/app/services"
	businessflow "github.com/casaflow/casaflow/business_flow"
	"github.com/casaflow/casaflow/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// LeadHandlerInterface defines the contract for lead handlers
type LeadHandlerInterface interface {
	Captcha(c fiber.Ctx) error
	CaptureLead(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	GetLead(c fiber.Ctx) error
	AddInteraction(c fiber.Ctx) error
	UpdateLeadStatus(c fiber.Ctx) error
	ExportLeads(c fiber.Ctx) error
}

// LeadHandler handles lead capture and backoffice lead management
type LeadHandler struct {
	leadFlow  businessflow.LeadFlow
	captcha   services.CaptchaService
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadFlow businessflow.LeadFlow, captcha services.CaptchaService) *LeadHandler {
	return &LeadHandler{
		leadFlow:  leadFlow,
		captcha:   captcha,
		validator: validator.New(),
	}
}

func (h *LeadHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LeadHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Captcha issues a rotate captcha challenge for the public capture form
// @Summary Captcha Challenge
// @Description Generate a rotate captcha challenge for the lead-capture form
// @Tags Public
// @Produce json
// @Success 200 {object} dto.APIResponse "Challenge generated"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/public/captcha [get]
func (h *LeadHandler) Captcha(c fiber.Ctx) error {
	challenge, err := h.captcha.GenerateRotate(h.createRequestContext(c, "/api/v1/public/captcha"))
	if err != nil {
		log.Println("Captcha generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Captcha generation failed", "CAPTCHA_GENERATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Captcha generated", fiber.Map{
		"captcha_id":   challenge.ID,
		"master_image": challenge.MasterImageBase64,
		"thumb_image":  challenge.ThumbImageBase64,
	})
}

// CaptureLead handles public lead-capture form submissions
// @Summary Capture Lead
// @Description Store a new lead submitted through the public capture form
// @Tags Public
// @Accept json
// @Produce json
// @Param request body dto.CaptureLeadRequest true "Lead form data"
// @Success 201 {object} dto.APIResponse{data=dto.LeadDTO} "Lead captured"
// @Failure 400 {object} dto.APIResponse "Validation or captcha error"
// @Failure 404 {object} dto.APIResponse "Tenant not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/public/leads [post]
func (h *LeadHandler) CaptureLead(c fiber.Ctx) error {
	var req dto.CaptureLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	lead, err := h.leadFlow.CaptureLead(h.createRequestContext(c, "/api/v1/public/leads"), &req, metadata)
	if err != nil {
		if businessflow.IsCaptchaFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha verification failed", "CAPTCHA_FAILED", nil)
		}
		if businessflow.IsLeadContactRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Email or phone is required", "CONTACT_REQUIRED", nil)
		}
		if businessflow.IsTenantNotFound(err) || businessflow.IsTenantInactive(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}

		log.Println("Lead capture failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead capture failed", "LEAD_CAPTURE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Lead captured", lead)
}

// ListLeads returns the tenant's leads, paged and filterable
// @Summary List Leads
// @Description List the tenant's leads with optional status/source filters
// @Tags Leads
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param status query string false "Lead status filter"
// @Param source query string false "Lead source filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListLeadsResponse} "Leads retrieved"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 403 {object} dto.APIResponse "Not a tenant member"
// @Router /api/v1/tenants/{tenant_uuid}/leads [get]
func (h *LeadHandler) ListLeads(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.ListLeadsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.leadFlow.ListLeads(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/leads"), c.Params("tenant_uuid"), userID, &req)
	if err != nil {
		return h.leadFlowError(c, err, "Listing leads failed", "LIST_LEADS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Leads retrieved", result)
}

// GetLead returns one lead with its interactions and follow-ups
// @Summary Get Lead
// @Description Retrieve one lead with its interaction history and follow-ups
// @Tags Leads
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param uuid path string true "Lead UUID"
// @Success 200 {object} dto.APIResponse "Lead retrieved"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/tenants/{tenant_uuid}/leads/{uuid} [get]
func (h *LeadHandler) GetLead(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	lead, interactions, followUps, err := h.leadFlow.GetLead(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/leads/:uuid"), c.Params("tenant_uuid"), c.Params("uuid"), userID)
	if err != nil {
		return h.leadFlowError(c, err, "Lead lookup failed", "GET_LEAD_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved", fiber.Map{
		"lead":         lead,
		"interactions": interactions,
		"follow_ups":   followUps,
	})
}

// AddInteraction logs a touchpoint on a lead
// @Summary Add Interaction
// @Description Log an interaction (call, message, visit, note) on a lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param uuid path string true "Lead UUID"
// @Param request body dto.AddInteractionRequest true "Interaction data"
// @Success 201 {object} dto.APIResponse{data=dto.LeadInteractionDTO} "Interaction recorded"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/tenants/{tenant_uuid}/leads/{uuid}/interactions [post]
func (h *LeadHandler) AddInteraction(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.AddInteractionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	interaction, err := h.leadFlow.AddInteraction(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/leads/:uuid/interactions"), c.Params("tenant_uuid"), c.Params("uuid"), userID, &req)
	if err != nil {
		return h.leadFlowError(c, err, "Recording interaction failed", "ADD_INTERACTION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Interaction recorded", interaction)
}

// UpdateLeadStatus transitions a lead's status
// @Summary Update Lead Status
// @Description Manually transition a lead between statuses
// @Tags Leads
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param uuid path string true "Lead UUID"
// @Param request body dto.UpdateLeadStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO} "Status updated"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/tenants/{tenant_uuid}/leads/{uuid}/status [patch]
func (h *LeadHandler) UpdateLeadStatus(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.UpdateLeadStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	lead, err := h.leadFlow.UpdateLeadStatus(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/leads/:uuid/status"), c.Params("tenant_uuid"), c.Params("uuid"), userID, &req)
	if err != nil {
		return h.leadFlowError(c, err, "Status update failed", "UPDATE_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Status updated", lead)
}

// ExportLeads streams the tenant's leads as an XLSX workbook
// @Summary Export Leads
// @Description Download the tenant's leads as an XLSX workbook
// @Tags Leads
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param tenant_uuid path string true "Tenant UUID"
// @Success 200 {file} binary "XLSX workbook"
// @Failure 403 {object} dto.APIResponse "Not a tenant member"
// @Router /api/v1/tenants/{tenant_uuid}/leads/export [get]
func (h *LeadHandler) ExportLeads(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	data, err := h.leadFlow.ExportLeadsXLSX(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/leads/export"), c.Params("tenant_uuid"), userID)
	if err != nil {
		return h.leadFlowError(c, err, "Export failed", "EXPORT_FAILED")
	}

	filename := fmt.Sprintf("leads_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	return c.Send(data)
}

// leadFlowError maps lead flow failures onto HTTP responses
func (h *LeadHandler) leadFlowError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsNotTenantMember(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this tenant", "NOT_TENANT_MEMBER", nil)
	}
	if businessflow.IsTenantNotFound(err) || businessflow.IsTenantInactive(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
	}
	if businessflow.IsLeadNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
	}

	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *LeadHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
