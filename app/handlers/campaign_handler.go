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

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	IngestMetrics(c fiber.Ctx) error
}

// CampaignHandler handles campaign registration and metric ingestion
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCampaign registers an ads campaign for the tenant
// @Summary Create Campaign
// @Description Register an ads campaign so its metrics can be ingested and analyzed
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param request body dto.CreateCampaignRequest true "Campaign data"
// @Success 201 {object} dto.APIResponse{data=dto.AdsCampaignDTO} "Campaign created"
// @Failure 403 {object} dto.APIResponse "Not a tenant member"
// @Router /api/v1/tenants/{tenant_uuid}/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	campaign, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/campaigns"), c.Params("tenant_uuid"), userID, &req, metadata)
	if err != nil {
		return h.campaignFlowError(c, err, "Campaign creation failed", "CAMPAIGN_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created", campaign)
}

// IngestMetrics stores a batch of daily snapshots for a campaign
// @Summary Ingest Metrics
// @Description Store daily metric snapshots for a campaign; duplicate days are skipped
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param tenant_uuid path string true "Tenant UUID"
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.IngestMetricsRequest true "Daily snapshots"
// @Success 200 {object} dto.APIResponse{data=dto.IngestMetricsResponse} "Metrics ingested"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/tenants/{tenant_uuid}/campaigns/{uuid}/metrics [post]
func (h *CampaignHandler) IngestMetrics(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.IngestMetricsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.IngestMetrics(h.createRequestContext(c, "/api/v1/tenants/:tenant_uuid/campaigns/:uuid/metrics"), c.Params("tenant_uuid"), c.Params("uuid"), userID, &req, metadata)
	if err != nil {
		return h.campaignFlowError(c, err, "Metrics ingest failed", "METRICS_INGEST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Metrics ingested", result)
}

// campaignFlowError maps campaign flow failures onto HTTP responses
func (h *CampaignHandler) campaignFlowError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsNotTenantMember(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this tenant", "NOT_TENANT_MEMBER", nil)
	}
	if businessflow.IsTenantNotFound(err) || businessflow.IsTenantInactive(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
	}
	if businessflow.IsCampaignNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}

	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CampaignHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
