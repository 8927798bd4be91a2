package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casaflow/casaflow/app/dto"
	businessflow "github.com/casaflow/casaflow/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQualificationFlow struct {
	err error
}

func (s *stubQualificationFlow) QualifyLead(ctx context.Context, tenantUUID string, userID uint, request *dto.QualifyLeadRequest, metadata *businessflow.ClientMetadata) (*dto.QualifyLeadResponse, error) {
	return nil, s.err
}

type stubContentFlow struct {
	calendarErr error
}

func (s *stubContentFlow) GenerateCalendar(ctx context.Context, tenantUUID string, userID uint, request *dto.GenerateCalendarRequest, metadata *businessflow.ClientMetadata) (*dto.ContentCalendarDTO, error) {
	return nil, s.calendarErr
}

func (s *stubContentFlow) GetCalendar(ctx context.Context, tenantUUID, calendarUUID string, userID uint) (*dto.ContentCalendarDTO, error) {
	return nil, s.calendarErr
}

func (s *stubContentFlow) GenerateContentItem(ctx context.Context, tenantUUID string, userID uint, request *dto.GenerateContentRequest, metadata *businessflow.ClientMetadata) (*dto.GenerateContentResponse, error) {
	return nil, s.calendarErr
}

func newAITestApp(qual businessflow.LeadQualificationFlow, content businessflow.ContentFlow) *fiber.App {
	h := NewAIHandler(qual, content, nil, nil)

	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		return c.Next()
	})
	app.Post("/api/v1/tenants/:tenant_uuid/ai/qualify-lead", h.QualifyLead)
	app.Post("/api/v1/tenants/:tenant_uuid/ai/generate-calendar", h.GenerateCalendar)
	return app
}

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, errorEnvelope) {
	t.Helper()

	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out errorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestAIHandlerErrorMapping(t *testing.T) {
	const tenantPath = "/api/v1/tenants/550e8400-e29b-41d4-a716-446655440000/ai"
	qualifyBody := `{"lead_uuid":"550e8400-e29b-41d4-a716-446655440003"}`

	t.Run("ProviderTimeoutIsServerError", func(t *testing.T) {
		flow := &stubQualificationFlow{err: businessflow.NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", businessflow.ErrProviderTimeout)}
		app := newAITestApp(flow, &stubContentFlow{})

		status, out := postJSON(t, app, tenantPath+"/qualify-lead", qualifyBody)
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, "PROVIDER_TIMEOUT", out.Error.Code)
	})

	t.Run("ProviderUnavailableIsServerError", func(t *testing.T) {
		flow := &stubQualificationFlow{err: businessflow.NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", businessflow.ErrProviderUnavailable)}
		app := newAITestApp(flow, &stubContentFlow{})

		status, out := postJSON(t, app, tenantPath+"/qualify-lead", qualifyBody)
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, "PROVIDER_UNAVAILABLE", out.Error.Code)
	})

	t.Run("UnparsableOutputIsServerError", func(t *testing.T) {
		flow := &stubQualificationFlow{err: businessflow.NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", businessflow.ErrUnparsableAIOutput)}
		app := newAITestApp(flow, &stubContentFlow{})

		status, out := postJSON(t, app, tenantPath+"/qualify-lead", qualifyBody)
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, "UNPARSABLE_AI_OUTPUT", out.Error.Code)
	})

	t.Run("OccupiedCalendarSlotIsBadRequest", func(t *testing.T) {
		content := &stubContentFlow{calendarErr: businessflow.NewBusinessError("CALENDAR_GENERATION_FAILED", "Calendar generation failed", businessflow.ErrCalendarSlotOccupied)}
		app := newAITestApp(&stubQualificationFlow{}, content)

		status, out := postJSON(t, app, tenantPath+"/generate-calendar", `{"month":3,"year":2026}`)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "CALENDAR_SLOT_OCCUPIED", out.Error.Code)
	})

	t.Run("NonMemberIsForbidden", func(t *testing.T) {
		flow := &stubQualificationFlow{err: businessflow.NewBusinessError("LEAD_QUALIFICATION_FAILED", "Lead qualification failed", businessflow.ErrNotTenantMember)}
		app := newAITestApp(flow, &stubContentFlow{})

		status, out := postJSON(t, app, tenantPath+"/qualify-lead", qualifyBody)
		assert.Equal(t, fiber.StatusForbidden, status)
		assert.Equal(t, "NOT_TENANT_MEMBER", out.Error.Code)
	})
}
