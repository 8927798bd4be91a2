package businessflow

import (
	"bytes"
	"context"
	"testing"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	testingutil "github.com/casaflow/casaflow/testing"
	"github.com/casaflow/casaflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newLeadFlow(testDB *testingutil.TestDB, captcha services.CaptchaService) LeadFlow {
	return NewLeadFlow(
		repository.NewLeadRepository(testDB.DB),
		repository.NewLeadInteractionRepository(testDB.DB),
		repository.NewLeadFollowUpRepository(testDB.DB),
		repository.NewTenantRepository(testDB.DB),
		repository.NewTenantMemberRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		captcha,
		testDB.DB,
	)
}

func TestCaptureLead(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := NewClientMetadata("203.0.113.7", "Mozilla/5.0")

		t.Run("Success", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			resp, err := flow.CaptureLead(ctx, &dto.CaptureLeadRequest{
				TenantSlug: tenant.Slug,
				FullName:   "  Carlos Prospect  ",
				Email:      "prospect@example.com",
				Message:    "Looking for a 3-bedroom near the park.",
			}, meta)
			require.NoError(t, err)

			assert.Equal(t, "Carlos Prospect", resp.FullName)
			assert.Equal(t, models.LeadStatusNew.String(), resp.Status)
			assert.Equal(t, "website", resp.Source)

			// The form message becomes the first inbound interaction
			var interactions []models.LeadInteraction
			require.NoError(t, testDB.DB.Where("lead_id = ?", resp.ID).Find(&interactions).Error)
			require.Len(t, interactions, 1)
			assert.Equal(t, models.InteractionChannelNote, interactions[0].Channel)
			assert.Equal(t, models.InteractionDirectionInbound, interactions[0].Direction)
			assert.Contains(t, interactions[0].Content, "3-bedroom")
		})

		t.Run("AuditRowCarriesRequestID", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			reqCtx := context.WithValue(ctx, utils.RequestIDKey, "req-7f3a9b2c")
			_, err = flow.CaptureLead(reqCtx, &dto.CaptureLeadRequest{
				TenantSlug: tenant.Slug,
				FullName:   "Carlos Prospect",
				Email:      "prospect@example.com",
			}, meta)
			require.NoError(t, err)

			var audit models.AuditLog
			require.NoError(t, testDB.DB.Where("tenant_id = ? AND action = ?", tenant.ID, models.AuditActionLeadCaptured).First(&audit).Error)
			require.NotNil(t, audit.RequestID)
			assert.Equal(t, "req-7f3a9b2c", *audit.RequestID)
		})

		t.Run("CaptchaRejected", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(false))

			_, err = flow.CaptureLead(ctx, &dto.CaptureLeadRequest{
				TenantSlug: tenant.Slug,
				FullName:   "Carlos Prospect",
				Email:      "prospect@example.com",
			}, meta)
			require.Error(t, err)
			assert.True(t, IsCaptchaFailed(err))
		})

		t.Run("ContactRequired", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			_, err = flow.CaptureLead(ctx, &dto.CaptureLeadRequest{
				TenantSlug: tenant.Slug,
				FullName:   "Carlos Prospect",
				Email:      "   ",
				Phone:      "",
			}, meta)
			require.Error(t, err)
			assert.True(t, IsLeadContactRequired(err))
		})

		t.Run("UnknownTenant", func(t *testing.T) {
			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			_, err := flow.CaptureLead(ctx, &dto.CaptureLeadRequest{
				TenantSlug: "no-such-agency",
				FullName:   "Carlos Prospect",
				Email:      "prospect@example.com",
			}, meta)
			require.Error(t, err)
			assert.True(t, IsTenantNotFound(err))
		})

		t.Run("InactiveTenant", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(tenant).Update("is_active", false).Error)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			_, err = flow.CaptureLead(ctx, &dto.CaptureLeadRequest{
				TenantSlug: tenant.Slug,
				FullName:   "Carlos Prospect",
				Email:      "prospect@example.com",
			}, meta)
			require.Error(t, err)
			assert.True(t, IsTenantInactive(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLeadManagement(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ListLeadsPagedAndFiltered", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			for i := 0; i < 5; i++ {
				_, err := fixtures.CreateTestLead(tenant)
				require.NoError(t, err)
			}
			qualified, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(qualified).Update("status", models.LeadStatusQualified).Error)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			page, err := flow.ListLeads(ctx, tenant.UUID.String(), user.ID, &dto.ListLeadsRequest{Page: 1, PageSize: 4})
			require.NoError(t, err)
			assert.Len(t, page.Leads, 4)
			assert.Equal(t, int64(6), page.Pagination.Total)

			filtered, err := flow.ListLeads(ctx, tenant.UUID.String(), user.ID, &dto.ListLeadsRequest{Status: "qualified"})
			require.NoError(t, err)
			require.Len(t, filtered.Leads, 1)
			assert.Equal(t, qualified.UUID.String(), filtered.Leads[0].UUID)
		})

		t.Run("GetLeadWithHistory", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)
			_, err = fixtures.CreateTestInteraction(lead, models.InteractionChannelEmail, "Sent the brochure")
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			leadDTO, interactions, followUps, err := flow.GetLead(ctx, tenant.UUID.String(), lead.UUID.String(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, lead.UUID.String(), leadDTO.UUID)
			require.Len(t, interactions, 1)
			assert.Equal(t, "Sent the brochure", interactions[0].Content)
			assert.Empty(t, followUps)
		})

		t.Run("AddInteraction", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			out, err := flow.AddInteraction(ctx, tenant.UUID.String(), lead.UUID.String(), user.ID, &dto.AddInteractionRequest{
				Channel:   models.InteractionChannelPhone,
				Direction: models.InteractionDirectionOutbound,
				Content:   "Called, scheduled a visit for Saturday",
			})
			require.NoError(t, err)
			assert.Equal(t, models.InteractionChannelPhone, out.Channel)
			assert.Equal(t, models.InteractionDirectionOutbound, out.Direction)
		})

		t.Run("UpdateLeadStatus", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			out, err := flow.UpdateLeadStatus(ctx, tenant.UUID.String(), lead.UUID.String(), user.ID, &dto.UpdateLeadStatusRequest{Status: "contacted"})
			require.NoError(t, err)
			assert.Equal(t, "contacted", out.Status)

			var stored models.Lead
			require.NoError(t, testDB.DB.First(&stored, lead.ID).Error)
			assert.Equal(t, models.LeadStatusContacted, stored.Status)
		})

		t.Run("NonMemberRejected", func(t *testing.T) {
			tenant, _, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			outsider, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			_, err = flow.ListLeads(ctx, tenant.UUID.String(), outsider.ID, &dto.ListLeadsRequest{})
			require.Error(t, err)
			assert.True(t, IsNotTenantMember(err))
		})

		t.Run("ExportLeadsXLSX", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)

			flow := newLeadFlow(testDB, services.NewMockCaptchaService(true))

			data, err := flow.ExportLeadsXLSX(ctx, tenant.UUID.String(), user.ID)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			book, err := excelize.OpenReader(bytes.NewReader(data))
			require.NoError(t, err)
			defer book.Close()

			rows, err := book.GetRows(book.GetSheetName(0))
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(rows), 2)
			assert.Contains(t, rows[1], lead.FullName)
		})

		return nil
	})
	require.NoError(t, err)
}
