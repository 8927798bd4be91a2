package businessflow

import (
	"testing"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	testingutil "github.com/casaflow/casaflow/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const qualificationVerdict = `{
	"score": 82,
	"priority": "high",
	"summary": "Concrete budget and a specific unit in mind.",
	"strengths": ["named a listing", "stated budget"],
	"concerns": ["financing not confirmed"],
	"next_action": {"action": "Call to schedule a viewing", "deadline_hours": 24},
	"follow_ups": [
		{"channel": "phone", "in_hours": 4, "rationale": "strike while interest is fresh", "confidence": 0.9},
		{"channel": "email", "in_hours": 48, "rationale": "send comparable listings", "confidence": 0.6}
	]
}`

func newQualificationFlow(testDB *testingutil.TestDB, llm services.LLMService) LeadQualificationFlow {
	return NewLeadQualificationFlow(
		repository.NewLeadRepository(testDB.DB),
		repository.NewLeadInteractionRepository(testDB.DB),
		repository.NewLeadFollowUpRepository(testDB.DB),
		repository.NewAIRequestRepository(testDB.DB),
		repository.NewTenantRepository(testDB.DB),
		repository.NewTenantMemberRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		llm,
		testDB.DB,
	)
}

func TestQualifyLead(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("SuccessfulVerdict", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)
			_, err = fixtures.CreateTestInteraction(lead, models.InteractionChannelWhatsApp, "Can I visit this weekend?")
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse(qualificationVerdict, 310, 120)
			flow := newQualificationFlow(testDB, llm)

			resp, err := flow.QualifyLead(ctx, tenant.UUID.String(), user.ID, &dto.QualifyLeadRequest{LeadUUID: lead.UUID.String()}, meta)
			require.NoError(t, err)
			assert.False(t, resp.Fallback)
			assert.NotZero(t, resp.AIRequestID)

			require.NotNil(t, resp.Lead.AIScore)
			assert.Equal(t, 82, *resp.Lead.AIScore)
			assert.Equal(t, "high", resp.Lead.AIPriority)
			assert.Len(t, resp.FollowUps, 2)
			assert.Equal(t, models.InteractionChannelPhone, resp.FollowUps[0].Channel)

			// Exactly one ledger row, marked success with usage accounting
			assert.Equal(t, int64(1), countLedgerRows(t, testDB, tenant.ID))

			var row models.AIRequest
			require.NoError(t, testDB.DB.Where("tenant_id = ?", tenant.ID).First(&row).Error)
			assert.Equal(t, models.AIRequestStatusSuccess, row.Status)
			assert.Equal(t, models.AIRequestTypeLeadQualification, row.RequestType)
			assert.Equal(t, 310, row.TokensIn)
			assert.Equal(t, 120, row.TokensOut)
			assert.InDelta(t, services.CostUSD(llm.Model(), 310, 120), row.CostUSD, 1e-9)
			assert.InDelta(t, row.CostUSD, resp.CostUSD, 1e-9)
			assert.NotNil(t, row.ParsedResponse)

			// Prompt embeds the interaction history
			assert.Contains(t, row.Prompt, "Can I visit this weekend?")
		})

		t.Run("InteractionsExcludedOnRequest", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)
			_, err = fixtures.CreateTestInteraction(lead, models.InteractionChannelWhatsApp, "Can I visit this weekend?")
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse(qualificationVerdict, 310, 120)
			flow := newQualificationFlow(testDB, llm)

			exclude := false
			resp, err := flow.QualifyLead(ctx, tenant.UUID.String(), user.ID, &dto.QualifyLeadRequest{
				LeadUUID:            lead.UUID.String(),
				IncludeInteractions: &exclude,
			}, meta)
			require.NoError(t, err)
			assert.False(t, resp.Fallback)

			var row models.AIRequest
			require.NoError(t, testDB.DB.Where("tenant_id = ?", tenant.ID).First(&row).Error)
			assert.NotContains(t, row.Prompt, "Can I visit this weekend?")
			assert.Contains(t, row.Prompt, lead.FullName)
		})

		t.Run("UnparsableAnswerFallsBack", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse("I am sorry, I cannot assess this lead.", 200, 30)
			flow := newQualificationFlow(testDB, llm)

			resp, err := flow.QualifyLead(ctx, tenant.UUID.String(), user.ID, &dto.QualifyLeadRequest{LeadUUID: lead.UUID.String()}, meta)
			require.NoError(t, err)
			assert.True(t, resp.Fallback)

			require.NotNil(t, resp.Lead.AIScore)
			assert.Equal(t, 50, *resp.Lead.AIScore)
			assert.Equal(t, "medium", resp.Lead.AIPriority)
			assert.Empty(t, resp.FollowUps)

			// The provider call succeeded, so the ledger row is a success
			// with the raw text preserved and no parsed payload
			var row models.AIRequest
			require.NoError(t, testDB.DB.Where("tenant_id = ?", tenant.ID).First(&row).Error)
			assert.Equal(t, models.AIRequestStatusSuccess, row.Status)
			require.NotNil(t, row.RawResponse)
			assert.Contains(t, *row.RawResponse, "cannot assess")
			assert.Empty(t, row.ParsedResponse)
		})

		t.Run("ProviderTimeoutStillLedgered", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithError(&services.ProviderError{
				Provider: "claude",
				Message:  "request timed out",
				Timeout:  true,
			})
			flow := newQualificationFlow(testDB, llm)

			_, err = flow.QualifyLead(ctx, tenant.UUID.String(), user.ID, &dto.QualifyLeadRequest{LeadUUID: lead.UUID.String()}, meta)
			require.Error(t, err)
			assert.True(t, IsProviderTimeout(err))

			// Failed calls leave a ledger row too
			assert.Equal(t, int64(1), countLedgerRows(t, testDB, tenant.ID))

			var row models.AIRequest
			require.NoError(t, testDB.DB.Where("tenant_id = ?", tenant.ID).First(&row).Error)
			assert.Equal(t, models.AIRequestStatusTimeout, row.Status)
			require.NotNil(t, row.ErrorMessage)
			assert.Contains(t, *row.ErrorMessage, "timed out")

			// Lead stays untouched
			var stored models.Lead
			require.NoError(t, testDB.DB.First(&stored, lead.ID).Error)
			assert.Nil(t, stored.AIScore)
		})

		t.Run("SecondRunSupersedesFollowUps", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)

			llm := services.NewMockLLMService().
				WithResponse(qualificationVerdict, 310, 120).
				WithResponse(qualificationVerdict, 305, 118)
			flow := newQualificationFlow(testDB, llm)

			req := &dto.QualifyLeadRequest{LeadUUID: lead.UUID.String()}
			_, err = flow.QualifyLead(ctx, tenant.UUID.String(), user.ID, req, meta)
			require.NoError(t, err)
			resp, err := flow.QualifyLead(ctx, tenant.UUID.String(), user.ID, req, meta)
			require.NoError(t, err)

			assert.Len(t, resp.FollowUps, 2)
			assert.Equal(t, int64(2), countLedgerRows(t, testDB, tenant.ID))

			// Earlier follow-ups are skipped, never deleted
			var all []models.LeadFollowUp
			require.NoError(t, testDB.DB.Where("lead_id = ?", lead.ID).Order("id").Find(&all).Error)
			require.Len(t, all, 4)
			assert.Equal(t, models.FollowUpStatusSkipped, all[0].Status)
			assert.Equal(t, models.FollowUpStatusSkipped, all[1].Status)
			assert.Equal(t, models.FollowUpStatusPending, all[2].Status)
			assert.Equal(t, models.FollowUpStatusPending, all[3].Status)
		})

		t.Run("NonMemberRejected", func(t *testing.T) {
			tenant, _, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(tenant)
			require.NoError(t, err)
			outsider, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			flow := newQualificationFlow(testDB, services.NewMockLLMService())

			_, err = flow.QualifyLead(ctx, tenant.UUID.String(), outsider.ID, &dto.QualifyLeadRequest{LeadUUID: lead.UUID.String()}, meta)
			require.Error(t, err)
			assert.True(t, IsNotTenantMember(err))
			assert.Equal(t, int64(0), countLedgerRows(t, testDB, tenant.ID))
		})

		t.Run("LeadFromOtherTenantHidden", func(t *testing.T) {
			tenantA, userA, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			tenantB, _, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			foreignLead, err := fixtures.CreateTestLead(tenantB)
			require.NoError(t, err)

			flow := newQualificationFlow(testDB, services.NewMockLLMService())

			_, err = flow.QualifyLead(ctx, tenantA.UUID.String(), userA.ID, &dto.QualifyLeadRequest{LeadUUID: foreignLead.UUID.String()}, meta)
			require.Error(t, err)
			assert.True(t, IsLeadNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
