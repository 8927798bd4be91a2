package businessflow

import (
	"testing"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	testingutil "github.com/casaflow/casaflow/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const campaignDiagnosis = `{
	"summary": "CTR is healthy but conversions lag the meta benchmark.",
	"recommendations": ["tighten the audience to in-market buyers", "test a lead form instead of the landing page"],
	"issues": [
		{"severity": "high", "issue": "Landing page drop-off", "estimated_impact": "roughly 12 lost leads per month", "benchmark_comparison": "conversion rate 40% below channel median"},
		{"severity": "URGENT", "issue": "Creative fatigue on the top ad set", "estimated_impact": "", "benchmark_comparison": ""}
	]
}`

func newCampaignFlow(testDB *testingutil.TestDB, llm services.LLMService) CampaignFlow {
	return NewCampaignFlow(
		repository.NewAdsCampaignRepository(testDB.DB),
		repository.NewAdsMetricRepository(testDB.DB),
		repository.NewAdsInsightRepository(testDB.DB),
		repository.NewAIRequestRepository(testDB.DB),
		repository.NewTenantRepository(testDB.DB),
		repository.NewTenantMemberRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		llm,
		nil,
		testDB.DB,
	)
}

func TestCampaignFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("CreateCampaign", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)

			flow := newCampaignFlow(testDB, services.NewMockLLMService())

			resp, err := flow.CreateCampaign(ctx, tenant.UUID.String(), user.ID, &dto.CreateCampaignRequest{
				Name:       "  March listings - Meta  ",
				Channel:    "meta",
				ExternalID: "23849201837465",
			}, meta)
			require.NoError(t, err)
			assert.Equal(t, "March listings - Meta", resp.Name)
			assert.Equal(t, "meta", resp.Channel)
			assert.Equal(t, "23849201837465", resp.ExternalID)
			assert.NotEmpty(t, resp.UUID)
		})

		t.Run("IngestMetricsSkipsDuplicateDays", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(tenant, "meta")
			require.NoError(t, err)

			flow := newCampaignFlow(testDB, services.NewMockLLMService())

			req := &dto.IngestMetricsRequest{Metrics: []dto.MetricRow{
				{Date: "2026-03-01", Impressions: 4200, Clicks: 96, Conversions: 2, SpendUSD: 31.50, RevenueUSD: 180},
				{Date: "2026-03-02", Impressions: 3900, Clicks: 81, Conversions: 1, SpendUSD: 29.10, RevenueUSD: 90},
				{Date: "2026-03-01", Impressions: 9999, Clicks: 999, Conversions: 99, SpendUSD: 999, RevenueUSD: 9999},
			}}
			resp, err := flow.IngestMetrics(ctx, tenant.UUID.String(), campaign.UUID.String(), user.ID, req, meta)
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Accepted)
			assert.Equal(t, 1, resp.Skipped)

			// A replayed batch is entirely skipped, first write wins
			resp, err = flow.IngestMetrics(ctx, tenant.UUID.String(), campaign.UUID.String(), user.ID, req, meta)
			require.NoError(t, err)
			assert.Equal(t, 0, resp.Accepted)
			assert.Equal(t, 3, resp.Skipped)

			var stored models.AdsMetric
			require.NoError(t, testDB.DB.Where("campaign_id = ? AND date = ?", campaign.ID, "2026-03-01").First(&stored).Error)
			assert.Equal(t, int64(4200), stored.Impressions)
		})

		t.Run("BadDateRejected", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(tenant, "google")
			require.NoError(t, err)

			flow := newCampaignFlow(testDB, services.NewMockLLMService())

			_, err = flow.IngestMetrics(ctx, tenant.UUID.String(), campaign.UUID.String(), user.ID, &dto.IngestMetricsRequest{
				Metrics: []dto.MetricRow{{Date: "03/01/2026", Impressions: 100}},
			}, meta)
			require.Error(t, err)
		})

		t.Run("AnalyzeCampaign", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(tenant, "meta")
			require.NoError(t, err)

			day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			day2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
			_, err = fixtures.CreateTestMetric(campaign, day1, 60000, 1200, 18, 425.20, 2700)
			require.NoError(t, err)
			_, err = fixtures.CreateTestMetric(campaign, day2, 60000, 1200, 18, 425.20, 2700)
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse(campaignDiagnosis, 680, 420)
			flow := newCampaignFlow(testDB, llm)

			from := day1
			to := day2
			resp, err := flow.AnalyzeCampaign(ctx, tenant.UUID.String(), user.ID, &dto.AnalyzeCampaignRequest{
				CampaignUUID: campaign.UUID.String(),
				From:         &from,
				To:           &to,
			}, meta)
			require.NoError(t, err)

			assert.Equal(t, int64(120000), resp.Totals.Impressions)
			assert.Equal(t, int64(2400), resp.Totals.Clicks)
			assert.Equal(t, int64(36), resp.Totals.Conversions)
			assert.InDelta(t, 850.40, resp.Totals.SpendUSD, 1e-9)
			assert.InDelta(t, 0.02, resp.Totals.CTR, 1e-9)
			assert.InDelta(t, 850.40/36, resp.Totals.CPA, 1e-9)
			assert.InDelta(t, 5400.0/850.40, resp.Totals.ROAS, 1e-9)

			assert.Contains(t, resp.Summary, "conversions lag")
			assert.Len(t, resp.Recommendations, 2)

			// Unknown severities are normalized to medium
			require.Len(t, resp.Insights, 2)
			assert.Equal(t, models.InsightSeverityHigh.String(), resp.Insights[0].Severity)
			assert.Equal(t, models.InsightSeverityMedium.String(), resp.Insights[1].Severity)

			var stored models.AdsCampaign
			require.NoError(t, testDB.DB.First(&stored, campaign.ID).Error)
			require.NotNil(t, stored.AIAnalysis)
			assert.Contains(t, stored.AIAnalysis.Summary, "conversions lag")
			assert.NotNil(t, stored.LastAnalyzedAt)
			require.NotNil(t, stored.AIRequestID)
			assert.Equal(t, resp.AIRequestID, *stored.AIRequestID)

			var row models.AIRequest
			require.NoError(t, testDB.DB.First(&row, resp.AIRequestID).Error)
			assert.Equal(t, models.AIRequestTypeCampaignAnalysis, row.RequestType)
			assert.Equal(t, models.AIRequestStatusSuccess, row.Status)
		})

		t.Run("EmptyWindowRejected", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(tenant, "tiktok")
			require.NoError(t, err)

			llm := services.NewMockLLMService()
			flow := newCampaignFlow(testDB, llm)

			_, err = flow.AnalyzeCampaign(ctx, tenant.UUID.String(), user.ID, &dto.AnalyzeCampaignRequest{
				CampaignUUID: campaign.UUID.String(),
			}, meta)
			require.Error(t, err)
			assert.True(t, IsNoMetricsInWindow(err))
			assert.Empty(t, llm.Calls)
		})

		t.Run("InvertedWindowRejected", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(tenant, "meta")
			require.NoError(t, err)

			from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
			to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

			flow := newCampaignFlow(testDB, services.NewMockLLMService())

			_, err = flow.AnalyzeCampaign(ctx, tenant.UUID.String(), user.ID, &dto.AnalyzeCampaignRequest{
				CampaignUUID: campaign.UUID.String(),
				From:         &from,
				To:           &to,
			}, meta)
			require.Error(t, err)
			assert.True(t, IsInvalidDateRange(err))
		})

		t.Run("CampaignFromOtherTenantHidden", func(t *testing.T) {
			tenantA, userA, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			tenantB, _, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			foreignCampaign, err := fixtures.CreateTestCampaign(tenantB, "meta")
			require.NoError(t, err)

			flow := newCampaignFlow(testDB, services.NewMockLLMService())

			_, err = flow.AnalyzeCampaign(ctx, tenantA.UUID.String(), userA.ID, &dto.AnalyzeCampaignRequest{
				CampaignUUID: foreignCampaign.UUID.String(),
			}, meta)
			require.Error(t, err)
			assert.True(t, IsCampaignNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
