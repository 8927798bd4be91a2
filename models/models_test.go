package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdsMetricTotals(t *testing.T) {
	t.Run("DerivedMetrics", func(t *testing.T) {
		totals := AdsMetricTotals{
			Impressions: 120000,
			Clicks:      2400,
			Conversions: 36,
			SpendUSD:    850.40,
			RevenueUSD:  5400.00,
		}

		assert.InDelta(t, 0.02, totals.CTR(), 1e-9)
		assert.InDelta(t, 850.40/36.0, totals.CPA(), 1e-9)
		assert.InDelta(t, 5400.00/850.40, totals.ROAS(), 1e-9)
	})

	t.Run("ZeroGuards", func(t *testing.T) {
		totals := AdsMetricTotals{}
		assert.Equal(t, 0.0, totals.CTR())
		assert.Equal(t, 0.0, totals.CPA())
		assert.Equal(t, 0.0, totals.ROAS())
	})
}

func TestLeadStatus(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.True(t, LeadStatusNew.Valid())
		assert.True(t, LeadStatusContacted.Valid())
		assert.True(t, LeadStatusQualified.Valid())
		assert.True(t, LeadStatusLost.Valid())
		assert.False(t, LeadStatus("deleted").Valid())
	})

	t.Run("ScanAndValue", func(t *testing.T) {
		var status LeadStatus
		require.NoError(t, status.Scan("qualified"))
		assert.Equal(t, LeadStatusQualified, status)

		require.NoError(t, status.Scan([]byte("lost")))
		assert.Equal(t, LeadStatusLost, status)

		value, err := LeadStatusNew.Value()
		require.NoError(t, err)
		assert.Equal(t, "new", value)

		_, err = LeadStatus("bogus").Value()
		require.Error(t, err)
	})
}

func TestAIRequestStatus(t *testing.T) {
	assert.True(t, AIRequestStatusSuccess.Valid())
	assert.True(t, AIRequestStatusError.Valid())
	assert.True(t, AIRequestStatusTimeout.Valid())
	assert.False(t, AIRequestStatus("pending").Valid())

	var status AIRequestStatus
	require.NoError(t, status.Scan("timeout"))
	assert.Equal(t, AIRequestStatusTimeout, status)
}

func TestInsightSeverity(t *testing.T) {
	assert.True(t, InsightSeverityCritical.Valid())
	assert.True(t, InsightSeverityLow.Valid())
	assert.False(t, InsightSeverity("urgent").Valid())
}

func TestValidPlatform(t *testing.T) {
	assert.True(t, ValidPlatform(PlatformInstagramFeed))
	assert.True(t, ValidPlatform(PlatformTikTok))
	assert.False(t, ValidPlatform("myspace"))
	assert.False(t, ValidPlatform(""))
}

func TestCalendarStatusTransitions(t *testing.T) {
	assert.True(t, CalendarStatusDraft.Valid())
	assert.True(t, CalendarStatusAIGenerated.Valid())
	assert.True(t, CalendarStatusApproved.Valid())
	assert.False(t, CalendarStatus("archived").Valid())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "tenants", Tenant{}.TableName())
	assert.Equal(t, "leads", Lead{}.TableName())
	assert.Equal(t, "ai_requests", AIRequest{}.TableName())
	assert.Equal(t, "content_calendars", ContentCalendar{}.TableName())
	assert.Equal(t, "ads_campaigns", AdsCampaign{}.TableName())
	assert.Equal(t, "audit_log", AuditLog{}.TableName())
}
