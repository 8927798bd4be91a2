package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	"github.com/casaflow/casaflow/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	analysisMaxTokens   = 4096
	analysisTemperature = 0.3
	defaultAnalysisDays = 30
	maxCampaignInsights = 10
	analysisDateLayout  = "2006-01-02"
)

// channelBenchmark holds the reference figures a channel is judged against
type channelBenchmark struct {
	CTR  float64
	CPA  float64
	ROAS float64
}

// Static industry benchmarks per ads channel, real-estate vertical.
var channelBenchmarks = map[string]channelBenchmark{
	models.AdsChannelMeta:   {CTR: 0.0090, CPA: 25.0, ROAS: 3.0},
	models.AdsChannelGoogle: {CTR: 0.0350, CPA: 40.0, ROAS: 4.0},
	models.AdsChannelTikTok: {CTR: 0.0060, CPA: 30.0, ROAS: 2.0},
}

// CampaignFlow handles campaign registration, metric ingestion and analysis
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, tenantUUID string, userID uint, request *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.AdsCampaignDTO, error)
	IngestMetrics(ctx context.Context, tenantUUID, campaignUUID string, userID uint, request *dto.IngestMetricsRequest, metadata *ClientMetadata) (*dto.IngestMetricsResponse, error)
	AnalyzeCampaign(ctx context.Context, tenantUUID string, userID uint, request *dto.AnalyzeCampaignRequest, metadata *ClientMetadata) (*dto.AnalyzeCampaignResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.AdsCampaignRepository
	metricRepo   repository.AdsMetricRepository
	insightRepo  repository.AdsInsightRepository
	ledgerRepo   repository.AIRequestRepository
	tenantRepo   repository.TenantRepository
	memberRepo   repository.TenantMemberRepository
	auditRepo    repository.AuditLogRepository
	llm          services.LLMService
	rc           *redis.Client
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.AdsCampaignRepository,
	metricRepo repository.AdsMetricRepository,
	insightRepo repository.AdsInsightRepository,
	ledgerRepo repository.AIRequestRepository,
	tenantRepo repository.TenantRepository,
	memberRepo repository.TenantMemberRepository,
	auditRepo repository.AuditLogRepository,
	llm services.LLMService,
	rc *redis.Client,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		metricRepo:   metricRepo,
		insightRepo:  insightRepo,
		ledgerRepo:   ledgerRepo,
		tenantRepo:   tenantRepo,
		memberRepo:   memberRepo,
		auditRepo:    auditRepo,
		llm:          llm,
		rc:           rc,
		db:           db,
	}
}

// aiAnalysisPayload is the JSON shape the model returns for a campaign review
type aiAnalysisPayload struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Issues          []struct {
		Severity            string `json:"severity"`
		Issue               string `json:"issue"`
		EstimatedImpact     string `json:"estimated_impact"`
		BenchmarkComparison string `json:"benchmark_comparison"`
	} `json:"issues"`
}

// CreateCampaign registers an ads campaign for the tenant
func (cpf *CampaignFlowImpl) CreateCampaign(ctx context.Context, tenantUUID string, userID uint, request *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.AdsCampaignDTO, error) {
	tenant, _, err := requireMembership(ctx, cpf.tenantRepo, cpf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Campaign creation failed", err)
	}

	campaign := &models.AdsCampaign{
		TenantID: tenant.ID,
		Name:     strings.TrimSpace(request.Name),
		Channel:  request.Channel,
	}
	if extID := strings.TrimSpace(request.ExternalID); extID != "" {
		campaign.ExternalID = &extID
	}

	if err := cpf.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Campaign creation failed", err)
	}

	msg := fmt.Sprintf("Campaign created: %d (%s on %s)", campaign.ID, campaign.Name, campaign.Channel)
	_ = recordAudit(ctx, cpf.auditRepo, &userID, &tenant.ID, models.AuditActionCampaignCreated, msg, true, nil, metadata)

	out := ToAdsCampaignDTO(*campaign)
	return &out, nil
}

// IngestMetrics stores a batch of daily snapshots for a campaign. Days that
// already have a row are skipped rather than overwritten; the response counts
// both outcomes so an importer can reconcile.
func (cpf *CampaignFlowImpl) IngestMetrics(ctx context.Context, tenantUUID, campaignUUID string, userID uint, request *dto.IngestMetricsRequest, metadata *ClientMetadata) (*dto.IngestMetricsResponse, error) {
	tenant, _, err := requireMembership(ctx, cpf.tenantRepo, cpf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("METRICS_INGEST_FAILED", "Metrics ingest failed", err)
	}

	campaign, err := cpf.findTenantCampaign(ctx, tenant.ID, campaignUUID)
	if err != nil {
		return nil, NewBusinessError("METRICS_INGEST_FAILED", "Metrics ingest failed", err)
	}

	accepted, skipped := 0, 0
	for _, row := range request.Metrics {
		date, parseErr := time.Parse(analysisDateLayout, row.Date)
		if parseErr != nil {
			return nil, NewBusinessError("METRICS_INGEST_FAILED", "Metrics ingest failed", parseErr)
		}

		inserted, insErr := cpf.metricRepo.SaveSkipDuplicate(ctx, &models.AdsMetric{
			CampaignID:  campaign.ID,
			TenantID:    tenant.ID,
			Date:        date,
			Impressions: row.Impressions,
			Clicks:      row.Clicks,
			Conversions: row.Conversions,
			SpendUSD:    row.SpendUSD,
			RevenueUSD:  row.RevenueUSD,
		})
		if insErr != nil {
			return nil, NewBusinessError("METRICS_INGEST_FAILED", "Metrics ingest failed", insErr)
		}
		if inserted {
			accepted++
		} else {
			skipped++
		}
	}

	cpf.invalidateAggregates(ctx, campaign.ID)

	msg := fmt.Sprintf("Metrics ingested for campaign %d: %d accepted, %d skipped", campaign.ID, accepted, skipped)
	_ = recordAudit(ctx, cpf.auditRepo, &userID, &tenant.ID, models.AuditActionMetricsIngested, msg, true, nil, metadata)

	return &dto.IngestMetricsResponse{Accepted: accepted, Skipped: skipped}, nil
}

// AnalyzeCampaign aggregates the campaign's window, compares it against the
// channel benchmarks and asks the model for a diagnosis. The figures returned
// to the caller are the locally computed ones; the model output only feeds the
// summary, recommendations and insight rows.
func (cpf *CampaignFlowImpl) AnalyzeCampaign(ctx context.Context, tenantUUID string, userID uint, request *dto.AnalyzeCampaignRequest, metadata *ClientMetadata) (*dto.AnalyzeCampaignResponse, error) {
	tenant, _, err := requireMembership(ctx, cpf.tenantRepo, cpf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", err)
	}

	campaign, err := cpf.findTenantCampaign(ctx, tenant.ID, request.CampaignUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", err)
	}

	from, to, err := resolveWindow(request.From, request.To)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", err)
	}

	count, err := cpf.metricRepo.Count(ctx, models.AdsMetricFilter{
		CampaignID: &campaign.ID,
		DateFrom:   &from,
		DateTo:     &to,
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", err)
	}
	if count == 0 {
		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", ErrNoMetricsInWindow)
	}

	totals, err := cpf.aggregates(ctx, campaign.ID, from, to)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", err)
	}

	prompt := cpf.buildAnalysisPrompt(campaign, totals, from, to)

	completion, callErr := cpf.llm.Complete(ctx, services.CompletionRequest{
		System:      analysisSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	})

	entry := ledgerEntry{
		TenantID:          tenant.ID,
		Provider:          cpf.llm.Provider(),
		Model:             cpf.llm.Model(),
		RequestType:       models.AIRequestTypeCampaignAnalysis,
		Prompt:            prompt,
		RelatedEntityType: utils.ToPtr(models.AIRelatedEntityAdsCampaign),
		RelatedEntityID:   &campaign.ID,
		RequesterID:       &userID,
	}

	if callErr != nil {
		entry.Status = models.AIRequestStatusError
		flowErr := classifyProviderError(callErr)
		if flowErr == ErrProviderTimeout {
			entry.Status = models.AIRequestStatusTimeout
		}
		entry.ErrorMessage = utils.ToPtr(callErr.Error())

		if _, ledgerErr := writeLedger(ctx, cpf.ledgerRepo, entry); ledgerErr != nil {
			return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", ledgerErr)
		}

		errMsg := fmt.Sprintf("Campaign analysis failed: %s", callErr.Error())
		_ = recordAudit(ctx, cpf.auditRepo, &userID, &tenant.ID, models.AuditActionCampaignAnalysisFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", flowErr)
	}

	entry.RawResponse = &completion.Text
	entry.TokensIn = completion.TokensIn
	entry.TokensOut = completion.TokensOut
	entry.LatencyMs = completion.LatencyMs
	entry.Status = models.AIRequestStatusSuccess

	payload, parseErr := cpf.parseAnalysis(completion.Text)
	if parseErr != nil {
		if _, ledgerErr := writeLedger(ctx, cpf.ledgerRepo, entry); ledgerErr != nil {
			return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", ledgerErr)
		}

		errMsg := fmt.Sprintf("Campaign analysis failed: %s", parseErr.Error())
		_ = recordAudit(ctx, cpf.auditRepo, &userID, &tenant.ID, models.AuditActionCampaignAnalysisFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", parseErr)
	}

	entry.ParsedResponse, _ = json.Marshal(payload)

	ledgerRow, err := writeLedger(ctx, cpf.ledgerRepo, entry)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", err)
	}

	var insights []*models.AdsInsight
	issues := payload.Issues
	if len(issues) > maxCampaignInsights {
		issues = issues[:maxCampaignInsights]
	}
	for _, issue := range issues {
		insight := &models.AdsInsight{
			CampaignID:  campaign.ID,
			TenantID:    tenant.ID,
			Severity:    normalizeSeverity(issue.Severity),
			Issue:       issue.Issue,
			AIRequestID: ledgerRow.ID,
		}
		if impact := strings.TrimSpace(issue.EstimatedImpact); impact != "" {
			insight.EstimatedImpact = &impact
		}
		if cmp := strings.TrimSpace(issue.BenchmarkComparison); cmp != "" {
			insight.BenchmarkComparison = &cmp
		}
		insights = append(insights, insight)
	}

	now := time.Now().UTC()
	campaign.AIAnalysis = &models.CampaignAnalysis{
		Summary:         payload.Summary,
		Recommendations: payload.Recommendations,
	}
	campaign.AIRequestID = &ledgerRow.ID
	campaign.LastAnalyzedAt = &now

	err = repository.WithTransaction(ctx, cpf.db, func(ctx context.Context) error {
		if len(insights) > 0 {
			if err := cpf.insightRepo.SaveBatch(ctx, insights); err != nil {
				return err
			}
		}
		return cpf.campaignRepo.Update(ctx, *campaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Campaign analysis failed: %s", err.Error())
		_ = recordAudit(ctx, cpf.auditRepo, &userID, &tenant.ID, models.AuditActionCampaignAnalysisFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_ANALYSIS_FAILED", "Campaign analysis failed", err)
	}

	msg := fmt.Sprintf("Campaign analyzed: %d (%d insights)", campaign.ID, len(insights))
	_ = recordAudit(ctx, cpf.auditRepo, &userID, &tenant.ID, models.AuditActionCampaignAnalyzed, msg, true, nil, metadata)

	insightDTOs := make([]dto.AdsInsightDTO, 0, len(insights))
	for _, insight := range insights {
		insightDTOs = append(insightDTOs, ToAdsInsightDTO(*insight))
	}

	return &dto.AnalyzeCampaignResponse{
		Campaign: ToAdsCampaignDTO(*campaign),
		Totals: dto.CampaignTotalsDTO{
			Impressions: totals.Impressions,
			Clicks:      totals.Clicks,
			Conversions: totals.Conversions,
			SpendUSD:    totals.SpendUSD,
			RevenueUSD:  totals.RevenueUSD,
			CTR:         totals.CTR(),
			CPA:         totals.CPA(),
			ROAS:        totals.ROAS(),
		},
		Summary:         payload.Summary,
		Recommendations: payload.Recommendations,
		Insights:        insightDTOs,
		AIRequestID:     ledgerRow.ID,
		CostUSD:         ledgerRow.CostUSD,
	}, nil
}

// Private helper methods

const analysisSystemPrompt = `You audit paid ads campaigns for real-estate agencies. ` +
	`Answer with a single JSON object and nothing else, with keys: summary (string), ` +
	`recommendations (string array), ` +
	`issues (array of {severity: critical|high|medium|low, issue: string, ` +
	`estimated_impact: string, benchmark_comparison: string}).`

func (cpf *CampaignFlowImpl) findTenantCampaign(ctx context.Context, tenantID uint, campaignUUID string) (*models.AdsCampaign, error) {
	campaign, err := cpf.campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if campaign == nil || campaign.TenantID != tenantID {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

// resolveWindow fills missing window bounds: last 30 days ending today
func resolveWindow(from, to *time.Time) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if to != nil {
		end = to.UTC().Truncate(24 * time.Hour)
	}

	start := end.AddDate(0, 0, -defaultAnalysisDays)
	if from != nil {
		start = from.UTC().Truncate(24 * time.Hour)
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}

	return start, end, nil
}

func aggregatesCacheKey(campaignID uint, from, to time.Time) string {
	return fmt.Sprintf("campaign:%d:aggregates:%s:%s",
		campaignID, from.Format(analysisDateLayout), to.Format(analysisDateLayout))
}

// aggregates sums the window, going through Redis first. Cache failures fall
// back to the database.
func (cpf *CampaignFlowImpl) aggregates(ctx context.Context, campaignID uint, from, to time.Time) (*models.AdsMetricTotals, error) {
	cacheKey := aggregatesCacheKey(campaignID, from, to)

	if cpf.rc != nil {
		if bs, err := cpf.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached models.AdsMetricTotals
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	totals, err := cpf.metricRepo.SumByCampaignRange(ctx, campaignID, from, to)
	if err != nil {
		return nil, err
	}

	if cpf.rc != nil {
		if bs, err := json.Marshal(totals); err == nil {
			_ = cpf.rc.Set(ctx, cacheKey, bs, utils.CampaignMetricsCacheTTL).Err()
		}
	}

	return totals, nil
}

// invalidateAggregates drops cached sums after new metrics land. Keys embed
// the window, so a prefix scan is needed.
func (cpf *CampaignFlowImpl) invalidateAggregates(ctx context.Context, campaignID uint) {
	if cpf.rc == nil {
		return
	}

	pattern := fmt.Sprintf("campaign:%d:aggregates:*", campaignID)
	iter := cpf.rc.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		_ = cpf.rc.Del(ctx, iter.Val()).Err()
	}
}

func (cpf *CampaignFlowImpl) buildAnalysisPrompt(campaign *models.AdsCampaign, totals *models.AdsMetricTotals, from, to time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Campaign %q on %s, window %s to %s.\n",
		campaign.Name, campaign.Channel, from.Format(analysisDateLayout), to.Format(analysisDateLayout))
	fmt.Fprintf(&b, "Impressions: %d\nClicks: %d\nConversions: %d\n", totals.Impressions, totals.Clicks, totals.Conversions)
	fmt.Fprintf(&b, "Spend: $%.2f\nRevenue: $%.2f\n", totals.SpendUSD, totals.RevenueUSD)
	fmt.Fprintf(&b, "CTR: %.4f\nCPA: $%.2f\nROAS: %.2f\n", totals.CTR(), totals.CPA(), totals.ROAS())

	if bench, ok := channelBenchmarks[campaign.Channel]; ok {
		fmt.Fprintf(&b, "Channel benchmarks: CTR %.4f, CPA $%.2f, ROAS %.2f.\n", bench.CTR, bench.CPA, bench.ROAS)
	}
	b.WriteString("Diagnose underperformance against the benchmarks and suggest concrete fixes.\n")

	return b.String()
}

func (cpf *CampaignFlowImpl) parseAnalysis(raw string) (*aiAnalysisPayload, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, ErrUnparsableAIOutput
	}

	var payload aiAnalysisPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, ErrUnparsableAIOutput
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return nil, ErrUnparsableAIOutput
	}

	return &payload, nil
}

func normalizeSeverity(raw string) models.InsightSeverity {
	s := models.InsightSeverity(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return models.InsightSeverityMedium
	}
	return s
}
