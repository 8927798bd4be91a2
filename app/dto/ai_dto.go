package dto

import "time"

// QualifyLeadRequest represents the request to run AI qualification on a lead.
// IncludeInteractions defaults to true when omitted.
type QualifyLeadRequest struct {
	LeadUUID            string `json:"lead_uuid" validate:"required,uuid4" example:"550e8400-e29b-41d4-a716-446655440003"`
	IncludeInteractions *bool  `json:"include_interactions,omitempty" example:"true"`
}

// QualifyLeadResponse represents the outcome of a qualification run
type QualifyLeadResponse struct {
	Lead        LeadDTO           `json:"lead"`
	FollowUps   []LeadFollowUpDTO `json:"follow_ups"`
	Fallback    bool              `json:"fallback" example:"false"`
	AIRequestID uint              `json:"ai_request_id" example:"901"`
	CostUSD     float64           `json:"cost_usd" example:"0.0105"`
}

// GenerateCalendarRequest represents the request to generate a monthly content calendar
type GenerateCalendarRequest struct {
	Month          int      `json:"month" validate:"required,min=1,max=12" example:"3"`
	Year           int      `json:"year" validate:"required,min=2020,max=2100" example:"2026"`
	Objectives     []string `json:"objectives" validate:"omitempty,dive,max=255" example:"generate seller leads"`
	Offers         []string `json:"offers" validate:"omitempty,dive,max=255"`
	StrategicDates []string `json:"strategic_dates" validate:"omitempty,dive,max=255"`
}

// CalendarSuggestionDTO represents one suggested slot in the plan
type CalendarSuggestionDTO struct {
	Day         int    `json:"day" example:"4"`
	Topic       string `json:"topic" example:"Tour: 3br house in Moema"`
	ContentType string `json:"content_type" example:"reel"`
	Rationale   string `json:"rationale,omitempty"`
}

// ContentCalendarDTO represents a content calendar in API responses
type ContentCalendarDTO struct {
	ID          uint                    `json:"id" example:"12"`
	UUID        string                  `json:"uuid"`
	Month       int                     `json:"month" example:"3"`
	Year        int                     `json:"year" example:"2026"`
	Status      string                  `json:"status" example:"ai_generated"`
	Theme       string                  `json:"theme,omitempty"`
	Suggestions []CalendarSuggestionDTO `json:"suggestions,omitempty"`
	Notes       string                  `json:"notes,omitempty"`
	AIRequestID *uint                   `json:"ai_request_id,omitempty" example:"902"`
	CostUSD     float64                 `json:"cost_usd,omitempty" example:"0.0182"`
	CreatedAt   string                  `json:"created_at"`
}

// GenerateContentRequest represents the request to generate a content item for a calendar topic
type GenerateContentRequest struct {
	CalendarUUID string   `json:"calendar_uuid" validate:"required,uuid4"`
	Topic        string   `json:"topic" validate:"required,max=500" example:"Tour: 3br house in Moema"`
	ContentType  string   `json:"content_type" validate:"required,oneof=post reel story carousel ad_copy listing_ad" example:"post"`
	Platforms    []string `json:"platforms" validate:"omitempty,dive,oneof=instagram_feed instagram_story facebook linkedin tiktok"`
}

// ContentVariantDTO represents a per-platform adaptation of a content item
type ContentVariantDTO struct {
	ID             uint   `json:"id" example:"77"`
	Platform       string `json:"platform" example:"instagram_feed"`
	Copy           string `json:"copy"`
	CharacterCount int    `json:"character_count" example:"214"`
}

// ContentItemDTO represents a content item in API responses
type ContentItemDTO struct {
	ID          uint                `json:"id" example:"31"`
	UUID        string              `json:"uuid"`
	Topic       string              `json:"topic"`
	ContentType string              `json:"content_type" example:"post"`
	BaseCopy    string              `json:"base_copy"`
	CTA         string              `json:"cta,omitempty" example:"Agende sua visita"`
	Hashtags    []string            `json:"hashtags,omitempty"`
	ImageURL    string              `json:"image_url,omitempty"`
	Status      string              `json:"status" example:"ai_generated"`
	Variants    []ContentVariantDTO `json:"variants,omitempty"`
	AIRequestID *uint               `json:"ai_request_id,omitempty" example:"903"`
	CreatedAt   string              `json:"created_at"`
}

// GenerateContentResponse represents the outcome of content generation
type GenerateContentResponse struct {
	Item    ContentItemDTO `json:"item"`
	CostUSD float64        `json:"cost_usd" example:"0.0094"`
}

// GenerateImageRequest represents the request to generate an image for a content item
type GenerateImageRequest struct {
	ItemUUID    string `json:"item_uuid" validate:"required,uuid4"`
	StylePrompt string `json:"style_prompt" validate:"omitempty,max=2000" example:"warm afternoon light, modern interior"`
}

// GenerateImageResponse represents the outcome of image generation
type GenerateImageResponse struct {
	ItemUUID    string `json:"item_uuid"`
	ImageURL    string `json:"image_url"`
	Status      string  `json:"status" example:"image_generated"`
	AIRequestID uint    `json:"ai_request_id" example:"904"`
	CostUSD     float64 `json:"cost_usd" example:"0.0387"`
}

// AnalyzeCampaignRequest represents the request to analyze a campaign window
type AnalyzeCampaignRequest struct {
	CampaignUUID string     `json:"campaign_uuid" validate:"required,uuid4"`
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
}

// CampaignTotalsDTO carries the locally computed aggregates for the window
type CampaignTotalsDTO struct {
	Impressions int64   `json:"impressions" example:"120000"`
	Clicks      int64   `json:"clicks" example:"2400"`
	Conversions int64   `json:"conversions" example:"36"`
	SpendUSD    float64 `json:"spend_usd" example:"850.40"`
	RevenueUSD  float64 `json:"revenue_usd" example:"5400.00"`
	CTR         float64 `json:"ctr" example:"0.02"`
	CPA         float64 `json:"cpa" example:"23.62"`
	ROAS        float64 `json:"roas" example:"6.35"`
}

// AdsInsightDTO represents a single analyzer finding
type AdsInsightDTO struct {
	ID                  uint   `json:"id" example:"5"`
	Severity            string `json:"severity" example:"high"`
	Issue               string `json:"issue"`
	EstimatedImpact     string `json:"estimated_impact,omitempty"`
	BenchmarkComparison string `json:"benchmark_comparison,omitempty"`
}

// AnalyzeCampaignResponse represents the outcome of a campaign analysis
type AnalyzeCampaignResponse struct {
	Campaign        AdsCampaignDTO    `json:"campaign"`
	Totals          CampaignTotalsDTO `json:"totals"`
	Summary         string            `json:"summary,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Insights        []AdsInsightDTO   `json:"insights"`
	AIRequestID     uint              `json:"ai_request_id" example:"905"`
	CostUSD         float64           `json:"cost_usd" example:"0.0151"`
}
