package dto

import "time"

// CreateCampaignRequest represents the request to register an ads campaign
type CreateCampaignRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=255" example:"March listings - Meta"`
	Channel    string `json:"channel" validate:"required,oneof=meta google tiktok" example:"meta"`
	ExternalID string `json:"external_id" validate:"omitempty,max=255" example:"23849201837465"`
}

// AdsCampaignDTO represents a campaign in API responses
type AdsCampaignDTO struct {
	ID             uint       `json:"id" example:"9"`
	UUID           string     `json:"uuid"`
	Name           string     `json:"name" example:"March listings - Meta"`
	Channel        string     `json:"channel" example:"meta"`
	ExternalID     string     `json:"external_id,omitempty"`
	LastAnalyzedAt *time.Time `json:"last_analyzed_at,omitempty"`
	CreatedAt      string     `json:"created_at"`
}

// MetricRow represents one daily metrics snapshot in an ingest request
type MetricRow struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02" example:"2026-03-04"`
	Impressions int64   `json:"impressions" validate:"min=0" example:"4200"`
	Clicks      int64   `json:"clicks" validate:"min=0" example:"96"`
	Conversions int64   `json:"conversions" validate:"min=0" example:"2"`
	SpendUSD    float64 `json:"spend_usd" validate:"min=0" example:"31.50"`
	RevenueUSD  float64 `json:"revenue_usd" validate:"min=0" example:"180.00"`
}

// IngestMetricsRequest represents a batch of daily snapshots for a campaign
type IngestMetricsRequest struct {
	Metrics []MetricRow `json:"metrics" validate:"required,min=1,max=366,dive"`
}

// IngestMetricsResponse represents the outcome of a metrics ingest
type IngestMetricsResponse struct {
	Accepted int `json:"accepted" example:"31"`
	Skipped  int `json:"skipped" example:"0"`
}

// AdsMetricDTO represents one stored daily snapshot
type AdsMetricDTO struct {
	Date        string  `json:"date" example:"2026-03-04"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	SpendUSD    float64 `json:"spend_usd"`
	RevenueUSD  float64 `json:"revenue_usd"`
}
