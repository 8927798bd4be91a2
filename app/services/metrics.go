package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI provider calls",
		},
		[]string{"provider", "model", "status"},
	)

	aiTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Total number of AI tokens consumed",
		},
		[]string{"provider", "model", "direction"},
	)

	aiCostUSDTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cost_usd_total",
			Help: "Accumulated AI spend in US dollars",
		},
		[]string{"provider", "model"},
	)
)

// RecordAIRequest feeds the AI provider counters. Called once per provider
// call, mirroring the ledger.
func RecordAIRequest(provider, model, status string, tokensIn, tokensOut int, costUSD float64) {
	aiRequestsTotal.WithLabelValues(provider, model, status).Inc()
	aiTokensTotal.WithLabelValues(provider, model, "in").Add(float64(tokensIn))
	aiTokensTotal.WithLabelValues(provider, model, "out").Add(float64(tokensOut))
	aiCostUSDTotal.WithLabelValues(provider, model).Add(costUSD)
}
