// Package services provides external service integrations and technical concerns like AI providers, storage, and tokens
package services

import (
	"context"
	"fmt"
	"time"
)

// LLMService is the gateway to text-completion providers. Implementations
// perform exactly one provider call per Complete invocation; retries are the
// caller's decision.
type LLMService interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	Provider() string
	Model() string
}

// CompletionRequest carries a single prompt to the provider. A zero
// Temperature leaves the provider default in place.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResult carries the provider's raw answer plus usage accounting
type CompletionResult struct {
	Text      string
	TokensIn  int
	TokensOut int
	LatencyMs int64
}

// ProviderError wraps a failed provider call so flows can distinguish
// upstream failures from local ones
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Timeout    bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ModelPricing holds USD prices per million tokens for a model
type ModelPricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// modelPrices is the static price table used for cost accounting. Prices are
// USD per million tokens. Unknown models cost zero rather than failing the call.
var modelPrices = map[string]ModelPricing{
	"claude-sonnet-4-5":      {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-haiku-4-5":       {InputPerMTok: 1.00, OutputPerMTok: 5.00},
	"claude-opus-4-1":        {InputPerMTok: 15.00, OutputPerMTok: 75.00},
	"gemini-2.5-flash":       {InputPerMTok: 0.30, OutputPerMTok: 2.50},
	"gemini-2.5-pro":         {InputPerMTok: 1.25, OutputPerMTok: 10.00},
	"gemini-2.5-flash-image": {InputPerMTok: 0.30, OutputPerMTok: 30.00},
}

// CostUSD computes the USD cost of a call from its token usage and the static
// price table
func CostUSD(model string, tokensIn, tokensOut int) float64 {
	pricing, ok := modelPrices[model]
	if !ok {
		return 0
	}
	return float64(tokensIn)/1_000_000*pricing.InputPerMTok +
		float64(tokensOut)/1_000_000*pricing.OutputPerMTok
}

// KnownModel reports whether the model has a pricing entry
func KnownModel(model string) bool {
	_, ok := modelPrices[model]
	return ok
}

// measureLatency returns elapsed wall time in milliseconds since start
func measureLatency(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
