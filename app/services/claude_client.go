package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

// ClaudeClient calls the Anthropic Messages API. One Complete call is one
// provider request; failures surface as *ProviderError.
type ClaudeClient struct {
	BaseURL    string
	APIKey     string
	ModelName  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClaudeClient creates a new Anthropic client
func NewClaudeClient(baseURL, apiKey, model string, timeout time.Duration) *ClaudeClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &ClaudeClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		ModelName:  model,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

func (c *ClaudeClient) Provider() string { return "claude" }
func (c *ClaudeClient) Model() string    { return c.ModelName }

// Request/response shapes per https://docs.anthropic.com/en/api/messages

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeMessagesReq struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeMessagesResp struct {
	ID         string               `json:"id"`
	Content    []claudeContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
	Usage      claudeUsage          `json:"usage"`
}

type claudeErrorResp struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt to the Messages API and returns the text answer
// with token usage
func (c *ClaudeClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := claudeMessagesReq{
		Model:     c.ModelName,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages: []claudeMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded)
		var netErr interface{ Timeout() bool }
		if !timedOut && errors.As(err, &netErr) {
			timedOut = netErr.Timeout()
		}
		return nil, &ProviderError{
			Provider: c.Provider(),
			Message:  err.Error(),
			Timeout:  timedOut,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	latency := measureLatency(start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: c.Provider(), Message: err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr claudeErrorResp
		msg := string(raw)
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &ProviderError{
			Provider:   c.Provider(),
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	var out claudeMessagesResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProviderError{
			Provider: c.Provider(),
			Message:  fmt.Sprintf("malformed response body: %v", err),
			Err:      err,
		}
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &CompletionResult{
		Text:      text.String(),
		TokensIn:  out.Usage.InputTokens,
		TokensOut: out.Usage.OutputTokens,
		LatencyMs: latency,
	}, nil
}
