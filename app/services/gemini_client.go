package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageGenService is the gateway to image-generation providers. One Generate
// call is one provider request.
type ImageGenService interface {
	Generate(ctx context.Context, req ImageRequest) (*ImageResult, error)
	Provider() string
	Model() string
}

// ImageRequest carries a single image prompt. A zero Temperature leaves the
// provider default in place.
type ImageRequest struct {
	Prompt      string
	Temperature float64
}

// ImageResult carries the generated image bytes plus usage accounting
type ImageResult struct {
	Data      []byte
	MimeType  string
	TokensIn  int
	TokensOut int
	LatencyMs int64
}

// GeminiClient calls the Gemini generateContent API for image generation
type GeminiClient struct {
	BaseURL    string
	APIKey     string
	ModelName  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewGeminiClient creates a new Gemini image generation client
func NewGeminiClient(baseURL, apiKey, model string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return &GeminiClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		ModelName:  model,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

func (c *GeminiClient) Provider() string { return "gemini" }
func (c *GeminiClient) Model() string    { return c.ModelName }

// Request/response shapes per https://ai.google.dev/api/generate-content

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerateReq struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiGenConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type geminiGenerateResp struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends the prompt to generateContent and returns the first inline
// image from the response
func (c *GeminiClient) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	body := geminiGenerateReq{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: &geminiGenConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if req.Temperature > 0 {
		body.GenerationConfig.Temperature = &req.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, c.ModelName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.APIKey)

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
		var apiErr geminiErrorResp
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

	var out geminiGenerateResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProviderError{
			Provider: c.Provider(),
			Message:  fmt.Sprintf("malformed response body: %v", err),
			Err:      err,
		}
	}

	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, &ProviderError{
					Provider: c.Provider(),
					Message:  fmt.Sprintf("invalid inline image data: %v", err),
					Err:      err,
				}
			}
			return &ImageResult{
				Data:      data,
				MimeType:  part.InlineData.MimeType,
				TokensIn:  out.UsageMetadata.PromptTokenCount,
				TokensOut: out.UsageMetadata.CandidatesTokenCount,
				LatencyMs: latency,
			}, nil
		}
	}

	return nil, &ProviderError{
		Provider: c.Provider(),
		Message:  "response contains no image data",
	}
}
