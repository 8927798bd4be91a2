package services

import (
	"context"
	"sync"
)

// MockLLMService implements LLMService for testing. Responses are served in
// order; when the queue runs dry the last configured response repeats.
type MockLLMService struct {
	mu        sync.Mutex
	Responses []CompletionResult
	Errs      []error
	Calls     []CompletionRequest
	callIdx   int
}

// NewMockLLMService creates a new mock LLM service
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{}
}

func (m *MockLLMService) Provider() string { return "claude" }
func (m *MockLLMService) Model() string    { return "claude-sonnet-4-5" }

// WithResponse queues a successful completion
func (m *MockLLMService) WithResponse(text string, tokensIn, tokensOut int) *MockLLMService {
	m.Responses = append(m.Responses, CompletionResult{
		Text:      text,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		LatencyMs: 5,
	})
	m.Errs = append(m.Errs, nil)
	return m
}

// WithError queues a failed completion
func (m *MockLLMService) WithError(err error) *MockLLMService {
	m.Responses = append(m.Responses, CompletionResult{})
	m.Errs = append(m.Errs, err)
	return m
}

func (m *MockLLMService) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.Responses) == 0 {
		return &CompletionResult{Text: "{}", TokensIn: 1, TokensOut: 1, LatencyMs: 1}, nil
	}

	idx := m.callIdx
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIdx++

	if err := m.Errs[idx]; err != nil {
		return nil, err
	}
	resp := m.Responses[idx]
	return &resp, nil
}

// MockImageGenService implements ImageGenService for testing
type MockImageGenService struct {
	mu      sync.Mutex
	Result  *ImageResult
	Err     error
	Prompts []string
}

// NewMockImageGenService creates a new mock image generation service
func NewMockImageGenService() *MockImageGenService {
	return &MockImageGenService{
		Result: &ImageResult{
			Data:      []byte{0xFF, 0xD8, 0xFF, 0xD9},
			MimeType:  "image/jpeg",
			TokensIn:  10,
			TokensOut: 1290,
			LatencyMs: 8,
		},
	}
}

func (m *MockImageGenService) Provider() string { return "gemini" }
func (m *MockImageGenService) Model() string    { return "gemini-2.5-flash-image" }

func (m *MockImageGenService) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, req.Prompt)

	if m.Err != nil {
		return nil, m.Err
	}
	result := *m.Result
	return &result, nil
}

// MockStorageService implements StorageService for testing
type MockStorageService struct {
	mu      sync.Mutex
	BaseURL string
	Err     error
	Objects map[string][]byte
}

// NewMockStorageService creates a new mock storage service
func NewMockStorageService() *MockStorageService {
	return &MockStorageService{
		BaseURL: "https://cdn.test.local/assets",
		Objects: make(map[string][]byte),
	}
}

func (m *MockStorageService) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	m.Objects[objectName] = data
	return m.BaseURL + "/" + objectName, nil
}

// MockCaptchaService implements CaptchaService for testing
type MockCaptchaService struct {
	Accept bool
}

// NewMockCaptchaService creates a mock captcha service that accepts or
// rejects every challenge
func NewMockCaptchaService(accept bool) *MockCaptchaService {
	return &MockCaptchaService{Accept: accept}
}

func (m *MockCaptchaService) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	return &RotateChallenge{ID: "test-challenge"}, nil
}

func (m *MockCaptchaService) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	return m.Accept
}
