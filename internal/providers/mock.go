package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockChatClient is a ChatClient for testing.
type MockChatClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage

	requestCount atomic.Int64
}

// NewMockChatClient creates a mock with sensible defaults.
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockChatClient) Name() string { return MockClientName }

// RequestCount returns the number of requests received.
func (c *MockChatClient) RequestCount() int64 { return c.requestCount.Load() }

// Chat returns the configured canned response.
func (c *MockChatClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	n := c.requestCount.Add(1)

	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Latency):
		}
	}

	if c.ShouldFail || (c.FailAfter > 0 && n > int64(c.FailAfter)) {
		return &ChatResult{
			Provider:     MockClientName,
			Success:      false,
			ErrorType:    "mock_error",
			ErrorMessage: "mock failure",
		}, fmt.Errorf("mock failure")
	}

	result := &ChatResult{
		Content:   c.ResponseText,
		Provider:  MockClientName,
		ModelUsed: "mock-model",
		Success:   true,
		Attempts:  1,
	}
	if req.ResponseFormat != nil && len(c.ResponseJSON) > 0 {
		result.ParsedJSON = c.ResponseJSON
		result.Content = string(c.ResponseJSON)
	}
	return result, nil
}

// MockEmbedder is an Embedder for testing. It produces deterministic
// character-histogram vectors so similar strings embed close together.
type MockEmbedder struct {
	Err     error
	Latency time.Duration

	requestCount atomic.Int64
}

// Name returns the provider identifier.
func (e *MockEmbedder) Name() string { return MockClientName }

// RequestCount returns the number of requests received.
func (e *MockEmbedder) RequestCount() int64 { return e.requestCount.Load() }

// EmbedTexts returns one deterministic vector per input text.
func (e *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	e.requestCount.Add(1)

	if e.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.Latency):
		}
	}
	if e.Err != nil {
		return nil, e.Err
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, 64)
		for _, r := range text {
			vec[int(r)%64]++
		}
		out[i] = vec
	}
	return out, nil
}
