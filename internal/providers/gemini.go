package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	GeminiName = "gemini"

	// GeminiBaseURL is Google's OpenAI-compatible endpoint for the Gemini
	// API. Any OpenAI-compatible backend works by overriding BaseURL.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	GeminiDefaultModel = "gemini-2.0-flash"
)

// GeminiConfig holds configuration for the Gemini chat client.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// RateLimit caps outbound requests per second (default 4).
	RateLimit  float64
	HTTPClient *http.Client
}

// GeminiClient implements ChatClient against an OpenAI-compatible
// chat/completions endpoint, Gemini's by default.
type GeminiClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	maxRetries   int
	retryDelay   time.Duration
	limiter      *RateLimiter
	client       *http.Client
}

// NewGeminiClient creates a new Gemini chat client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 4.0
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &GeminiClient{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel: cfg.Model,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		limiter:      NewRateLimiter(cfg.RateLimit),
		client:       client,
	}
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string { return GeminiName }

// Chat sends a chat completion request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	wireReq := chatWireRequest{
		Model:       model,
		Messages:    make([]chatWireMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	for _, m := range req.Messages {
		msg := chatWireMessage{Role: m.Role}
		if len(m.Images) > 0 {
			parts := []chatWireContent{{Type: "text", Text: m.Content}}
			for _, img := range m.Images {
				parts = append(parts, chatWireContent{
					Type: "image_url",
					ImageURL: &chatWireImageURL{
						URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
					},
				})
			}
			msg.Content = parts
		} else {
			msg.Content = m.Content
		}
		wireReq.Messages = append(wireReq.Messages, msg)
	}

	if req.ResponseFormat != nil {
		wireReq.ResponseFormat = &chatWireResponseFormat{
			Type:       req.ResponseFormat.Type,
			JSONSchema: req.ResponseFormat.JSONSchema,
		}
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  GeminiName,
	}

	wireResp, attempts, err := c.doRequest(ctx, "/chat/completions", wireReq)
	result.Attempts = attempts
	result.TotalTokensFromUsage(wireResp)
	result.ExecutionTime = time.Since(start)

	if err != nil {
		result.Success = false
		result.ErrorType = "http_error"
		result.ErrorMessage = err.Error()
		return result, err
	}

	if len(wireResp.Choices) == 0 {
		result.Success = false
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		return result, fmt.Errorf("no choices in response (model=%s)", model)
	}

	result.Content = wireResp.Choices[0].Message.Content
	result.ModelUsed = wireResp.Model
	result.Success = true

	// Parse structured output if requested.
	if req.ResponseFormat != nil {
		parsed, perr := ExtractJSONContent(result.Content)
		if perr != nil {
			result.Success = false
			result.ErrorType = "parse_error"
			result.ErrorMessage = perr.Error()
			return result, fmt.Errorf("structured output parse failed: %w", perr)
		}
		if len(req.ResponseFormat.JSONSchema) > 0 {
			if verr := ValidateAgainstSchema(req.ResponseFormat.JSONSchema, parsed); verr != nil {
				result.Success = false
				result.ErrorType = "schema_validation_error"
				result.ErrorMessage = verr.Error()
				return result, fmt.Errorf("structured output validation failed: %w", verr)
			}
		}
		result.ParsedJSON = parsed
	}

	return result, nil
}

// doRequest posts the request with retry on transient failures.
// Returns the parsed response and the number of attempts made.
func (c *GeminiClient) doRequest(ctx context.Context, path string, body chatWireRequest) (*chatWireResponse, int, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, attempt, err
		}

		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.sleepWithJitter(ctx, attempt)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			c.sleepWithJitter(ctx, attempt)
			continue
		}

		if shouldRetryStatus(resp.StatusCode) {
			lastErr = fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, string(respBody))
			c.sleepWithJitter(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, attempt + 1, fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, string(respBody))
		}

		var wireResp chatWireResponse
		if err := json.Unmarshal(respBody, &wireResp); err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		return &wireResp, attempt + 1, nil
	}

	return nil, c.maxRetries, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

func shouldRetryStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests:
		return true
	default:
		return statusCode >= 500
	}
}

// sleepWithJitter waits with exponential backoff plus jitter.
func (c *GeminiClient) sleepWithJitter(ctx context.Context, attempt int) {
	delay := c.retryDelay * time.Duration(1<<attempt)
	delay += time.Duration(rand.Int63n(int64(c.retryDelay / 2)))
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// TotalTokensFromUsage copies usage counters from the wire response.
func (r *ChatResult) TotalTokensFromUsage(resp *chatWireResponse) {
	if resp == nil {
		return
	}
	r.PromptTokens = resp.Usage.PromptTokens
	r.CompletionTokens = resp.Usage.CompletionTokens
	r.TotalTokens = resp.Usage.TotalTokens
}

// Wire types for the OpenAI-compatible chat endpoint.

type chatWireRequest struct {
	Model          string                  `json:"model"`
	Messages       []chatWireMessage       `json:"messages"`
	Temperature    float64                 `json:"temperature,omitempty"`
	MaxTokens      int                     `json:"max_tokens,omitempty"`
	ResponseFormat *chatWireResponseFormat `json:"response_format,omitempty"`
}

type chatWireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []chatWireContent
}

type chatWireContent struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	ImageURL *chatWireImageURL `json:"image_url,omitempty"`
}

type chatWireImageURL struct {
	URL string `json:"url"`
}

type chatWireResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type chatWireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
