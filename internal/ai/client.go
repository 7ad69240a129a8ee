package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// DefaultGeminiBaseURL is the production endpoint for the Gemini API.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Response is a generation result validated at the gateway boundary.
type Response struct {
	Text         string
	ToolCall     *ToolCall
	FinishReason string
}

// Invoker performs one generation call against a single model.
type Invoker interface {
	Invoke(ctx context.Context, model string, conversation []Turn) (*Response, error)
}

// ClientConfig tunes the retry behaviour of an endpoint client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Attempts   int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

func (c *ClientConfig) fill() {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
}

// GeminiClient calls the generateContent endpoint for one model at a time,
// retrying transient and rate-limit failures with exponential backoff.
type GeminiClient struct {
	cfg ClientConfig
	log zerolog.Logger
}

// NewGeminiClient creates a client for the Gemini generateContent API.
func NewGeminiClient(cfg ClientConfig, log zerolog.Logger) *GeminiClient {
	cfg.fill()
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	return &GeminiClient{cfg: cfg, log: log.With().Str("client", "gemini").Logger()}
}

// Invoke sends the conversation to the given model. Every failure consumes
// one attempt; the delay between attempts doubles starting from RetryDelay.
// The error of the last attempt is returned when the budget is exhausted.
func (c *GeminiClient) Invoke(ctx context.Context, model string, conversation []Turn) (*Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryDelay
	bo.Multiplier = 2

	attempt := 0
	op := func() (*Response, error) {
		attempt++
		resp, err := c.call(ctx, model, conversation)
		if err != nil {
			c.log.Warn().Str("model", model).Int("attempt", attempt).Err(err).Msg("generation attempt failed")
		}
		return resp, err
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.cfg.Attempts)),
	)
}

type geminiPart struct {
	Text             string      `json:"text,omitempty"`
	FunctionCall     *ToolCall   `json:"functionCall,omitempty"`
	FunctionResponse *ToolResult `json:"functionResponse,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func (c *GeminiClient) call(ctx context.Context, model string, conversation []Turn) (*Response, error) {
	payload := geminiRequest{Contents: make([]geminiContent, 0, len(conversation))}
	for _, t := range conversation {
		payload.Contents = append(payload.Contents, geminiContent{
			Role:  string(t.Role),
			Parts: []geminiPart{{Text: t.Text, FunctionCall: t.ToolCall, FunctionResponse: t.ToolResult}},
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &FatalError{Reason: fmt.Sprintf("encoding request: %v", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.BaseURL, model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &FatalError{Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, resp.Body); err != nil {
		return nil, err
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &FatalError{Reason: fmt.Sprintf("decoding response: %v", err)}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, &FatalError{Reason: "empty response from Gemini API"}
	}

	cand := decoded.Candidates[0]
	part := cand.Content.Parts[0]
	if part.Text == "" && part.FunctionCall == nil {
		return nil, &FatalError{Reason: "response carries neither text nor a function call"}
	}
	return &Response{
		Text:         strings.TrimSpace(part.Text),
		ToolCall:     part.FunctionCall,
		FinishReason: cand.FinishReason,
	}, nil
}

// classifyStatus maps an HTTP status to the gateway error taxonomy.
func classifyStatus(status int, body io.Reader) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return &RateLimitedError{Status: status}
	case status >= 500:
		return &TransientError{Status: status}
	default:
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return &FatalError{Reason: fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(msg)))}
	}
}
