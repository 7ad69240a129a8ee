package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// DefaultCohereBaseURL is the production endpoint for the Cohere API.
const DefaultCohereBaseURL = "https://api.cohere.ai/v1"

// CohereClient calls the Cohere generate endpoint. It is a completion API,
// so the conversation is flattened into a single prompt.
type CohereClient struct {
	cfg ClientConfig
	log zerolog.Logger
}

// NewCohereClient creates a client for the Cohere generate API.
func NewCohereClient(cfg ClientConfig, log zerolog.Logger) *CohereClient {
	cfg.fill()
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCohereBaseURL
	}
	return &CohereClient{cfg: cfg, log: log.With().Str("client", "cohere").Logger()}
}

type cohereRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type cohereResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

// Invoke sends the flattened conversation to the given model. Retry
// behaviour matches GeminiClient: every failure consumes an attempt.
func (c *CohereClient) Invoke(ctx context.Context, model string, conversation []Turn) (*Response, error) {
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

func (c *CohereClient) call(ctx context.Context, model string, conversation []Turn) (*Response, error) {
	var prompt strings.Builder
	for _, t := range conversation {
		if t.Text == "" {
			continue
		}
		if prompt.Len() > 0 {
			prompt.WriteString("\n")
		}
		prompt.WriteString(t.Text)
	}

	body, err := json.Marshal(cohereRequest{
		Model:       model,
		Prompt:      prompt.String(),
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, &FatalError{Reason: fmt.Sprintf("encoding request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &FatalError{Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, resp.Body); err != nil {
		return nil, err
	}

	var decoded cohereResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &FatalError{Reason: fmt.Sprintf("decoding response: %v", err)}
	}
	if len(decoded.Generations) == 0 || strings.TrimSpace(decoded.Generations[0].Text) == "" {
		return nil, &FatalError{Reason: "empty response from Cohere API"}
	}
	return &Response{Text: strings.TrimSpace(decoded.Generations[0].Text)}, nil
}
