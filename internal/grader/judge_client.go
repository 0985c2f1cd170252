package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// JudgeClient is the shared, process-wide HTTP client for the LLM-judge
// grader (spec §4.3: "one cached shared HTTP client per process"),
// grounded on the original OpenRouterClient's completion request shape and
// its tenacity-based retry policy (stop_after_attempt + wait_exponential).
type JudgeClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxRetries uint64
}

// JudgeClientConfig configures a JudgeClient.
type JudgeClientConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries uint64
}

// NewJudgeClient builds a JudgeClient; the returned client is safe for
// concurrent use and intended to be constructed once per process.
func NewJudgeClient(cfg JudgeClientConfig) *JudgeClient {
	return &JudgeClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// rateLimitedError marks a response that the retry policy should back off
// and retry on (HTTP 429). Returning it unwrapped from doRequest (rather
// than via backoff.Permanent) is what makes it retryable.
type rateLimitedError struct{ status int }

func (e *rateLimitedError) Error() string { return fmt.Sprintf("judge client rate limited: %d", e.status) }

// CompleteJSON sends a deterministic (temperature 0) chat completion
// request expecting a JSON object response, retrying with bounded
// exponential back-off on rate-limit and timeout (spec §4.3).
func (c *JudgeClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	req := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		MaxTokens:      4096,
		ResponseFormat: map[string]any{"type": "json_object"},
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 60 * time.Second
	boWithCtx := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)

	var raw string
	err := backoff.Retry(func() error {
		resp, err := c.doRequest(ctx, req)
		if err != nil {
			return err
		}
		raw = resp
		return nil
	}, boWithCtx)
	if err != nil {
		return nil, fmt.Errorf("judge client request failed after retries: %w", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("judge client returned unparseable JSON: %w", err)
	}
	return parsed, nil
}

func (c *JudgeClient) doRequest(ctx context.Context, req chatCompletionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err // network error: retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &rateLimitedError{status: resp.StatusCode}
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("judge client upstream error: %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return "", backoff.Permanent(fmt.Errorf("judge client request rejected: %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", backoff.Permanent(fmt.Errorf("malformed completion envelope: %w", err))
	}
	if len(completion.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("judge client returned no choices"))
	}
	return completion.Choices[0].Message.Content, nil
}
