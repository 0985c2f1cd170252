package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/trustfabric/agentca/internal/models"
)

// HTTPExecutor sends task prompts to a generic REST endpoint and extracts
// the agent's reply via a dotted JSON path, grounded on the original
// HTTPAgentExecutor.
type HTTPExecutor struct {
	client         *http.Client
	agentID        string
	endpointURL    string
	apiKey         string
	method         string
	requestTemplate map[string]any
	responsePath   string
	timeout        time.Duration
}

// HTTPExecutorConfig configures an HTTPExecutor.
type HTTPExecutorConfig struct {
	AgentID         string
	EndpointURL     string
	APIKey          string
	Method          string
	RequestTemplate map[string]any
	ResponsePath    string
	Timeout         time.Duration
}

// NewHTTPExecutor builds an HTTPExecutor, defaulting method to POST, the
// request template to {"prompt": "{prompt}"}, and response path to
// "response" when left unset.
func NewHTTPExecutor(cfg HTTPExecutorConfig) *HTTPExecutor {
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	template := cfg.RequestTemplate
	if template == nil {
		template = map[string]any{"prompt": "{prompt}"}
	}
	responsePath := cfg.ResponsePath
	if responsePath == "" {
		responsePath = "response"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPExecutor{
		client:          &http.Client{Timeout: timeout},
		agentID:         cfg.AgentID,
		endpointURL:     cfg.EndpointURL,
		apiKey:          cfg.APIKey,
		method:          method,
		requestTemplate: template,
		responsePath:    responsePath,
		timeout:         timeout,
	}
}

// Execute sends the task prompt to the configured endpoint and extracts the
// agent's response text.
func (e *HTTPExecutor) Execute(ctx context.Context, task models.TaskDefinition) *Result {
	r := newResult(task.ID, e.agentID)

	body, err := e.buildRequestBody(task)
	if err != nil {
		r.fail(fmt.Sprintf("failed to build request body: %v", err))
		return r
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		r.fail(fmt.Sprintf("failed to encode request body: %v", err))
		return r
	}

	httpReq, err := http.NewRequestWithContext(ctx, e.method, e.endpointURL, bytes.NewReader(encoded))
	if err != nil {
		r.fail(fmt.Sprintf("failed to build request: %v", err))
		return r
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
			r.fail(fmt.Sprintf("execution timed out after %s", e.timeout))
		} else {
			r.fail(err.Error())
		}
		return r
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		r.fail(fmt.Sprintf("failed to read response body: %v", err))
		return r
	}

	if resp.StatusCode >= 400 {
		r.fail(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody)))
		return r
	}

	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		r.fail(fmt.Sprintf("failed to decode response body: %v", err))
		return r
	}

	r.complete(extractResponse(decoded, e.responsePath))
	return r
}

func (e *HTTPExecutor) buildRequestBody(task models.TaskDefinition) (map[string]any, error) {
	raw, err := json.Marshal(e.requestTemplate)
	if err != nil {
		return nil, err
	}
	escaped := strings.ReplaceAll(task.Prompt, `"`, `\"`)
	filled := strings.ReplaceAll(string(raw), "{prompt}", escaped)
	filled = strings.ReplaceAll(filled, "{task_id}", task.ID)

	var body map[string]any
	if err := json.Unmarshal([]byte(filled), &body); err != nil {
		return nil, err
	}
	return body, nil
}

// extractResponse walks a dotted JSON path ("choices.0.message") through a
// decoded response body, grounded on the original's _extract_response.
func extractResponse(data map[string]any, path string) string {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return fmt.Sprintf("%v", current)
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return fmt.Sprintf("%v", current)
			}
			current = v[idx]
		default:
			return fmt.Sprintf("%v", current)
		}
	}
	if s, ok := current.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", current)
}
