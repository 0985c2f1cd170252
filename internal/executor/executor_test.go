package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/agentca/internal/models"
)

func TestMockExecutorDeterministicSuccess(t *testing.T) {
	exec := NewMockExecutor(MockExecutorConfig{
		AgentID:     "agent-1",
		SuccessRate: 1.0,
		Responses:   map[string]string{"task-1": "canned reply"},
		Seed:        1,
	})

	result := exec.Execute(context.Background(), models.TaskDefinition{ID: "task-1", Prompt: "hello"})
	require.True(t, result.Success)
	assert.Equal(t, "canned reply", result.Response)
	assert.NotEmpty(t, result.ExecutionID)
}

func TestMockExecutorDeterministicFailure(t *testing.T) {
	// A zero SuccessRate selects the 0.95 default, so a negative rate is used
	// to make every execution fail.
	exec := NewMockExecutor(MockExecutorConfig{AgentID: "agent-1", SuccessRate: -1, Seed: 1})
	result := exec.Execute(context.Background(), models.TaskDefinition{ID: "task-1"})
	assert.False(t, result.Success)
	assert.Equal(t, "mock execution failure", result.Error)
}

func TestMockExecutorRespectsCancellation(t *testing.T) {
	exec := NewMockExecutor(MockExecutorConfig{AgentID: "agent-1", SuccessRate: 1.0, Seed: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := exec.Execute(ctx, models.TaskDefinition{ID: "task-1"})
	assert.False(t, result.Success)
	assert.Equal(t, "execution cancelled", result.Error)
}

func TestHTTPExecutorExtractsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is 2+2?", body["prompt"])
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"response": "4"})
	}))
	defer server.Close()

	exec := NewHTTPExecutor(HTTPExecutorConfig{AgentID: "agent-1", EndpointURL: server.URL})
	result := exec.Execute(context.Background(), models.TaskDefinition{ID: "task-1", Prompt: "what is 2+2?"})
	require.True(t, result.Success)
	assert.Equal(t, "4", result.Response)
}

func TestHTTPExecutorNestedResponsePath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": "nested reply"}},
		})
	}))
	defer server.Close()

	exec := NewHTTPExecutor(HTTPExecutorConfig{
		AgentID:      "agent-1",
		EndpointURL:  server.URL,
		ResponsePath: "choices.0.message",
	})
	result := exec.Execute(context.Background(), models.TaskDefinition{ID: "task-1", Prompt: "hi"})
	require.True(t, result.Success)
	assert.Equal(t, "nested reply", result.Response)
}

func TestHTTPExecutorNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	exec := NewHTTPExecutor(HTTPExecutorConfig{AgentID: "agent-1", EndpointURL: server.URL})
	result := exec.Execute(context.Background(), models.TaskDefinition{ID: "task-1", Prompt: "hi"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "HTTP 500")
}

func TestHTTPExecutorTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	exec := NewHTTPExecutor(HTTPExecutorConfig{AgentID: "agent-1", EndpointURL: server.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	result := exec.Execute(ctx, models.TaskDefinition{ID: "task-1", Prompt: "hi"})
	assert.False(t, result.Success)
}
