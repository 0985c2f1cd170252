package executor

import (
	"context"
	"math/rand"
	"time"

	"github.com/trustfabric/agentca/internal/models"
)

// MockExecutor returns canned or generic responses without contacting a
// real agent, grounded on the original MockAgentExecutor. Useful for
// exercising the evaluation engine and TACP flows in tests and demos.
type MockExecutor struct {
	agentID        string
	responses      map[string]string
	defaultResponse string
	successRate    float64
	rng            *rand.Rand
}

// MockExecutorConfig configures a MockExecutor.
type MockExecutorConfig struct {
	AgentID         string
	Responses       map[string]string
	DefaultResponse string
	SuccessRate     float64
	Seed            int64
}

// NewMockExecutor builds a MockExecutor, defaulting DefaultResponse and
// SuccessRate when left unset.
func NewMockExecutor(cfg MockExecutorConfig) *MockExecutor {
	defaultResponse := cfg.DefaultResponse
	if defaultResponse == "" {
		defaultResponse = "This is a mock response."
	}
	successRate := cfg.SuccessRate
	if successRate == 0 {
		successRate = 0.95
	}
	responses := cfg.Responses
	if responses == nil {
		responses = map[string]string{}
	}
	return &MockExecutor{
		agentID:         cfg.AgentID,
		responses:       responses,
		defaultResponse: defaultResponse,
		successRate:     successRate,
		rng:             rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Execute simulates a short execution delay then succeeds or fails
// according to the configured success rate.
func (e *MockExecutor) Execute(ctx context.Context, task models.TaskDefinition) *Result {
	r := newResult(task.ID, e.agentID)

	delay := time.Duration(100+e.rng.Intn(400)) * time.Millisecond
	select {
	case <-ctx.Done():
		r.fail("execution cancelled")
		return r
	case <-time.After(delay):
	}

	if e.rng.Float64() < e.successRate {
		response, ok := e.responses[task.ID]
		if !ok {
			response = e.defaultResponse
		}
		r.complete(response)
	} else {
		r.fail("mock execution failure")
	}
	return r
}
