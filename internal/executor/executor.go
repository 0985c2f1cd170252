// Package executor runs evaluation tasks against an external agent and
// reports the raw response, independent of grading (spec §4.2), grounded on
// the original BaseAgentExecutor/ExecutionResult hierarchy.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/models"
)

// Result is the outcome of executing one task against one agent.
type Result struct {
	TaskID      string
	AgentID     string
	ExecutionID string

	Response string
	Success  bool
	Error    string

	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64

	TraceData map[string]any
	Metadata  map[string]any
}

// newResult starts a Result clock; callers finish it with complete/fail.
func newResult(taskID, agentID string) *Result {
	return &Result{
		TaskID:      taskID,
		AgentID:     agentID,
		ExecutionID: uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		Metadata:    map[string]any{},
		TraceData:   map[string]any{},
	}
}

func (r *Result) complete(response string) {
	r.Response = response
	r.Success = true
	r.CompletedAt = time.Now().UTC()
	r.DurationMs = r.CompletedAt.Sub(r.StartedAt).Milliseconds()
}

func (r *Result) fail(err string) {
	r.Error = err
	r.Success = false
	r.CompletedAt = time.Now().UTC()
	r.DurationMs = r.CompletedAt.Sub(r.StartedAt).Milliseconds()
}

// Executor runs a single task against one agent and returns its raw
// response. Implementations must honour ctx cancellation promptly and tear
// down any resource they opened for the call (spec §8: cooperative but
// prompt cancellation).
//
// Execute never returns a transport error: any failure (timeout, non-2xx,
// network error) is captured in the returned Result's Success/Error fields,
// mirroring the original executor's internal try/except-and-report pattern.
type Executor interface {
	Execute(ctx context.Context, task models.TaskDefinition) *Result
}
