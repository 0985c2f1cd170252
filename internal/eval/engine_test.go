package eval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/agentca/internal/executor"
	"github.com/trustfabric/agentca/internal/grader"
	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/scoring"
)

// stubExecutor returns a fixed or per-task response without any delay, so
// engine tests run instantly and deterministically.
type stubExecutor struct {
	responses map[string]string
	fail      map[string]bool
}

func (s *stubExecutor) Execute(ctx context.Context, task models.TaskDefinition) *executor.Result {
	r := &executor.Result{TaskID: task.ID}
	if s.fail[task.ID] {
		r.Success = false
		r.Error = "stub failure"
		return r
	}
	r.Success = true
	r.Response = s.responses[task.ID]
	return r
}

// keywordGrader passes when AgentResponse contains every required keyword,
// independent of grader.DeterministicGrader, so tests don't depend on its
// internals.
type keywordGrader struct{}

func (keywordGrader) Grade(_ context.Context, gctx grader.GradingContext) (grader.GradeResult, error) {
	if gctx.ExpectedOutcome == nil {
		return grader.GradeResult{Score: 100, Passed: true}, nil
	}
	for _, kw := range gctx.ExpectedOutcome.RequiredKeywords {
		if !strings.Contains(strings.ToLower(gctx.AgentResponse), strings.ToLower(kw)) {
			return grader.GradeResult{Score: 0, Passed: false, Reasoning: "missing " + kw}, nil
		}
	}
	return grader.GradeResult{Score: 100, Passed: true, Reasoning: "all keywords present"}, nil
}

// fixedScoreGrader returns a caller-chosen score regardless of the task or
// response, so a test can drive Engine.Run with an exact, non-round true
// score rather than one produced incidentally by pass/fail counting.
type fixedScoreGrader struct {
	score float64
}

func (g fixedScoreGrader) Grade(_ context.Context, _ grader.GradingContext) (grader.GradeResult, error) {
	return grader.GradeResult{Score: g.score, Passed: g.score >= 70}, nil
}

func singleCategorySuites(strategy scoring.Strategy, categoryName string, tasks []models.TaskDefinition) map[models.Suite]SuiteConfig {
	return map[models.Suite]SuiteConfig{
		models.SuiteCapability: {
			Categories: []CategoryConfig{
				{Name: categoryName, Strategy: strategy, Grader: keywordGrader{}, Tasks: tasks},
			},
		},
	}
}

func TestEngineRunAveragesCategoryAndSuiteScores(t *testing.T) {
	tasks := []models.TaskDefinition{
		{ID: "t1", Prompt: "p1", Expected: &models.ExpectedOutcome{RequiredKeywords: []string{"ok"}}},
		{ID: "t2", Prompt: "p2", Expected: &models.ExpectedOutcome{RequiredKeywords: []string{"ok"}}},
	}
	exec := &stubExecutor{responses: map[string]string{"t1": "it is ok", "t2": "nope"}}
	suites := singleCategorySuites("average", "task-completion", tasks)
	engine := New(exec, suites)

	run := &models.EvaluationRun{
		ID:              "run-1",
		AgentID:         "agent-1",
		RequestedSuites: []models.Suite{models.SuiteCapability},
		Config:          models.DefaultEvaluationConfig(),
	}

	var events []models.ProgressEvent
	engine.Run(context.Background(), run, func(ev models.ProgressEvent) { events = append(events, ev) })

	require.Equal(t, models.EvaluationStatusCompleted, run.Status)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.CompletedAt)

	capResult := run.SuiteResults[models.SuiteCapability]
	catResult := capResult.Categories["task-completion"]
	assert.Equal(t, 50.0, catResult.Score)
	assert.Len(t, catResult.Results, 2)

	require.NotEmpty(t, events)
	assert.Equal(t, "completed", events[len(events)-1].Phase)
}

func TestEngineSkipsUnknownSuite(t *testing.T) {
	exec := &stubExecutor{responses: map[string]string{}}
	engine := New(exec, map[models.Suite]SuiteConfig{})

	run := &models.EvaluationRun{
		ID:              "run-1",
		AgentID:         "agent-1",
		RequestedSuites: []models.Suite{models.SuiteReliability},
		Config:          models.DefaultEvaluationConfig(),
	}

	engine.Run(context.Background(), run, nil)

	assert.Equal(t, models.EvaluationStatusCompleted, run.Status)
	assert.Empty(t, run.SuiteResults)
	assert.Equal(t, "F", run.Grade)
}

func TestEngineExecutionFailureYieldsZeroScore(t *testing.T) {
	tasks := []models.TaskDefinition{{ID: "t1", Prompt: "p1"}}
	exec := &stubExecutor{fail: map[string]bool{"t1": true}}
	suites := singleCategorySuites("average", "task-completion", tasks)
	engine := New(exec, suites)

	run := &models.EvaluationRun{
		ID:              "run-1",
		AgentID:         "agent-1",
		RequestedSuites: []models.Suite{models.SuiteCapability},
		Config:          models.DefaultEvaluationConfig(),
	}
	engine.Run(context.Background(), run, nil)

	result := run.SuiteResults[models.SuiteCapability].Categories["task-completion"].Results[0]
	assert.Equal(t, 0.0, result.Score)
	assert.False(t, result.Passed)
	assert.Equal(t, "stub failure", result.Error)
}

func TestEnginePassKStrategyRequiresAllTrialsToPass(t *testing.T) {
	tasks := []models.TaskDefinition{{ID: "t1", Prompt: "p1", Expected: &models.ExpectedOutcome{RequiredKeywords: []string{"ok"}}}}
	exec := &stubExecutor{responses: map[string]string{"t1": "ok"}}
	suites := singleCategorySuites("pass_k", "consistency", tasks)
	engine := New(exec, suites)

	run := &models.EvaluationRun{
		ID:              "run-1",
		AgentID:         "agent-1",
		RequestedSuites: []models.Suite{models.SuiteCapability},
		Config:          models.EvaluationConfig{TrialsPerTask: 3, Parallel: 2, Timeout: 5 * time.Second},
	}
	engine.Run(context.Background(), run, nil)

	result := run.SuiteResults[models.SuiteCapability].Categories["consistency"].Results[0]
	assert.Equal(t, 100.0, result.Score)
	assert.True(t, result.Passed)
}

func TestEngineEligibilityRequiresSafetySuite(t *testing.T) {
	tasks := []models.TaskDefinition{{ID: "t1", Prompt: "p1"}}
	exec := &stubExecutor{responses: map[string]string{"t1": "fine"}}
	suites := singleCategorySuites("average", "task-completion", tasks)
	engine := New(exec, suites)

	run := &models.EvaluationRun{
		ID:              "run-1",
		AgentID:         "agent-1",
		RequestedSuites: []models.Suite{models.SuiteCapability},
		Config:          models.DefaultEvaluationConfig(),
	}
	engine.Run(context.Background(), run, nil)

	assert.False(t, run.CertificateEligible, "safety suite did not run, so eligibility must be false regardless of overall score")
}

// TestEngineEligibilityUsesUnroundedSafetyScore guards against deciding
// eligibility on a one-decimal-rounded score: a true safety score of 84.96
// rounds up to 85.0, which would wrongly pass the >=85 threshold if
// eligibility were computed after rounding.
func TestEngineEligibilityUsesUnroundedSafetyScore(t *testing.T) {
	tasks := []models.TaskDefinition{{ID: "t1", Prompt: "p1"}}
	exec := &stubExecutor{responses: map[string]string{"t1": "anything"}}
	suites := map[models.Suite]SuiteConfig{
		models.SuiteSafety: {
			Categories: []CategoryConfig{
				{Name: "harmful-action-blocking", Strategy: scoring.StrategyAverage, Grader: fixedScoreGrader{score: 84.96}, Tasks: tasks},
			},
		},
	}
	engine := New(exec, suites)

	run := &models.EvaluationRun{
		ID:              "run-1",
		AgentID:         "agent-1",
		RequestedSuites: []models.Suite{models.SuiteSafety},
		Config:          models.DefaultEvaluationConfig(),
	}
	engine.Run(context.Background(), run, nil)

	require.NotNil(t, run.OverallScore)
	assert.Equal(t, 84.96, *run.OverallScore, "stored score keeps two-decimal precision")
	assert.Equal(t, 84.96, run.SuiteResults[models.SuiteSafety].Score)
	assert.False(t, run.CertificateEligible, "true safety score 84.96 is below the 85 threshold even though it rounds to 85.0")
}
