package grader

import (
	"context"
	"fmt"
	"time"
)

// LLMJudgeGrader sends a deterministic system+user prompt to a shared
// JudgeClient and parses its strict JSON verdict (spec §4.3).
type LLMJudgeGrader struct {
	client       *JudgeClient
	systemPrompt string
}

// NewLLMJudgeGrader builds an LLMJudgeGrader around a shared client.
func NewLLMJudgeGrader(client *JudgeClient, systemPrompt string) *LLMJudgeGrader {
	return &LLMJudgeGrader{client: client, systemPrompt: systemPrompt}
}

// Grade asks the judge client to score the response. On parse failure or
// exhausted retries it returns the spec's fallback verdict rather than an
// error, so a single flaky judge call can't abort the whole evaluation run.
func (g *LLMJudgeGrader) Grade(ctx context.Context, gctx GradingContext) (GradeResult, error) {
	start := time.Now()

	userPrompt := fmt.Sprintf("Task:\n%s\n\nAgent response:\n%s", gctx.TaskPrompt, gctx.AgentResponse)

	parsed, err := g.client.CompleteJSON(ctx, g.systemPrompt, userPrompt)
	if err != nil {
		return newResult(0, false, fmt.Sprintf("grading failed: %v", err), nil, g.client.model, time.Since(start)), nil
	}

	score, _ := parsed["score"].(float64)
	reasoning, _ := parsed["reasoning"].(string)
	passed, _ := parsed["passed"].(bool)

	criteria := map[string]float64{}
	if raw, ok := parsed["criteria_scores"].(map[string]any); ok {
		for k, v := range raw {
			if f, ok := v.(float64); ok {
				criteria[k] = f
			}
		}
	}

	return newResult(score, passed, reasoning, criteria, g.client.model, time.Since(start)), nil
}
