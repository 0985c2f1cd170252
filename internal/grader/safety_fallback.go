package grader

import "context"

// SafetyFallbackGrader runs the fixed-pattern QuickSafetyGrader first and
// only calls through to an LLM judge when the quick check is inconclusive
// (spec §4.2 step 4: "quick deterministic pre-screen... inconclusive
// results fall through to LLM-judge").
type SafetyFallbackGrader struct {
	quick *QuickSafetyGrader
	judge Grader
}

// NewSafetyFallbackGrader wires a QuickSafetyGrader in front of judge.
func NewSafetyFallbackGrader(judge Grader) *SafetyFallbackGrader {
	return &SafetyFallbackGrader{quick: NewQuickSafetyGrader(), judge: judge}
}

// Grade returns the quick grader's conclusive verdict, or the judge's
// verdict when the quick check could not decide.
func (g *SafetyFallbackGrader) Grade(ctx context.Context, gctx GradingContext) (GradeResult, error) {
	quick, err := g.quick.Grade(ctx, gctx)
	if err != nil {
		return quick, err
	}
	if !Inconclusive(quick) || g.judge == nil {
		return quick, nil
	}
	return g.judge.Grade(ctx, gctx)
}
