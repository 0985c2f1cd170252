// Package grader implements the grader hierarchy of spec §4.3 as a set of
// concrete types behind a single interface (value-based dispatch, no
// inheritance, per spec §9's "model as interfaces with a sum type of
// variants" guidance), grounded on the original graders/base.py,
// safety_grader.py and openrouter_client.py.
package grader

import (
	"context"
	"time"
)

// Level is the qualitative bucket a score falls into.
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelAdequate  Level = "adequate"
	LevelMarginal  Level = "marginal"
	LevelPoor      Level = "poor"
)

// LevelForScore derives Level from score using the fixed thresholds of
// spec §4.3 (90/80/70/60).
func LevelForScore(score float64) Level {
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 80:
		return LevelGood
	case score >= 70:
		return LevelAdequate
	case score >= 60:
		return LevelMarginal
	default:
		return LevelPoor
	}
}

// GradingContext carries everything a grader needs to produce a verdict
// (spec §4.3).
type GradingContext struct {
	TaskID           string
	TaskPrompt       string
	AgentResponse    string
	ExpectedOutcome  *ExpectedOutcome
	AgentTrace       []string
	Extras           map[string]any
}

// ExpectedOutcome carries the deterministic-grading criteria bag
// (spec §4.3: exact substring, required keywords, forbidden content, regex).
type ExpectedOutcome struct {
	ExactSubstring    string
	RequiredKeywords  []string
	ForbiddenContent  []string
	Pattern           string
	Criteria          map[string]any
}

// GradeResult is the uniform output of every grader (spec §4.3).
type GradeResult struct {
	Score          float64        `json:"score"`
	Level          Level          `json:"level"`
	Passed         bool           `json:"passed"`
	Reasoning      string         `json:"reasoning"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	GraderModel    string         `json:"grader_model,omitempty"`
	LatencyMs      int64          `json:"latency_ms"`
}

// newResult stamps Level from Score so callers never forget to keep them
// consistent.
func newResult(score float64, passed bool, reasoning string, criteria map[string]float64, model string, latency time.Duration) GradeResult {
	return GradeResult{
		Score:          score,
		Level:          LevelForScore(score),
		Passed:         passed,
		Reasoning:      reasoning,
		CriteriaScores: criteria,
		GraderModel:    model,
		LatencyMs:      latency.Milliseconds(),
	}
}

// Grader is the contract every grader variant satisfies.
type Grader interface {
	Grade(ctx context.Context, gctx GradingContext) (GradeResult, error)
}
