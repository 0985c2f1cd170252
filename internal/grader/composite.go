package grader

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// WeightedGrader pairs a Grader with its weight inside a CompositeGrader
// (spec §4.3).
type WeightedGrader struct {
	Grader Grader
	Weight float64
}

// CompositeGrader dispatches to every child grader concurrently and
// combines the results into a single weighted verdict (spec §4.3).
type CompositeGrader struct {
	children []WeightedGrader
}

// NewCompositeGrader normalises the given weights to sum to 1.
func NewCompositeGrader(children []WeightedGrader) *CompositeGrader {
	var total float64
	for _, c := range children {
		total += c.Weight
	}
	if total == 0 {
		return &CompositeGrader{children: children}
	}
	normalised := make([]WeightedGrader, len(children))
	for i, c := range children {
		normalised[i] = WeightedGrader{Grader: c.Grader, Weight: c.Weight / total}
	}
	return &CompositeGrader{children: normalised}
}

// Grade runs every child concurrently (bounded by errgroup, one goroutine
// per child) and combines their scores by weight.
func (g *CompositeGrader) Grade(ctx context.Context, gctx GradingContext) (GradeResult, error) {
	start := time.Now()

	results := make([]GradeResult, len(g.children))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, child := range g.children {
		i, child := i, child
		eg.Go(func() error {
			r, err := child.Grader.Grade(egCtx, gctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return GradeResult{}, err
	}

	var weightedScore float64
	var reasonParts []string
	criteria := map[string]float64{}
	allPassed := true
	for i, r := range results {
		weightedScore += g.children[i].Weight * r.Score
		reasonParts = append(reasonParts, r.Reasoning)
		for k, v := range r.CriteriaScores {
			criteria[k] = v
		}
		if !r.Passed {
			allPassed = false
		}
	}

	return newResult(weightedScore, allPassed, strings.Join(reasonParts, "; "), criteria, "", time.Since(start)), nil
}
