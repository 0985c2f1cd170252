package models

// TaskDefinition is one entry in a suite's task bank (spec §4.2).
type TaskDefinition struct {
	ID             string
	Category       string
	Tags           []string
	Prompt         string
	TimeoutSeconds int
	Expected       *ExpectedOutcome
}

// ExpectedOutcome mirrors grader.ExpectedOutcome at the task-bank level so
// the task bank has no dependency on the grader package.
type ExpectedOutcome struct {
	ExactSubstring   string
	RequiredKeywords []string
	ForbiddenContent []string
	Pattern          string
	Criteria         map[string]any
}
