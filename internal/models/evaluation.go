package models

import "time"

// Suite is one of the four evaluation axes (spec GLOSSARY).
type Suite string

const (
	SuiteCapability     Suite = "capability"
	SuiteSafety         Suite = "safety"
	SuiteReliability    Suite = "reliability"
	SuiteCommunication  Suite = "communication"
)

// AllSuites is the registration order used whenever suites must be iterated
// deterministically (e.g. renormalising the overall score).
var AllSuites = []Suite{SuiteCapability, SuiteSafety, SuiteReliability, SuiteCommunication}

// EvaluationStatus tracks the linear status progression of spec §3/§5.
type EvaluationStatus string

const (
	EvaluationStatusPending   EvaluationStatus = "pending"
	EvaluationStatusRunning   EvaluationStatus = "running"
	EvaluationStatusCompleted EvaluationStatus = "completed"
	EvaluationStatusFailed    EvaluationStatus = "failed"
	EvaluationStatusCancelled EvaluationStatus = "cancelled"
)

// EvaluationConfig carries the per-run tunables of spec §4.2.
type EvaluationConfig struct {
	TrialsPerTask int           `json:"trials_per_task"`
	Parallel      int           `json:"parallel"`
	Timeout       time.Duration `json:"timeout"`
}

// DefaultEvaluationConfig mirrors spec §4.2's stated defaults.
func DefaultEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{TrialsPerTask: 1, Parallel: 5, Timeout: 60 * time.Second}
}

// TestResult is the outcome of grading one task execution.
type TestResult struct {
	TaskID   string         `json:"task_id"`
	Score    float64        `json:"score"`
	Passed   bool           `json:"passed"`
	Error    string         `json:"error,omitempty"`
	Reasoning string        `json:"reasoning,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// CategoryResult aggregates a test category's TestResults (spec §4.2).
type CategoryResult struct {
	Category string         `json:"category"`
	Score    float64        `json:"score"`
	Results  []TestResult   `json:"results"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// SuiteResult aggregates a suite's CategoryResults with suite weights.
type SuiteResult struct {
	Suite      Suite                     `json:"suite"`
	Score      float64                   `json:"score"`
	Categories map[string]CategoryResult `json:"categories"`
}

// ProgressEvent is reported during orchestration (spec §4.2 step 2).
type ProgressEvent struct {
	Percent float64 `json:"percent"`
	Suite   string  `json:"suite"`
	Phase   string  `json:"phase"`
}

// EvaluationRun is the root record of one evaluation (spec §3).
type EvaluationRun struct {
	ID                    string                 `json:"id"`
	AgentID               string                 `json:"agent_id"`
	RequestedSuites       []Suite                `json:"requested_suites"`
	Config                EvaluationConfig       `json:"config"`
	Status                EvaluationStatus       `json:"status"`
	OverallScore          *float64               `json:"overall_score"`
	SuiteScores           map[Suite]*float64     `json:"suite_scores"`
	Grade                 string                 `json:"grade,omitempty"`
	CertificateEligible   bool                   `json:"certificate_eligible"`
	CertifiedCapabilities []string               `json:"certified_capabilities,omitempty"`
	SuiteResults          map[Suite]SuiteResult  `json:"suite_results,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
	StartedAt             *time.Time             `json:"started_at,omitempty"`
	CompletedAt           *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage          string                 `json:"error_message,omitempty"`
}

// SafetyScore returns the safety suite score, or nil if safety wasn't run.
func (e *EvaluationRun) SafetyScore() *float64 {
	return e.SuiteScores[SuiteSafety]
}
