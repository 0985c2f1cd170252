package models

import "time"

// SpanKind is the canonical span type, after alias resolution (spec §4.4).
type SpanKind string

const (
	SpanKindLLMCall     SpanKind = "LLM call"
	SpanKindToolCall    SpanKind = "tool call"
	SpanKindAgentAction SpanKind = "agent action"
	SpanKindDecision    SpanKind = "decision"
	SpanKindFileOp      SpanKind = "file op"
	SpanKindAPICall     SpanKind = "API call"
	SpanKindCustom      SpanKind = "custom"
)

// SpanStatus is the terminal outcome of a span.
type SpanStatus string

const (
	SpanStatusOK        SpanStatus = "ok"
	SpanStatusError     SpanStatus = "error"
	SpanStatusCancelled SpanStatus = "cancelled"
)

// TraceStatus tracks whether a trace is still accumulating spans.
type TraceStatus string

const (
	TraceStatusOpen      TraceStatus = "open"
	TraceStatusCompleted TraceStatus = "completed"
	TraceStatusFailed    TraceStatus = "failed"
)

// Trace is a time-ordered record of one agent execution with aggregated
// counters (spec §3).
type Trace struct {
	ID                string         `json:"id"`
	AgentID           string         `json:"agent_id"`
	ThreadID          string         `json:"thread_id,omitempty"`
	Status            TraceStatus    `json:"status"`
	StartedAt         time.Time      `json:"started_at"`
	EndedAt           *time.Time     `json:"ended_at,omitempty"`
	TotalInputTokens  int64          `json:"total_input_tokens"`
	TotalOutputTokens int64          `json:"total_output_tokens"`
	TotalTokens       int64          `json:"total_tokens"`
	ToolCallCount     int            `json:"tool_call_count"`
	TotalLatencyMs    int64          `json:"total_latency_ms"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Span is a timed, typed unit of work nested under a trace (spec §3).
type Span struct {
	ID              string         `json:"id"`
	TraceID         string         `json:"trace_id"`
	ParentSpanID    string         `json:"parent_span_id,omitempty"`
	Kind            SpanKind       `json:"kind"`
	Name            string         `json:"name"`
	StartedAt       time.Time      `json:"started_at"`
	EndedAt         *time.Time     `json:"ended_at,omitempty"`
	Status          SpanStatus     `json:"status"`
	Attributes      map[string]any `json:"attributes,omitempty"`
	Model           string         `json:"model,omitempty"`
	ToolName        string         `json:"tool_name,omitempty"`
	ToolInput       map[string]any `json:"tool_input,omitempty"`
	ToolOutput      any            `json:"tool_output,omitempty"`
	ErrorType       string         `json:"error_type,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	InputTokens  int64 `json:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens,omitempty"`
	TotalTokens  int64 `json:"total_tokens,omitempty"`
	LatencyMs    int64 `json:"latency_ms,omitempty"`
}

// IsAICall reports whether the span represents an LLM invocation whose
// usage metadata should feed trace-level token aggregates.
func (s *Span) IsAICall() bool {
	return s.Kind == SpanKindLLMCall
}

// --- Unified trace extraction schema (spec §4.4) ---

// MessageRole is the role of a normalised provider message.
type MessageRole string

const (
	MessageTypeHuman  MessageRole = "human"
	MessageTypeAI     MessageRole = "ai"
	MessageTypeTool   MessageRole = "tool"
	MessageTypeSystem MessageRole = "system"
)

// ToolCall is a normalised tool invocation extracted from a provider
// response (spec §4.4).
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// UsageMetadata carries token accounting for an AI message.
type UsageMetadata struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ResponseMetadata carries provider-specific completion metadata normalised
// to a common shape (spec §4.4 table: stop_reason/finish_reason).
type ResponseMetadata struct {
	FinishReason string `json:"finish_reason,omitempty"`
	LatencyMs    int64  `json:"latency_ms,omitempty"`
}

// Message is one normalised turn in a ExtractedTrace.
type Message struct {
	Type             MessageRole       `json:"type"`
	Content          string            `json:"content,omitempty"`
	ToolCalls        []ToolCall        `json:"tool_calls,omitempty"`
	ToolCallID       string            `json:"tool_call_id,omitempty"`
	Name             string            `json:"name,omitempty"`
	UsageMetadata    *UsageMetadata    `json:"usage_metadata,omitempty"`
	ResponseMetadata *ResponseMetadata `json:"response_metadata,omitempty"`
}

// ExtractedTrace is the unified normalised form every provider extractor
// must produce (spec §4.4).
type ExtractedTrace struct {
	Provider          string    `json:"provider"`
	Model             string    `json:"model"`
	ThreadID          string    `json:"thread_id,omitempty"`
	Messages          []Message `json:"messages"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at"`
	LatencyMs         int64     `json:"latency_ms"`
	TotalInputTokens  int64     `json:"total_input_tokens"`
	TotalOutputTokens int64     `json:"total_output_tokens"`
	TotalTokens       int64     `json:"total_tokens"`
	ToolCallCount     int            `json:"tool_call_count"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// SpanSubmission is one span as submitted by a client, carrying a local
// (client-side) id so siblings in the same batch can reference each other
// before server ids are assigned (spec §4.4 step 4).
type SpanSubmission struct {
	LocalID           string         `json:"local_id"`
	ParentLocalSpanID string         `json:"parent_local_span_id,omitempty"`
	Kind              string         `json:"kind"`
	Name              string         `json:"name"`
	StartedAt         time.Time      `json:"started_at"`
	EndedAt           *time.Time     `json:"ended_at,omitempty"`
	Status            SpanStatus     `json:"status"`
	Attributes        map[string]any `json:"attributes,omitempty"`
	Model             string         `json:"model,omitempty"`
	ToolName          string         `json:"tool_name,omitempty"`
	ToolInput         map[string]any `json:"tool_input,omitempty"`
	ToolOutput        any            `json:"tool_output,omitempty"`
	ErrorType         string         `json:"error_type,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	UsageMetadata     *UsageMetadata    `json:"usage_metadata,omitempty"`
	ResponseMetadata  *ResponseMetadata `json:"response_metadata,omitempty"`
}

// TraceIngestRequest is the payload of POST /v1/traces/batch (spec §4.4).
type TraceIngestRequest struct {
	AgentID  string           `json:"agent_id"`
	TraceID  string           `json:"trace_id,omitempty"`
	ThreadID string           `json:"thread_id,omitempty"`
	Spans    []SpanSubmission `json:"spans"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}
