// Package trace implements the Trace Ingestion & Streaming Pipeline of
// spec §4.4: provider-specific extraction into a unified schema, atomic
// ingestion with span-kind alias and local-id parent resolution, aggregate
// counters, and async at-most-once per-subscriber event fan-out.
package trace

import (
	"strings"

	"github.com/trustfabric/agentca/internal/models"
)

// Extractor normalises one provider's raw request/response bodies into the
// unified ExtractedTrace schema (spec §4.4).
type Extractor interface {
	ProviderName() string
	HandledPaths() []string
	Extract(requestBody, responseBody map[string]any, latencyMs int64, requestHeaders map[string]string) (models.ExtractedTrace, error)
}

// Registry is a stateless lookup from provider identifier (or router path)
// to its Extractor.
type Registry struct {
	byProvider map[string]Extractor
	byPath     []Extractor
}

// NewRegistry builds a Registry over the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byProvider: make(map[string]Extractor, len(extractors))}
	for _, e := range extractors {
		r.byProvider[e.ProviderName()] = e
		r.byPath = append(r.byPath, e)
	}
	return r
}

// ForProvider looks up an extractor by its declared provider name.
func (r *Registry) ForProvider(name string) (Extractor, bool) {
	e, ok := r.byProvider[name]
	return e, ok
}

// ForPath finds the extractor whose handled_paths contains a prefix of
// path, for router-style dispatch (spec §4.4: "handled_paths (list of URL
// path prefixes)").
func (r *Registry) ForPath(path string) (Extractor, bool) {
	for _, e := range r.byPath {
		for _, prefix := range e.HandledPaths() {
			if strings.HasPrefix(path, prefix) {
				return e, true
			}
		}
	}
	return nil, false
}

// totalsOf recomputes a trace's aggregate counters (spec §4.4 step 6 as
// applied to an ExtractedTrace at extraction time) by scanning Messages.
// ToolCallCount counts invocations (ai messages' tool_calls), not the tool
// result messages that answer them.
func totalsOf(messages []models.Message) (inputTokens, outputTokens, totalTokens int64, toolCalls int) {
	for _, m := range messages {
		if m.UsageMetadata != nil {
			inputTokens += m.UsageMetadata.InputTokens
			outputTokens += m.UsageMetadata.OutputTokens
			totalTokens += m.UsageMetadata.TotalTokens
		}
		toolCalls += len(m.ToolCalls)
	}
	return
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}
