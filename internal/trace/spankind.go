package trace

import "github.com/trustfabric/agentca/internal/models"

// resolveSpanKind maps a client-submitted span kind string to its canonical
// SpanKind via the fixed alias table of spec §4.4 ("minimum required").
// Anything unrecognised becomes custom.
func resolveSpanKind(raw string) models.SpanKind {
	switch raw {
	case "llm", "llm_call":
		return models.SpanKindLLMCall
	case "tool", "tool_call":
		return models.SpanKindToolCall
	case "decision":
		return models.SpanKindDecision
	case "file", "file_operation":
		return models.SpanKindFileOp
	case "api", "api_call":
		return models.SpanKindAPICall
	case "agent_action", "agent action":
		return models.SpanKindAgentAction
	default:
		return models.SpanKindCustom
	}
}
