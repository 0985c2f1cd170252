package trace

import (
	"github.com/trustfabric/agentca/internal/models"
)

// OpenAIExtractor extracts the Chat Completions wire shape (spec §4.4
// table, second provider contract): flat messages array, tool-role
// messages, finish_reason, and the legacy single function_call field
// synthesised into tool_calls with id "func_call".
type OpenAIExtractor struct{}

func (OpenAIExtractor) ProviderName() string   { return "openai" }
func (OpenAIExtractor) HandledPaths() []string { return []string{"/v1/chat/completions"} }

func (OpenAIExtractor) Extract(requestBody, responseBody map[string]any, latencyMs int64, _ map[string]string) (models.ExtractedTrace, error) {
	var messages []models.Message

	if rawMessages, ok := asSlice(requestBody["messages"]); ok {
		for _, raw := range rawMessages {
			m, ok := asMap(raw)
			if !ok {
				continue
			}
			messages = append(messages, openAIMessage(m))
		}
	}

	if choices, ok := asSlice(responseBody["choices"]); ok && len(choices) > 0 {
		if choice, ok := asMap(choices[0]); ok {
			if msg := openAIResponseMessage(choice, responseBody); msg != nil {
				messages = append(messages, *msg)
			}
		}
	}

	model, _ := asString(requestBody["model"])
	inputTokens, outputTokens, totalTokens, toolCalls := totalsOf(messages)

	return models.ExtractedTrace{
		Provider:          "openai",
		Model:             model,
		Messages:          messages,
		LatencyMs:         latencyMs,
		TotalInputTokens:  inputTokens,
		TotalOutputTokens: outputTokens,
		TotalTokens:       totalTokens,
		ToolCallCount:     toolCalls,
	}, nil
}

func openAIMessage(m map[string]any) models.Message {
	role, _ := asString(m["role"])
	content, _ := asString(m["content"])

	switch role {
	case "system":
		return models.Message{Type: models.MessageTypeSystem, Content: content}
	case "user":
		return models.Message{Type: models.MessageTypeHuman, Content: content}
	case "tool":
		toolCallID, _ := asString(m["tool_call_id"])
		name, _ := asString(m["name"])
		return models.Message{Type: models.MessageTypeTool, Content: content, ToolCallID: toolCallID, Name: name}
	case "assistant":
		msg := models.Message{Type: models.MessageTypeAI, Content: content}
		msg.ToolCalls = append(msg.ToolCalls, openAIToolCalls(m["tool_calls"])...)
		if fc, ok := asMap(m["function_call"]); ok {
			msg.ToolCalls = append(msg.ToolCalls, openAIFunctionCall(fc))
		}
		return msg
	default:
		return models.Message{Type: models.MessageTypeHuman, Content: content}
	}
}

func openAIToolCalls(raw any) []models.ToolCall {
	entries, ok := asSlice(raw)
	if !ok {
		return nil
	}
	var calls []models.ToolCall
	for _, e := range entries {
		entry, ok := asMap(e)
		if !ok {
			continue
		}
		id, _ := asString(entry["id"])
		fn, _ := asMap(entry["function"])
		name, _ := asString(fn["name"])
		argsRaw, _ := asString(fn["arguments"])
		calls = append(calls, models.ToolCall{ID: id, Name: name, Args: parseJSONArgs(argsRaw)})
	}
	return calls
}

// openAIFunctionCall synthesises the legacy single function_call field into
// a ToolCall with the fixed id "func_call" (spec §4.4 table).
func openAIFunctionCall(fc map[string]any) models.ToolCall {
	name, _ := asString(fc["name"])
	argsRaw, _ := asString(fc["arguments"])
	return models.ToolCall{ID: "func_call", Name: name, Args: parseJSONArgs(argsRaw)}
}

func openAIResponseMessage(choice, responseBody map[string]any) *models.Message {
	raw, ok := asMap(choice["message"])
	if !ok {
		return nil
	}
	msg := openAIMessage(raw)

	if usage, ok := asMap(responseBody["usage"]); ok {
		msg.UsageMetadata = &models.UsageMetadata{
			InputTokens:  int64Of(usage["prompt_tokens"]),
			OutputTokens: int64Of(usage["completion_tokens"]),
			TotalTokens:  int64Of(usage["total_tokens"]),
		}
	}
	if finishReason, ok := asString(choice["finish_reason"]); ok {
		msg.ResponseMetadata = &models.ResponseMetadata{FinishReason: finishReason}
	}
	return &msg
}
