package trace

import (
	"encoding/json"
	"strings"

	"github.com/trustfabric/agentca/internal/models"
)

// AnthropicExtractor extracts the Messages-API wire shape (spec §4.4 table,
// first provider contract): system content blocks, user turns with
// tool_result blocks, assistant text/tool_use blocks, stop_reason.
type AnthropicExtractor struct{}

func (AnthropicExtractor) ProviderName() string   { return "anthropic" }
func (AnthropicExtractor) HandledPaths() []string { return []string{"/v1/messages"} }

func (AnthropicExtractor) Extract(requestBody, responseBody map[string]any, latencyMs int64, _ map[string]string) (models.ExtractedTrace, error) {
	var messages []models.Message

	if sys, ok := requestBody["system"]; ok {
		if content := flattenSystemContent(sys); content != "" {
			messages = append(messages, models.Message{Type: models.MessageTypeSystem, Content: content})
		}
	}

	if rawMessages, ok := asSlice(requestBody["messages"]); ok {
		for _, raw := range rawMessages {
			m, ok := asMap(raw)
			if !ok {
				continue
			}
			role, _ := asString(m["role"])
			messages = append(messages, anthropicTurnMessages(role, m["content"])...)
		}
	}

	if len(responseBody) > 0 {
		messages = append(messages, anthropicAssistantTurn(responseBody)...)
	}

	model, _ := asString(requestBody["model"])
	inputTokens, outputTokens, totalTokens, toolCalls := totalsOf(messages)

	return models.ExtractedTrace{
		Provider:          "anthropic",
		Model:             model,
		Messages:          messages,
		LatencyMs:         latencyMs,
		TotalInputTokens:  inputTokens,
		TotalOutputTokens: outputTokens,
		TotalTokens:       totalTokens,
		ToolCallCount:     toolCalls,
	}, nil
}

// flattenSystemContent concatenates array system content with newlines
// (spec §4.4 table).
func flattenSystemContent(sys any) string {
	if s, ok := asString(sys); ok {
		return s
	}
	blocks, ok := asSlice(sys)
	if !ok {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		block, ok := asMap(b)
		if !ok {
			continue
		}
		if text, ok := asString(block["text"]); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// anthropicTurnMessages handles one request-side "user"/"assistant" turn.
func anthropicTurnMessages(role string, content any) []models.Message {
	if s, ok := asString(content); ok {
		switch role {
		case "user":
			return []models.Message{{Type: models.MessageTypeHuman, Content: s}}
		case "assistant":
			return []models.Message{{Type: models.MessageTypeAI, Content: s}}
		}
		return nil
	}

	blocks, ok := asSlice(content)
	if !ok {
		return nil
	}

	switch role {
	case "user":
		return anthropicUserBlocks(blocks)
	case "assistant":
		return []models.Message{anthropicAssistantBlocks(blocks)}
	}
	return nil
}

// anthropicUserBlocks splits a user turn's content blocks into one tool
// message per tool_result block plus one human message collating the
// remaining text (spec §4.4 table).
func anthropicUserBlocks(blocks []any) []models.Message {
	var messages []models.Message
	var textParts []string

	for _, b := range blocks {
		block, ok := asMap(b)
		if !ok {
			continue
		}
		switch block["type"] {
		case "tool_result":
			toolUseID, _ := asString(block["tool_use_id"])
			messages = append(messages, models.Message{
				Type:       models.MessageTypeTool,
				Content:    renderToolResultContent(block["content"]),
				ToolCallID: toolUseID,
			})
		case "text":
			if text, ok := asString(block["text"]); ok {
				textParts = append(textParts, text)
			}
		}
	}

	if len(textParts) > 0 {
		messages = append(messages, models.Message{Type: models.MessageTypeHuman, Content: strings.Join(textParts, "\n")})
	}
	return messages
}

func renderToolResultContent(content any) string {
	if s, ok := asString(content); ok {
		return s
	}
	blocks, ok := asSlice(content)
	if !ok {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		block, ok := asMap(b)
		if !ok {
			continue
		}
		if text, ok := asString(block["text"]); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// anthropicAssistantBlocks folds assistant text blocks into Content and
// tool_use blocks into ToolCalls (spec §4.4 table).
func anthropicAssistantBlocks(blocks []any) models.Message {
	msg := models.Message{Type: models.MessageTypeAI}
	var textParts []string
	for _, b := range blocks {
		block, ok := asMap(b)
		if !ok {
			continue
		}
		switch block["type"] {
		case "text":
			if text, ok := asString(block["text"]); ok {
				textParts = append(textParts, text)
			}
		case "tool_use":
			id, _ := asString(block["id"])
			name, _ := asString(block["name"])
			input, _ := asMap(block["input"])
			msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{ID: id, Name: name, Args: input})
		}
	}
	msg.Content = strings.Join(textParts, "\n")
	return msg
}

// anthropicAssistantTurn extracts the response body's top-level assistant
// turn, attaching usage metadata and stop_reason (spec §4.4 table).
func anthropicAssistantTurn(responseBody map[string]any) []models.Message {
	blocks, ok := asSlice(responseBody["content"])
	if !ok {
		return nil
	}
	msg := anthropicAssistantBlocks(blocks)

	if usage, ok := asMap(responseBody["usage"]); ok {
		input := int64Of(usage["input_tokens"])
		output := int64Of(usage["output_tokens"])
		msg.UsageMetadata = &models.UsageMetadata{
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		}
	}
	if stopReason, ok := asString(responseBody["stop_reason"]); ok {
		msg.ResponseMetadata = &models.ResponseMetadata{FinishReason: stopReason}
	}
	return []models.Message{msg}
}

func int64Of(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

// parseJSONArgs parses a JSON-encoded argument string; on failure the raw
// text is preserved under key "raw" (spec §4.4: "Arguments that arrive as
// JSON-encoded strings are parsed; on parse failure the raw text is
// preserved under key raw").
func parseJSONArgs(raw string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw": raw}
	}
	return args
}
