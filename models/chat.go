// Package models holds the chat wire types shared by LLM providers and the
// agent loop.
package models

import "github.com/mohammad-safakhou/webagent/tools"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the model's raw, possibly malformed, JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolChoice values understood by OpenAI-compatible endpoints.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

type ChatRequest struct {
	Messages   []Message
	Tools      []tools.Definition
	ToolChoice string
}

type ChatResponse struct {
	Message      Message
	FinishReason string
}
