package agent

import "context"

// LLMClient is the boundary to the language model. The one concrete
// implementation lives in pkg/llm (OpenAI-compatible chat completions);
// runtimes and tests depend only on this interface.
type LLMClient interface {
	// Generate sends a conversation to the model and returns one turn.
	Generate(ctx context.Context, input *GenerateInput) (*LLMResponse, error)

	// Close releases the underlying transport.
	Close() error
}

// GenerateInput is one model request.
type GenerateInput struct {
	Messages []ConversationMessage
	Tools    []ToolDefinition // nil = no tool binding (structured-action protocol)
}

// LLMResponse is one model turn: textual content and/or structured tool
// invocation requests.
type LLMResponse struct {
	Text      string
	ToolCalls []ToolCallRequest
	Usage     *TokenUsage
}

// ToolCallRequest is the model's request to invoke a tool.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments string // JSON
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ConversationMessage is one entry of the running message context.
type ConversationMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCallRequest // for assistant messages requesting tools
	ToolCallID string            // for tool result messages
	ToolName   string            // for tool result messages
}
