// Package llm provides the OpenAI-compatible chat-completions client behind
// the agent.LLMClient interface. Any endpoint speaking the OpenAI wire
// format works via the base URL override.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finsight-ai/finsight/pkg/agent"
)

var _ agent.LLMClient = (*Client)(nil)

// Options configures the client.
type Options struct {
	APIKey  string
	BaseURL string // empty = api.openai.com
	Model   string
}

// Client is the concrete LLM transport.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a chat-completions client.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: opts.Model}, nil
}

// Generate sends one conversation turn to the model.
func (c *Client) Generate(ctx context.Context, input *agent.GenerateInput) (*agent.LLMResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toChatMessages(input.Messages),
		Tools:    toChatTools(input.Tools),
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0].Message
	out := &agent.LLMResponse{
		Text: choice.Content,
		Usage: &agent.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, agent.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// Close releases the transport. The underlying HTTP client needs no
// explicit shutdown.
func (c *Client) Close() error { return nil }

func toChatMessages(msgs []agent.ConversationMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == agent.RoleTool {
			cm.Name = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, cm)
	}
	return out
}

func toChatTools(defs []agent.ToolDefinition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  json.RawMessage(d.ParametersSchema),
			},
		})
	}
	return out
}
