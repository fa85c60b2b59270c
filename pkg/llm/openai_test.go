package llm

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/agent"
)

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	_, err := NewClient(Options{Model: "gpt-4o"})
	require.Error(t, err)

	_, err = NewClient(Options{APIKey: "sk-x"})
	require.Error(t, err)

	c, err := NewClient(Options{APIKey: "sk-x", Model: "gpt-4o", BaseURL: "http://localhost:8080/v1"})
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestToChatMessagesMapsRolesAndToolCalls(t *testing.T) {
	msgs := []agent.ConversationMessage{
		{Role: agent.RoleSystem, Content: "sys"},
		{Role: agent.RoleUser, Content: "user"},
		{Role: agent.RoleAssistant, Content: "", ToolCalls: []agent.ToolCallRequest{
			{ID: "tc1", Name: "get_quote", Arguments: `{"symbol":"ACME"}`},
		}},
		{Role: agent.RoleTool, Content: `{"data":{}}`, ToolCallID: "tc1", ToolName: "get_quote"},
	}

	out := toChatMessages(msgs)
	require.Len(t, out, 4)
	require.Equal(t, "system", out[0].Role)
	require.Len(t, out[2].ToolCalls, 1)
	require.Equal(t, openai.ToolTypeFunction, out[2].ToolCalls[0].Type)
	require.Equal(t, "get_quote", out[2].ToolCalls[0].Function.Name)
	require.Equal(t, "tc1", out[3].ToolCallID)
	require.Equal(t, "get_quote", out[3].Name)
}

func TestToChatToolsMapsDefinitions(t *testing.T) {
	require.Nil(t, toChatTools(nil))

	defs := []agent.ToolDefinition{
		{Name: "get_quote", Description: "quote", ParametersSchema: `{"type":"object"}`},
	}
	out := toChatTools(defs)
	require.Len(t, out, 1)
	require.Equal(t, openai.ToolTypeFunction, out[0].Type)
	require.Equal(t, "get_quote", out[0].Function.Name)
	require.NotNil(t, out[0].Function.Parameters)
}
