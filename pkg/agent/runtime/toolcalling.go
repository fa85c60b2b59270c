package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/finsight-ai/finsight/pkg/agent"
)

// ToolCallingRuntime drives the native function-calling protocol: tool
// definitions are bound to every model request, the model either requests
// tool invocations or answers in plain text, and a text-only turn is the
// final answer.
type ToolCallingRuntime struct{}

var _ agent.Runtime = (*ToolCallingRuntime)(nil)

// NewToolCallingRuntime creates the tool-calling runtime.
func NewToolCallingRuntime() *ToolCallingRuntime {
	return &ToolCallingRuntime{}
}

func (r *ToolCallingRuntime) Run(ctx context.Context, rc *agent.RunContext, initial []agent.ConversationMessage) (*agent.RuntimeDraft, error) {
	if rc == nil || rc.LLMClient == nil || rc.Tools == nil {
		return nil, errors.New("tool-calling runtime: run context requires an LLM client and a tool executor")
	}

	msgs := slices.Clone(initial)
	state := &agent.IterationState{MaxIterations: rc.MaxIterations}
	defs := rc.Tools.List()
	var calls []agent.ToolCall
	var lastText string

	for state.CurrentIteration < state.MaxIterations {
		if cancelled(ctx) {
			state.Warn("run cancelled before completion")
			return degradedDraft(lastText, calls, nil, state.Warnings), nil
		}
		state.CurrentIteration++

		timeout := rc.TurnTimeout
		if timeout <= 0 {
			timeout = defaultTurnTimeout
		}
		turnCtx, cancel := context.WithTimeout(ctx, timeout)

		resp, err := rc.LLMClient.Generate(turnCtx, &agent.GenerateInput{Messages: msgs, Tools: defs})
		if err != nil {
			cancel()
			if cancelled(ctx) {
				state.Warn("run cancelled before completion")
				return degradedDraft(lastText, calls, nil, state.Warnings), nil
			}
			state.RecordTransportFailure(fmt.Sprintf("model call failed on iteration %d: %s", state.CurrentIteration, err))
			if state.ShouldAbortOnTransport() {
				state.Warn("model endpoint unreachable, giving up after consecutive failures")
				return degradedDraft(lastText, calls, nil, state.Warnings), nil
			}
			msgs = append(msgs, agent.ConversationMessage{
				Role:    agent.RoleUser,
				Content: "The previous request failed to reach the model. Please continue the analysis.",
			})
			continue
		}
		state.RecordTurnSuccess()
		logTurn(rc, "tool_calling", state.CurrentIteration, fmt.Sprintf("%d tool calls requested", len(resp.ToolCalls)))

		if len(resp.ToolCalls) == 0 {
			cancel()
			return &agent.RuntimeDraft{
				Content:            resp.Text,
				BaselineConfidence: agent.NominalBaselineConfidence,
				ToolCalls:          calls,
				Warnings:           state.Warnings,
			}, nil
		}
		lastText = resp.Text

		msgs = append(msgs, agent.ConversationMessage{
			Role:      agent.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		executed := executeToolCalls(turnCtx, rc.Tools, resp.ToolCalls)
		cancel()
		for _, call := range executed {
			calls = append(calls, call)
			msgs = append(msgs, toolResultMessage(call))
		}
	}

	state.Warn(fmt.Sprintf("iteration budget exhausted after %d turns without a final answer", state.MaxIterations))
	return degradedDraft(lastText, calls, nil, state.Warnings), nil
}

// toolResultMessage converts an executed call into the tool-role message fed
// back to the model. Degraded calls report their error text so the model can
// adapt instead of re-trying the same arguments blindly.
func toolResultMessage(call agent.ToolCall) agent.ConversationMessage {
	content := call.Result
	if call.IsError {
		content = "tool error: " + call.ErrorMessage
	}
	return agent.ConversationMessage{
		Role:       agent.RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}

// defaultTurnTimeout bounds a turn when the orchestrator leaves it unset.
const defaultTurnTimeout = 60 * time.Second
