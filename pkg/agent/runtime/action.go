package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/finsight-ai/finsight/pkg/agent"
)

// StructuredActionRuntime drives the text-based protocol: the model emits
// exactly one JSON action object per turn, either
//
//	{"action": "call_tool", "tool": "...", "arguments": {...}}
//
// or
//
//	{"action": "final", "content": "..."}
//
// No native tool binding is used; tool availability is described in the
// system prompt and parsed back out of plain text. Malformed turns consume
// an iteration, record a warning and feed a corrective message back.
type StructuredActionRuntime struct{}

var _ agent.Runtime = (*StructuredActionRuntime)(nil)

// NewStructuredActionRuntime creates the structured-action runtime.
func NewStructuredActionRuntime() *StructuredActionRuntime {
	return &StructuredActionRuntime{}
}

func (r *StructuredActionRuntime) Run(ctx context.Context, rc *agent.RunContext, initial []agent.ConversationMessage) (*agent.RuntimeDraft, error) {
	if rc == nil || rc.LLMClient == nil || rc.Tools == nil {
		return nil, errors.New("structured-action runtime: run context requires an LLM client and a tool executor")
	}

	msgs := slices.Clone(initial)
	state := &agent.IterationState{MaxIterations: rc.MaxIterations}
	var calls []agent.ToolCall
	var trace []string

	for state.CurrentIteration < state.MaxIterations {
		if cancelled(ctx) {
			state.Warn("run cancelled before completion")
			return degradedDraft("", calls, trace, state.Warnings), nil
		}
		state.CurrentIteration++

		timeout := rc.TurnTimeout
		if timeout <= 0 {
			timeout = defaultTurnTimeout
		}
		turnCtx, cancel := context.WithTimeout(ctx, timeout)

		resp, err := rc.LLMClient.Generate(turnCtx, &agent.GenerateInput{Messages: msgs})
		if err != nil {
			cancel()
			if cancelled(ctx) {
				state.Warn("run cancelled before completion")
				return degradedDraft("", calls, trace, state.Warnings), nil
			}
			state.RecordTransportFailure(fmt.Sprintf("model call failed on iteration %d: %s", state.CurrentIteration, err))
			if state.ShouldAbortOnTransport() {
				state.Warn("model endpoint unreachable, giving up after consecutive failures")
				return degradedDraft("", calls, trace, state.Warnings), nil
			}
			msgs = append(msgs, agent.ConversationMessage{
				Role:    agent.RoleUser,
				Content: "The previous request did not go through. Continue with your next action.",
			})
			continue
		}
		state.RecordTurnSuccess()

		action, parseErr := parseAction(resp.Text)
		if parseErr != nil {
			cancel()
			trace = append(trace, "malformed")
			state.Warn(fmt.Sprintf("malformed action on iteration %d: %s", state.CurrentIteration, parseErr))
			logTurn(rc, "structured_action", state.CurrentIteration, "malformed turn")
			msgs = append(msgs,
				agent.ConversationMessage{Role: agent.RoleAssistant, Content: resp.Text},
				agent.ConversationMessage{
					Role: agent.RoleUser,
					Content: fmt.Sprintf("Your last response was not a valid action (%s). "+
						"Reply with exactly one JSON object: "+
						`{"action": "call_tool", "tool": "<name>", "arguments": {...}} or {"action": "final", "content": "..."}.`, parseErr),
				})
			continue
		}

		if action.Action == actionFinal {
			cancel()
			trace = append(trace, "final")
			logTurn(rc, "structured_action", state.CurrentIteration, "final answer")
			return &agent.RuntimeDraft{
				Content:            action.Content,
				BaselineConfidence: agent.NominalBaselineConfidence,
				ToolCalls:          calls,
				ActionTrace:        trace,
				Warnings:           state.Warnings,
			}, nil
		}

		trace = append(trace, "call_tool "+action.Tool)
		logTurn(rc, "structured_action", state.CurrentIteration, "tool "+action.Tool)
		call := rc.Tools.Execute(turnCtx, action.Tool, action.argumentsJSON())
		cancel()
		calls = append(calls, call)
		if call.IsError {
			state.Warn(fmt.Sprintf("tool %s failed: %s", action.Tool, call.ErrorMessage))
		}

		msgs = append(msgs,
			agent.ConversationMessage{Role: agent.RoleAssistant, Content: resp.Text},
			agent.ConversationMessage{Role: agent.RoleUser, Content: observationMessage(call)})
	}

	state.Warn(fmt.Sprintf("iteration budget exhausted after %d turns without a final answer", state.MaxIterations))
	return degradedDraft("", calls, trace, state.Warnings), nil
}

// observationMessage renders a tool result as the next user turn of the
// text protocol.
func observationMessage(call agent.ToolCall) string {
	if call.IsError {
		return fmt.Sprintf("Observation (tool %s failed): %s", call.Name, call.ErrorMessage)
	}
	return fmt.Sprintf("Observation from %s: %s", call.Name, call.Result)
}
