// Package agent defines the core contracts of the FinSight analysis engine.
// A Runtime drives a bounded LLM reasoning loop against a tool executor and
// always produces a draft — degraded runs yield a degraded draft, never nil.
package agent

import (
	"context"
	"time"
)

// Runtime is the strategy interface shared by both wire protocols.
// Implementations live in pkg/agent/runtime: the tool-calling loop and the
// structured-action JSON protocol. The orchestrator holds only this interface.
type Runtime interface {
	// Run drives the reasoning loop until a final answer, the iteration cap,
	// or a non-recoverable transport failure.
	//
	// Returns (*RuntimeDraft, nil) for every data-level outcome — check
	// Draft.Degraded and Draft.Warnings for failures (LLM errors, exhausted
	// budget, cancellation). Returns (nil, error) only for wiring faults
	// where no meaningful draft exists (e.g. a nil LLM client).
	Run(ctx context.Context, rc *RunContext, initial []ConversationMessage) (*RuntimeDraft, error)
}

// RunContext carries all dependencies and limits a runtime needs for one run.
// Created by the orchestrator per run; read-only inside the runtime.
type RunContext struct {
	// Identity, used only for logging.
	RunID  string
	Symbol string

	LLMClient LLMClient
	Tools     ToolExecutor

	// MaxIterations caps the number of model turns (successful or malformed).
	MaxIterations int

	// TurnTimeout bounds a single model turn plus its tool executions.
	TurnTimeout time.Duration
}

// ToolExecutor abstracts the tool registry for runtimes and the orchestrator.
// Implemented by tools.Registry and by skill-scoped views of it.
type ToolExecutor interface {
	// Execute runs a single tool call. Validation errors, executor failures
	// and missing source/as_of tags are all reported inside the returned
	// ToolCall — Execute never fails as a Go error.
	Execute(ctx context.Context, name, arguments string) ToolCall

	// List returns the tool definitions available to this execution.
	List() []ToolDefinition
}

const (
	// NominalBaselineConfidence is the baseline of a draft produced by a
	// clean FINAL transition.
	NominalBaselineConfidence = 100

	// DegradedBaselineCap is the upper bound on the baseline of any draft
	// produced through a fallback path, so that guardrail penalties compound
	// on an already-reduced score.
	DegradedBaselineCap = 50
)

// ClampConfidence bounds a confidence value to the reportable [0, 100] range.
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
