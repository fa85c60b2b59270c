// Package orchestrator coordinates one analysis run end to end: skill
// resolution, concurrent initial data gathering, the reasoning loop,
// guardrail validation and report assembly. It holds no run state between
// calls and persists nothing.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/finsight-ai/finsight/pkg/agent"
	"github.com/finsight-ai/finsight/pkg/agent/runtime"
	"github.com/finsight-ai/finsight/pkg/config"
	"github.com/finsight-ai/finsight/pkg/guardrail"
	"github.com/finsight-ai/finsight/pkg/report"
	"github.com/finsight-ai/finsight/pkg/tools"
)

// AnalysisRequest is one caller request.
type AnalysisRequest struct {
	Symbol string
	Market string
	Skill  string
	Prompt string // optional focus instruction from the caller
}

// Orchestrator runs analyses. Safe for concurrent use; each run gets its
// own run context and message history.
type Orchestrator struct {
	cfg       *config.Config
	registry  *tools.Registry
	llm       agent.LLMClient
	runtime   agent.Runtime
	validator *guardrail.Validator
}

// New wires an orchestrator from configuration. The runtime protocol and
// guardrail tuning come from cfg; the registry and LLM client are shared
// across runs.
func New(cfg *config.Config, registry *tools.Registry, llm agent.LLMClient) (*Orchestrator, error) {
	var rt agent.Runtime
	switch cfg.Agent.Protocol {
	case config.ProtocolToolCalling:
		rt = runtime.NewToolCallingRuntime()
	case config.ProtocolStructuredAction:
		rt = runtime.NewStructuredActionRuntime()
	default:
		return nil, fmt.Errorf("unsupported runtime protocol %q", cfg.Agent.Protocol)
	}

	gcfg := guardrail.Config{
		RelativeTolerance:  cfg.Guardrail.RelativeTolerance,
		RecencyWindow:      cfg.Guardrail.RecencyWindow.Std(),
		MinDistinctSources: cfg.Guardrail.MinDistinctSources,
		PassThreshold:      cfg.Guardrail.PassThreshold,
	}
	if c := cfg.Guardrail.Consistency; c != nil && c.ToolA != "" && c.ToolB != "" {
		gcfg.Consistency = &guardrail.ConsistencyPair{
			ToolA: c.ToolA, FieldA: c.FieldA,
			ToolB: c.ToolB, FieldB: c.FieldB,
		}
	}

	return &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		llm:       llm,
		runtime:   rt,
		validator: guardrail.NewValidator(gcfg),
	}, nil
}

// Analyze runs one analysis. It returns an error only for wiring faults
// (unknown skill, nil client); every data-level failure surfaces inside the
// result as a degraded draft with warnings.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalysisRequest) (*agent.AgentRunResult, error) {
	sk, err := lookupSkill(req.Skill)
	if err != nil {
		return nil, err
	}
	if req.Symbol == "" {
		return nil, fmt.Errorf("analysis request requires a symbol")
	}

	runID := uuid.NewString()
	log := slog.With("run_id", runID, "symbol", req.Symbol, "skill", sk.name)
	log.Info("analysis run starting", "protocol", o.cfg.Agent.Protocol)

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.Agent.RunTimeout.Std())
	defer cancel()

	scoped := o.registry.Subset(sk.tools)
	gatherCalls, contextData := o.gather(runCtx, scoped, sk, req)

	input := agent.AnalysisInput{
		Symbol:  req.Symbol,
		Market:  req.Market,
		Skill:   sk.name,
		Prompt:  req.Prompt,
		Context: contextData,
		Windows: sk.windows(),
	}

	rc := &agent.RunContext{
		RunID:         runID,
		Symbol:        req.Symbol,
		LLMClient:     o.llm,
		Tools:         scoped,
		MaxIterations: o.cfg.Agent.MaxIterations,
		TurnTimeout:   o.cfg.Agent.TurnTimeout.Std(),
	}

	draft, err := o.runtime.Run(runCtx, rc, o.initialMessages(input, scoped))
	if err != nil {
		return nil, fmt.Errorf("reasoning run %s: %w", runID, err)
	}

	allCalls := append(append([]agent.ToolCall{}, gatherCalls...), draft.ToolCalls...)
	evidence := guardrail.ExtractEvidence(allCalls)
	guard := o.validator.Validate(draft, evidence, allCalls)
	rep := report.Format(draft, guard, evidence, allCalls)

	warnings := append(append([]string{}, draft.Warnings...), guard.Warnings...)
	if !guard.Passed {
		warnings = append(warnings, "guardrail validation failed; treat this report as advisory only")
	}

	log.Info("analysis run finished",
		"degraded", draft.Degraded,
		"tool_calls", len(allCalls),
		"confidence", rep.Confidence,
		"guardrail_passed", guard.Passed)

	return &agent.AgentRunResult{
		Input:      input,
		Draft:      *draft,
		Report:     rep,
		ToolCalls:  allCalls,
		Evidence:   evidence,
		Confidence: rep.Confidence,
		Warnings:   warnings,
	}, nil
}

// gather runs the skill's initial data-collection plan concurrently, each
// call under its own timeout. Failures never abort the run; a failed topic
// is marked unavailable in the model's context and its degraded call is
// still recorded.
func (o *Orchestrator) gather(ctx context.Context, exec agent.ToolExecutor, sk skill, req AnalysisRequest) ([]agent.ToolCall, map[string]string) {
	calls := make([]agent.ToolCall, len(sk.gather))
	contextData := make(map[string]string, len(sk.gather))

	g, gctx := errgroup.WithContext(ctx)
	for i, step := range sk.gather {
		i, step := i, step
		g.Go(func() error {
			stepCtx, cancel := context.WithTimeout(gctx, o.cfg.Agent.GatherTimeout.Std())
			defer cancel()
			calls[i] = exec.Execute(stepCtx, step.tool, step.args(req.Symbol, req.Market))
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines always return nil

	for i, step := range sk.gather {
		if calls[i].IsError {
			contextData[step.topic] = "unavailable: " + calls[i].ErrorMessage
		} else {
			contextData[step.topic] = calls[i].Result
		}
	}
	return calls, contextData
}

// initialMessages builds the system and user messages for the run. The
// structured-action protocol carries its action grammar and tool listing in
// the system prompt; the tool-calling protocol relies on native binding.
func (o *Orchestrator) initialMessages(input agent.AnalysisInput, scoped agent.ToolExecutor) []agent.ConversationMessage {
	var sys strings.Builder
	sys.WriteString("You are a financial analysis agent. Produce a markdown report with ")
	sys.WriteString("'## Summary', '## Key Points', '## Recommendations' and '## Risks' sections. ")
	sys.WriteString("Cite gathered evidence with [E<n>] markers. Call tools to fill data gaps before answering.")

	if o.cfg.Agent.Protocol == config.ProtocolStructuredAction {
		sys.WriteString("\n\nRespond with exactly one JSON object per turn:\n")
		sys.WriteString(`{"action": "call_tool", "tool": "<name>", "arguments": {...}}` + "\n")
		sys.WriteString(`or {"action": "final", "content": "<markdown report>"}` + "\n\nAvailable tools:\n")
		for _, def := range scoped.List() {
			fmt.Fprintf(&sys, "- %s: %s\n", def.Name, def.Description)
		}
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Analyze %s", input.Symbol)
	if input.Market != "" {
		fmt.Fprintf(&user, " (%s)", input.Market)
	}
	fmt.Fprintf(&user, " using the %s skill.\n", input.Skill)
	if input.Prompt != "" {
		fmt.Fprintf(&user, "Focus: %s\n", input.Prompt)
	}
	user.WriteString("\nPre-gathered data:\n")
	for _, topic := range sortedKeys(input.Context) {
		fmt.Fprintf(&user, "### %s (window %s)\n%s\n", topic, input.Windows[topic], input.Context[topic])
	}

	return []agent.ConversationMessage{
		{Role: agent.RoleSystem, Content: sys.String()},
		{Role: agent.RoleUser, Content: user.String()},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
