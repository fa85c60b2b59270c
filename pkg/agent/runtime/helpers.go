// Package runtime provides the two reasoning-loop implementations behind the
// agent.Runtime interface: a native tool-calling loop and a structured-action
// JSON protocol. Both are stateless; all per-run state lives in local
// variables and the run context.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/finsight-ai/finsight/pkg/agent"
)

// executeToolCalls runs the requested tools concurrently and returns the
// results in request order. Individual failures are carried inside each
// ToolCall, so the group never errors.
func executeToolCalls(ctx context.Context, tools agent.ToolExecutor, requests []agent.ToolCallRequest) []agent.ToolCall {
	results := make([]agent.ToolCall, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			call := tools.Execute(gctx, req.Name, req.Arguments)
			if req.ID != "" {
				call.ID = req.ID
			}
			results[i] = call
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines always return nil
	return results
}

// degradedDraft builds the fallback draft used whenever a run cannot finish
// through a clean final answer. Baseline confidence is capped so guardrail
// penalties compound on an already reduced score.
func degradedDraft(content string, calls []agent.ToolCall, trace, warnings []string) *agent.RuntimeDraft {
	if content == "" {
		content = summarizeCalls(calls)
	}
	return &agent.RuntimeDraft{
		Content:            content,
		BaselineConfidence: agent.DegradedBaselineCap,
		ToolCalls:          calls,
		ActionTrace:        trace,
		Degraded:           true,
		Warnings:           warnings,
	}
}

// summarizeCalls renders a minimal draft body from whatever data was
// gathered before the run degraded, so the report stage always has content.
func summarizeCalls(calls []agent.ToolCall) string {
	if len(calls) == 0 {
		return "Analysis could not be completed: no data was gathered before the run degraded."
	}
	var b strings.Builder
	b.WriteString("Analysis incomplete; partial data gathered before degradation:\n")
	for _, c := range calls {
		if c.IsError {
			fmt.Fprintf(&b, "- %s: failed (%s)\n", c.Name, c.ErrorMessage)
			continue
		}
		fmt.Fprintf(&b, "- %s (source %s): %s\n", c.Name, c.Source, truncate(c.Result, 200))
	}
	return b.String()
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// cancelled reports whether the run context itself was cancelled, as opposed
// to a single turn timing out.
func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

func logTurn(rc *agent.RunContext, protocol string, iteration int, detail string) {
	slog.Debug("model turn",
		"run_id", rc.RunID,
		"symbol", rc.Symbol,
		"protocol", protocol,
		"iteration", iteration,
		"detail", detail)
}
