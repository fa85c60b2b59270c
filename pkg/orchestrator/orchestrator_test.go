package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/agent"
	"github.com/finsight-ai/finsight/pkg/config"
	"github.com/finsight-ai/finsight/pkg/indicator"
	"github.com/finsight-ai/finsight/pkg/tools"
)

const finalReport = `## Summary

ACME remains on a steady uptrend [E1].

## Key Points

- Price above MA20 [E1]

## Recommendations

- Hold

## Risks

- Macro headwinds
`

// finalAnswerLLM replies with a finished report on the first turn.
type finalAnswerLLM struct {
	calls    int
	protocol string
}

func (f *finalAnswerLLM) Generate(_ context.Context, _ *agent.GenerateInput) (*agent.LLMResponse, error) {
	f.calls++
	if f.protocol == config.ProtocolStructuredAction {
		return &agent.LLMResponse{Text: `{"action": "final", "content": ` + jsonString(finalReport) + `}`}, nil
	}
	return &agent.LLMResponse{Text: finalReport}, nil
}

func (f *finalAnswerLLM) Close() error { return nil }

func jsonString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// failingNews wraps the stub with an always-failing news feed.
type failingNews struct {
	*tools.StubProviders
}

func (failingNews) Collect(context.Context, string, int) (*tools.NewsDigest, error) {
	return nil, errors.New("news feed down")
}

func testConfig(protocol string) *config.Config {
	cfg := config.Default()
	cfg.Agent.Protocol = protocol
	cfg.Agent.MaxIterations = 5
	cfg.Agent.TurnTimeout = config.Duration(time.Second)
	cfg.Agent.RunTimeout = config.Duration(10 * time.Second)
	cfg.Agent.GatherTimeout = config.Duration(time.Second)
	return cfg
}

func testRegistry(t *testing.T, providers tools.Providers) *tools.Registry {
	t.Helper()
	r, err := tools.NewCatalog(providers, indicator.NewEngine())
	require.NoError(t, err)
	return r
}

func TestAnalyzeUnknownSkillFailsBeforeAnyWork(t *testing.T) {
	llm := &finalAnswerLLM{}
	orch, err := New(testConfig(config.ProtocolToolCalling), testRegistry(t, tools.NewStubProviders().AsProviders()), llm)
	require.NoError(t, err)

	_, err = orch.Analyze(context.Background(), AnalysisRequest{Symbol: "ACME", Skill: "guess_the_future"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown skill")
	require.Zero(t, llm.calls, "no model call before skill validation")
}

func TestAnalyzeRequiresSymbol(t *testing.T) {
	orch, err := New(testConfig(config.ProtocolToolCalling), testRegistry(t, tools.NewStubProviders().AsProviders()), &finalAnswerLLM{})
	require.NoError(t, err)

	_, err = orch.Analyze(context.Background(), AnalysisRequest{Skill: SkillDeepAnalysis})
	require.Error(t, err)
}

func TestAnalyzeDeepAnalysisHappyPath(t *testing.T) {
	orch, err := New(testConfig(config.ProtocolToolCalling), testRegistry(t, tools.NewStubProviders().AsProviders()), &finalAnswerLLM{})
	require.NoError(t, err)

	result, err := orch.Analyze(context.Background(), AnalysisRequest{
		Symbol: "ACME",
		Market: "US",
		Skill:  SkillDeepAnalysis,
		Prompt: "focus on valuation",
	})
	require.NoError(t, err)
	require.False(t, result.Draft.Degraded)
	require.Len(t, result.ToolCalls, 5, "five gathering calls, no tool calls from the model")
	require.Len(t, result.Evidence, 5)
	require.Equal(t, "E1", result.Evidence[0].ID)

	for _, topic := range []string{"price_daily", "price_weekly", "fundamentals", "news", "peers"} {
		require.Contains(t, result.Input.Context, topic)
		require.NotContains(t, result.Input.Context[topic], "unavailable")
	}
	require.Equal(t, "daily:90", result.Input.Windows["price_daily"])

	require.Equal(t, 100, result.Confidence)
	require.Contains(t, result.Report.Summary, "steady uptrend")
	require.NotEmpty(t, result.Report.DataSources)
	require.Empty(t, result.Warnings)
}

func TestAnalyzeBroadOverviewUsesReducedPlan(t *testing.T) {
	orch, err := New(testConfig(config.ProtocolToolCalling), testRegistry(t, tools.NewStubProviders().AsProviders()), &finalAnswerLLM{})
	require.NoError(t, err)

	result, err := orch.Analyze(context.Background(), AnalysisRequest{Symbol: "ACME", Skill: SkillBroadOverview})
	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 2)
	require.Contains(t, result.Input.Context, "news")
	require.Contains(t, result.Input.Context, "fund_flow")
}

func TestBroadOverviewRestrictedToNewsAndMacroTools(t *testing.T) {
	sk, err := lookupSkill(SkillBroadOverview)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{tools.ToolSearchNews, tools.ToolSearchWeb, tools.ToolGetFundFlow}, sk.tools)
	require.NotContains(t, sk.tools, tools.ToolGetQuote)
	require.NotContains(t, sk.tools, tools.ToolGetPriceHistory)
	require.NotContains(t, sk.tools, tools.ToolGetFundamentals)
}

func TestAnalyzeSurvivesGatherFailure(t *testing.T) {
	stub := tools.NewStubProviders()
	providers := stub.AsProviders()
	providers.News = failingNews{stub}

	orch, err := New(testConfig(config.ProtocolToolCalling), testRegistry(t, providers), &finalAnswerLLM{})
	require.NoError(t, err)

	result, err := orch.Analyze(context.Background(), AnalysisRequest{Symbol: "ACME", Skill: SkillDeepAnalysis})
	require.NoError(t, err, "one failed feed must not abort the run")
	require.False(t, result.Draft.Degraded)
	require.Contains(t, result.Input.Context["news"], "unavailable:")
	require.Len(t, result.ToolCalls, 5, "the failed call is still recorded")

	var failed int
	for _, c := range result.ToolCalls {
		if c.IsError {
			failed++
		}
	}
	require.Equal(t, 1, failed)
	require.Len(t, result.Evidence, 4, "failed calls yield no evidence")
}

// slowNews hangs past the gather timeout.
type slowNews struct {
	*tools.StubProviders
}

func (s slowNews) Collect(ctx context.Context, _ string, _ int) (*tools.NewsDigest, error) {
	select {
	case <-time.After(5 * time.Second):
		return nil, errors.New("unreachable")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestAnalyzeGatherTimeoutDegradesOneCall(t *testing.T) {
	stub := tools.NewStubProviders()
	providers := stub.AsProviders()
	providers.News = slowNews{stub}

	cfg := testConfig(config.ProtocolToolCalling)
	cfg.Agent.GatherTimeout = config.Duration(50 * time.Millisecond)

	orch, err := New(cfg, testRegistry(t, providers), &finalAnswerLLM{})
	require.NoError(t, err)

	result, err := orch.Analyze(context.Background(), AnalysisRequest{Symbol: "ACME", Skill: SkillDeepAnalysis})
	require.NoError(t, err)
	require.Contains(t, result.Input.Context["news"], "unavailable:")
	require.NotContains(t, result.Input.Context["fundamentals"], "unavailable")
	require.Len(t, result.ToolCalls, 5, "the timed-out call is still recorded")
}

func TestAnalyzeStructuredActionProtocol(t *testing.T) {
	llm := &finalAnswerLLM{protocol: config.ProtocolStructuredAction}
	orch, err := New(testConfig(config.ProtocolStructuredAction), testRegistry(t, tools.NewStubProviders().AsProviders()), llm)
	require.NoError(t, err)

	result, err := orch.Analyze(context.Background(), AnalysisRequest{Symbol: "ACME", Skill: SkillDeepAnalysis})
	require.NoError(t, err)
	require.False(t, result.Draft.Degraded)
	require.Equal(t, []string{"final"}, result.Draft.ActionTrace)
	require.Contains(t, result.Report.Summary, "steady uptrend")
}

func TestAnalyzeCancelledContextYieldsDegradedResult(t *testing.T) {
	orch, err := New(testConfig(config.ProtocolToolCalling), testRegistry(t, tools.NewStubProviders().AsProviders()), &finalAnswerLLM{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.Analyze(ctx, AnalysisRequest{Symbol: "ACME", Skill: SkillDeepAnalysis})
	require.NoError(t, err, "cancellation degrades the result, it does not error")
	require.True(t, result.Draft.Degraded)

	var found bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "cancelled") {
			found = true
		}
	}
	require.True(t, found, "warnings must mention cancellation: %v", result.Warnings)
}

func TestNewRejectsUnknownProtocol(t *testing.T) {
	cfg := testConfig("telepathy")
	_, err := New(cfg, testRegistry(t, tools.NewStubProviders().AsProviders()), &finalAnswerLLM{})
	require.Error(t, err)
}
