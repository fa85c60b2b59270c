package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/agent"
)

const draftMarkdown = `# ACME Analysis

## Summary

ACME shows a stable uptrend backed by healthy volume [E1].

## Key Points

- MA5 above MA20 with rising volume [E1]
- PE ratio in line with peers [E2]

## Recommendations

- Accumulate on pullbacks toward support
- Review after the next earnings report

## Risks

- Sector-wide multiple compression
- Guidance miss in Q3
`

func sampleCalls() []agent.ToolCall {
	asOf := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	return []agent.ToolCall{
		{ID: "1", Name: "get_quote", Source: "vendor:quotes", AsOf: asOf, Result: `{}`},
		{ID: "2", Name: "get_fundamentals", Source: "vendor:fundamentals", AsOf: asOf, Result: `{}`},
		{ID: "3", Name: "search_news", Source: "vendor:quotes", AsOf: asOf, Result: `{}`}, // duplicate source
		{ID: "4", Name: "get_fund_flow", IsError: true, ErrorMessage: "down", Source: agent.SourceError},
	}
}

func TestFormatExtractsSections(t *testing.T) {
	draft := &agent.RuntimeDraft{Content: draftMarkdown, BaselineConfidence: agent.NominalBaselineConfidence}

	rep := Format(draft, agent.GuardrailResult{Passed: true}, nil, sampleCalls())
	require.Equal(t, draftMarkdown, rep.Markdown)
	require.Equal(t, "ACME shows a stable uptrend backed by healthy volume [E1].", rep.Summary)
	require.Equal(t, []string{
		"MA5 above MA20 with rising volume [E1]",
		"PE ratio in line with peers [E2]",
	}, rep.KeyPoints)
	require.Len(t, rep.Recommendations, 2)
	require.Len(t, rep.RiskFactors, 2)
	require.Equal(t, []string{"vendor:fundamentals", "vendor:quotes"}, rep.DataSources, "sorted, distinct, errors excluded")
	require.Equal(t, 100, rep.Confidence)
}

func TestFormatAppliesGuardrailAdjustment(t *testing.T) {
	draft := &agent.RuntimeDraft{Content: draftMarkdown, BaselineConfidence: agent.NominalBaselineConfidence}

	rep := Format(draft, agent.GuardrailResult{ConfidenceAdjustment: -30}, nil, nil)
	require.Equal(t, 70, rep.Confidence)
}

func TestFormatClampsConfidence(t *testing.T) {
	draft := &agent.RuntimeDraft{Content: "body", BaselineConfidence: agent.DegradedBaselineCap}

	rep := Format(draft, agent.GuardrailResult{ConfidenceAdjustment: -60}, nil, nil)
	require.Equal(t, 0, rep.Confidence)
}

func TestFormatUnstructuredDraftFallsBackToFirstParagraph(t *testing.T) {
	draft := &agent.RuntimeDraft{
		Content:            "Plain text without headings.\n\nSecond paragraph.",
		BaselineConfidence: agent.NominalBaselineConfidence,
	}

	rep := Format(draft, agent.GuardrailResult{Passed: true}, nil, nil)
	require.Equal(t, "Plain text without headings.", rep.Summary)
	require.Nil(t, rep.KeyPoints)
	require.Nil(t, rep.Recommendations)
	require.Nil(t, rep.RiskFactors)
	require.Empty(t, rep.DataSources)
}

func TestFormatHeadingSynonyms(t *testing.T) {
	md := "## Overview\n\nShort take.\n\n## Risk Factors\n\n- liquidity\n"
	draft := &agent.RuntimeDraft{Content: md, BaselineConfidence: agent.NominalBaselineConfidence}

	rep := Format(draft, agent.GuardrailResult{Passed: true}, nil, nil)
	require.Equal(t, "Short take.", rep.Summary)
	require.Equal(t, []string{"liquidity"}, rep.RiskFactors)
}
