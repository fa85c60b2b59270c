package guardrail

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/agent"
	"github.com/finsight-ai/finsight/pkg/tools"
)

var fixedNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func testValidator(pair *ConsistencyPair) *Validator {
	return NewValidator(Config{
		Consistency: pair,
		Now:         func() time.Time { return fixedNow },
	})
}

func successfulCall(name, source string, asOf time.Time, result string) agent.ToolCall {
	return agent.ToolCall{
		ID: "call-" + name, Name: name, Result: result,
		Source: source, AsOf: asOf,
	}
}

func freshEvidence(n int) ([]agent.Evidence, []agent.ToolCall) {
	var calls []agent.ToolCall
	names := []string{tools.ToolGetQuote, tools.ToolSearchNews, tools.ToolGetFundamentals, tools.ToolGetPriceHistory}
	for i := 0; i < n; i++ {
		name := names[i%len(names)]
		calls = append(calls, successfulCall(name, fmt.Sprintf("src-%d", i), fixedNow.Add(-time.Hour),
			fmt.Sprintf(`{"source":"src-%d","as_of":"2026-08-28T11:00:00Z","data":{"v":%d}}`, i, i)))
	}
	return ExtractEvidence(calls), calls
}

func TestValidateCleanDraftPasses(t *testing.T) {
	evidence, calls := freshEvidence(3)
	draft := &agent.RuntimeDraft{Content: "## Summary\nAll good [E1], see also [E2] and [E3]."}

	res := testValidator(nil).Validate(draft, evidence, calls)
	require.True(t, res.Passed)
	require.Zero(t, res.ConfidenceAdjustment)
	require.Empty(t, res.Warnings)
}

func TestValidateMissingCitationsPenalty(t *testing.T) {
	evidence, calls := freshEvidence(3)
	draft := &agent.RuntimeDraft{Content: "## Summary\nNo citations here."}

	res := testValidator(nil).Validate(draft, evidence, calls)
	require.True(t, res.Passed)
	require.Equal(t, PenaltyMissingCitations, res.ConfidenceAdjustment)
	require.Len(t, res.Warnings, 1)
}

func TestValidateNonexistentCitationPenalty(t *testing.T) {
	evidence, calls := freshEvidence(2)
	draft := &agent.RuntimeDraft{Content: "Backed by [E1] and [E9]."}

	res := testValidator(nil).Validate(draft, evidence, calls)
	require.Equal(t, PenaltyMissingCitations, res.ConfidenceAdjustment)
}

func TestValidateStaleEvidencePenalty(t *testing.T) {
	call := successfulCall(tools.ToolSearchNews, "src-news", fixedNow.Add(-48*time.Hour), `{"data":{}}`)
	other := successfulCall(tools.ToolGetQuote, "src-quote", fixedNow.Add(-time.Hour), `{"data":{}}`)
	evidence := ExtractEvidence([]agent.ToolCall{call, other})
	draft := &agent.RuntimeDraft{Content: "Cited [E1] and [E2]."}

	res := testValidator(nil).Validate(draft, evidence, []agent.ToolCall{call, other})
	require.Equal(t, PenaltyStaleEvidence, res.ConfidenceAdjustment)
	require.Contains(t, res.Warnings[0], "stale evidence")
	require.Contains(t, res.Warnings[0], "E1")
}

func TestValidateSourceDiversityPenalty(t *testing.T) {
	a := successfulCall(tools.ToolGetQuote, "only-source", fixedNow.Add(-time.Hour), `{"data":{}}`)
	b := successfulCall(tools.ToolSearchNews, "only-source", fixedNow.Add(-time.Hour), `{"data":{}}`)
	evidence := ExtractEvidence([]agent.ToolCall{a, b})
	draft := &agent.RuntimeDraft{Content: "See [E1] and [E2]."}

	res := testValidator(nil).Validate(draft, evidence, []agent.ToolCall{a, b})
	require.Equal(t, PenaltyLowSourceDiversity, res.ConfidenceAdjustment)
}

func TestValidateConsistencyPenaltyAndSkip(t *testing.T) {
	pair := &ConsistencyPair{
		ToolA: tools.ToolGetQuote, FieldA: "pe_ratio",
		ToolB: tools.ToolGetFundamentals, FieldB: "pe_ratio",
	}
	quote := successfulCall(tools.ToolGetQuote, "src-a", fixedNow.Add(-time.Hour),
		`{"source":"src-a","data":{"pe_ratio":20.0}}`)
	funds := successfulCall(tools.ToolGetFundamentals, "src-b", fixedNow.Add(-time.Hour),
		`{"source":"src-b","data":{"pe_ratio":30.0}}`)
	evidence := ExtractEvidence([]agent.ToolCall{quote, funds})
	draft := &agent.RuntimeDraft{Content: "PE discussed in [E1] and [E2]."}

	res := testValidator(pair).Validate(draft, evidence, []agent.ToolCall{quote, funds})
	require.Equal(t, PenaltyInconsistentData, res.ConfidenceAdjustment)
	require.Contains(t, res.Warnings[0], "inconsistent values")

	// Within tolerance: no penalty.
	fundsClose := successfulCall(tools.ToolGetFundamentals, "src-b", fixedNow.Add(-time.Hour),
		`{"source":"src-b","data":{"pe_ratio":20.5}}`)
	res = testValidator(pair).Validate(draft, evidence, []agent.ToolCall{quote, fundsClose})
	require.Zero(t, res.ConfidenceAdjustment)

	// One side absent: rule is skipped silently.
	res = testValidator(pair).Validate(draft, evidence, []agent.ToolCall{quote})
	require.Zero(t, res.ConfidenceAdjustment)
	require.Empty(t, res.Warnings)
}

// An uncited draft resting on a single stale source loses citations (-20),
// freshness (-5) and diversity (-5) at once, landing exactly on the pass
// threshold — which must fail: confidence drops to 70 from a nominal
// baseline and the result is advisory only.
func TestValidateThresholdBoundaryFails(t *testing.T) {
	stale := successfulCall(tools.ToolSearchNews, "lone-source", fixedNow.Add(-48*time.Hour), `{"data":{}}`)
	evidence := ExtractEvidence([]agent.ToolCall{stale})
	draft := &agent.RuntimeDraft{
		Content:            "No citation markers at all.",
		BaselineConfidence: agent.NominalBaselineConfidence,
	}

	res := testValidator(nil).Validate(draft, evidence, []agent.ToolCall{stale})
	require.Equal(t, -30, res.ConfidenceAdjustment)
	require.False(t, res.Passed, "adjustment equal to the threshold must not pass")
	require.Equal(t, 70, agent.ClampConfidence(draft.BaselineConfidence+res.ConfidenceAdjustment))
	require.Len(t, res.Warnings, 3, "citation, freshness and diversity warnings in rule order")
}

func TestValidateIsDeterministic(t *testing.T) {
	evidence, calls := freshEvidence(4)
	draft := &agent.RuntimeDraft{Content: "Uncited claims only."}
	v := testValidator(nil)

	first := v.Validate(draft, evidence, calls)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, v.Validate(draft, evidence, calls))
	}
}

func TestValidateNoEvidenceSkipsCitationAndDiversityRules(t *testing.T) {
	draft := &agent.RuntimeDraft{Content: "Nothing was gathered."}
	res := testValidator(nil).Validate(draft, nil, nil)
	require.True(t, res.Passed)
	require.Zero(t, res.ConfidenceAdjustment)
}

func TestExtractEvidenceDenseIDsAndTypes(t *testing.T) {
	calls := []agent.ToolCall{
		successfulCall(tools.ToolGetQuote, "src-a", fixedNow, `{"data":{}}`),
		{ID: "bad", Name: tools.ToolSearchNews, IsError: true, ErrorMessage: "boom", Source: agent.SourceError},
		successfulCall(tools.ToolComputeIndicators, "src-b", fixedNow, `{"data":{}}`),
		successfulCall("custom_tool", "src-c", fixedNow, `{"data":{}}`),
	}

	evidence := ExtractEvidence(calls)
	require.Len(t, evidence, 3, "errored calls yield no evidence")
	require.Equal(t, "E1", evidence[0].ID)
	require.Equal(t, "E2", evidence[1].ID)
	require.Equal(t, "E3", evidence[2].ID)
	require.Equal(t, agent.EvidencePrice, evidence[0].Type)
	require.Equal(t, agent.EvidenceIndicator, evidence[1].Type)
	require.Equal(t, agent.EvidenceOther, evidence[2].Type)
}

func TestExtractEvidenceTruncatesSnippets(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	call := successfulCall(tools.ToolGetQuote, "src", fixedNow, string(long))

	evidence := ExtractEvidence([]agent.ToolCall{call})
	require.Len(t, evidence, 1)
	require.LessOrEqual(t, len(evidence[0].Snippet), snippetLimit+3)
}

func TestExtractEvidenceTruncationKeepsRuneBoundaries(t *testing.T) {
	// Multibyte runes straddling the cut point must not be split.
	long := strings.Repeat("涨", snippetLimit)
	call := successfulCall(tools.ToolGetQuote, "src", fixedNow, long)

	evidence := ExtractEvidence([]agent.ToolCall{call})
	require.Len(t, evidence, 1)
	require.True(t, utf8.ValidString(evidence[0].Snippet))
	require.LessOrEqual(t, len(evidence[0].Snippet), snippetLimit+3)
}
