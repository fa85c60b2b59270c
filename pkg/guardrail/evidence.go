// Package guardrail validates a runtime draft against the evidence the run
// gathered. The validator is a pure function of its inputs: the same draft,
// evidence and tool calls always produce the same result.
package guardrail

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/finsight-ai/finsight/pkg/agent"
	"github.com/finsight-ai/finsight/pkg/tools"
)

// snippetLimit caps how much of a tool result an evidence item carries.
const snippetLimit = 280

// evidenceTypeByTool maps catalog tool names to the kind of fact they yield.
var evidenceTypeByTool = map[string]agent.EvidenceType{
	tools.ToolGetPriceHistory:     agent.EvidencePrice,
	tools.ToolGetQuote:            agent.EvidencePrice,
	tools.ToolGetValuationCurve:   agent.EvidencePrice,
	tools.ToolGetFundamentals:     agent.EvidenceFundamental,
	tools.ToolGetFinancialReports: agent.EvidenceFundamental,
	tools.ToolComparePeers:        agent.EvidenceFundamental,
	tools.ToolSearchNews:          agent.EvidenceNews,
	tools.ToolSearchWeb:           agent.EvidenceNews,
	tools.ToolComputeIndicators:   agent.EvidenceIndicator,
	tools.ToolGetFundFlow:         agent.EvidenceOther,
}

// ExtractEvidence converts successful tool calls into citable evidence.
// Degraded calls are skipped; identifiers are dense ("E1".."Ek") in call
// order so the draft's [E<n>] markers resolve unambiguously.
func ExtractEvidence(calls []agent.ToolCall) []agent.Evidence {
	evidence := make([]agent.Evidence, 0, len(calls))
	for _, call := range calls {
		if call.IsError {
			continue
		}
		typ, ok := evidenceTypeByTool[call.Name]
		if !ok {
			typ = agent.EvidenceOther
		}
		evidence = append(evidence, agent.Evidence{
			ID:      fmt.Sprintf("E%d", len(evidence)+1),
			Type:    typ,
			Source:  call.Source,
			Snippet: snippet(call.Result),
			AsOf:    call.AsOf,
		})
	}
	return evidence
}

// snippet caps the result text without splitting a rune at the cut point.
func snippet(result string) string {
	s := strings.TrimSpace(result)
	if len(s) <= snippetLimit {
		return s
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
