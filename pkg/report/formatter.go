// Package report turns a validated draft into the structured final report.
// Formatting is best-effort extraction from the draft's markdown; a draft
// with no recognizable sections still yields a usable report with the full
// markdown body and a first-paragraph summary.
package report

import (
	"sort"
	"strings"

	"github.com/finsight-ai/finsight/pkg/agent"
)

// Heading keywords matched case-insensitively against markdown section
// titles when extracting bullet lists.
var (
	keyPointHeadings       = []string{"key points", "key findings", "highlights"}
	recommendationHeadings = []string{"recommendations", "recommendation", "suggested actions"}
	riskHeadings           = []string{"risks", "risk factors", "concerns"}
	summaryHeadings        = []string{"summary", "overview", "conclusion"}
)

// Format assembles the final report from the draft, the guardrail outcome
// and the run's tool calls. The reported confidence is the draft baseline
// plus the guardrail adjustment, clamped to [0, 100].
func Format(draft *agent.RuntimeDraft, guard agent.GuardrailResult, evidence []agent.Evidence, calls []agent.ToolCall) agent.AgentFinalReport {
	sections := splitSections(draft.Content)

	return agent.AgentFinalReport{
		Markdown:        draft.Content,
		Summary:         extractSummary(draft.Content, sections),
		KeyPoints:       bulletsFor(sections, keyPointHeadings),
		Recommendations: bulletsFor(sections, recommendationHeadings),
		RiskFactors:     bulletsFor(sections, riskHeadings),
		DataSources:     distinctSources(calls),
		Confidence:      agent.ClampConfidence(draft.BaselineConfidence + guard.ConfidenceAdjustment),
	}
}

// section is one markdown heading with its body lines.
type section struct {
	title string
	body  []string
}

func splitSections(markdown string) []section {
	var sections []section
	var cur *section
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			sections = append(sections, section{title: title})
			cur = &sections[len(sections)-1]
			continue
		}
		if cur != nil {
			cur.body = append(cur.body, line)
		}
	}
	return sections
}

// extractSummary prefers a summary-titled section, falling back to the
// first non-heading paragraph of the draft.
func extractSummary(markdown string, sections []section) string {
	for _, s := range sections {
		if matchesHeading(s.title, summaryHeadings) {
			if text := strings.TrimSpace(strings.Join(s.body, "\n")); text != "" {
				return firstParagraph(text)
			}
		}
	}
	return firstParagraph(stripHeadings(markdown))
}

func bulletsFor(sections []section, headings []string) []string {
	for _, s := range sections {
		if !matchesHeading(s.title, headings) {
			continue
		}
		var items []string
		for _, line := range s.body {
			trimmed := strings.TrimSpace(line)
			for _, marker := range []string{"- ", "* ", "+ "} {
				if strings.HasPrefix(trimmed, marker) {
					items = append(items, strings.TrimSpace(trimmed[len(marker):]))
					break
				}
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func matchesHeading(title string, candidates []string) bool {
	lower := strings.ToLower(title)
	for _, c := range candidates {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func firstParagraph(text string) string {
	for _, para := range strings.Split(strings.TrimSpace(text), "\n\n") {
		if p := strings.TrimSpace(para); p != "" {
			return p
		}
	}
	return ""
}

func stripHeadings(markdown string) string {
	var b strings.Builder
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// distinctSources lists the unique sources of successful tool calls, sorted
// for stable output. Error markers are excluded.
func distinctSources(calls []agent.ToolCall) []string {
	seen := make(map[string]bool)
	for _, c := range calls {
		if c.IsError || c.Source == "" || c.Source == agent.SourceError {
			continue
		}
		seen[c.Source] = true
	}
	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}
