package guardrail

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finsight-ai/finsight/pkg/agent"
)

// Penalty values of the four validation rules. All penalties are additive;
// the adjustment is their sum.
const (
	PenaltyMissingCitations   = -20
	PenaltyInconsistentData   = -10
	PenaltyStaleEvidence      = -5
	PenaltyLowSourceDiversity = -5
)

// ConsistencyPair designates two tool-result fields that must agree within
// the relative tolerance. The rule is skipped silently when either value is
// absent from the run's tool calls.
type ConsistencyPair struct {
	ToolA  string
	FieldA string // dot-separated path inside the payload data
	ToolB  string
	FieldB string
}

// Config tunes the validator. Zero values fall back to defaults; Now is
// injected so validation stays deterministic under test.
type Config struct {
	RelativeTolerance  float64       // default 0.10
	RecencyWindow      time.Duration // default 24h
	MinDistinctSources int           // default 2
	PassThreshold      int           // default -30; passing requires adjustment > threshold
	Consistency        *ConsistencyPair
	Now                func() time.Time
}

func (c Config) withDefaults() Config {
	if c.RelativeTolerance <= 0 {
		c.RelativeTolerance = 0.10
	}
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = 24 * time.Hour
	}
	if c.MinDistinctSources <= 0 {
		c.MinDistinctSources = 2
	}
	if c.PassThreshold == 0 {
		c.PassThreshold = -30
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Validator applies the rule pipeline to a draft.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given configuration.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg.withDefaults()}
}

var citationPattern = regexp.MustCompile(`\[E(\d+)\]`)

// Validate runs the four rules in fixed order — evidence citations,
// cross-source consistency, freshness, source diversity — and sums their
// penalties. Every rule is evaluated regardless of earlier failures; the
// order only fixes warning ordering. A draft passes only while the
// adjustment stays strictly above the threshold: an adjustment equal to the
// threshold fails.
func (v *Validator) Validate(draft *agent.RuntimeDraft, evidence []agent.Evidence, calls []agent.ToolCall) agent.GuardrailResult {
	res := agent.GuardrailResult{Passed: true}

	v.checkCitations(draft, evidence, &res)
	v.checkConsistency(calls, &res)
	v.checkFreshness(evidence, &res)
	v.checkDiversity(evidence, &res)

	res.Passed = res.ConfidenceAdjustment > v.cfg.PassThreshold
	return res
}

// checkCitations requires the draft to cite the gathered evidence via
// [E<n>] markers, and every marker to resolve to an existing item.
func (v *Validator) checkCitations(draft *agent.RuntimeDraft, evidence []agent.Evidence, res *agent.GuardrailResult) {
	if len(evidence) == 0 {
		return // nothing citable, nothing to enforce
	}
	matches := citationPattern.FindAllStringSubmatch(draft.Content, -1)
	if len(matches) == 0 {
		res.ConfidenceAdjustment += PenaltyMissingCitations
		res.Warnings = append(res.Warnings, "draft cites no evidence despite gathered data")
		return
	}
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(evidence) {
			res.ConfidenceAdjustment += PenaltyMissingCitations
			res.Warnings = append(res.Warnings, fmt.Sprintf("draft cites nonexistent evidence %s", m[0]))
			return
		}
	}
}

// checkFreshness penalizes evidence older than the recency window.
func (v *Validator) checkFreshness(evidence []agent.Evidence, res *agent.GuardrailResult) {
	cutoff := v.cfg.Now().Add(-v.cfg.RecencyWindow)
	var stale []string
	for _, e := range evidence {
		if !e.AsOf.IsZero() && e.AsOf.Before(cutoff) {
			stale = append(stale, e.ID)
		}
	}
	if len(stale) > 0 {
		res.ConfidenceAdjustment += PenaltyStaleEvidence
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("stale evidence beyond %s window: %s", v.cfg.RecencyWindow, strings.Join(stale, ", ")))
	}
}

// checkDiversity penalizes drafts resting on too few distinct sources.
func (v *Validator) checkDiversity(evidence []agent.Evidence, res *agent.GuardrailResult) {
	if len(evidence) == 0 {
		return
	}
	sources := make(map[string]bool)
	for _, e := range evidence {
		if e.Source != "" && e.Source != agent.SourceError {
			sources[e.Source] = true
		}
	}
	if len(sources) < v.cfg.MinDistinctSources {
		res.ConfidenceAdjustment += PenaltyLowSourceDiversity
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("only %d distinct data source(s), want at least %d", len(sources), v.cfg.MinDistinctSources))
	}
}

// checkConsistency cross-checks the configured field pair between two tool
// results. Skipped silently when either value cannot be found.
func (v *Validator) checkConsistency(calls []agent.ToolCall, res *agent.GuardrailResult) {
	pair := v.cfg.Consistency
	if pair == nil {
		return
	}
	a, okA := latestField(calls, pair.ToolA, pair.FieldA)
	b, okB := latestField(calls, pair.ToolB, pair.FieldB)
	if !okA || !okB {
		return
	}
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return
	}
	if math.Abs(a-b)/denom > v.cfg.RelativeTolerance {
		res.ConfidenceAdjustment += PenaltyInconsistentData
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("inconsistent values for %s.%s (%.4g) vs %s.%s (%.4g)",
				pair.ToolA, pair.FieldA, a, pair.ToolB, pair.FieldB, b))
	}
}

// latestField extracts a numeric field from the most recent successful call
// of the named tool.
func latestField(calls []agent.ToolCall, tool, field string) (float64, bool) {
	for i := len(calls) - 1; i >= 0; i-- {
		call := calls[i]
		if call.Name != tool || call.IsError {
			continue
		}
		var payload struct {
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal([]byte(call.Result), &payload); err != nil {
			continue
		}
		if v, ok := lookupNumber(payload.Data, strings.Split(field, ".")); ok {
			return v, true
		}
	}
	return 0, false
}

func lookupNumber(data map[string]any, path []string) (float64, bool) {
	cur := any(data)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0, false
		}
		cur, ok = m[key]
		if !ok {
			return 0, false
		}
	}
	n, ok := cur.(float64)
	return n, ok
}
