package agent

import "time"

// ToolDefinition describes a named capability in the tool registry.
// Immutable after registration.
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema string // JSON Schema for the arguments object
	Required         []string
}

// ToolCall records one tool invocation, successful or not. Always recorded,
// never silently dropped; immutable after creation. Degraded calls (argument
// validation failures, executor errors, timeouts, missing payload tags) carry
// Source "error" and a zero AsOf.
type ToolCall struct {
	ID           string
	Name         string
	Arguments    string // JSON object as sent to the executor
	Result       string // payload JSON on success, empty on failure
	Source       string
	AsOf         time.Time
	Duration     time.Duration
	IsError      bool
	ErrorMessage string
}

// SourceError tags degraded tool calls.
const SourceError = "error"

// AnalysisInput is the read-only reasoning input assembled by the
// orchestrator before the runtime starts.
type AnalysisInput struct {
	Symbol  string
	Market  string
	Skill   string
	Prompt  string
	Context map[string]string // topic → collected payload JSON or "unavailable: ..." marker
	Windows map[string]string // topic → time-window configuration (e.g. "daily:90")
}

// RuntimeDraft is the unvalidated output of a runtime. Produced exactly once
// per run, by FINAL completion or by the degraded fallback path — never nil.
type RuntimeDraft struct {
	Content            string
	BaselineConfidence int
	ToolCalls          []ToolCall
	ActionTrace        []string // ordered protocol actions (structured-action runtime only)
	Degraded           bool
	Warnings           []string
}

// EvidenceType classifies a piece of evidence by the kind of fact it carries.
type EvidenceType string

const (
	EvidencePrice       EvidenceType = "price"
	EvidenceNews        EvidenceType = "news"
	EvidenceIndicator   EvidenceType = "indicator"
	EvidenceFundamental EvidenceType = "fundamental"
	EvidenceOther       EvidenceType = "other"
)

// Evidence is one collected fact available for citation in the draft via
// [E<n>] markers. Identifiers are dense and 1-based in emission order.
type Evidence struct {
	ID      string // "E1", "E2", ...
	Type    EvidenceType
	Source  string
	Snippet string
	AsOf    time.Time
}

// GuardrailResult is the outcome of the validation rule pipeline.
// Pure function of (draft, evidence, tool calls); recomputed per run.
type GuardrailResult struct {
	Passed               bool
	Warnings             []string
	ConfidenceAdjustment int // sum of applied penalties, always <= 0
}

// AgentFinalReport is the assembled structured report handed to the caller.
type AgentFinalReport struct {
	Markdown        string
	Summary         string
	KeyPoints       []string
	Recommendations []string
	RiskFactors     []string
	DataSources     []string
	Confidence      int // clamped to [0, 100]
}

// AgentRunResult aggregates everything a run produced. It is the sole
// artifact handed to the caller; the engine does not persist it.
type AgentRunResult struct {
	Input      AnalysisInput
	Draft      RuntimeDraft
	Report     AgentFinalReport
	ToolCalls  []ToolCall
	Evidence   []Evidence
	Confidence int
	Warnings   []string
}

// TokenUsage aggregates token consumption across LLM calls in a run.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
