package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/finsight-ai/finsight/pkg/agent"
)

// Compile-time check that Registry implements agent.ToolExecutor.
var _ agent.ToolExecutor = (*Registry)(nil)

// ExecutorFunc runs one tool invocation. Arguments have already been
// validated against the tool's parameter schema.
type ExecutorFunc func(ctx context.Context, args map[string]any) (*Payload, error)

// Payload is the structured result every executor must return. Source and
// AsOf are mandatory — downstream freshness and diversity checks depend on
// them, so payloads missing either are rejected as degraded.
type Payload struct {
	Source string         `json:"source"`
	AsOf   time.Time      `json:"as_of"`
	Data   map[string]any `json:"data"`
}

type entry struct {
	def    agent.ToolDefinition
	schema *jsonschema.Schema
	fn     ExecutorFunc
}

// Registry is the catalog of named tool capabilities. Registration happens
// once at startup; after that the registry is read-only and safe to share
// across concurrent runs.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // registration order, for deterministic List output
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a tool. The parameter schema is compiled eagerly so schema
// typos fail at startup, not mid-run.
func (r *Registry) Register(def agent.ToolDefinition, fn ExecutorFunc) error {
	if def.Name == "" {
		return fmt.Errorf("tool definition requires a name")
	}
	if fn == nil {
		return fmt.Errorf("tool %q: executor is required", def.Name)
	}

	schema, err := compileSchema(def.Name, def.ParametersSchema)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.entries[def.Name] = &entry{def: def, schema: schema, fn: fn}
	r.order = append(r.order, def.Name)
	return nil
}

// List returns all tool definitions in registration order.
func (r *Registry) List() []agent.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]agent.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Execute runs a tool call through the full boundary:
//
//  1. Look up the tool — unknown names are degraded calls, not errors
//  2. Validate arguments against the compiled parameter schema
//  3. Run the executor with panics and errors contained
//  4. Reject payloads missing source/as_of
//
// Execute never fails as a Go error and never lets an executor fault cross
// this boundary; every outcome is recorded in the returned ToolCall.
func (r *Registry) Execute(ctx context.Context, name, arguments string) agent.ToolCall {
	start := time.Now()
	call := agent.ToolCall{
		ID:        uuid.NewString(),
		Name:      name,
		Arguments: arguments,
	}

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return degraded(call, start, fmt.Sprintf("unknown tool %q (available: %s)", name, strings.Join(r.names(), ", ")))
	}

	if arguments == "" {
		arguments = "{}"
	}
	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(arguments))
	if err != nil {
		return degraded(call, start, fmt.Sprintf("arguments are not valid JSON: %s", err))
	}
	if err := e.schema.Validate(instance); err != nil {
		return degraded(call, start, fmt.Sprintf("arguments failed schema validation: %s", err))
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return degraded(call, start, fmt.Sprintf("arguments are not a JSON object: %s", err))
	}

	payload, err := safeExecute(ctx, e.fn, args)
	if err != nil {
		return degraded(call, start, err.Error())
	}
	if payload == nil || payload.Source == "" || payload.AsOf.IsZero() {
		return degraded(call, start, "tool payload is missing source/as_of tags")
	}

	result, err := json.Marshal(payload)
	if err != nil {
		return degraded(call, start, fmt.Sprintf("failed to encode payload: %s", err))
	}

	call.Result = string(result)
	call.Source = payload.Source
	call.AsOf = payload.AsOf
	call.Duration = time.Since(start)
	return call
}

func (r *Registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// Subset returns a view of the registry restricted to the named tools.
// Used by the orchestrator to scope the catalog to the active skill.
func (r *Registry) Subset(names []string) agent.ToolExecutor {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return &scopedRegistry{registry: r, allowed: allowed}
}

// safeExecute runs the executor with panic containment and deadline
// enforcement. The deadline holds even for executors that ignore their
// context; an abandoned executor goroutine finishes in the background and
// its result is discarded.
func safeExecute(ctx context.Context, fn ExecutorFunc, args map[string]any) (*Payload, error) {
	type outcome struct {
		payload *Payload
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("tool executor panicked", "panic", rec)
				done <- outcome{err: fmt.Errorf("tool executor panicked: %v", rec)}
			}
		}()
		p, err := fn(ctx, args)
		done <- outcome{payload: p, err: err}
	}()

	select {
	case o := <-done:
		return o.payload, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("tool execution aborted: %w", ctx.Err())
	}
}

func degraded(call agent.ToolCall, start time.Time, msg string) agent.ToolCall {
	call.IsError = true
	call.ErrorMessage = msg
	call.Source = agent.SourceError
	call.Duration = time.Since(start)
	return call
}

func compileSchema(name, raw string) (*jsonschema.Schema, error) {
	if raw == "" {
		raw = `{"type":"object"}`
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("tool %q: parameter schema is not valid JSON: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("tool %q: add schema resource: %w", name, err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("tool %q: compile parameter schema: %w", name, err)
	}
	return schema, nil
}

// scopedRegistry is a skill-scoped view. Calls to tools outside the subset
// degrade the same way unknown tools do.
type scopedRegistry struct {
	registry *Registry
	allowed  map[string]bool
}

func (s *scopedRegistry) Execute(ctx context.Context, name, arguments string) agent.ToolCall {
	if !s.allowed[name] {
		start := time.Now()
		available := make([]string, 0, len(s.allowed))
		for _, def := range s.List() {
			available = append(available, def.Name)
		}
		return degraded(agent.ToolCall{
			ID:        uuid.NewString(),
			Name:      name,
			Arguments: arguments,
		}, start, fmt.Sprintf("tool %q is not available for this skill (available: %s)", name, strings.Join(available, ", ")))
	}
	return s.registry.Execute(ctx, name, arguments)
}

func (s *scopedRegistry) List() []agent.ToolDefinition {
	all := s.registry.List()
	defs := make([]agent.ToolDefinition, 0, len(s.allowed))
	for _, def := range all {
		if s.allowed[def.Name] {
			defs = append(defs, def)
		}
	}
	return defs
}
