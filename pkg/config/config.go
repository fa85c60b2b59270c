// Package config loads and validates the engine configuration from YAML.
// Environment variables are referenced with {{.VAR_NAME}} template syntax so
// literal $ characters in values pass through untouched.
package config

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "60s"
// or "10m". Plain integers are taken as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration %q", value.Value)
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Runtime protocol identifiers.
const (
	ProtocolToolCalling      = "tool_calling"
	ProtocolStructuredAction = "structured_action"
)

// Config is the full engine configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Guardrail GuardrailConfig `yaml:"guardrail"`
}

// LLMConfig selects and tunes the model endpoint.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // empty = provider default
	Model   string `yaml:"model"`
}

// AgentConfig tunes the reasoning loop.
type AgentConfig struct {
	Protocol      string   `yaml:"protocol"` // tool_calling | structured_action
	MaxIterations int      `yaml:"max_iterations"`
	TurnTimeout   Duration `yaml:"turn_timeout"`
	RunTimeout    Duration `yaml:"run_timeout"`
	GatherTimeout Duration `yaml:"gather_timeout"` // per initial data-gathering call
}

// GuardrailConfig tunes the validation rules.
type GuardrailConfig struct {
	RelativeTolerance  float64      `yaml:"relative_tolerance"`
	RecencyWindow      Duration     `yaml:"recency_window"`
	MinDistinctSources int          `yaml:"min_distinct_sources"`
	PassThreshold      int          `yaml:"pass_threshold"`
	Consistency        *Consistency `yaml:"consistency"`
}

// Consistency designates the tool-result field pair cross-checked by the
// guardrail. Optional; the rule is skipped when unset.
type Consistency struct {
	ToolA  string `yaml:"tool_a"`
	FieldA string `yaml:"field_a"`
	ToolB  string `yaml:"tool_b"`
	FieldB string `yaml:"field_b"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model: "gpt-4o",
		},
		Agent: AgentConfig{
			Protocol:      ProtocolToolCalling,
			MaxIterations: 10,
			TurnTimeout:   Duration(60 * time.Second),
			RunTimeout:    Duration(10 * time.Minute),
			GatherTimeout: Duration(30 * time.Second),
		},
		Guardrail: GuardrailConfig{
			RelativeTolerance:  0.10,
			RecencyWindow:      Duration(24 * time.Hour),
			MinDistinctSources: 2,
			PassThreshold:      -30,
			Consistency: &Consistency{
				ToolA:  "get_quote",
				FieldA: "pe_ratio",
				ToolB:  "get_fundamentals",
				FieldB: "pe_ratio",
			},
		},
	}
}

// Load reads the YAML file at path, expands environment references, merges
// it over the defaults and validates the result. An empty path returns the
// validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(ExpandEnv(raw), &fileCfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Agent.Protocol {
	case ProtocolToolCalling, ProtocolStructuredAction:
	default:
		return fmt.Errorf("agent.protocol must be %q or %q, got %q",
			ProtocolToolCalling, ProtocolStructuredAction, c.Agent.Protocol)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.TurnTimeout <= 0 {
		return fmt.Errorf("agent.turn_timeout must be positive, got %s", c.Agent.TurnTimeout)
	}
	if c.Agent.RunTimeout <= 0 {
		return fmt.Errorf("agent.run_timeout must be positive, got %s", c.Agent.RunTimeout)
	}
	if c.Guardrail.RelativeTolerance < 0 || c.Guardrail.RelativeTolerance > 1 {
		return fmt.Errorf("guardrail.relative_tolerance must be in [0, 1], got %g", c.Guardrail.RelativeTolerance)
	}
	if c.Guardrail.PassThreshold >= 0 {
		return fmt.Errorf("guardrail.pass_threshold must be negative, got %d", c.Guardrail.PassThreshold)
	}
	if cst := c.Guardrail.Consistency; cst != nil {
		if (cst.ToolA == "") != (cst.FieldA == "") || (cst.ToolB == "") != (cst.FieldB == "") {
			return fmt.Errorf("guardrail.consistency requires both tool and field on each side")
		}
	}
	return nil
}
