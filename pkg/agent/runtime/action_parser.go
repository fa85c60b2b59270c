package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action discriminator values of the structured-action protocol.
const (
	actionCallTool = "call_tool"
	actionFinal    = "final"
)

// parsedAction is one decoded protocol step.
type parsedAction struct {
	Action    string          `json:"action"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Content   string          `json:"content,omitempty"`
}

// parseAction extracts exactly one protocol action from a model turn. The
// model is asked for a bare JSON object but commonly wraps it in code fences
// or prose; the parser tolerates both and decodes the first JSON object it
// finds. Anything else is a malformed turn.
func parseAction(text string) (*parsedAction, error) {
	body := stripFences(strings.TrimSpace(text))
	start := strings.IndexByte(body, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in response")
	}

	dec := json.NewDecoder(strings.NewReader(body[start:]))
	var a parsedAction
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("invalid action JSON: %w", err)
	}

	switch a.Action {
	case actionCallTool:
		if a.Tool == "" {
			return nil, fmt.Errorf("call_tool action is missing the tool name")
		}
	case actionFinal:
		if strings.TrimSpace(a.Content) == "" {
			return nil, fmt.Errorf("final action has empty content")
		}
	default:
		return nil, fmt.Errorf("unknown action %q", a.Action)
	}
	return &a, nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// argumentsJSON renders the raw arguments for the tool executor, defaulting
// to an empty object.
func (a *parsedAction) argumentsJSON() string {
	if len(a.Arguments) == 0 {
		return "{}"
	}
	return string(a.Arguments)
}
