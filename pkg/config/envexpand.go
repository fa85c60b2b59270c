package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv substitutes environment variables referenced as {{.VAR_NAME}}
// in YAML content. Template syntax is used instead of $VAR expansion so that
// literal $ characters (regex patterns, passwords) survive untouched.
// Missing variables expand to an empty string; validation catches required
// fields left empty. Content that fails to parse as a template is returned
// unchanged.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		return data
	}
	return buf.Bytes()
}
