package eliza

import (
	"strings"
	"text/template"
)

// ComposeContext renders a prompt template against a state snapshot using
// Go text/template syntax, for example {{.AgentName}} or
// {{.RecentMessages}}. Caller-supplied extra fields are reachable through
// {{.Extra}}.
func ComposeContext(state *State, tmpl string) (string, error) {
	t, err := template.New("context").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := t.Execute(&buf, state); err != nil {
		return "", err
	}
	return buf.String(), nil
}
