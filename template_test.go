package eliza

import (
	"strings"
	"testing"
)

func TestComposeContext(t *testing.T) {
	state := &State{
		AgentName:      "Eliza",
		SenderName:     "Sam",
		RecentMessages: "Sam: hello",
	}
	out, err := ComposeContext(state, "{{.AgentName}} replies to {{.SenderName}}:\n{{.RecentMessages}}")
	if err != nil {
		t.Fatal(err)
	}
	want := "Eliza replies to Sam:\nSam: hello"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestComposeContextExtra(t *testing.T) {
	state := &State{Extra: map[string]any{"mood": "curious"}}
	out, err := ComposeContext(state, "mood={{.Extra.mood}} missing={{.Extra.absent}}")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "mood=curious") {
		t.Fatalf("extra field not rendered: %q", out)
	}
}

func TestComposeContextParseError(t *testing.T) {
	if _, err := ComposeContext(&State{}, "{{.Unclosed"); err == nil {
		t.Fatal("expected parse error")
	}
}
