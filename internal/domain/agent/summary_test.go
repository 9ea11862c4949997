package agent_test

import (
	"strings"
	"testing"

	"github.com/Strob0t/promptbox/internal/domain/agent"
)

const summaryTemplate = `# Fork summary

<fill_in_conversation_summary_here>
` + "```yaml" + `
- history:
    - user_prompt: <user prompt summary>
      agent_response: <agent response summary>
` + "```" + `
</fill_in_conversation_summary_here>

## Next request

<fill_in_next_user_request_here>
  <user prompt here exactly as it was requested>
</fill_in_next_user_request_here>
`

func TestFormatSummary(t *testing.T) {
	history := []agent.Message{
		{Role: agent.RoleUser, Content: "add a health endpoint"},
		{Role: agent.RoleAgent, Content: "done, see handlers.go"},
	}

	out := agent.FormatSummary(summaryTemplate, history, "now write tests")

	if strings.Contains(out, "<fill_in_") {
		t.Fatalf("placeholders left in output:\n%s", out)
	}
	if !strings.Contains(out, "    - user_prompt: add a health endpoint\n") {
		t.Errorf("missing user entry:\n%s", out)
	}
	if !strings.Contains(out, "    - agent_response: done, see handlers.go\n") {
		t.Errorf("missing agent entry:\n%s", out)
	}
	if !strings.Contains(out, "## Next request\n\nnow write tests\n") {
		t.Errorf("missing next request:\n%s", out)
	}
}

func TestFormatSummary_TruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("a", 250)
	out := agent.FormatSummary(summaryTemplate, []agent.Message{{Role: agent.RoleUser, Content: long}}, "next")

	want := "user_prompt: " + strings.Repeat("a", 200) + "...\n"
	if !strings.Contains(out, want) {
		t.Fatalf("expected truncated entry in:\n%s", out)
	}
}

func TestFormatSummary_EmptyTemplate(t *testing.T) {
	out := agent.FormatSummary("", []agent.Message{{Role: agent.RoleUser, Content: "x"}}, "request")
	if out != "request" {
		t.Fatalf("got %q, want request", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 4, "this..."},
		{"héllo wörld", 5, "héllo..."},
	}
	for _, tt := range tests {
		if got := agent.Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
