package agent

import (
	"regexp"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one entry of the conversation that preceded a fork.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SummaryMessageLimit is the number of characters of each historical
// message carried into a summary prompt.
const SummaryMessageLimit = 200

var (
	historyBlockRe = regexp.MustCompile(`(?s)<fill_in_conversation_summary_here>.*?</fill_in_conversation_summary_here>`)
	requestBlockRe = regexp.MustCompile(`(?s)<fill_in_next_user_request_here>.*?</fill_in_next_user_request_here>`)
)

// FormatSummary merges the conversation history and the next request into
// the summary template. An empty template returns the request unchanged.
func FormatSummary(template string, history []Message, request string) string {
	if template == "" {
		return request
	}

	var b strings.Builder
	b.WriteString("```yaml\n- history:\n")
	for _, m := range history {
		role := "agent_response"
		if m.Role == RoleUser {
			role = "user_prompt"
		}
		b.WriteString("    - ")
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(Truncate(m.Content, SummaryMessageLimit))
		b.WriteString("\n")
	}
	b.WriteString("```")

	out := historyBlockRe.ReplaceAllLiteralString(template, b.String())
	return requestBlockRe.ReplaceAllLiteralString(out, request)
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
