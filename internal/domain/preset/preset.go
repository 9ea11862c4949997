// Package preset defines the named prompt shortcuts offered by the UI.
package preset

// Preset is a one-click prompt aimed at a specific agent.
type Preset struct {
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Agent  string `json:"agent"`
	Prompt string `json:"prompt"`
}

// Defaults returns the built-in presets in display order.
func Defaults() []Preset {
	return []Preset{
		{Name: "Code Review", Icon: "⚡", Agent: "claude", Prompt: "Review the codebase for potential improvements and security issues"},
		{Name: "Test Generation", Icon: "🧪", Agent: "codex", Prompt: "Generate comprehensive unit tests for the main modules"},
		{Name: "Documentation", Icon: "📝", Agent: "gemini", Prompt: "Generate documentation for all public APIs"},
		{Name: "Parallel Analysis", Icon: "🔀", Agent: "claude", Prompt: "Analyze the architecture and suggest improvements"},
		{Name: "Bug Hunt", Icon: "🐛", Agent: "claude", Prompt: "Search for potential bugs and edge cases in the codebase"},
		{Name: "Refactoring", Icon: "🔧", Agent: "codex", Prompt: "Identify code that could benefit from refactoring"},
	}
}
