package cookbook

import "github.com/Strob0t/promptbox/internal/domain/agent"

// Toggle names read from SKILL.md.
const (
	ToggleRaw    = "ENABLE_RAW_CLI_COMMANDS"
	ToggleClaude = "ENABLE_CLAUDE_CODE"
	ToggleCodex  = "ENABLE_CODEX_CLI"
	ToggleGemini = "ENABLE_GEMINI_CLI"
)

// builtin describes an agent that exists when its cookbook file does.
type builtin struct {
	file     string
	toggle   string
	defaults map[string]string
	def      agent.Definition
}

func builtins() []builtin {
	return []builtin{
		{
			file:   "claude-code.md",
			toggle: ToggleClaude,
			defaults: map[string]string{
				"fast": "haiku", "default": "opus", "heavy": "opus",
			},
			def: agent.Definition{
				ID:              "claude",
				Name:            "Claude Code",
				Icon:            "◈",
				Color:           "#FF6B35",
				CommandTemplate: `claude --model {model} --dangerously-skip-permissions "{prompt}"`,
				Flags:           []string{"--dangerously-skip-permissions"},
			},
		},
		{
			file:   "codex-cli.md",
			toggle: ToggleCodex,
			defaults: map[string]string{
				"fast": "gpt-5.1-codex-mini", "default": "gpt-5.1-codex-max", "heavy": "gpt-5.1-codex-max",
			},
			def: agent.Definition{
				ID:              "codex",
				Name:            "Codex CLI",
				Icon:            "◆",
				Color:           "#00D4AA",
				CommandTemplate: `codex -m {model} --dangerously-bypass-approvals-and-sandbox "{prompt}"`,
				Flags:           []string{"--dangerously-bypass-approvals-and-sandbox"},
			},
		},
		{
			file:   "gemini-cli.md",
			toggle: ToggleGemini,
			defaults: map[string]string{
				"fast": "gemini-2.5-flash", "default": "gemini-3-pro-preview", "heavy": "gemini-3-pro",
			},
			def: agent.Definition{
				ID:              "gemini",
				Name:            "Gemini CLI",
				Icon:            "◇",
				Color:           "#8B5CF6",
				CommandTemplate: `gemini --model {model} -y -i "{prompt}"`,
				Flags:           []string{"-y", "-i"},
			},
		},
	}
}

// rawAgent passes the prompt through as the command.
func rawAgent() agent.Definition {
	return agent.Definition{
		ID:      "raw",
		Name:    "Raw CLI",
		Icon:    "▢",
		Color:   "#64748B",
		Enabled: true,
		Models: map[string]string{
			"fast": "N/A", "default": "N/A", "heavy": "N/A",
		},
		CommandTemplate: "{prompt}",
		Flags:           []string{},
	}
}

// tierVariables maps cookbook variable names to model tiers.
var tierVariables = map[string]agent.Tier{
	"FAST_MODEL":    agent.TierFast,
	"DEFAULT_MODEL": agent.TierDefault,
	"HEAVY_MODEL":   agent.TierHeavy,
}
