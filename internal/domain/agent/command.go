package agent

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	placeholderModel  = "model"
	placeholderPrompt = "prompt"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// TemplateError reports a malformed command template.
type TemplateError struct {
	Template string
	Reason   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("invalid command template %q: %s", e.Template, e.Reason)
}

// ValidateTemplate checks that a command template contains the {prompt}
// placeholder and no placeholders other than {model} and {prompt}.
func ValidateTemplate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return &TemplateError{Template: tmpl, Reason: "template is empty"}
	}
	hasPrompt := false
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		switch m[1] {
		case placeholderPrompt:
			hasPrompt = true
		case placeholderModel:
		default:
			return &TemplateError{Template: tmpl, Reason: fmt.Sprintf("unknown placeholder {%s}", m[1])}
		}
	}
	if !hasPrompt {
		return &TemplateError{Template: tmpl, Reason: "missing {prompt} placeholder"}
	}
	return nil
}

// EscapePrompt escapes double quotes so the prompt can sit inside a
// double-quoted shell argument.
func EscapePrompt(prompt string) string {
	return strings.ReplaceAll(prompt, `"`, `\"`)
}

// BuildCommand renders the shell command for a definition, tier and prompt.
// The replacement is single-pass: placeholder text inside the prompt is
// left untouched.
func BuildCommand(def *Definition, tier Tier, prompt string) (string, error) {
	if err := ValidateTemplate(def.CommandTemplate); err != nil {
		return "", err
	}
	r := strings.NewReplacer(
		"{"+placeholderModel+"}", def.Model(tier),
		"{"+placeholderPrompt+"}", EscapePrompt(prompt),
	)
	return r.Replace(def.CommandTemplate), nil
}
