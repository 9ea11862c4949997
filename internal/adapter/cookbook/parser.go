package cookbook

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

const variablesHeading = "## Variables"

var toggleRe = regexp.MustCompile(`(?i)^(ENABLE_\w+):\s*(true|false)`)

// ParseVariables extracts the KEY: value lines of the "## Variables" section.
// The section ends at the next level-2 heading.
func ParseVariables(content []byte) map[string]string {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	inSection := false

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == variablesHeading {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return vars
}

// ParseToggles extracts ENABLE_*: true|false switches from SKILL.md content.
// Keys are upper-cased; the last occurrence wins.
func ParseToggles(content []byte) map[string]bool {
	toggles := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(content))

	for scanner.Scan() {
		m := toggleRe.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		toggles[strings.ToUpper(m[1])] = strings.EqualFold(m[2], "true")
	}
	return toggles
}
