// Package cookbook loads agent definitions from a skill directory: SKILL.md
// toggles, cookbook/*.md model variables, an optional agents.yaml with custom
// agents, and the fork summary prompt template.
package cookbook

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/promptbox/internal/domain/agent"
	"github.com/Strob0t/promptbox/internal/port/catalog"
)

// Well-known paths relative to the skill directory.
const (
	SkillFile       = "SKILL.md"
	CookbookDir     = "cookbook"
	AgentsFile      = "agents.yaml"
	SummaryTemplate = "prompts/fork_summary_user_prompt.md"
)

// Source reads the catalog from a skill directory on every Load.
type Source struct {
	dir string
}

var _ catalog.Source = (*Source)(nil)

// New creates a Source rooted at dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Dir returns the skill directory.
func (s *Source) Dir() string { return s.dir }

// WatchPaths returns the directories whose changes should trigger a reload.
func (s *Source) WatchPaths() []string {
	return []string{
		s.dir,
		filepath.Join(s.dir, CookbookDir),
		filepath.Dir(filepath.Join(s.dir, SummaryTemplate)),
	}
}

// Load builds a fresh snapshot. A built-in agent is present only when its
// cookbook file exists. Missing SKILL.md enables everything.
func (s *Source) Load(ctx context.Context) (*catalog.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	toggles, err := s.toggles()
	if err != nil {
		return nil, err
	}
	enabled := func(key string) bool {
		v, ok := toggles[key]
		return !ok || v
	}

	agents := make(map[string]agent.Definition)
	for _, b := range builtins() {
		content, err := s.read(filepath.Join(CookbookDir, b.file))
		if err != nil {
			return nil, err
		}
		if content == nil {
			continue
		}

		def := b.def
		def.Enabled = enabled(b.toggle)
		def.Models = maps.Clone(b.defaults)
		for name, value := range ParseVariables(content) {
			if tier, ok := tierVariables[name]; ok && value != "" {
				def.Models[string(tier)] = value
			}
		}
		agents[def.ID] = def
	}

	if enabled(ToggleRaw) {
		raw := rawAgent()
		agents[raw.ID] = raw
	}

	custom, err := s.customAgents()
	if err != nil {
		return nil, err
	}
	for _, def := range custom {
		agents[def.ID] = def
	}

	for _, def := range agents {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("cookbook: %w", err)
		}
	}

	tmpl, err := s.read(SummaryTemplate)
	if err != nil {
		return nil, err
	}

	return &catalog.Snapshot{Agents: agents, SummaryTemplate: string(tmpl)}, nil
}

func (s *Source) toggles() (map[string]bool, error) {
	content, err := s.read(SkillFile)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return map[string]bool{}, nil
	}
	return ParseToggles(content), nil
}

// customAgent is one entry of agents.yaml. Enabled defaults to true.
type customAgent struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	Icon            string            `yaml:"icon"`
	Color           string            `yaml:"color"`
	Enabled         *bool             `yaml:"enabled"`
	Models          map[string]string `yaml:"models"`
	CommandTemplate string            `yaml:"command_template"`
	Flags           []string          `yaml:"flags"`
}

type agentsFile struct {
	Agents []customAgent `yaml:"agents"`
}

func (s *Source) customAgents() ([]agent.Definition, error) {
	content, err := s.read(AgentsFile)
	if err != nil || content == nil {
		return nil, err
	}

	var f agentsFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("cookbook: parse %s: %w", AgentsFile, err)
	}

	defs := make([]agent.Definition, 0, len(f.Agents))
	for i, c := range f.Agents {
		if c.ID == "" {
			return nil, fmt.Errorf("cookbook: %s: agents[%d]: id is required", AgentsFile, i)
		}
		def := agent.Definition{
			ID:              c.ID,
			Name:            c.Name,
			Icon:            c.Icon,
			Color:           c.Color,
			Enabled:         c.Enabled == nil || *c.Enabled,
			Models:          c.Models,
			CommandTemplate: c.CommandTemplate,
			Flags:           c.Flags,
		}
		if def.Name == "" {
			def.Name = def.ID
		}
		if def.Flags == nil {
			def.Flags = []string{}
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// read returns the file content, or nil when it does not exist.
func (s *Source) read(rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, rel)) //nolint:gosec // G304: path under operator-configured dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cookbook: read %s: %w", rel, err)
	}
	return data, nil
}
