// Package agent defines the Agent definition entity and the command builder
// that turns a definition, a model tier and a prompt into a shell command.
package agent

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Tier is a named quality/speed tradeoff mapping to a concrete model.
type Tier string

const (
	TierFast    Tier = "fast"
	TierDefault Tier = "default"
	TierHeavy   Tier = "heavy"
)

// ValidTier reports whether t is a known model tier.
func ValidTier(t string) bool {
	switch Tier(t) {
	case TierFast, TierDefault, TierHeavy:
		return true
	}
	return false
}

var (
	// ErrUnknownAgent is returned when a fork references an agent id
	// that is not in the catalog.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrAgentDisabled is returned when a fork references an agent that is
	// present in the catalog but switched off.
	ErrAgentDisabled = errors.New("agent is disabled")
)

// Definition describes an external CLI agent and how to invoke it.
// Definitions are immutable once loaded; a catalog reload replaces them.
type Definition struct {
	ID              string            `json:"id" yaml:"id"`
	Name            string            `json:"name" yaml:"name"`
	Icon            string            `json:"icon" yaml:"icon"`
	Color           string            `json:"color" yaml:"color"`
	Enabled         bool              `json:"enabled" yaml:"enabled"`
	Models          map[string]string `json:"models" yaml:"models"`
	CommandTemplate string            `json:"commandTemplate" yaml:"command_template"`
	Flags           []string          `json:"flags" yaml:"flags"`
}

// Model resolves the model identifier for a tier, falling back to the
// default tier when the requested one is not configured.
func (d *Definition) Model(tier Tier) string {
	if m, ok := d.Models[string(tier)]; ok {
		return m
	}
	return d.Models[string(TierDefault)]
}

// Validate checks that the definition is usable for building commands.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return errors.New("agent id is required")
	}
	if d.Name == "" {
		return fmt.Errorf("agent %s: name is required", d.ID)
	}
	if _, ok := d.Models[string(TierDefault)]; !ok {
		return fmt.Errorf("agent %s: models.default is required", d.ID)
	}
	if err := ValidateTemplate(d.CommandTemplate); err != nil {
		return fmt.Errorf("agent %s: %w", d.ID, err)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate catalog state.
func (d *Definition) Clone() Definition {
	c := *d
	c.Models = maps.Clone(d.Models)
	c.Flags = slices.Clone(d.Flags)
	if c.Flags == nil {
		c.Flags = []string{}
	}
	return c
}
