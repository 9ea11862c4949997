// Package catalog defines the port through which agent definitions are loaded.
package catalog

import (
	"context"

	"github.com/Strob0t/promptbox/internal/domain/agent"
)

// Snapshot is one complete, immutable load of the agent catalog.
type Snapshot struct {
	Agents map[string]agent.Definition
	// SummaryTemplate is the prompt template used to fold conversation
	// history into a fork prompt. Empty disables summaries.
	SummaryTemplate string
}

// Source reads agent definitions from external configuration.
type Source interface {
	// Load returns a fresh snapshot. Agents not present in configuration are
	// omitted; malformed command templates fail the whole load.
	Load(ctx context.Context) (*Snapshot, error)
}
