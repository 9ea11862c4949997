package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Strob0t/promptbox/internal/domain/agent"
	"github.com/Strob0t/promptbox/internal/port/broadcast"
	"github.com/Strob0t/promptbox/internal/port/catalog"
)

// EventAgentsReloaded is broadcast to UI clients after a successful reload.
const EventAgentsReloaded = "agents_reloaded"

// CatalogService holds the live agent catalog. Reads see either the old or
// the new snapshot in full; a failed reload keeps the old one.
type CatalogService struct {
	source catalog.Source
	hub    broadcast.Broadcaster

	current  atomic.Pointer[catalog.Snapshot]
	reloadMu sync.Mutex
}

// NewCatalogService creates a CatalogService reading from source. The catalog
// is empty until Reload succeeds.
func NewCatalogService(source catalog.Source) *CatalogService {
	s := &CatalogService{source: source}
	s.current.Store(&catalog.Snapshot{Agents: map[string]agent.Definition{}})
	return s
}

// SetBroadcaster sets the hub notified after each successful reload.
func (s *CatalogService) SetBroadcaster(b broadcast.Broadcaster) {
	s.hub = b
}

// Reload loads a fresh snapshot and swaps it in. Concurrent reloads are
// serialized. Returns the number of agents in the new catalog.
func (s *CatalogService) Reload(ctx context.Context) (int, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, err := s.source.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("reload agents: %w", err)
	}
	if snap.Agents == nil {
		snap.Agents = map[string]agent.Definition{}
	}
	s.current.Store(snap)

	count := len(snap.Agents)
	slog.Info("agent catalog loaded", "agents", count, "ids", slices.Sorted(maps.Keys(snap.Agents)))

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, EventAgentsReloaded, map[string]int{"count": count})
	}
	return count, nil
}

// Agents returns a copy of every definition keyed by id.
func (s *CatalogService) Agents() map[string]agent.Definition {
	snap := s.current.Load()
	out := make(map[string]agent.Definition, len(snap.Agents))
	for id, def := range snap.Agents {
		out[id] = def.Clone()
	}
	return out
}

// Get returns a copy of the definition for id.
func (s *CatalogService) Get(id string) (agent.Definition, bool) {
	def, ok := s.current.Load().Agents[id]
	if !ok {
		return agent.Definition{}, false
	}
	return def.Clone(), true
}

// Resolve returns the definition for id if it exists and is enabled.
func (s *CatalogService) Resolve(id string) (agent.Definition, error) {
	def, ok := s.Get(id)
	if !ok {
		return agent.Definition{}, fmt.Errorf("%w: %s", agent.ErrUnknownAgent, id)
	}
	if !def.Enabled {
		return agent.Definition{}, fmt.Errorf("%w: %s", agent.ErrAgentDisabled, id)
	}
	return def, nil
}

// SummaryTemplate returns the prompt template used to fold conversation
// history into a fork prompt.
func (s *CatalogService) SummaryTemplate() string {
	return s.current.Load().SummaryTemplate
}

// Count returns the number of agents in the catalog.
func (s *CatalogService) Count() int {
	return len(s.current.Load().Agents)
}
