package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/Strob0t/promptbox/internal/domain/fork"
)

// enforceLimitLocked evicts the oldest terminal forks, by completion time,
// while more than MaxRetained terminal forks are held. Forks that are still
// spawning or running are never evicted.
func (s *ForkService) enforceLimitLocked(ctx context.Context) {
	if s.cfg.MaxRetained <= 0 {
		return
	}

	var done []*fork.Fork
	for _, f := range s.forks {
		if f.Status.IsTerminal() {
			done = append(done, f)
		}
	}
	excess := len(done) - s.cfg.MaxRetained
	if excess <= 0 {
		return
	}

	slices.SortFunc(done, func(a, b *fork.Fork) int {
		return a.CompletedAt.Compare(*b.CompletedAt)
	})
	victims := make(map[string]struct{}, excess)
	for _, f := range done[:excess] {
		victims[f.ID] = struct{}{}
	}
	s.evictLocked(ctx, victims, "limit")
}

// Sweep evicts terminal forks that completed more than RetentionTTL ago and
// returns how many were removed.
func (s *ForkService) Sweep(ctx context.Context) int {
	if s.cfg.RetentionTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.RetentionTTL)
	victims := make(map[string]struct{})
	for id, f := range s.forks {
		if f.Status.IsTerminal() && f.CompletedAt != nil && f.CompletedAt.Before(cutoff) {
			victims[id] = struct{}{}
		}
	}
	s.evictLocked(ctx, victims, "ttl")
	return len(victims)
}

// RunRetention sweeps every interval until ctx is done.
func (s *ForkService) RunRetention(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || s.cfg.RetentionTTL <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *ForkService) evictLocked(ctx context.Context, victims map[string]struct{}, reason string) {
	if len(victims) == 0 {
		return
	}
	for id := range victims {
		delete(s.forks, id)
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		_, gone := victims[id]
		return gone
	})

	if s.metrics != nil {
		s.metrics.ForksEvicted.Add(ctx, int64(len(victims)))
	}
	slog.DebugContext(ctx, "forks evicted", "count", len(victims), "reason", reason, "retained", len(s.forks))
}
