// Package service contains the application services of promptbox.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Strob0t/promptbox/internal/domain/fork"
)

// EventHandler receives fork events. A returned error is logged and does
// not affect other subscribers.
type EventHandler func(ctx context.Context, ev fork.Event) error

// FanoutService distributes fork events to subscribers. Each subscriber has
// its own bounded queue and goroutine, so delivery is FIFO per subscriber and
// a slow subscriber never delays the publisher or its peers.
type FanoutService struct {
	queueSize int

	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool

	wg        sync.WaitGroup
	published atomic.Int64
	dropped   atomic.Int64
}

type subscriber struct {
	name    string
	ch      chan fork.Event
	handler EventHandler
	dropped atomic.Int64
}

// NewFanoutService creates a FanoutService whose subscribers buffer up to
// queueSize events each.
func NewFanoutService(queueSize int) *FanoutService {
	return &FanoutService{
		queueSize: max(queueSize, 1),
		subs:      make(map[uint64]*subscriber),
	}
}

// Subscribe registers h and returns a function that removes it. Events still
// queued for the subscriber are delivered before its goroutine exits.
// Subscribing after Close returns a no-op unsubscribe.
func (s *FanoutService) Subscribe(name string, h EventHandler) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	s.nextID++
	id := s.nextID
	sub := &subscriber{
		name:    name,
		ch:      make(chan fork.Event, s.queueSize),
		handler: h,
	}
	s.subs[id] = sub

	s.wg.Add(1)
	go s.run(sub)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *FanoutService) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(sub.ch)
	}
}

// Publish queues ev for every current subscriber without blocking. When a
// subscriber's queue is full the event is dropped for that subscriber only.
func (s *FanoutService) Publish(ev fork.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	s.published.Add(1)

	for _, sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			n := sub.dropped.Add(1)
			s.dropped.Add(1)
			if n == 1 || n%100 == 0 {
				slog.Warn("fanout queue full, event dropped",
					"subscriber", sub.name,
					"event", ev.Type,
					"fork_id", ev.ForkID,
					"dropped_total", n,
				)
			}
		}
	}
}

func (s *FanoutService) run(sub *subscriber) {
	defer s.wg.Done()
	for ev := range sub.ch {
		s.deliver(sub, ev)
	}
}

func (s *FanoutService) deliver(sub *subscriber, ev fork.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("fanout handler panicked",
				"subscriber", sub.name,
				"event", ev.Type,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	if err := sub.handler(context.Background(), ev); err != nil {
		slog.Debug("fanout handler failed",
			"subscriber", sub.name,
			"event", ev.Type,
			"fork_id", ev.ForkID,
			"error", err,
		)
	}
}

// SubscriberCount returns the number of active subscribers.
func (s *FanoutService) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Published returns how many events were accepted by Publish.
func (s *FanoutService) Published() int64 { return s.published.Load() }

// Dropped returns how many per-subscriber deliveries were dropped.
func (s *FanoutService) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting events, lets every subscriber drain its queue and
// waits for the handlers to finish.
func (s *FanoutService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
