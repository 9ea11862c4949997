package launcher

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates a Launcher and the matching Killer for one platform.
type Factory func(opts Options) (Launcher, Killer, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a launcher factory available for a GOOS value.
// It is typically called from an init() function in the adapter package.
func Register(goos string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[goos]; exists {
		panic(fmt.Sprintf("launcher: duplicate registration for %q", goos))
	}
	factories[goos] = factory
}

// New creates the Launcher registered for goos.
func New(goos string, opts Options) (Launcher, Killer, error) {
	mu.RLock()
	factory, ok := factories[goos]
	mu.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("launcher: platform %q not supported", goos)
	}
	return factory(opts)
}

// Available returns the registered platform names, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
