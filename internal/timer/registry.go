package timer

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry tracks the live monitor of every running match. Monitors are
// created when a match starts and torn down when it ends; lookups by match
// ID never race with teardown.
type Registry struct {
	logger zerolog.Logger

	mu       sync.Mutex
	monitors map[string]*Monitor
}

// NewRegistry returns an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		monitors: make(map[string]*Monitor),
	}
}

// Create starts a monitor for the given match. Creating over an existing
// entry stops the old monitor first.
func (r *Registry) Create(matchID string, expire ExpireFunc, opts ...Option) *Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.monitors[matchID]; ok {
		r.logger.Warn().Str("match_id", matchID).Msg("replacing live timer monitor")
		old.Stop()
	}
	m := NewMonitor(r.logger.With().Str("match_id", matchID).Logger(), expire, opts...)
	r.monitors[matchID] = m
	return m
}

// Get returns the monitor for a match, or nil when none is registered.
func (r *Registry) Get(matchID string) *Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.monitors[matchID]
}

// Teardown stops and removes a match's monitor. Unknown IDs are a no-op.
func (r *Registry) Teardown(matchID string) {
	r.mu.Lock()
	m, ok := r.monitors[matchID]
	delete(r.monitors, matchID)
	r.mu.Unlock()

	if ok {
		m.Stop()
	}
}

// Close stops every registered monitor.
func (r *Registry) Close() {
	r.mu.Lock()
	monitors := r.monitors
	r.monitors = make(map[string]*Monitor)
	r.mu.Unlock()

	for _, m := range monitors {
		m.Stop()
	}
}
