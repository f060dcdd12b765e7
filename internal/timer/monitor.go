// Package timer runs the per-match auto-pass countdowns. One Monitor serves
// one match: it watches a single armed deadline and fires an expiry callback
// on the sweep goroutine when the deadline passes.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultInterval is how often the sweep goroutine checks the armed deadline.
const DefaultInterval = 250 * time.Millisecond

// State describes one armed countdown. The PlayID scopes the timer to the
// exact tabled play it was armed against: if the table moves on before the
// deadline, the expiry for the stale play must be discarded, not delivered.
type State struct {
	Active    bool          `json:"active"`
	OwnerSeat int           `json:"owner_seat"`
	PlayID    uuid.UUID     `json:"play_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Deadline returns the instant the countdown elapses.
func (s State) Deadline() time.Time {
	return s.StartedAt.Add(s.Duration)
}

// ExpireFunc receives the expired state. It runs on the sweep goroutine, so
// implementations must do their own locking and stale-scope checks.
type ExpireFunc func(State)

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval overrides the sweep period.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor owns at most one armed countdown at a time. Re-arming replaces the
// previous one; the sweep goroutine fires the callback exactly once per armed
// state.
type Monitor struct {
	expire   ExpireFunc
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu    sync.Mutex
	state State

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor starts the sweep goroutine immediately. Callers must Stop the
// monitor when the match ends.
func NewMonitor(logger zerolog.Logger, expire ExpireFunc, opts ...Option) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		expire:   expire,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.wg.Add(1)
	go m.loop()
	return m
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep fires the callback when the armed deadline has passed. Split out from
// the loop so tests can drive it with a fake clock.
func (m *Monitor) sweep() {
	m.mu.Lock()
	if !m.state.Active || m.now().Before(m.state.Deadline()) {
		m.mu.Unlock()
		return
	}
	expired := m.state
	m.state = State{}
	m.mu.Unlock()

	m.logger.Debug().
		Int("seat", expired.OwnerSeat).
		Str("play_id", expired.PlayID.String()).
		Msg("auto-pass countdown expired")
	m.expire(expired)
}

// Arm starts a countdown for the given seat scoped to the given play. Any
// previously armed countdown is replaced without firing.
func (m *Monitor) Arm(seat int, playID uuid.UUID, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{
		Active:    true,
		OwnerSeat: seat,
		PlayID:    playID,
		StartedAt: m.now(),
		Duration:  d,
	}
}

// ArmAt restores a countdown with an explicit start instant, used when
// rehydrating a match from a snapshot. A deadline already in the past fires
// on the next sweep.
func (m *Monitor) ArmAt(seat int, playID uuid.UUID, startedAt time.Time, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{
		Active:    true,
		OwnerSeat: seat,
		PlayID:    playID,
		StartedAt: startedAt,
		Duration:  d,
	}
}

// Cancel clears any armed countdown. Safe to call when nothing is armed.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
}

// Snapshot returns the current state for persistence or client display.
func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Remaining returns how long until the armed deadline fires, zero when it is
// already due, and false when nothing is armed.
func (m *Monitor) Remaining() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Active {
		return 0, false
	}
	left := m.state.Deadline().Sub(m.now())
	if left < 0 {
		left = 0
	}
	return left, true
}

// Stop cancels the sweep goroutine and waits for it to exit. The monitor must
// not be used afterwards.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}
