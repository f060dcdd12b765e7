package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time by hand instead of sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMonitor(t *testing.T, expire ExpireFunc) (*Monitor, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	// A long real interval keeps the background loop quiet; tests call
	// sweep directly.
	m := NewMonitor(zerolog.Nop(), expire,
		WithInterval(time.Hour), WithClock(clock.Now))
	t.Cleanup(m.Stop)
	return m, clock
}

func TestMonitorFiresAfterDeadline(t *testing.T) {
	var (
		mu    sync.Mutex
		fired []State
	)
	m, clock := newTestMonitor(t, func(s State) {
		mu.Lock()
		fired = append(fired, s)
		mu.Unlock()
	})

	playID := uuid.New()
	m.Arm(2, playID, 10*time.Second)

	m.sweep()
	clock.Advance(9 * time.Second)
	m.sweep()
	mu.Lock()
	assert.Empty(t, fired, "fired before the deadline")
	mu.Unlock()

	clock.Advance(2 * time.Second)
	m.sweep()
	m.sweep() // second sweep must not re-fire

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fired, 1)
	assert.Equal(t, 2, fired[0].OwnerSeat)
	assert.Equal(t, playID, fired[0].PlayID)
}

func TestMonitorCancel(t *testing.T) {
	fired := 0
	m, clock := newTestMonitor(t, func(State) { fired++ })

	m.Arm(0, uuid.New(), time.Second)
	m.Cancel()
	m.Cancel() // idempotent

	clock.Advance(time.Minute)
	m.sweep()
	assert.Zero(t, fired, "cancelled countdown fired")

	_, armed := m.Remaining()
	assert.False(t, armed)
}

func TestMonitorRearmReplaces(t *testing.T) {
	var fired []State
	m, clock := newTestMonitor(t, func(s State) { fired = append(fired, s) })

	first := uuid.New()
	second := uuid.New()
	m.Arm(1, first, 5*time.Second)
	clock.Advance(3 * time.Second)
	m.Arm(3, second, 5*time.Second)

	// The first deadline passing must not fire: it was replaced.
	clock.Advance(3 * time.Second)
	m.sweep()
	require.Empty(t, fired)

	clock.Advance(3 * time.Second)
	m.sweep()
	require.Len(t, fired, 1)
	assert.Equal(t, second, fired[0].PlayID)
	assert.Equal(t, 3, fired[0].OwnerSeat)
}

func TestMonitorRemaining(t *testing.T) {
	m, clock := newTestMonitor(t, func(State) {})

	m.Arm(0, uuid.New(), 10*time.Second)
	clock.Advance(4 * time.Second)

	left, armed := m.Remaining()
	require.True(t, armed)
	assert.Equal(t, 6*time.Second, left)

	clock.Advance(10 * time.Second)
	left, armed = m.Remaining()
	require.True(t, armed)
	assert.Zero(t, left, "remaining must clamp at zero past the deadline")
}

func TestMonitorArmAtRestoresDeadline(t *testing.T) {
	var fired []State
	m, clock := newTestMonitor(t, func(s State) { fired = append(fired, s) })

	// Restore a countdown that started 8s ago with 10s to run.
	playID := uuid.New()
	m.ArmAt(2, playID, clock.Now().Add(-8*time.Second), 10*time.Second)

	left, armed := m.Remaining()
	require.True(t, armed)
	assert.Equal(t, 2*time.Second, left)

	clock.Advance(3 * time.Second)
	m.sweep()
	require.Len(t, fired, 1)
	assert.Equal(t, playID, fired[0].PlayID)
}

func TestMonitorDistinctArmings(t *testing.T) {
	var fired []State
	m, clock := newTestMonitor(t, func(s State) { fired = append(fired, s) })

	// Each armed state fires exactly once, under its own play identity.
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		m.Arm(i%4, ids[i], time.Second)
		clock.Advance(2 * time.Second)
		m.sweep()
	}

	require.Len(t, fired, len(ids))
	for i, s := range fired {
		assert.Equal(t, ids[i], s.PlayID)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	defer r.Close()

	m := r.Create("match-1", func(State) {}, WithInterval(time.Hour))
	require.NotNil(t, m)
	assert.Same(t, m, r.Get("match-1"))
	assert.Nil(t, r.Get("match-2"))

	// Creating over a live entry replaces it.
	m2 := r.Create("match-1", func(State) {}, WithInterval(time.Hour))
	assert.NotSame(t, m, m2)
	assert.Same(t, m2, r.Get("match-1"))

	r.Teardown("match-1")
	assert.Nil(t, r.Get("match-1"))
	r.Teardown("match-1") // unknown ID is a no-op
}
