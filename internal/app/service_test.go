package app

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bigtwo/internal/domain"
	"bigtwo/internal/ports"
	"bigtwo/internal/timer"
)

var testSeats = [domain.NumSeats]string{"user-0", "user-1", "user-2", "user-3"}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	timers := timer.NewRegistry(zerolog.Nop())
	t.Cleanup(timers.Close)
	return NewService(zerolog.Nop(), rand.New(rand.NewSource(42)), timers, opts...)
}

// newTestMatch wires a match around hand-crafted hands so tests control the
// exact position instead of fighting the shuffle.
func newTestMatch(t *testing.T, s *Service, matchNumber, leader int, hands [domain.NumSeats][]Card) *Match {
	t.Helper()
	m := &Match{
		ID:             "match-test",
		Seats:          testSeats,
		Table:          domain.NewTable(matchNumber, leader, hands),
		LastWinnerSeat: -1,
	}
	m.monitor = s.timers.Create(m.ID, func(st timer.State) {
		s.handleExpiry(m, st)
	})
	return m
}

// Card alias keeps the fixtures readable.
type Card = domain.Card

func card(r domain.Rank, s domain.Suit) Card { return Card{Rank: r, Suit: s} }

func eventKinds(events []Event) []EventKind {
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func findEvent(events []Event, kind EventKind) (Event, bool) {
	for _, ev := range events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

func TestStartGame(t *testing.T) {
	s := newTestService(t)
	m, events, err := s.StartGame(context.Background(), "match-1", testSeats)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseAwaitingOpen, m.Table.Phase)
	assert.True(t, domain.ContainsCard(m.Table.Hands[m.Table.CurrentTurn], domain.OpeningCard),
		"leader must hold the opening card")

	require.Len(t, events, domain.NumSeats+1)
	for seat := 0; seat < domain.NumSeats; seat++ {
		assert.Equal(t, EventHandDealt, events[seat].Kind)
		assert.Equal(t, []string{testSeats[seat]}, events[seat].Recipients,
			"dealt hands must be private")
	}
	assert.Equal(t, EventMatchStarted, events[domain.NumSeats].Kind)

	assert.Equal(t, 0, m.SeatOf("user-0"))
	assert.Equal(t, -1, m.SeatOf("stranger"))
}

func TestSubmitMoveRejectionsSurfaceTaxonomy(t *testing.T) {
	s := newTestService(t)
	m := newTestMatch(t, s, 2, 0, [domain.NumSeats][]Card{
		0: {card(domain.Five, domain.Club), card(domain.Nine, domain.Spade)},
		1: {card(domain.Six, domain.Club), card(domain.Ten, domain.Club)},
		2: {card(domain.Seven, domain.Club), card(domain.Jack, domain.Club)},
		3: {card(domain.Eight, domain.Club), card(domain.Queen, domain.Club)},
	})

	_, err := s.SubmitMove(context.Background(), m, 2, []Card{card(domain.Seven, domain.Club)})
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)

	_, err = s.SubmitMove(context.Background(), m, 0, []Card{card(domain.Ten, domain.Club)})
	assert.ErrorIs(t, err, domain.ErrInvalidCombo, "cards not in hand")

	// Rejections leave state untouched.
	assert.Equal(t, 0, m.Table.CurrentTurn)
	assert.Empty(t, m.Table.Played)
}

func TestMatchFlowToFinish(t *testing.T) {
	s := newTestService(t)
	m := newTestMatch(t, s, 2, 0, [domain.NumSeats][]Card{
		0: {card(domain.Five, domain.Club)},
		1: {card(domain.Six, domain.Club), card(domain.Ten, domain.Club), card(domain.Jack, domain.Club), card(domain.Queen, domain.Club), card(domain.King, domain.Club)},
		2: {card(domain.Seven, domain.Club), card(domain.Seven, domain.Heart)},
		3: {card(domain.Eight, domain.Club), card(domain.Nine, domain.Club), card(domain.Ace, domain.Club)},
	})
	ctx := context.Background()

	events, err := s.SubmitMove(ctx, m, 0, []Card{card(domain.Five, domain.Club)})
	require.NoError(t, err)

	finished, ok := findEvent(events, EventMatchFinished)
	require.True(t, ok, "emptying a hand must finish the match, got %v", eventKinds(events))
	payload := finished.Payload.(MatchFinishedPayload)
	assert.Equal(t, 0, payload.WinnerSeat)
	// 5 cards at 2 points each, 2 cards at 1, 3 cards at 1.
	assert.Equal(t, [4]int{0, 10, 2, 3}, payload.Points)
	assert.Equal(t, domain.PhaseMatchFinished, m.Table.Phase)
	assert.Equal(t, 0, m.LastWinnerSeat)

	// Further moves are refused on the frozen table.
	_, err = s.SubmitMove(ctx, m, 3, []Card{card(domain.Eight, domain.Club)})
	assert.ErrorIs(t, err, domain.ErrMatchFinished)

	// The winner leads the next match.
	next, err := s.StartNextMatch(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Table.CurrentTurn)
	assert.Equal(t, 3, m.Table.MatchNumber)
	assert.Equal(t, domain.PhaseInProgress, m.Table.Phase, "later matches skip the opening constraint")
	_, ok = findEvent(next, EventMatchStarted)
	assert.True(t, ok)
}

func TestGameFinishesAtThreshold(t *testing.T) {
	s := newTestService(t)
	m := newTestMatch(t, s, 3, 1, [domain.NumSeats][]Card{
		0: {card(domain.Five, domain.Club), card(domain.Five, domain.Heart)},
		1: {card(domain.Six, domain.Club)},
		2: {card(domain.Seven, domain.Club)},
		3: {card(domain.Eight, domain.Club)},
	})
	m.Score.Totals = [4]int{34, 5, 18, 100}

	events, err := s.SubmitMove(context.Background(), m, 1, []Card{card(domain.Six, domain.Club)})
	require.NoError(t, err)

	over, ok := findEvent(events, EventGameFinished)
	require.True(t, ok, "crossing the threshold must finish the game")
	payload := over.Payload.(GameFinishedPayload)
	assert.Equal(t, [4]int{36, 5, 19, 101}, payload.Totals)
	assert.Equal(t, []int{1}, payload.Winners)
	assert.Equal(t, domain.PhaseGameFinished, m.Table.Phase)

	_, err = s.StartNextMatch(context.Background(), m)
	assert.ErrorIs(t, err, ErrGameFinished)
}

func TestCountdownArmsOnUnbeatablePlay(t *testing.T) {
	s := newTestService(t)
	m := newTestMatch(t, s, 2, 0, [domain.NumSeats][]Card{
		0: {card(domain.Two, domain.Spade), card(domain.Five, domain.Club)},
		1: {card(domain.Six, domain.Club)},
		2: {card(domain.Seven, domain.Club)},
		3: {card(domain.Eight, domain.Club)},
	})
	ctx := context.Background()

	// The 2s is the top single; nothing left in play beats it.
	events, err := s.SubmitMove(ctx, m, 0, []Card{card(domain.Two, domain.Spade)})
	require.NoError(t, err)

	armed, ok := findEvent(events, EventTimerArmed)
	require.True(t, ok, "unbeatable top single must arm the countdown")
	first := armed.Payload.(TimerArmedPayload)
	assert.Equal(t, 3, first.OwnerSeat, "countdown belongs to the seat on turn")
	assert.Equal(t, m.Table.LastPlay.ID.String(), first.PlayID)

	remaining, active := s.TimerRemaining(m)
	require.True(t, active)
	assert.LessOrEqual(t, remaining, DefaultTurnTimeout)

	// A pass cancels the passing seat's countdown and arms a fresh one for
	// the next seat, still scoped to the same tabled play.
	events, err = s.SubmitPass(ctx, m, 3)
	require.NoError(t, err)
	_, ok = findEvent(events, EventTimerCancelled)
	assert.True(t, ok)
	armed, ok = findEvent(events, EventTimerArmed)
	require.True(t, ok)
	second := armed.Payload.(TimerArmedPayload)
	assert.Equal(t, 2, second.OwnerSeat)
	assert.Equal(t, first.PlayID, second.PlayID)

	// Third consecutive pass clears the trick; no countdown survives a
	// cleared table.
	_, err = s.SubmitPass(ctx, m, 2)
	require.NoError(t, err)
	events, err = s.SubmitPass(ctx, m, 1)
	require.NoError(t, err)
	_, ok = findEvent(events, EventTrickCleared)
	require.True(t, ok)
	_, ok = findEvent(events, EventTimerArmed)
	assert.False(t, ok)
	_, active = s.TimerRemaining(m)
	assert.False(t, active)
}

func TestCountdownNotArmedWhileBeatable(t *testing.T) {
	s := newTestService(t)
	m := newTestMatch(t, s, 2, 0, [domain.NumSeats][]Card{
		0: {card(domain.Five, domain.Club), card(domain.Nine, domain.Club)},
		1: {card(domain.Six, domain.Club)},
		2: {card(domain.Seven, domain.Club)},
		3: {card(domain.Eight, domain.Club), card(domain.Ten, domain.Club)},
	})

	events, err := s.SubmitMove(context.Background(), m, 0, []Card{card(domain.Five, domain.Club)})
	require.NoError(t, err)
	_, ok := findEvent(events, EventTimerArmed)
	assert.False(t, ok, "a beatable single must not arm the countdown")
}

func TestExpirySynthesizesPass(t *testing.T) {
	s := newTestService(t)
	m := newTestMatch(t, s, 2, 0, [domain.NumSeats][]Card{
		0: {card(domain.Two, domain.Spade), card(domain.Five, domain.Club)},
		1: {card(domain.Six, domain.Club)},
		2: {card(domain.Seven, domain.Club)},
		3: {card(domain.Eight, domain.Club)},
	})
	ctx := context.Background()

	_, err := s.SubmitMove(ctx, m, 0, []Card{card(domain.Two, domain.Spade)})
	require.NoError(t, err)

	st := m.monitor.Snapshot()
	require.True(t, st.Active)
	s.handleExpiry(m, st)

	assert.Equal(t, 2, m.Table.CurrentTurn, "synthetic pass must advance the turn")
	assert.Equal(t, 1, m.Table.PassStreak)

	// Expiry-driven events queue on the outbox for the hosting loop.
	queued := s.DrainOutbox(m)
	auto, ok := findEvent(queued, EventAutoPassed)
	require.True(t, ok, "got %v", eventKinds(queued))
	assert.True(t, auto.Payload.(TurnPassedPayload).Synthetic)
	_, ok = findEvent(queued, EventTimerArmed)
	assert.True(t, ok, "next seat gets its own fresh countdown")
	assert.Empty(t, s.DrainOutbox(m), "drain clears the outbox")
}

func TestStaleExpiryDiscarded(t *testing.T) {
	s := newTestService(t)
	m := newTestMatch(t, s, 2, 0, [domain.NumSeats][]Card{
		0: {card(domain.Two, domain.Spade), card(domain.Five, domain.Club)},
		1: {card(domain.Six, domain.Club)},
		2: {card(domain.Seven, domain.Club)},
		3: {card(domain.Eight, domain.Club)},
	})
	ctx := context.Background()

	_, err := s.SubmitMove(ctx, m, 0, []Card{card(domain.Two, domain.Spade)})
	require.NoError(t, err)
	stale := m.monitor.Snapshot()

	// A real pass lands first; the captured expiry now references a seat
	// no longer on turn.
	_, err = s.SubmitPass(ctx, m, 3)
	require.NoError(t, err)
	turn := m.Table.CurrentTurn
	streak := m.Table.PassStreak

	s.handleExpiry(m, stale)

	assert.Equal(t, turn, m.Table.CurrentTurn, "stale expiry must not advance the turn")
	assert.Equal(t, streak, m.Table.PassStreak)
	assert.Empty(t, s.DrainOutbox(m), "stale expiry must emit nothing")
}

// A full span of unbeatable-top turns arms one distinct countdown per seat.
func TestDistinctCountdownPerSeat(t *testing.T) {
	s := newTestService(t)
	m := newTestMatch(t, s, 2, 0, [domain.NumSeats][]Card{
		0: {card(domain.Two, domain.Spade), card(domain.Five, domain.Club)},
		1: {card(domain.Six, domain.Club)},
		2: {card(domain.Seven, domain.Club)},
		3: {card(domain.Eight, domain.Club)},
	})
	ctx := context.Background()

	_, err := s.SubmitMove(ctx, m, 0, []Card{card(domain.Two, domain.Spade)})
	require.NoError(t, err)

	var ownerSeats []int
	passes := 0
	for m.Table.LastPlay != nil {
		st := m.monitor.Snapshot()
		require.True(t, st.Active)
		ownerSeats = append(ownerSeats, st.OwnerSeat)
		s.handleExpiry(m, st)
		passes++
	}

	assert.Equal(t, []int{3, 2, 1}, ownerSeats)
	assert.Equal(t, 3, passes)
	assert.Equal(t, 0, m.Table.CurrentTurn, "trick returns to the play owner")
}

// In-memory fake for the snapshot collaborator.
type memSnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]ports.MatchSnapshot
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{snaps: make(map[string]ports.MatchSnapshot)}
}

func (s *memSnapshotStore) Save(_ context.Context, snap ports.MatchSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.MatchID] = snap
	return nil
}

func (s *memSnapshotStore) Load(_ context.Context, matchID string) (ports.MatchSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[matchID]
	return snap, ok, nil
}

func (s *memSnapshotStore) Delete(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, matchID)
	return nil
}

func TestRehydrateRestoresMatchAndCountdown(t *testing.T) {
	store := newMemSnapshotStore()
	s := newTestService(t, WithSnapshotStore(store))
	m := newTestMatch(t, s, 2, 0, [domain.NumSeats][]Card{
		0: {card(domain.Two, domain.Spade), card(domain.Five, domain.Club)},
		1: {card(domain.Six, domain.Club)},
		2: {card(domain.Seven, domain.Club)},
		3: {card(domain.Eight, domain.Club)},
	})
	ctx := context.Background()

	_, err := s.SubmitMove(ctx, m, 0, []Card{card(domain.Two, domain.Spade)})
	require.NoError(t, err)
	origPlayID := m.Table.LastPlay.ID

	// A second service stands in for the restarted host.
	timers2 := timer.NewRegistry(zerolog.Nop())
	t.Cleanup(timers2.Close)
	s2 := NewService(zerolog.Nop(), rand.New(rand.NewSource(1)), timers2, WithSnapshotStore(store))

	restored, err := s2.Rehydrate(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, testSeats, restored.Seats)
	assert.Equal(t, m.Table.CurrentTurn, restored.Table.CurrentTurn)
	assert.Equal(t, origPlayID, restored.Table.LastPlay.ID)

	st := restored.monitor.Snapshot()
	require.True(t, st.Active, "armed countdown must survive rehydration")
	assert.Equal(t, origPlayID, st.PlayID)

	remaining, active := s2.TimerRemaining(restored)
	require.True(t, active)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, DefaultTurnTimeout)
}

func TestRehydrateUnknownMatch(t *testing.T) {
	s := newTestService(t, WithSnapshotStore(newMemSnapshotStore()))
	_, err := s.Rehydrate(context.Background(), "never-started")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
