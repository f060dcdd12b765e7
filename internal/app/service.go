// Package app hosts the match coordinator: the single writer that applies
// validated actions to table state, scores finished matches, runs the
// auto-pass countdowns and emits the resulting events. Both the networked
// host and the offline driver go through this service, so rules behavior
// cannot drift between them.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bigtwo/internal/domain"
	"bigtwo/internal/ports"
	"bigtwo/internal/timer"
)

// DefaultTurnTimeout is the auto-pass countdown duration.
const DefaultTurnTimeout = 15 * time.Second

var (
	ErrMatchNotFinished = errors.New("match not finished")
	ErrGameFinished     = errors.New("game already finished")
	ErrNoSnapshot       = errors.New("no snapshot for match")
)

// Match is the per-match aggregate. All mutation happens under mu; the timer
// expiry callback and player submissions race for it, and whichever wins the
// lock acts on current state while the loser is rejected or discarded as
// stale.
type Match struct {
	ID    string
	Seats [domain.NumSeats]string

	mu             sync.Mutex
	Table          *domain.Table
	Score          domain.ScoreKeeper
	LastWinnerSeat int
	monitor        *timer.Monitor
	outbox         []Event
}

// WithRead runs fn with the table under the match lock, serialized against
// submissions and timer expiries. fn must not mutate or retain the table.
func (m *Match) WithRead(fn func(t *domain.Table)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.Table)
}

// SeatOf returns the seat index of a user, or -1 when the user is not seated.
func (m *Match) SeatOf(userID string) int {
	for seat, id := range m.Seats {
		if id == userID {
			return seat
		}
	}
	return -1
}

// Service contains the game use-cases. One instance serves every match; all
// per-match state lives on the Match aggregate.
type Service struct {
	logger      zerolog.Logger
	rng         *rand.Rand
	timers      *timer.Registry
	turnTimeout time.Duration
	snapshots   ports.SnapshotStore
	scores      ports.ScoreStore
	broadcaster ports.Broadcaster
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithSnapshotStore enables match snapshot persistence.
func WithSnapshotStore(store ports.SnapshotStore) ServiceOption {
	return func(s *Service) { s.snapshots = store }
}

// WithScoreStore enables finished-game archival.
func WithScoreStore(store ports.ScoreStore) ServiceOption {
	return func(s *Service) { s.scores = store }
}

// WithBroadcaster enables external event publication.
func WithBroadcaster(b ports.Broadcaster) ServiceOption {
	return func(s *Service) { s.broadcaster = b }
}

// WithTurnTimeout overrides the auto-pass countdown duration.
func WithTurnTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.turnTimeout = d }
}

// NewService constructs a Service with the provided rng or a time-seeded
// default.
func NewService(logger zerolog.Logger, rng *rand.Rand, timers *timer.Registry, opts ...ServiceOption) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{
		logger:      logger,
		rng:         rng,
		timers:      timers,
		turnTimeout: DefaultTurnTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartGame deals the first match of a new game. The seat holding the
// opening card leads and must table it in the first move.
func (s *Service) StartGame(ctx context.Context, matchID string, seats [domain.NumSeats]string) (*Match, []Event, error) {
	hands := domain.Deal(s.rng)
	leader := -1
	for seat, hand := range hands {
		if domain.ContainsCard(hand, domain.OpeningCard) {
			leader = seat
			break
		}
	}

	m := &Match{
		ID:             matchID,
		Seats:          seats,
		Table:          domain.NewTable(1, leader, hands),
		LastWinnerSeat: -1,
	}
	m.monitor = s.timers.Create(matchID, func(st timer.State) {
		s.handleExpiry(m, st)
	})

	events := s.dealEvents(m)
	s.persist(ctx, m)
	s.publish(ctx, m, events)

	s.logger.Info().
		Str("match_id", matchID).
		Int("leader", leader).
		Msg("game started")
	return m, events, nil
}

// StartNextMatch deals the following match of the same game. The previous
// match's winner leads and faces no opening-card constraint.
func (s *Service) StartNextMatch(ctx context.Context, m *Match) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.Table.Phase {
	case domain.PhaseGameFinished:
		return nil, ErrGameFinished
	case domain.PhaseMatchFinished:
	default:
		return nil, ErrMatchNotFinished
	}

	m.Table = domain.NewTable(m.Table.MatchNumber+1, m.LastWinnerSeat, domain.Deal(s.rng))
	events := s.dealEvents(m)
	s.persist(ctx, m)
	s.publish(ctx, m, events)
	return events, nil
}

func (s *Service) dealEvents(m *Match) []Event {
	events := make([]Event, 0, domain.NumSeats+1)
	for seat, userID := range m.Seats {
		events = append(events, Event{
			Kind: EventHandDealt,
			Payload: HandDealtPayload{
				UserID: userID,
				Seat:   seat,
				Hand:   m.Table.Hands[seat],
			},
			Recipients: []string{userID},
		})
	}
	events = append(events, Event{
		Kind: EventMatchStarted,
		Payload: MatchStartedPayload{
			MatchNumber: m.Table.MatchNumber,
			LeaderSeat:  m.Table.CurrentTurn,
			HandSizes:   m.Table.HandSizes(),
		},
	})
	return events
}

// SubmitMove validates and applies a non-pass move for the seat. The
// rejection error, when non-nil, is one of the domain taxonomy sentinels.
func (s *Service) SubmitMove(ctx context.Context, m *Match, seat int, cards []domain.Card) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := domain.ValidateMove(m.Table, seat, m.Table.Hands[seat], cards, m.Table.NextHandSize(seat)); err != nil {
		return nil, err
	}
	combo := domain.Classify(cards)
	events := s.cancelCountdown(m, nil)

	out := m.Table.ApplyPlay(seat, combo)
	events = append(events, Event{
		Kind: EventCardPlayed,
		Payload: CardPlayedPayload{
			Seat:      seat,
			Cards:     combo.Cards,
			Kind:      combo.Kind.String(),
			NextTurn:  m.Table.CurrentTurn,
			HandSizes: m.Table.HandSizes(),
		},
	})

	if out.MatchFinished {
		events = s.finishMatch(ctx, m, out.WinnerSeat, events)
	} else {
		events = s.rearmCountdown(m, events)
	}

	s.persist(ctx, m)
	s.publish(ctx, m, events)
	return events, nil
}

// SubmitPass validates and applies a pass for the seat.
func (s *Service) SubmitPass(ctx context.Context, m *Match, seat int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events, err := s.applyPass(ctx, m, seat, false)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, m)
	s.publish(ctx, m, events)
	return events, nil
}

// applyPass is the shared pass path for player input and timer expiry.
// Callers hold m.mu.
func (s *Service) applyPass(ctx context.Context, m *Match, seat int, synthetic bool) ([]Event, error) {
	if err := domain.ValidateMove(m.Table, seat, m.Table.Hands[seat], nil, m.Table.NextHandSize(seat)); err != nil {
		return nil, err
	}
	events := s.cancelCountdown(m, nil)

	out := m.Table.ApplyPass(seat)
	kind := EventTurnPassed
	if synthetic {
		kind = EventAutoPassed
	}
	events = append(events, Event{
		Kind: kind,
		Payload: TurnPassedPayload{
			Seat:      seat,
			Synthetic: synthetic,
			NextTurn:  m.Table.CurrentTurn,
		},
	})
	if out.TrickCleared {
		events = append(events, Event{
			Kind:    EventTrickCleared,
			Payload: TrickClearedPayload{LeaderSeat: m.Table.CurrentTurn},
		})
	}

	return s.rearmCountdown(m, events), nil
}

// handleExpiry runs on the timer sweep goroutine. It re-checks the armed
// scope against current state under the match lock; any mismatch means a
// player action won the race and the expiry is dropped without side effects.
func (s *Service) handleExpiry(m *Match, st timer.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Table.Phase != domain.PhaseInProgress ||
		m.Table.LastPlay == nil ||
		m.Table.LastPlay.ID != st.PlayID ||
		m.Table.CurrentTurn != st.OwnerSeat {
		s.logger.Debug().
			Str("match_id", m.ID).
			Int("seat", st.OwnerSeat).
			Msg("stale auto-pass expiry discarded")
		return
	}

	ctx := context.Background()
	events, err := s.applyPass(ctx, m, st.OwnerSeat, true)
	if err != nil {
		// The synthetic pass goes through the same validator as player
		// input; with the tabled play unbeatable a pass is always legal,
		// so a rejection here indicates a state bug.
		s.logger.Error().
			Err(err).
			Str("match_id", m.ID).
			Int("seat", st.OwnerSeat).
			Msg("synthetic pass rejected")
		return
	}

	m.outbox = append(m.outbox, events...)
	s.persist(ctx, m)
	s.publish(ctx, m, events)
}

// rearmCountdown arms a fresh countdown for the current seat whenever the
// tabled combo cannot be beaten by any card still in play. Each turn gets
// its own countdown; one timer never spans a sequence of passes. Callers
// hold m.mu.
func (s *Service) rearmCountdown(m *Match, events []Event) []Event {
	if m.Table.Phase != domain.PhaseInProgress || m.Table.LastPlay == nil {
		return s.cancelCountdown(m, events)
	}
	if domain.BeatableBy(m.Table.RemainingPool(), m.Table.LastPlay.Combo) {
		return s.cancelCountdown(m, events)
	}

	seat := m.Table.CurrentTurn
	playID := m.Table.LastPlay.ID
	m.monitor.Arm(seat, playID, s.turnTimeout)
	st := m.monitor.Snapshot()
	return append(events, Event{
		Kind: EventTimerArmed,
		Payload: TimerArmedPayload{
			OwnerSeat: seat,
			PlayID:    playID.String(),
			StartedAt: st.StartedAt,
			Duration:  st.Duration,
		},
	})
}

// cancelCountdown clears any armed countdown, emitting a cancellation event
// only when one was live. Callers hold m.mu.
func (s *Service) cancelCountdown(m *Match, events []Event) []Event {
	st := m.monitor.Snapshot()
	if !st.Active {
		return events
	}
	m.monitor.Cancel()
	return append(events, Event{
		Kind: EventTimerCancelled,
		Payload: TimerCancelledPayload{
			OwnerSeat: st.OwnerSeat,
			PlayID:    st.PlayID.String(),
		},
	})
}

// finishMatch scores the frozen table and ends the game once any total
// breaches the threshold. Callers hold m.mu.
func (s *Service) finishMatch(ctx context.Context, m *Match, winner int, events []Event) []Event {
	events = s.cancelCountdown(m, events)

	score := m.Score.RecordMatch(winner, m.Table.HandSizes())
	m.LastWinnerSeat = winner
	events = append(events, Event{
		Kind: EventMatchFinished,
		Payload: MatchFinishedPayload{
			MatchNumber: m.Table.MatchNumber,
			WinnerSeat:  winner,
			Points:      score.Points,
			Totals:      m.Score.Totals,
		},
	})

	if !m.Score.GameOver() {
		return events
	}

	m.Table.Phase = domain.PhaseGameFinished
	winners := m.Score.Winners()
	events = append(events, Event{
		Kind: EventGameFinished,
		Payload: GameFinishedPayload{
			Totals:  m.Score.Totals,
			Winners: winners,
			Matches: m.Table.MatchNumber,
		},
	})

	if s.scores != nil {
		result := ports.GameResult{
			MatchID:    m.ID,
			Seats:      m.Seats[:],
			Totals:     m.Score.Totals,
			Winners:    winners,
			Matches:    m.Table.MatchNumber,
			FinishedAt: time.Now().UTC(),
		}
		if err := ports.Retry(ctx, ports.DefaultBackoff, func(ctx context.Context) error {
			return s.scores.RecordGame(ctx, result)
		}); err != nil {
			s.logger.Warn().Err(err).Str("match_id", m.ID).Msg("game result not archived")
		}
	}

	s.logger.Info().
		Str("match_id", m.ID).
		Ints("winners", winners).
		Msg("game finished")
	return events
}

// Teardown releases the match's timer monitor and drops its snapshot. Call
// when the match terminates or every player has left.
func (s *Service) Teardown(ctx context.Context, m *Match) {
	s.timers.Teardown(m.ID)
	if s.snapshots != nil {
		if err := s.snapshots.Delete(ctx, m.ID); err != nil {
			s.logger.Warn().Err(err).Str("match_id", m.ID).Msg("snapshot delete failed")
		}
	}
}

// DrainOutbox returns and clears the events queued by timer expiries since
// the last drain. The hosting loop forwards them to clients on its next tick.
func (s *Service) DrainOutbox(m *Match) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.outbox
	m.outbox = nil
	return events
}

// TimerRemaining recomputes the armed countdown's remaining time from its
// start instant. Clients rendering a countdown must use this, never a live
// counter carried across reconnects.
func (s *Service) TimerRemaining(m *Match) (time.Duration, bool) {
	return m.monitor.Remaining()
}

// Rehydrate rebuilds a match from its persisted snapshot after a host
// restart. A countdown armed at snapshot time resumes against its original
// deadline when it still matches the tabled play.
func (s *Service) Rehydrate(ctx context.Context, matchID string) (*Match, error) {
	if s.snapshots == nil {
		return nil, ErrNoSnapshot
	}
	snap, found, err := s.snapshots.Load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoSnapshot
	}

	var table domain.Table
	if err := json.Unmarshal(snap.Table, &table); err != nil {
		return nil, err
	}

	m := &Match{
		ID:             matchID,
		Table:          &table,
		Score:          domain.ScoreKeeper{Totals: snap.Totals},
		LastWinnerSeat: snap.LastWinnerSeat,
	}
	copy(m.Seats[:], snap.Seats)
	m.monitor = s.timers.Create(matchID, func(st timer.State) {
		s.handleExpiry(m, st)
	})

	if snap.Timer != nil && table.LastPlay != nil {
		playID, err := uuid.Parse(snap.Timer.PlayID)
		if err == nil && playID == table.LastPlay.ID {
			m.monitor.ArmAt(snap.Timer.OwnerSeat, playID, snap.Timer.StartedAt, snap.Timer.Duration)
		}
	}

	s.logger.Info().Str("match_id", matchID).Msg("match rehydrated")
	return m, nil
}

// persist saves the match snapshot, retrying transient failures. Persistence
// trouble never blocks gameplay. Callers hold m.mu.
func (s *Service) persist(ctx context.Context, m *Match) {
	if s.snapshots == nil {
		return
	}
	tableJSON, err := json.Marshal(m.Table)
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", m.ID).Msg("snapshot marshal failed")
		return
	}
	snap := ports.MatchSnapshot{
		MatchID:        m.ID,
		Table:          tableJSON,
		Totals:         m.Score.Totals,
		LastWinnerSeat: m.LastWinnerSeat,
		Seats:          m.Seats[:],
		UpdatedAt:      time.Now().UTC(),
	}
	if st := m.monitor.Snapshot(); st.Active {
		snap.Timer = &ports.TimerSnapshot{
			OwnerSeat: st.OwnerSeat,
			PlayID:    st.PlayID.String(),
			StartedAt: st.StartedAt,
			Duration:  st.Duration,
		}
	}
	if err := ports.Retry(ctx, ports.DefaultBackoff, func(ctx context.Context) error {
		return s.snapshots.Save(ctx, snap)
	}); err != nil {
		s.logger.Warn().Err(err).Str("match_id", m.ID).Msg("snapshot save failed")
	}
}

// publish forwards events to the external broadcaster, best effort.
func (s *Service) publish(ctx context.Context, m *Match, events []Event) {
	if s.broadcaster == nil {
		return
	}
	for _, ev := range events {
		// Targeted events carry private hand contents; only broadcast
		// events leave the match.
		if len(ev.Recipients) > 0 {
			continue
		}
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			continue
		}
		msg := ports.EventMessage{
			MatchID:    m.ID,
			Kind:       string(ev.Kind),
			Payload:    payload,
			Recipients: ev.Recipients,
		}
		if err := ports.Retry(ctx, ports.DefaultBackoff, func(ctx context.Context) error {
			return s.broadcaster.Publish(ctx, msg)
		}); err != nil {
			s.logger.Warn().
				Err(err).
				Str("match_id", m.ID).
				Str("kind", string(ev.Kind)).
				Msg("event publish failed")
		}
	}
}
