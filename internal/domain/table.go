package domain

import "github.com/google/uuid"

// Phase represents the lifecycle stage of a match on the table.
type Phase string

const (
	// PhaseAwaitingOpen waits for the designated opening card, first match only.
	PhaseAwaitingOpen Phase = "awaiting_open"
	// PhaseInProgress is the active play state.
	PhaseInProgress Phase = "in_progress"
	// PhaseMatchFinished freezes the table the instant a hand empties.
	PhaseMatchFinished Phase = "match_finished"
	// PhaseGameFinished is terminal: the cumulative score threshold was breached.
	PhaseGameFinished Phase = "game_finished"
)

// NumSeats is the fixed seat count. The engine always plays four-handed.
const NumSeats = 4

// NextSeat encodes the fixed anticlockwise seating permutation 0→3→2→1→0.
// The visual layout does not correspond to index arithmetic, so this must
// stay an explicit lookup rather than +1 mod 4.
var NextSeat = [NumSeats]int{0: 3, 1: 0, 2: 1, 3: 2}

// Play is a tabled combo with an identity. The ID scopes auto-pass timers:
// a timer armed against one Play must be discarded once another replaces it.
type Play struct {
	ID    uuid.UUID `json:"id"`
	Seat  int       `json:"seat"`
	Combo Combo     `json:"combo"`
}

// Table owns the authoritative per-match state. Single-writer: only the
// validator/state-machine path mutates it; observers read hand counts, never
// another seat's card contents.
type Table struct {
	Phase        Phase            `json:"phase"`
	Hands        [NumSeats][]Card `json:"hands"`
	LastPlay     *Play            `json:"last_play"`
	Played       []Card           `json:"played"`
	CurrentTurn  int              `json:"current_turn"`
	PassStreak   int              `json:"pass_streak"`
	MatchNumber  int              `json:"match_number"`
	LastPlaySeat int              `json:"last_play_seat"`
}

// NewTable deals a fresh table. The first match of a game awaits the opening
// card; later matches start in progress with the given leader on turn.
func NewTable(matchNumber, leader int, hands [NumSeats][]Card) *Table {
	phase := PhaseInProgress
	if matchNumber == 1 {
		phase = PhaseAwaitingOpen
	}
	return &Table{
		Phase:        phase,
		Hands:        hands,
		CurrentTurn:  leader,
		MatchNumber:  matchNumber,
		LastPlaySeat: -1,
	}
}

// MoveOutcome reports the state-machine effects of an accepted action.
type MoveOutcome struct {
	TrickCleared  bool
	MatchFinished bool
	WinnerSeat    int
}

// ApplyPlay records an already-validated non-pass move: tables the combo
// under a fresh play identity, clears the pass streak, moves the cards out
// of the seat's hand and advances the turn. The match freezes the instant
// the hand empties.
func (t *Table) ApplyPlay(seat int, combo Combo) MoveOutcome {
	t.LastPlay = &Play{ID: uuid.New(), Seat: seat, Combo: combo}
	t.PassStreak = 0
	t.Played = append(t.Played, combo.Cards...)
	t.Hands[seat] = RemoveCards(t.Hands[seat], combo.Cards)
	t.LastPlaySeat = seat

	if t.Phase == PhaseAwaitingOpen {
		t.Phase = PhaseInProgress
	}

	if len(t.Hands[seat]) == 0 {
		t.Phase = PhaseMatchFinished
		return MoveOutcome{MatchFinished: true, WinnerSeat: seat}
	}

	t.CurrentTurn = NextSeat[seat]
	return MoveOutcome{WinnerSeat: -1}
}

// ApplyPass records an already-validated pass. When every other seat has
// passed in sequence the trick clears and the turn returns to whoever made
// the last non-pass play.
func (t *Table) ApplyPass(seat int) MoveOutcome {
	t.PassStreak++
	if t.PassStreak >= NumSeats-1 {
		t.PassStreak = 0
		// Passes on an already-open trick still reset the streak, but there
		// is no trick to clear and no seat to hand the lead back to.
		if t.LastPlaySeat >= 0 {
			t.LastPlay = nil
			t.CurrentTurn = t.LastPlaySeat
			return MoveOutcome{TrickCleared: true, WinnerSeat: -1}
		}
	}

	t.CurrentTurn = NextSeat[seat]
	return MoveOutcome{WinnerSeat: -1}
}

// HandSizes returns the per-seat card counts, the only hand information
// observers other than the owner may see.
func (t *Table) HandSizes() [NumSeats]int {
	var sizes [NumSeats]int
	for seat, hand := range t.Hands {
		sizes[seat] = len(hand)
	}
	return sizes
}

// NextHandSize returns the hand size of the seat after the given one in
// turn order.
func (t *Table) NextHandSize(seat int) int {
	return len(t.Hands[NextSeat[seat]])
}

// RemainingPool returns every card not yet played this match: the pool of
// cards that could still appear in any hand.
func (t *Table) RemainingPool() []Card {
	return RemoveCards(NewDeck(), t.Played)
}
