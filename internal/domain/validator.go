package domain

import "errors"

// Rejection taxonomy. Every rejected submission maps to exactly one of these
// sentinel errors; callers rely on the fixed set to render precise feedback.
var (
	ErrNotYourTurn             = errors.New("not-your-turn")
	ErrInvalidCombo            = errors.New("invalid-combo")
	ErrWrongArity              = errors.New("wrong-arity")
	ErrDoesNotBeatTable        = errors.New("does-not-beat-table")
	ErrMustOpenWithDesignated  = errors.New("must-open-with-designated-card")
	ErrMustPlayHighestCard     = errors.New("must-play-highest-card")
	ErrCannotPassWhileBeatable = errors.New("cannot-pass-while-beatable")
	ErrMatchFinished           = errors.New("match-already-finished")
)

var rejectionReasons = []error{
	ErrNotYourTurn,
	ErrInvalidCombo,
	ErrWrongArity,
	ErrDoesNotBeatTable,
	ErrMustOpenWithDesignated,
	ErrMustPlayHighestCard,
	ErrCannotPassWhileBeatable,
	ErrMatchFinished,
}

// ReasonOf maps a validation error to its stable taxonomy string, or ""
// when the error is not a rejection.
func ReasonOf(err error) string {
	for _, reason := range rejectionReasons {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	return ""
}

// ValidateMove is the pure decision function for a proposed action. An empty
// proposal is a pass. It inspects only the acting seat's hand, the table
// state and the hand size of the next seat in turn order; it never mutates.
//
// Rules apply in a fixed order: turn/phase, the opening-card rule, combo
// shape and strength against the table, then the one-card-left constraints.
func ValidateMove(t *Table, seat int, hand []Card, proposed []Card, nextHandSize int) error {
	if t.Phase == PhaseMatchFinished || t.Phase == PhaseGameFinished {
		return ErrMatchFinished
	}
	if seat != t.CurrentTurn {
		return ErrNotYourTurn
	}

	// The very first move of the very first match must contain the opening
	// card. Later matches are exempt.
	if t.Phase == PhaseAwaitingOpen && t.MatchNumber == 1 {
		if len(proposed) == 0 || !ContainsCard(proposed, OpeningCard) {
			return ErrMustOpenWithDesignated
		}
	}

	if len(proposed) == 0 {
		return validatePass(t, hand, nextHandSize)
	}

	if !ContainsAll(hand, proposed) {
		return ErrInvalidCombo
	}
	combo := Classify(proposed)
	if combo.Kind == Invalid {
		return ErrInvalidCombo
	}

	if t.LastPlay != nil {
		if len(proposed) != len(t.LastPlay.Combo.Cards) {
			return ErrWrongArity
		}
		if !Beats(t.LastPlay.Combo, combo) {
			return ErrDoesNotBeatTable
		}
	}

	// One-card-left forced play: a single must be the mover's highest card
	// when the next seat is down to one. Pairs, triples and five-card combos
	// are exempt.
	if nextHandSize == 1 && combo.Kind == Single && proposed[0] != HighestCard(hand) {
		return ErrMustPlayHighestCard
	}

	return nil
}

// validatePass rejects a pass only under the one-card-left rule: with the
// next seat holding a single card, the mover may not pass while any legal
// combo in hand would beat the table. An open trick counts as beatable by
// any non-empty hand.
func validatePass(t *Table, hand []Card, nextHandSize int) error {
	if nextHandSize != 1 {
		return nil
	}
	if t.LastPlay == nil {
		if len(hand) > 0 {
			return ErrCannotPassWhileBeatable
		}
		return nil
	}
	if BeatableBy(hand, t.LastPlay.Combo) {
		return ErrCannotPassWhileBeatable
	}
	return nil
}
