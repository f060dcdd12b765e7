package bot

import (
	"math/rand"

	"bigtwo/internal/bot/internal"
	"bigtwo/internal/domain"
)

// legalMoves enumerates candidate shapes and keeps only those the validator
// accepts for the position. The same validator rejects human input, so the
// tiers can never diverge from table rules.
func legalMoves(p Position) [][]domain.Card {
	var lastPlay *domain.Combo
	if p.Table.LastPlay != nil {
		lastPlay = &p.Table.LastPlay.Combo
	}

	candidates := internal.Candidates(p.Hand(), lastPlay)
	moves := candidates[:0:0]
	for _, cards := range candidates {
		if domain.ValidateMove(p.Table, p.Seat, p.Hand(), cards, p.Table.NextHandSize(p.Seat)) == nil {
			moves = append(moves, cards)
		}
	}
	return moves
}

// passAllowed checks a pass against the validator. Under the one-card-left
// rule a pass can be illegal while a move exists.
func passAllowed(p Position) bool {
	return domain.ValidateMove(p.Table, p.Seat, p.Hand(), nil, p.Table.NextHandSize(p.Seat)) == nil
}

// leading reports whether the seat opens a fresh trick.
func leading(p Position) bool {
	return p.Table.LastPlay == nil
}

// EasyBot plays a uniformly random legal candidate and folds early: even with
// a beating move in hand it passes about 40% of the time when responding.
type EasyBot struct {
	rng *rand.Rand
}

const easyPassChance = 0.4

func (b *EasyBot) CalculateMove(p Position) (Move, error) {
	moves := legalMoves(p)
	if len(moves) == 0 {
		return Move{Pass: true}, nil
	}
	if !leading(p) && passAllowed(p) && b.rng.Float64() < easyPassChance {
		return Move{Pass: true}, nil
	}
	return Move{Cards: moves[b.rng.Intn(len(moves))]}, nil
}

// MediumBot follows the recommended candidate: the cheapest combo that beats
// the table, with a smaller strategic pass rate.
type MediumBot struct {
	rng *rand.Rand
}

const mediumPassChance = 0.15

func (b *MediumBot) CalculateMove(p Position) (Move, error) {
	moves := legalMoves(p)
	if len(moves) == 0 {
		return Move{Pass: true}, nil
	}
	if !leading(p) && passAllowed(p) && b.rng.Float64() < mediumPassChance {
		return Move{Pass: true}, nil
	}
	internal.SortByStrength(moves)
	return Move{Cards: moves[0]}, nil
}

// HardBot starts from the same recommended candidate but biases play: while
// leading it avoids breaking made pairs and triples, and once an opponent
// runs low it spends its strongest legal combo instead of the cheapest.
type HardBot struct {
	rng *rand.Rand
}

// threatHandSize is the opponent hand count that flips HardBot into
// aggressive play.
const threatHandSize = 3

func (b *HardBot) CalculateMove(p Position) (Move, error) {
	moves := legalMoves(p)
	if len(moves) == 0 {
		return Move{Pass: true}, nil
	}
	internal.SortByStrength(moves)

	if b.underThreat(p) {
		return Move{Cards: moves[len(moves)-1]}, nil
	}

	if leading(p) {
		shape := internal.Organize(p.Hand())
		for _, cards := range moves {
			if !shape.BreaksSet(cards) {
				return Move{Cards: cards}, nil
			}
		}
	}
	return Move{Cards: moves[0]}, nil
}

func (b *HardBot) underThreat(p Position) bool {
	for seat, size := range p.Table.HandSizes() {
		if seat == p.Seat {
			continue
		}
		if size > 0 && size <= threatHandSize {
			return true
		}
	}
	return false
}
