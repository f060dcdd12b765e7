// Package bot provides the difficulty-tiered decision agents that fill empty
// seats. Agents build candidate moves through the same validator the server
// applies to human input; a bot move that would be rejected is a bug, never a
// fallback.
package bot

import (
	"bigtwo/internal/domain"
)

// Level selects a bot difficulty tier.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Move is the decision an agent returns.
type Move struct {
	Pass  bool
	Cards []domain.Card
}

// Position is the read-only view an agent decides from. Table access follows
// the single-writer discipline: agents read, only the coordinator mutates.
type Position struct {
	Table *domain.Table
	Seat  int
}

// Hand returns the acting seat's cards.
func (p Position) Hand() []domain.Card {
	return p.Table.Hands[p.Seat]
}

// Brain is the interface all strategy tiers implement.
type Brain interface {
	CalculateMove(p Position) (Move, error)
}
