package internal

import (
	"bigtwo/internal/domain"
)

// HandShape is a partition of a hand into its natural rank groups, used by
// strategies that prefer keeping made sets intact.
type HandShape struct {
	Quads   [][]domain.Card
	Triples [][]domain.Card
	Pairs   [][]domain.Card
	Singles []domain.Card
}

// Organize partitions a hand by rank multiplicity.
func Organize(hand []domain.Card) HandShape {
	sorted := append([]domain.Card(nil), hand...)
	domain.SortHand(sorted)

	var shape HandShape
	for _, group := range rankGroups(sorted) {
		switch len(group) {
		case 4:
			shape.Quads = append(shape.Quads, group)
		case 3:
			shape.Triples = append(shape.Triples, group)
		case 2:
			shape.Pairs = append(shape.Pairs, group)
		default:
			shape.Singles = append(shape.Singles, group...)
		}
	}
	return shape
}

// BreaksSet reports whether playing the candidate would split a pair, triple
// or quad without consuming it whole.
func (s HandShape) BreaksSet(candidate []domain.Card) bool {
	groups := append(append(append([][]domain.Card{}, s.Pairs...), s.Triples...), s.Quads...)
	for _, group := range groups {
		used := 0
		for _, c := range candidate {
			if domain.ContainsCard(group, c) {
				used++
			}
		}
		if used > 0 && used < len(group) {
			return true
		}
	}
	return false
}
