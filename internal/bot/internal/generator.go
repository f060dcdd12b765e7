// Package internal holds the candidate-move machinery shared by the bot
// strategy tiers.
package internal

import (
	"sort"

	"bigtwo/internal/domain"
)

// Candidates returns every combo shape the hand can form that answers the
// tabled combo. A nil lastPlay means the seat leads and any shape is open.
// Callers still run each candidate through the validator; this function only
// enumerates shapes, it does not own legality.
func Candidates(hand []domain.Card, lastPlay *domain.Combo) [][]domain.Card {
	sorted := append([]domain.Card(nil), hand...)
	domain.SortHand(sorted)

	if lastPlay == nil {
		var moves [][]domain.Card
		moves = append(moves, singles(sorted)...)
		moves = append(moves, sameRankSets(sorted, 2)...)
		moves = append(moves, sameRankSets(sorted, 3)...)
		moves = append(moves, fiveCardCombos(sorted)...)
		return moves
	}

	var shaped [][]domain.Card
	switch len(lastPlay.Cards) {
	case 1:
		shaped = singles(sorted)
	case 2:
		shaped = sameRankSets(sorted, 2)
	case 3:
		shaped = sameRankSets(sorted, 3)
	case 5:
		shaped = fiveCardCombos(sorted)
	}

	moves := shaped[:0:0]
	for _, cards := range shaped {
		if domain.Beats(*lastPlay, domain.Classify(cards)) {
			moves = append(moves, cards)
		}
	}
	return moves
}

func singles(hand []domain.Card) [][]domain.Card {
	moves := make([][]domain.Card, 0, len(hand))
	for _, c := range hand {
		moves = append(moves, []domain.Card{c})
	}
	return moves
}

// sameRankSets returns every size-n subset of a same-rank group.
func sameRankSets(hand []domain.Card, n int) [][]domain.Card {
	var moves [][]domain.Card
	for _, group := range rankGroups(hand) {
		moves = append(moves, subsetsOfSize(group, n)...)
	}
	return moves
}

func rankGroups(hand []domain.Card) [][]domain.Card {
	var groups [][]domain.Card
	for i := 0; i < len(hand); {
		j := i
		for j < len(hand) && hand[j].Rank == hand[i].Rank {
			j++
		}
		groups = append(groups, hand[i:j])
		i = j
	}
	return groups
}

func subsetsOfSize(cards []domain.Card, n int) [][]domain.Card {
	if n > len(cards) {
		return nil
	}
	var out [][]domain.Card
	var rec func(start int, picked []domain.Card)
	rec = func(start int, picked []domain.Card) {
		if len(picked) == n {
			out = append(out, append([]domain.Card(nil), picked...))
			return
		}
		for i := start; i <= len(cards)-(n-len(picked)); i++ {
			rec(i+1, append(picked, cards[i]))
		}
	}
	rec(0, nil)
	return out
}

// fiveCardCombos enumerates straights, flushes, full houses, four-of-a-kinds
// with kicker, and straight flushes. Duplicate shapes across categories (a
// straight flush surfaces from both the straight and flush scans) are folded
// by key.
func fiveCardCombos(hand []domain.Card) [][]domain.Card {
	seen := make(map[string]bool)
	var moves [][]domain.Card

	add := func(cards []domain.Card) {
		if domain.Classify(cards).Kind == domain.Invalid {
			return
		}
		key := comboKey(cards)
		if seen[key] {
			return
		}
		seen[key] = true
		moves = append(moves, cards)
	}

	for _, cards := range straightCandidates(hand) {
		add(cards)
	}
	for _, cards := range flushCandidates(hand) {
		add(cards)
	}
	for _, cards := range fullHouseCandidates(hand) {
		add(cards)
	}
	for _, cards := range fourKindCandidates(hand) {
		add(cards)
	}
	return moves
}

func comboKey(cards []domain.Card) string {
	sorted := append([]domain.Card(nil), cards...)
	domain.SortHand(sorted)
	key := make([]byte, 0, len(sorted)*2)
	for _, c := range sorted {
		key = append(key, byte(c.Rank), byte(c.Suit))
	}
	return string(key)
}

// straightCandidates picks, per straight window the hand can fill, every
// suit choice for each rank slot. The cartesian product stays small because
// a rank holds at most four cards.
func straightCandidates(hand []domain.Card) [][]domain.Card {
	byRank := make(map[domain.Rank][]domain.Card)
	for _, c := range hand {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}

	var out [][]domain.Card
	for _, window := range domain.StraightWindows() {
		slots := make([][]domain.Card, 0, 5)
		ok := true
		for _, r := range window {
			cards := byRank[r]
			if len(cards) == 0 {
				ok = false
				break
			}
			slots = append(slots, cards)
		}
		if !ok {
			continue
		}
		var rec func(i int, picked []domain.Card)
		rec = func(i int, picked []domain.Card) {
			if i == len(slots) {
				out = append(out, append([]domain.Card(nil), picked...))
				return
			}
			for _, c := range slots[i] {
				rec(i+1, append(picked, c))
			}
		}
		rec(0, nil)
	}
	return out
}

func flushCandidates(hand []domain.Card) [][]domain.Card {
	bySuit := make(map[domain.Suit][]domain.Card)
	for _, c := range hand {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
	}
	var out [][]domain.Card
	for _, cards := range bySuit {
		out = append(out, subsetsOfSize(cards, 5)...)
	}
	return out
}

func fullHouseCandidates(hand []domain.Card) [][]domain.Card {
	groups := rankGroups(hand)
	var out [][]domain.Card
	for _, tripleGroup := range groups {
		if len(tripleGroup) < 3 {
			continue
		}
		for _, triple := range subsetsOfSize(tripleGroup, 3) {
			for _, pairGroup := range groups {
				if pairGroup[0].Rank == tripleGroup[0].Rank || len(pairGroup) < 2 {
					continue
				}
				for _, pair := range subsetsOfSize(pairGroup, 2) {
					out = append(out, append(append([]domain.Card(nil), triple...), pair...))
				}
			}
		}
	}
	return out
}

func fourKindCandidates(hand []domain.Card) [][]domain.Card {
	groups := rankGroups(hand)
	var out [][]domain.Card
	for _, quad := range groups {
		if len(quad) != 4 {
			continue
		}
		for _, kicker := range hand {
			if kicker.Rank == quad[0].Rank {
				continue
			}
			out = append(out, append(append([]domain.Card(nil), quad...), kicker))
		}
	}
	return out
}

// SortByStrength orders candidates ascending so index 0 is the cheapest
// play. Five-card combos order by tier before high card, through the same
// comparator the table applies; everything else orders by its defining high
// card.
func SortByStrength(moves [][]domain.Card) {
	sort.Slice(moves, func(i, j int) bool {
		ci := domain.Classify(moves[i])
		cj := domain.Classify(moves[j])
		if len(ci.Cards) == 5 && len(cj.Cards) == 5 {
			return domain.Beats(ci, cj)
		}
		if ci.High.Power() != cj.High.Power() {
			return ci.High.Power() < cj.High.Power()
		}
		return len(moves[i]) < len(moves[j])
	})
}
