package domain

import (
	"math/rand"
	"sort"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// HandSize is the number of cards dealt to each seat.
const HandSize = DeckSize / NumSeats

// NewDeck returns the full 52-card deck in ascending power order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for r := Three; r <= Two; r++ {
		for s := Diamond; s <= Spade; s++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(rng *rand.Rand, deck []Card) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Deal shuffles a fresh deck and splits it into four 13-card hands,
// each sorted ascending.
func Deal(rng *rand.Rand) [NumSeats][]Card {
	deck := ShuffleDeck(rng, NewDeck())
	var hands [NumSeats][]Card
	for seat := 0; seat < NumSeats; seat++ {
		hand := append([]Card{}, deck[seat*HandSize:(seat+1)*HandSize]...)
		SortHand(hand)
		hands[seat] = hand
	}
	return hands
}

// SortHand orders a hand by ascending power in place.
func SortHand(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Power() < cards[j].Power()
	})
}

// HighestCard returns the maximum card of a non-empty hand under the
// total order.
func HighestCard(cards []Card) Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if c.Beats(best) {
			best = c
		}
	}
	return best
}

// ContainsCard reports whether the hand holds the exact card.
func ContainsCard(hand []Card, target Card) bool {
	for _, c := range hand {
		if c == target {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every card in subset is present in hand,
// with multiset semantics.
func ContainsAll(hand []Card, subset []Card) bool {
	counts := make(map[Card]int, len(hand))
	for _, c := range hand {
		counts[c]++
	}
	for _, c := range subset {
		if counts[c] == 0 {
			return false
		}
		counts[c]--
	}
	return true
}

// RemoveCards removes the specified cards from a hand and returns the
// updated hand, multiset semantics.
func RemoveCards(hand []Card, toRemove []Card) []Card {
	if len(toRemove) == 0 || len(hand) == 0 {
		return hand
	}

	removeCounts := make(map[Card]int, len(toRemove))
	for _, card := range toRemove {
		removeCounts[card]++
	}

	updated := make([]Card, 0, len(hand))
	for _, card := range hand {
		if count, ok := removeCounts[card]; ok && count > 0 {
			removeCounts[card] = count - 1
			continue
		}
		updated = append(updated, card)
	}

	return updated
}
