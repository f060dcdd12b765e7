package domain

// Suit identifies one of the four suits. The numeric order is the tiebreak
// order used across the whole engine: diamond < club < heart < spade.
type Suit int32

const (
	Diamond Suit = iota
	Club
	Heart
	Spade
)

// Rank identifies a card rank. Three is the lowest rank and Two the highest,
// matching the game's card order rather than the printed face value.
type Rank int32

const (
	Three Rank = iota
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	Two
)

// Card is a single playing card. Immutable value type.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// OpeningCard is the lowest card in the deck. The first move of the first
// match of a game must contain it.
var OpeningCard = Card{Rank: Three, Suit: Diamond}

// Power returns the card's position in the total order: rank primary,
// suit as tiebreak.
func (c Card) Power() int32 {
	return int32(c.Rank)*4 + int32(c.Suit)
}

// Beats reports whether c outranks o under the total card order.
func (c Card) Beats(o Card) bool {
	return c.Power() > o.Power()
}

var rankSymbols = [...]string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}
var suitSymbols = [...]string{"d", "c", "h", "s"}

func (c Card) String() string {
	if c.Rank < Three || c.Rank > Two || c.Suit < Diamond || c.Suit > Spade {
		return "??"
	}
	return rankSymbols[c.Rank] + suitSymbols[c.Suit]
}

func (s Suit) String() string {
	if s < Diamond || s > Spade {
		return "?"
	}
	return suitSymbols[s]
}

func (r Rank) String() string {
	if r < Three || r > Two {
		return "?"
	}
	return rankSymbols[r]
}
