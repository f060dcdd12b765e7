package domain

// ComboKind represents the shape of a classified set of cards.
type ComboKind int32

const (
	Invalid ComboKind = iota
	Single
	Pair
	Triple
	Straight
	Flush
	FullHouse
	FourKind
	StraightFlush
)

var comboKindNames = map[ComboKind]string{
	Invalid:       "invalid",
	Single:        "single",
	Pair:          "pair",
	Triple:        "triple",
	Straight:      "straight",
	Flush:         "flush",
	FullHouse:     "full_house",
	FourKind:      "four_kind",
	StraightFlush: "straight_flush",
}

func (k ComboKind) String() string {
	if name, ok := comboKindNames[k]; ok {
		return name
	}
	return "invalid"
}

// Combo is a classified set of cards. High is the combo's defining high card:
// the strongest constituent for Single/Pair/Triple/Flush, the top card of the
// dominant rank group for FullHouse/FourKind, and the card of the sequence's
// top rank for Straight/StraightFlush.
type Combo struct {
	Kind  ComboKind `json:"kind"`
	Cards []Card    `json:"cards"`
	High  Card      `json:"high"`
}

// straightTable enumerates every legal straight as a rank sequence in
// sequence order, lowest first. The last entry of each row is the sequence's
// defining top rank. Sequences wrapping past the ace into the 2 (J-Q-K-A-2
// and the like) are deliberately absent; 2-3-4-5-6 is the single sequence
// allowed to contain a 2 and ranks below every other straight.
var straightTable = [...][5]Rank{
	{Two, Three, Four, Five, Six},
	{Three, Four, Five, Six, Seven},
	{Four, Five, Six, Seven, Eight},
	{Five, Six, Seven, Eight, Nine},
	{Six, Seven, Eight, Nine, Ten},
	{Seven, Eight, Nine, Ten, Jack},
	{Eight, Nine, Ten, Jack, Queen},
	{Nine, Ten, Jack, Queen, King},
	{Ten, Jack, Queen, King, Ace},
}

// StraightWindows returns every legal straight as a rank sequence in
// sequence order. Callers get copies; the table itself is immutable.
func StraightWindows() [][5]Rank {
	out := make([][5]Rank, len(straightTable))
	copy(out, straightTable[:])
	return out
}

// Classify maps a set of cards to its combo, or an Invalid combo when the
// cards form no legal shape. It is total: any input size other than 1, 2, 3
// or 5 classifies as Invalid, never panics.
func Classify(cards []Card) Combo {
	switch len(cards) {
	case 1:
		return Combo{Kind: Single, Cards: sortedCopy(cards), High: cards[0]}
	case 2, 3:
		if !allSameRank(cards) {
			return Combo{Kind: Invalid}
		}
		sorted := sortedCopy(cards)
		kind := Pair
		if len(cards) == 3 {
			kind = Triple
		}
		return Combo{Kind: kind, Cards: sorted, High: sorted[len(sorted)-1]}
	case 5:
		return classifyFive(cards)
	default:
		return Combo{Kind: Invalid}
	}
}

func classifyFive(cards []Card) Combo {
	sorted := sortedCopy(cards)

	flush := allSameSuit(sorted)
	seq, isStraight := straightSequence(sorted)

	switch {
	case isStraight && flush:
		return Combo{Kind: StraightFlush, Cards: sorted, High: straightHigh(sorted, seq)}
	case isStraight:
		return Combo{Kind: Straight, Cards: sorted, High: straightHigh(sorted, seq)}
	case flush:
		return Combo{Kind: Flush, Cards: sorted, High: sorted[len(sorted)-1]}
	}

	if high, ok := groupedHigh(sorted, 4, 1); ok {
		return Combo{Kind: FourKind, Cards: sorted, High: high}
	}
	if high, ok := groupedHigh(sorted, 3, 2); ok {
		return Combo{Kind: FullHouse, Cards: sorted, High: high}
	}
	return Combo{Kind: Invalid}
}

// straightSequence matches the cards' ranks against the straight table and
// returns the matching row index.
func straightSequence(sorted []Card) (int, bool) {
	var present [13]bool
	for _, c := range sorted {
		if present[c.Rank] {
			return 0, false // duplicate rank can never be a straight
		}
		present[c.Rank] = true
	}

	for i, row := range straightTable {
		match := true
		for _, r := range row {
			if !present[r] {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return 0, false
}

// straightHigh returns the card holding the sequence's defining top rank.
func straightHigh(sorted []Card, seq int) Card {
	top := straightTable[seq][4]
	for _, c := range sorted {
		if c.Rank == top {
			return c
		}
	}
	return sorted[len(sorted)-1]
}

// groupedHigh detects an a+b rank grouping (4+1 or 3+2) and returns the top
// card of the dominant group.
func groupedHigh(sorted []Card, major, minor int) (Card, bool) {
	counts := make(map[Rank]int, 2)
	for _, c := range sorted {
		counts[c.Rank]++
	}
	if len(counts) != 2 {
		return Card{}, false
	}

	var majorRank Rank
	found := false
	for rank, count := range counts {
		switch count {
		case major:
			majorRank = rank
			found = true
		case minor:
		default:
			return Card{}, false
		}
	}
	if !found {
		return Card{}, false
	}

	// sorted is ascending, so the last card of the dominant rank is its top.
	var high Card
	for _, c := range sorted {
		if c.Rank == majorRank {
			high = c
		}
	}
	return high, true
}

func sortedCopy(cards []Card) []Card {
	out := append([]Card{}, cards...)
	SortHand(out)
	return out
}

func allSameRank(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	r := cards[0].Rank
	for _, c := range cards {
		if c.Rank != r {
			return false
		}
	}
	return true
}

func allSameSuit(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	s := cards[0].Suit
	for _, c := range cards {
		if c.Suit != s {
			return false
		}
	}
	return true
}
