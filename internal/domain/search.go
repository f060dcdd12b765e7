package domain

// poolIndex is a counting view over a set of cards, used to answer
// "can any combo formable from this pool beat the given one" without
// enumerating combinations.
type poolIndex struct {
	cards     []Card
	rankCount [13]int
	suitCount [4]int
	// has[rank][suit] marks exact card presence.
	has [13][4]bool
}

func indexPool(pool []Card) *poolIndex {
	idx := &poolIndex{cards: pool}
	for _, c := range pool {
		idx.rankCount[c.Rank]++
		idx.suitCount[c.Suit]++
		idx.has[c.Rank][c.Suit] = true
	}
	return idx
}

// maxCardOfRank returns the highest-suited pool card of the rank.
func (idx *poolIndex) maxCardOfRank(r Rank) (Card, bool) {
	for s := Spade; s >= Diamond; s-- {
		if idx.has[r][s] {
			return Card{Rank: r, Suit: s}, true
		}
	}
	return Card{}, false
}

// maxCardOfSuit returns the highest-ranked pool card of the suit.
func (idx *poolIndex) maxCardOfSuit(s Suit) (Card, bool) {
	for r := Two; r >= Three; r-- {
		if idx.has[r][s] {
			return Card{Rank: r, Suit: s}, true
		}
	}
	return Card{}, false
}

// BeatableBy reports whether any legal combo formable from pool beats prev.
// It serves two callers with the same semantics: the one-card-left pass rule
// (pool = the mover's hand) and unbeatable-top detection for the auto-pass
// timer (pool = the deck minus every card played this match). prev must be a
// valid combo.
func BeatableBy(pool []Card, prev Combo) bool {
	if prev.Kind == Invalid || len(pool) == 0 {
		return false
	}

	idx := indexPool(pool)

	switch len(prev.Cards) {
	case 1:
		for _, c := range pool {
			if c.Beats(prev.High) {
				return true
			}
		}
		return false
	case 2:
		return idx.sameRankBeats(prev.High, 2)
	case 3:
		return idx.sameRankBeats(prev.High, 3)
	case 5:
		return idx.fiveBeats(prev)
	default:
		return false
	}
}

// sameRankBeats checks for a pair or triple in the pool beating the given
// high card. A higher rank with enough copies always beats; the same rank
// beats only when its best remaining card outranks the high by suit.
func (idx *poolIndex) sameRankBeats(high Card, size int) bool {
	for r := high.Rank; r <= Two; r++ {
		if idx.rankCount[r] < size {
			continue
		}
		if r > high.Rank {
			return true
		}
		if best, ok := idx.maxCardOfRank(r); ok && best.Beats(high) {
			return true
		}
	}
	return false
}

func (idx *poolIndex) fiveBeats(prev Combo) bool {
	prevTier := fiveTier(prev.Kind)
	if prevTier < 0 {
		return false
	}

	type tierProbe struct {
		tier int
		best func() (Card, bool)
	}
	probes := []tierProbe{
		{0, idx.bestStraightHigh},
		{1, idx.bestFlushHigh},
		{2, idx.bestFullHouseHigh},
		{3, idx.bestFourKindHigh},
		{4, idx.bestStraightFlushHigh},
	}

	for _, p := range probes {
		high, ok := p.best()
		if !ok {
			continue
		}
		if p.tier > prevTier {
			return true
		}
		if p.tier == prevTier && high.Beats(prev.High) {
			return true
		}
	}
	return false
}

// bestStraightHigh returns the strongest defining high card of any straight
// formable from the pool.
func (idx *poolIndex) bestStraightHigh() (Card, bool) {
	var best Card
	found := false
	for _, row := range straightTable {
		complete := true
		for _, r := range row {
			if idx.rankCount[r] == 0 {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		high, _ := idx.maxCardOfRank(row[4])
		if !found || high.Beats(best) {
			best = high
			found = true
		}
	}
	return best, found
}

func (idx *poolIndex) bestFlushHigh() (Card, bool) {
	var best Card
	found := false
	for s := Diamond; s <= Spade; s++ {
		if idx.suitCount[s] < 5 {
			continue
		}
		high, _ := idx.maxCardOfSuit(s)
		if !found || high.Beats(best) {
			best = high
			found = true
		}
	}
	return best, found
}

func (idx *poolIndex) bestFullHouseHigh() (Card, bool) {
	var best Card
	found := false
	for r := Three; r <= Two; r++ {
		if idx.rankCount[r] < 3 {
			continue
		}
		hasPair := false
		for r2 := Three; r2 <= Two; r2++ {
			if r2 != r && idx.rankCount[r2] >= 2 {
				hasPair = true
				break
			}
		}
		if !hasPair {
			continue
		}
		high, _ := idx.maxCardOfRank(r)
		if !found || high.Beats(best) {
			best = high
			found = true
		}
	}
	return best, found
}

func (idx *poolIndex) bestFourKindHigh() (Card, bool) {
	var best Card
	found := false
	for r := Three; r <= Two; r++ {
		if idx.rankCount[r] != 4 {
			continue
		}
		// A kicker must exist outside the quad.
		if len(idx.cards) < 5 {
			continue
		}
		hasKicker := false
		for r2 := Three; r2 <= Two; r2++ {
			if r2 != r && idx.rankCount[r2] > 0 {
				hasKicker = true
				break
			}
		}
		if !hasKicker {
			continue
		}
		high := Card{Rank: r, Suit: Spade} // all four present, spade included
		if !found || high.Beats(best) {
			best = high
			found = true
		}
	}
	return best, found
}

func (idx *poolIndex) bestStraightFlushHigh() (Card, bool) {
	var best Card
	found := false
	for _, row := range straightTable {
		for s := Diamond; s <= Spade; s++ {
			complete := true
			for _, r := range row {
				if !idx.has[r][s] {
					complete = false
					break
				}
			}
			if !complete {
				continue
			}
			high := Card{Rank: row[4], Suit: s}
			if !found || high.Beats(best) {
				best = high
				found = true
			}
		}
	}
	return best, found
}
