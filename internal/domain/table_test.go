package domain

import (
	"math/rand"
	"testing"
)

func TestNextSeatPermutation(t *testing.T) {
	want := map[int]int{0: 3, 3: 2, 2: 1, 1: 0}
	for from, to := range want {
		if NextSeat[from] != to {
			t.Fatalf("NextSeat[%d] = %d, want %d", from, NextSeat[from], to)
		}
	}

	// The permutation is a single 4-cycle: starting anywhere visits every
	// seat before returning.
	seen := map[int]bool{}
	seat := 0
	for i := 0; i < NumSeats; i++ {
		if seen[seat] {
			t.Fatalf("seat %d revisited after %d steps", seat, i)
		}
		seen[seat] = true
		seat = NextSeat[seat]
	}
	if seat != 0 {
		t.Fatalf("cycle did not close, ended at %d", seat)
	}
}

func TestApplyPlayAdvancesAndFreezes(t *testing.T) {
	hands := [NumSeats][]Card{
		0: cards(Card{Rank: Five, Suit: Club}, Card{Rank: Nine, Suit: Spade}),
		1: cards(Card{Rank: Six, Suit: Club}),
		2: cards(Card{Rank: Seven, Suit: Club}),
		3: cards(Card{Rank: Eight, Suit: Club}),
	}
	table := NewTable(2, 0, hands)

	out := table.ApplyPlay(0, mustClassify(t, cards(Card{Rank: Five, Suit: Club})))
	if out.MatchFinished {
		t.Fatal("match finished with cards still in hand")
	}
	if table.CurrentTurn != 3 {
		t.Fatalf("turn = %d, want 3", table.CurrentTurn)
	}
	if table.LastPlay == nil || table.LastPlaySeat != 0 {
		t.Fatalf("last play not recorded: %+v", table.LastPlay)
	}
	firstID := table.LastPlay.ID

	out = table.ApplyPlay(3, mustClassify(t, cards(Card{Rank: Eight, Suit: Club})))
	if !out.MatchFinished || out.WinnerSeat != 3 {
		t.Fatalf("outcome = %+v, want finished with winner 3", out)
	}
	if table.Phase != PhaseMatchFinished {
		t.Fatalf("phase = %q, want %q", table.Phase, PhaseMatchFinished)
	}
	if table.LastPlay.ID == firstID {
		t.Fatal("second play reused the first play identity")
	}
}

func TestApplyPassClearsTrick(t *testing.T) {
	hands := [NumSeats][]Card{
		0: cards(Card{Rank: Five, Suit: Club}, Card{Rank: Nine, Suit: Spade}),
		1: cards(Card{Rank: Six, Suit: Club}),
		2: cards(Card{Rank: Seven, Suit: Club}),
		3: cards(Card{Rank: Eight, Suit: Club}),
	}
	table := NewTable(2, 0, hands)
	table.ApplyPlay(0, mustClassify(t, cards(Card{Rank: Nine, Suit: Spade})))

	for _, seat := range []int{3, 2} {
		out := table.ApplyPass(seat)
		if out.TrickCleared {
			t.Fatalf("trick cleared after pass from seat %d", seat)
		}
	}
	out := table.ApplyPass(1)
	if !out.TrickCleared {
		t.Fatal("third consecutive pass did not clear the trick")
	}
	if table.LastPlay != nil {
		t.Fatal("table combo survived the cleared trick")
	}
	if table.CurrentTurn != 0 {
		t.Fatalf("turn = %d, want last play seat 0", table.CurrentTurn)
	}
	if table.PassStreak != 0 {
		t.Fatalf("pass streak = %d, want 0", table.PassStreak)
	}
}

// Passes on an open trick (no tabled combo) still keep the streak bounded
// below NumSeats-1.
func TestPassStreakBoundedOnOpenTrick(t *testing.T) {
	hands := [NumSeats][]Card{
		0: cards(Card{Rank: Five, Suit: Club}),
		1: cards(Card{Rank: Six, Suit: Club}),
		2: cards(Card{Rank: Seven, Suit: Club}),
		3: cards(Card{Rank: Eight, Suit: Club}),
	}
	table := NewTable(2, 0, hands)

	seat := 0
	for i := 0; i < 2*NumSeats; i++ {
		out := table.ApplyPass(seat)
		if out.TrickCleared {
			t.Fatalf("pass %d cleared a trick that was never opened", i+1)
		}
		if table.PassStreak >= NumSeats-1 {
			t.Fatalf("pass streak = %d after pass %d, want < %d", table.PassStreak, i+1, NumSeats-1)
		}
		seat = table.CurrentTurn
	}
}

func TestPassStreakResetsOnPlay(t *testing.T) {
	hands := [NumSeats][]Card{
		0: cards(Card{Rank: Five, Suit: Club}),
		1: cards(Card{Rank: Six, Suit: Club}),
		2: cards(Card{Rank: Seven, Suit: Club}, Card{Rank: Ten, Suit: Club}),
		3: cards(Card{Rank: Eight, Suit: Club}),
	}
	table := NewTable(2, 0, hands)
	table.ApplyPlay(0, mustClassify(t, cards(Card{Rank: Five, Suit: Club})))
	table.ApplyPass(3)
	if table.PassStreak != 1 {
		t.Fatalf("pass streak = %d, want 1", table.PassStreak)
	}
	table.ApplyPlay(2, mustClassify(t, cards(Card{Rank: Seven, Suit: Club})))
	if table.PassStreak != 0 {
		t.Fatalf("pass streak = %d after a play, want 0", table.PassStreak)
	}
	if table.LastPlaySeat != 2 {
		t.Fatalf("last play seat = %d, want 2", table.LastPlaySeat)
	}
}

// Cards in hands plus cards played always account for the whole deck.
func TestCardConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	table := NewTable(2, 0, Deal(rng))

	check := func() {
		t.Helper()
		total := len(table.Played)
		for _, hand := range table.Hands {
			total += len(hand)
		}
		if total != DeckSize {
			t.Fatalf("hands+played = %d cards, want %d", total, DeckSize)
		}
	}

	check()
	seat := 0
	for i := 0; i < 20 && table.Phase == PhaseInProgress; i++ {
		hand := table.Hands[seat]
		combo := Classify(hand[:1])
		if table.LastPlay == nil || Beats(table.LastPlay.Combo, combo) {
			table.ApplyPlay(seat, combo)
		} else {
			table.ApplyPass(seat)
		}
		check()
		seat = table.CurrentTurn
	}
}

func TestRemainingPool(t *testing.T) {
	table := NewTable(2, 0, [NumSeats][]Card{
		0: cards(Card{Rank: Five, Suit: Club}),
	})
	if got := len(table.RemainingPool()); got != DeckSize {
		t.Fatalf("fresh pool = %d cards, want %d", got, DeckSize)
	}
	table.ApplyPlay(0, mustClassify(t, cards(Card{Rank: Five, Suit: Club})))
	pool := table.RemainingPool()
	if len(pool) != DeckSize-1 {
		t.Fatalf("pool = %d cards, want %d", len(pool), DeckSize-1)
	}
	if ContainsCard(pool, Card{Rank: Five, Suit: Club}) {
		t.Fatal("played card still present in remaining pool")
	}
}

func TestHandSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	table := NewTable(1, 0, Deal(rng))
	for seat, size := range table.HandSizes() {
		if size != HandSize {
			t.Fatalf("seat %d dealt %d cards, want %d", seat, size, HandSize)
		}
	}
	if table.NextHandSize(0) != HandSize {
		t.Fatalf("NextHandSize(0) = %d", table.NextHandSize(0))
	}
}
