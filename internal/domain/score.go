package domain

// GameScoreThreshold ends the game once any seat's cumulative total reaches it.
const GameScoreThreshold = 101

// PointsPerCard returns the per-card penalty for a losing seat's remaining
// hand size: 1 point for 1-4 cards, 2 for 5-9, 3 for 10-13.
func PointsPerCard(remaining int) int {
	switch {
	case remaining <= 0:
		return 0
	case remaining <= 4:
		return 1
	case remaining <= 9:
		return 2
	default:
		return 3
	}
}

// MatchScore reports the points charged for one finished match.
type MatchScore struct {
	Winner int           `json:"winner"`
	Points [NumSeats]int `json:"points"`
}

// ScoreKeeper accumulates per-seat points across the matches of a game.
type ScoreKeeper struct {
	Totals [NumSeats]int `json:"totals"`
}

// RecordMatch charges each losing seat for its remaining cards and adds the
// result to the cumulative totals. The winner always scores 0 for the match.
func (sk *ScoreKeeper) RecordMatch(winner int, handSizes [NumSeats]int) MatchScore {
	score := MatchScore{Winner: winner}
	for seat, remaining := range handSizes {
		if seat == winner {
			continue
		}
		score.Points[seat] = remaining * PointsPerCard(remaining)
		sk.Totals[seat] += score.Points[seat]
	}
	return score
}

// GameOver reports whether any cumulative total breached the threshold.
func (sk *ScoreKeeper) GameOver() bool {
	for _, total := range sk.Totals {
		if total >= GameScoreThreshold {
			return true
		}
	}
	return false
}

// Winners returns every seat holding the lowest cumulative total. More than
// one entry means a tie; the tie-break policy is left to the caller.
func (sk *ScoreKeeper) Winners() []int {
	lowest := sk.Totals[0]
	for _, total := range sk.Totals[1:] {
		if total < lowest {
			lowest = total
		}
	}
	winners := make([]int, 0, 1)
	for seat, total := range sk.Totals {
		if total == lowest {
			winners = append(winners, seat)
		}
	}
	return winners
}
