package ports

import (
	"context"
	"time"
)

// GameResult is the final standing of one completed game, recorded for
// leaderboards and history queries.
type GameResult struct {
	MatchID    string    `json:"match_id"`
	Seats      []string  `json:"seats"`
	Totals     [4]int    `json:"totals"`
	Winners    []int     `json:"winners"`
	Matches    int       `json:"matches"`
	FinishedAt time.Time `json:"finished_at"`
}

// ScoreStore archives completed games.
type ScoreStore interface {
	// RecordGame appends one finished game's result.
	RecordGame(ctx context.Context, result GameResult) error

	// PlayerHistory returns the most recent results involving the user,
	// newest first, up to limit.
	PlayerHistory(ctx context.Context, userID string, limit int) ([]GameResult, error)
}
