package ports

import (
	"context"
	"time"
)

// TimerSnapshot captures an armed auto-pass countdown for rehydration. The
// play ID ties the restored countdown back to the exact tabled play it was
// armed against.
type TimerSnapshot struct {
	OwnerSeat int           `json:"owner_seat"`
	PlayID    string        `json:"play_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// MatchSnapshot is the full persisted state of a running match. Table and
// scores are stored as the domain types' JSON so the snapshot layer stays
// ignorant of rule details.
type MatchSnapshot struct {
	MatchID        string         `json:"match_id"`
	Table          []byte         `json:"table"`
	Totals         [4]int         `json:"totals"`
	LastWinnerSeat int            `json:"last_winner_seat"`
	Seats          []string       `json:"seats"`
	Timer          *TimerSnapshot `json:"timer,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SnapshotStore persists match snapshots so a match can be rehydrated after
// a host restart.
type SnapshotStore interface {
	// Save overwrites the snapshot for the match.
	Save(ctx context.Context, snap MatchSnapshot) error

	// Load returns the snapshot for the match, or found=false when none
	// exists.
	Load(ctx context.Context, matchID string) (snap MatchSnapshot, found bool, err error)

	// Delete removes a finished match's snapshot. Unknown IDs are not an
	// error.
	Delete(ctx context.Context, matchID string) error
}
