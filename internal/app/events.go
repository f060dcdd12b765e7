package app

import (
	"time"

	"bigtwo/internal/domain"
)

// EventKind identifies emitted match events for dispatch to clients.
type EventKind string

const (
	EventHandDealt      EventKind = "hand_dealt"
	EventMatchStarted   EventKind = "match_started"
	EventCardPlayed     EventKind = "card_played"
	EventTurnPassed     EventKind = "turn_passed"
	EventTrickCleared   EventKind = "trick_cleared"
	EventTimerArmed     EventKind = "timer_armed"
	EventTimerCancelled EventKind = "timer_cancelled"
	EventAutoPassed     EventKind = "auto_passed"
	EventMatchFinished  EventKind = "match_finished"
	EventGameFinished   EventKind = "game_finished"
)

// Event is a match event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

// HandDealtPayload is private to its recipient; other seats only ever learn
// hand counts.
type HandDealtPayload struct {
	UserID string        `json:"user_id"`
	Seat   int           `json:"seat"`
	Hand   []domain.Card `json:"hand"`
}

type MatchStartedPayload struct {
	MatchNumber int    `json:"match_number"`
	LeaderSeat  int    `json:"leader_seat"`
	HandSizes   [4]int `json:"hand_sizes"`
}

type CardPlayedPayload struct {
	Seat      int           `json:"seat"`
	Cards     []domain.Card `json:"cards"`
	Kind      string        `json:"kind"`
	NextTurn  int           `json:"next_turn"`
	HandSizes [4]int        `json:"hand_sizes"`
}

type TurnPassedPayload struct {
	Seat      int  `json:"seat"`
	Synthetic bool `json:"synthetic"`
	NextTurn  int  `json:"next_turn"`
}

type TrickClearedPayload struct {
	LeaderSeat int `json:"leader_seat"`
}

type TimerArmedPayload struct {
	OwnerSeat int           `json:"owner_seat"`
	PlayID    string        `json:"play_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

type TimerCancelledPayload struct {
	OwnerSeat int    `json:"owner_seat"`
	PlayID    string `json:"play_id"`
}

type MatchFinishedPayload struct {
	MatchNumber int    `json:"match_number"`
	WinnerSeat  int    `json:"winner_seat"`
	Points      [4]int `json:"points"`
	Totals      [4]int `json:"totals"`
}

type GameFinishedPayload struct {
	Totals  [4]int `json:"totals"`
	Winners []int  `json:"winners"`
	Matches int    `json:"matches"`
}
