package ports

import "context"

// EventMessage is a serialized match event bound for spectators and external
// consumers. Recipients is empty for a broadcast to everyone watching the
// match.
type EventMessage struct {
	MatchID    string   `json:"match_id"`
	Kind       string   `json:"kind"`
	Payload    []byte   `json:"payload"`
	Recipients []string `json:"recipients,omitempty"`
}

// Broadcaster publishes match events beyond the match's own dispatcher, for
// lobby feeds and replay pipelines.
type Broadcaster interface {
	// Publish delivers one event. Implementations decide the topic layout
	// from the match ID and kind.
	Publish(ctx context.Context, msg EventMessage) error
}
