package ports

import (
	"context"
	"time"
)

// Backoff holds the schedule for retrying a flaky adapter call.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultBackoff suits transient store and bus failures.
var DefaultBackoff = Backoff{Attempts: 3, Base: 50 * time.Millisecond, Max: time.Second}

// Retry runs fn until it succeeds, the attempts are exhausted, or the context
// is done. The delay doubles per attempt, capped at Max. The last error is
// returned when every attempt fails.
func Retry(ctx context.Context, b Backoff, fn func(context.Context) error) error {
	delay := b.Base
	var err error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == b.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > b.Max {
			delay = b.Max
		}
	}
	return err
}
