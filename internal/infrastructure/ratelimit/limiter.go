// Package ratelimit implements sliding-window hit counters keyed by string.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Attempt.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts hits per key inside a trailing window. A hit is recorded only
// when the call is allowed. Backend failures are returned as errors and must
// never be read as permission.
type Limiter interface {
	Attempt(ctx context.Context, key string, max int, window time.Duration) (Decision, error)
}

// roundUp lifts a wait to whole seconds, never below one.
func roundUp(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}
