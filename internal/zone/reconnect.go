package zone

import (
	"context"
	"time"
)

// reconnectRateLimit and reconnectRateWindow bound reconnect attempts
// to at most 5 per rolling 10 minutes.
const (
	reconnectRateLimit  = 5
	reconnectRateWindow = 600 * time.Second
)

// SessionSupervisor is the seam standing in for the streaming-service
// session/auth/discovery machinery owned elsewhere. A real binding
// would own the authenticated session and its transport; this package
// only needs to know whether a (re)connect attempt succeeded, and to
// be notified when the session drops so it can retry under the
// reconnect rate limit.
type SessionSupervisor interface {
	Connect(ctx context.Context) error
	Disconnect()
	// Disconnected delivers one value each time the session drops and
	// needs reconnecting. A supervisor that never drops its own
	// connection may return a nil channel; a nil channel in a select
	// simply never fires, so the zone's Run loop needs no special case
	// for it.
	Disconnected() <-chan error
}

// reconnectLimiter implements the sliding-window reconnect budget: a
// slice of attempt timestamps trimmed to the window on every call. A
// zone reconnects rarely enough that a ring buffer would be premature.
type reconnectLimiter struct {
	attempts []time.Time
	now      func() time.Time
}

func newReconnectLimiter() *reconnectLimiter {
	return &reconnectLimiter{now: time.Now}
}

// allow records an attempt at the current time and reports whether it
// is within budget. The 6th attempt within the rolling window returns
// false; callers must terminate the zone when that happens.
func (r *reconnectLimiter) allow() bool {
	now := r.now()
	cutoff := now.Add(-reconnectRateWindow)
	kept := r.attempts[:0]
	for _, t := range r.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.attempts = append(kept, now)
	return len(r.attempts) <= reconnectRateLimit
}

// handleDisconnect reacts to a session drop reported on
// supervisor.Disconnected(). It consumes one slot of the reconnect
// budget and, if still within it, starts a reconnect attempt on a
// worker goroutine (connecting is a blocking network operation, so it
// must not run on the zone's own goroutine — same discipline as
// startLoad/startPreload). If the budget is exhausted it terminates
// the zone.
func (z *Zone) handleDisconnect(ctx context.Context, cause error) bool {
	z.log.Warn("session disconnected, reconnecting", "err", cause)
	return z.attemptReconnect(ctx)
}

func (z *Zone) attemptReconnect(ctx context.Context) bool {
	if !z.reconnect.allow() {
		z.log.Error("reconnect rate limit exceeded, terminating zone")
		return false
	}
	ch := make(chan error, 1)
	z.reconnectResultCh = ch
	go func() {
		ch <- z.supervisor.Connect(ctx)
	}()
	return true
}

// handleReconnectResult processes the outcome of a reconnect attempt
// started by attemptReconnect. A failure retries immediately (still
// bounded by the rate limiter); success just resumes normal operation.
func (z *Zone) handleReconnectResult(ctx context.Context, err error) bool {
	z.reconnectResultCh = nil
	if err != nil {
		z.log.Warn("reconnect attempt failed", "err", err)
		return z.attemptReconnect(ctx)
	}
	z.log.Info("session reconnected")
	return true
}
