// Package util holds helpers shared by the drivers.
package util

import "time"

// Throttler lets a step through every n steps or once d has passed since the last one let through, whichever comes first.
// The first step is let through by the time trigger.
// A non-positive n or d disables that trigger.
type Throttler struct {
	every int
	d     time.Duration
	last  time.Time
	now   func() time.Time
}

func NewThrottler(every int, d time.Duration) *Throttler {
	return &Throttler{every: every, d: d, now: time.Now}
}

// Ok reports whether step is let through.
func (tt *Throttler) Ok(step int) bool {
	now := tt.now()
	byStep := tt.every > 0 && step%tt.every == 0
	byTime := tt.d > 0 && !now.Before(tt.last.Add(tt.d))
	if !byStep && !byTime {
		return false
	}
	tt.last = now
	return true
}
