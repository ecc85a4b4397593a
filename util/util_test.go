package util

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestThrottler(t *testing.T) {
	t.Parallel()
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tt := NewThrottler(3, time.Minute)
	tt.now = c.now

	tests := []struct {
		step    int
		elapsed time.Duration
		ok      bool
	}{
		{step: 1, ok: true},
		{step: 2, elapsed: 30 * time.Second, ok: false},
		{step: 3, ok: true},
		// The step trigger resets the clock.
		{step: 4, elapsed: 40 * time.Second, ok: false},
		{step: 5, elapsed: 20 * time.Second, ok: true},
		{step: 6, ok: true},
		{step: 7, elapsed: time.Hour, ok: true},
		{step: 8, ok: false},
	}
	for _, test := range tests {
		c.t = c.t.Add(test.elapsed)
		if ok := tt.Ok(test.step); ok != test.ok {
			t.Fatalf("%+v %v", test, ok)
		}
	}
}

func TestThrottlerDisabled(t *testing.T) {
	t.Parallel()
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	steps := NewThrottler(2, 0)
	steps.now = c.now
	timed := NewThrottler(0, time.Second)
	timed.now = c.now
	for step := 1; step <= 6; step++ {
		c.t = c.t.Add(time.Hour)
		if ok := steps.Ok(step); ok != (step%2 == 0) {
			t.Fatalf("%d %v", step, ok)
		}
		if !timed.Ok(step) {
			t.Fatalf("%d", step)
		}
	}
	if timed.Ok(7) {
		t.Fatalf("no time passed")
	}
}
