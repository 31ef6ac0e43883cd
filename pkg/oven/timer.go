// Package oven tracks the run window of a reflow process.
package oven

import (
	"time"

	"github.com/itohio/reflow/pkg/clock"
)

// Timer tracks the elapsed and remaining time of a process against a
// configured run duration. A timer with an empty window is stopped.
type Timer struct {
	clk   clock.Clock
	start time.Duration
	end   time.Duration
}

// NewTimer creates a stopped timer.
func NewTimer(clk clock.Clock) *Timer {
	now := clk.Now()
	return &Timer{clk: clk, start: now, end: now}
}

// Restart opens a new run window of length d starting now. Restart(0) stops
// the process; calling it on a stopped timer has no effect.
func (t *Timer) Restart(d time.Duration) {
	if d <= 0 {
		if !t.Running() {
			return
		}
		d = 0
	}
	now := t.clk.Now()
	t.start = now
	t.end = now + d
}

// Running reports whether the run window is still open.
func (t *Timer) Running() bool {
	return t.clk.Now() < t.end
}

// Elapsed returns the time since the start of the window while running and
// zero otherwise.
func (t *Timer) Elapsed() time.Duration {
	now := t.clk.Now()
	if now < t.end {
		return now - t.start
	}
	return 0
}

// Remaining returns the time left in the window, or zero when stopped.
func (t *Timer) Remaining() time.Duration {
	if r := t.end - t.clk.Now(); r > 0 {
		return r
	}
	return 0
}

// Duration returns the length of the current window.
func (t *Timer) Duration() time.Duration {
	return t.end - t.start
}
