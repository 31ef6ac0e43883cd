package clock

import "time"

// PeriodicTimer reports once per period when polled. It never fires more
// than once per Execute call; missed periods are dropped rather than replayed.
type PeriodicTimer struct {
	clk      Clock
	period   time.Duration
	deadline time.Duration
}

// NewPeriodicTimer creates a timer whose first period starts now.
func NewPeriodicTimer(clk Clock, period time.Duration) *PeriodicTimer {
	t := &PeriodicTimer{clk: clk}
	t.Restart(period)
	return t
}

// Restart begins a new period of the given length from now.
func (t *PeriodicTimer) Restart(period time.Duration) {
	t.period = period
	t.deadline = t.clk.Now() + period
}

// Period returns the configured period.
func (t *PeriodicTimer) Period() time.Duration {
	return t.period
}

// Execute returns true if the current period has elapsed and schedules the
// next one.
func (t *PeriodicTimer) Execute() bool {
	now := t.clk.Now()
	if now < t.deadline {
		return false
	}
	t.deadline += t.period
	if t.deadline <= now {
		// Fell behind by more than a period: resynchronise instead of bursting.
		t.deadline = now + t.period
	}
	return true
}

// Timeout expires once a fixed duration has passed since the last restart.
type Timeout struct {
	clk      Clock
	deadline time.Duration
}

// NewTimeout creates a timeout that expires d from now. A zero duration
// yields a timeout that is already expired.
func NewTimeout(clk Clock, d time.Duration) *Timeout {
	t := &Timeout{clk: clk}
	t.Restart(d)
	return t
}

// Restart arms the timeout to expire d from now.
func (t *Timeout) Restart(d time.Duration) {
	t.deadline = t.clk.Now() + d
}

// Expired reports whether the deadline has been reached.
func (t *Timeout) Expired() bool {
	return t.clk.Now() >= t.deadline
}

// Remaining returns the time left until expiry, or zero.
func (t *Timeout) Remaining() time.Duration {
	if r := t.deadline - t.clk.Now(); r > 0 {
		return r
	}
	return 0
}
