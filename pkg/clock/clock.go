// Package clock provides the monotonic time source used by the controller and
// the polled timers built on top of it.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic, non-resettable time source. Now returns the time
// elapsed since an arbitrary fixed origin.
type Clock interface {
	Now() time.Duration
}

// System reads the host monotonic clock relative to its creation.
type System struct {
	boot time.Time
}

// NewSystem creates a clock whose origin is the moment of the call.
func NewSystem() *System {
	return &System{boot: time.Now()}
}

// Now returns the time since the clock was created.
func (s *System) Now() time.Duration {
	return time.Since(s.boot)
}

// Manual is a clock that only moves when told to. Tests and the simulated
// plant use it to step time deterministically.
type Manual struct {
	mu  sync.RWMutex
	now time.Duration
}

// NewManual creates a manual clock starting at the given offset.
func NewManual(start time.Duration) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the clock forward. Negative values are ignored so the clock
// stays monotonic.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
}

var (
	_ Clock = (*System)(nil)
	_ Clock = (*Manual)(nil)
)
