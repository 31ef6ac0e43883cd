// Package debounce filters noisy digital inputs such as mechanical buttons.
package debounce

import (
	"time"

	"github.com/itohio/reflow/pkg/clock"
)

// Filter turns a stream of raw boolean samples into a stable value. The
// stable value only changes after N consecutive samples disagree with it.
type Filter struct {
	n      int
	run    int
	stable bool
}

// NewFilter creates a filter requiring n agreeing samples. Values below 1
// are treated as 1 (no filtering).
func NewFilter(n int) *Filter {
	if n < 1 {
		n = 1
	}
	return &Filter{n: n}
}

// Update feeds one raw sample. It must be called at a fixed sampling period.
func (f *Filter) Update(raw bool) {
	if raw == f.stable {
		f.run = 0
		return
	}
	f.run++
	if f.run >= f.n {
		f.stable = raw
		f.run = 0
	}
}

// Value returns the filtered state.
func (f *Filter) Value() bool {
	return f.stable
}

// Reset forces the stable value and discards any pending run.
func (f *Filter) Reset(v bool) {
	f.stable = v
	f.run = 0
}

// Button is a debounced push button that reports presses. A press is the
// rising edge of the filtered value, accepted only once the re-arm interval
// since the previous press has passed. Holding the button never repeats.
type Button struct {
	filter *Filter
	rearm  *clock.Timeout
	hold   time.Duration
	last   bool
}

// NewButton creates a button filtered over samples readings that accepts at
// most one press per rearm interval.
func NewButton(clk clock.Clock, samples int, rearm time.Duration) *Button {
	return &Button{
		filter: NewFilter(samples),
		rearm:  clock.NewTimeout(clk, 0),
		hold:   rearm,
	}
}

// Poll feeds one raw sample and reports whether it completed a press.
func (b *Button) Poll(raw bool) bool {
	b.filter.Update(raw)
	v := b.filter.Value()
	rising := v && !b.last
	b.last = v
	if !rising || !b.rearm.Expired() {
		return false
	}
	b.rearm.Restart(b.hold)
	return true
}

// Pressed returns the debounced level.
func (b *Button) Pressed() bool {
	return b.filter.Value()
}
