// Package history keeps the quantized temperature samples drawn as the strip
// chart.
package history

import "github.com/chewxy/math32"

// Buffer is a fixed-capacity ring of samples. When full, a push overwrites
// the oldest sample.
type Buffer struct {
	samples []uint8
	head    int // index of the oldest sample
	count   int
}

// New creates a buffer holding up to capacity samples.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{samples: make([]uint8, capacity)}
}

// Push appends a sample, dropping the oldest one when full.
func (b *Buffer) Push(v uint8) {
	if b.count < len(b.samples) {
		b.samples[(b.head+b.count)%len(b.samples)] = v
		b.count++
		return
	}
	b.samples[b.head] = v
	b.head = (b.head + 1) % len(b.samples)
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.head = 0
	b.count = 0
	clear(b.samples)
}

// Len returns the number of stored samples.
func (b *Buffer) Len() int { return b.count }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.samples) }

// At returns the i-th oldest sample. It panics if i is out of range.
func (b *Buffer) At(i int) uint8 {
	if i < 0 || i >= b.count {
		panic("history: index out of range")
	}
	return b.samples[(b.head+i)%len(b.samples)]
}

// Values appends the samples, oldest first, to dst and returns it.
func (b *Buffer) Values(dst []uint8) []uint8 {
	for i := 0; i < b.count; i++ {
		dst = append(dst, b.At(i))
	}
	return dst
}

// Scale maps temperatures onto plot rows.
type Scale struct {
	// Height is the number of pixel rows available to the plot.
	Height int
	// FullScale is the temperature in °C drawn at the top row.
	FullScale float32
}

// Quantize converts a temperature to a row offset from the bottom of the
// plot, clamped to [0, Height].
func (s Scale) Quantize(celsius float32) uint8 {
	if s.Height <= 0 || s.FullScale <= 0 || math32.IsNaN(celsius) || celsius <= 0 {
		return 0
	}
	v := celsius * float32(s.Height) / s.FullScale
	if v >= float32(s.Height) {
		return uint8(min(s.Height, 255))
	}
	return uint8(v)
}
