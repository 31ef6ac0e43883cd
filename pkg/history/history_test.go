package history

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestBuffer_FillsInOrder(t *testing.T) {
	b := New(4)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 4, b.Cap())

	b.Push(1)
	b.Push(2)
	b.Push(3)
	assert.Equal(t, []uint8{1, 2, 3}, b.Values(nil))
	assert.Equal(t, uint8(1), b.At(0))
}

func TestBuffer_WrapsSilently(t *testing.T) {
	b := New(3)
	for v := uint8(1); v <= 7; v++ {
		b.Push(v)
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []uint8{5, 6, 7}, b.Values(nil))
}

func TestBuffer_Reset(t *testing.T) {
	b := New(3)
	b.Push(9)
	b.Push(8)
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Values(nil))

	b.Push(4)
	assert.Equal(t, []uint8{4}, b.Values(nil))
}

func TestBuffer_AtOutOfRange(t *testing.T) {
	b := New(2)
	b.Push(1)
	assert.Panics(t, func() { b.At(1) })
	assert.Panics(t, func() { b.At(-1) })
}

func TestNew_MinimumCapacity(t *testing.T) {
	b := New(0)
	b.Push(1)
	b.Push(2)
	assert.Equal(t, []uint8{2}, b.Values(nil))
}

func TestScale_Quantize(t *testing.T) {
	s := Scale{Height: 48, FullScale: 260}

	tests := []struct {
		name string
		in   float32
		want uint8
	}{
		{name: "zero", in: 0, want: 0},
		{name: "negative", in: -5, want: 0},
		{name: "NaN", in: math32.NaN(), want: 0},
		{name: "mid", in: 130, want: 24},
		{name: "room", in: 25, want: 4},
		{name: "full scale", in: 260, want: 48},
		{name: "above full scale", in: 390, want: 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Quantize(tt.in))
		})
	}
}
