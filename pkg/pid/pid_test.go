package pid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ovenParams() Params {
	return Params{
		Kp:            2.1337,
		Ki:            -0.25,
		Kd:            3,
		IntegralLimit: 40000,
		OutMin:        -0xFFFF,
		OutMax:        0xFFFF,
	}
}

func TestUpdate_ZeroErrorProportionalOnly(t *testing.T) {
	c := New(Params{Kp: 2.1337, OutMin: -0xFFFF, OutMax: 0xFFFF})
	c.Update(0)
	assert.Equal(t, int32(0), c.Value())
}

func TestUpdate_Terms(t *testing.T) {
	c := New(Params{Kp: 2, Ki: 0.5, Kd: 1, OutMin: -1 << 30, OutMax: 1 << 30})

	c.Update(100)
	// 2*100 + 0.5*100 + 1*(100-0)
	assert.Equal(t, int32(350), c.Value())

	c.Update(40)
	// 2*40 + 0.5*140 + 1*(40-100)
	assert.Equal(t, int32(90), c.Value())
	assert.Equal(t, int64(140), c.Integral())
}

func TestUpdate_OutputAlwaysWithinLimits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := New(ovenParams())

	extremes := []int32{math.MaxInt32, math.MinInt32, 0, 1, -1}
	for i := 0; i < 10000; i++ {
		var e int32
		if i%7 == 0 {
			e = extremes[rng.Intn(len(extremes))]
		} else {
			e = int32(rng.Int63n(1<<32) - 1<<31)
		}
		c.Update(e)
		require.GreaterOrEqual(t, c.Value(), int32(-0xFFFF))
		require.LessOrEqual(t, c.Value(), int32(0xFFFF))
	}
}

func TestUpdate_IntegratesWhileSaturated(t *testing.T) {
	c := New(Params{Ki: 1, IntegralLimit: 1000, OutMin: 0, OutMax: 10})

	for i := 0; i < 5; i++ {
		c.Update(100)
	}
	assert.Equal(t, int32(10), c.Value())
	assert.Equal(t, int64(500), c.Integral(), "saturation must not stop integration")

	for i := 0; i < 100; i++ {
		c.Update(100)
	}
	assert.Equal(t, int64(1000), c.Integral(), "integral is bounded by the limit")

	for i := 0; i < 100; i++ {
		c.Update(-100)
	}
	assert.Equal(t, int64(-1000), c.Integral())
	assert.Equal(t, int32(0), c.Value())
}

func TestUpdate_UnboundedIntegral(t *testing.T) {
	c := New(Params{Ki: 1, OutMin: math.MinInt32, OutMax: math.MaxInt32})
	for i := 0; i < 3; i++ {
		c.Update(math.MaxInt32)
	}
	assert.Equal(t, int64(3*math.MaxInt32), c.Integral())
	assert.Equal(t, int32(math.MaxInt32), c.Value())
}

func TestReset(t *testing.T) {
	c := New(ovenParams())
	c.Update(5000)
	c.Update(7000)
	c.Reset()

	assert.Equal(t, int32(0), c.Value())
	assert.Equal(t, int64(0), c.Integral())

	c.Update(0)
	assert.Equal(t, int32(0), c.Value(), "no derivative kick from the previous run")
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr error
	}{
		{name: "valid", mutate: func(p *Params) {}},
		{name: "NaN gain", mutate: func(p *Params) { p.Kd = math.NaN() }, wantErr: ErrInvalidGain},
		{name: "infinite gain", mutate: func(p *Params) { p.Kp = math.Inf(1) }, wantErr: ErrInvalidGain},
		{name: "inverted limits", mutate: func(p *Params) { p.OutMin, p.OutMax = 10, -10 }, wantErr: ErrInvalidLimits},
		{name: "negative windup", mutate: func(p *Params) { p.IntegralLimit = -1 }, wantErr: ErrInvalidWindup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ovenParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
