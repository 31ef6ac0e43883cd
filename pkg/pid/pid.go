// Package pid implements the integer-error PID controller that drives the
// heater. Errors are expressed in millidegrees; the output is a signed drive
// value later mapped onto the PWM duty range.
package pid

import (
	"errors"
	"math"
)

var (
	ErrInvalidGain   = errors.New("pid: gains must be finite")
	ErrInvalidLimits = errors.New("pid: output minimum exceeds maximum")
	ErrInvalidWindup = errors.New("pid: integral limit must not be negative")
)

// Params configures a Controller.
type Params struct {
	Kp, Ki, Kd float64

	// IntegralLimit bounds the accumulated error in both directions.
	// Zero disables the bound.
	IntegralLimit int32

	OutMin, OutMax int32
}

// Validate checks that the parameters produce a defined output.
func (p Params) Validate() error {
	for _, g := range []float64{p.Kp, p.Ki, p.Kd} {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return ErrInvalidGain
		}
	}
	if p.OutMin > p.OutMax {
		return ErrInvalidLimits
	}
	if p.IntegralLimit < 0 {
		return ErrInvalidWindup
	}
	return nil
}

// Controller is a discrete PID controller updated once per control period.
//
// Saturation does not pause integration: the integral keeps accumulating
// (within IntegralLimit) and only the final output is clamped to
// [OutMin, OutMax].
type Controller struct {
	p        Params
	integral int64
	prevErr  int32
	output   int32
}

// New creates a controller. Parameters should be validated first.
func New(p Params) *Controller {
	return &Controller{p: p}
}

// Params returns the controller configuration.
func (c *Controller) Params() Params {
	return c.p
}

// Update feeds a new error sample (target minus actual).
func (c *Controller) Update(err int32) {
	integral := c.integral + int64(err)
	if lim := int64(c.p.IntegralLimit); lim > 0 {
		integral = clamp64(integral, -lim, lim)
	}
	c.integral = integral

	derivative := int64(err) - int64(c.prevErr)
	c.prevErr = err

	raw := c.p.Kp*float64(err) + c.p.Ki*float64(integral) + c.p.Kd*float64(derivative)
	c.output = c.bound(raw)
}

// Value returns the clamped output of the last update.
func (c *Controller) Value() int32 {
	return c.output
}

// Integral returns the accumulated error.
func (c *Controller) Integral() int64 {
	return c.integral
}

// Reset clears all accumulated state.
func (c *Controller) Reset() {
	c.integral = 0
	c.prevErr = 0
	c.output = 0
}

func (c *Controller) bound(raw float64) int32 {
	switch {
	case math.IsNaN(raw):
		return c.p.OutMin
	case raw >= float64(c.p.OutMax):
		return c.p.OutMax
	case raw <= float64(c.p.OutMin):
		return c.p.OutMin
	default:
		return int32(raw)
	}
}

func clamp64(v, lo, hi int64) int64 {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}
