// Package profile describes reflow curves: the target temperature as a
// function of time since the process started.
package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/interp"
)

var (
	ErrNoPoints       = errors.New("profile: curve has no points")
	ErrFirstPoint     = errors.New("profile: first point must be at time 0")
	ErrUnordered      = errors.New("profile: point times must not decrease")
	ErrNotStrict      = errors.New("profile: monotone curves need strictly increasing times")
	ErrTooFewPoints   = errors.New("profile: monotone curves need at least 3 points")
	ErrInterpolation  = errors.New("profile: unknown interpolation")
	ErrNegativeTiming = errors.New("profile: cooldown must not be negative")
)

// Millidegrees is a temperature in 1/1000 °C.
type Millidegrees int32

// Celsius converts to degrees Celsius.
func (m Millidegrees) Celsius() float32 {
	return float32(m) / 1000
}

// FromCelsius converts degrees Celsius to millidegrees, rounding to nearest.
func FromCelsius(c float32) Millidegrees {
	return Millidegrees(math32.Round(c * 1000))
}

// Point is one control point of a curve.
type Point struct {
	Time time.Duration
	Temp Millidegrees
}

// Interpolation selects how a curve is evaluated between its points.
type Interpolation int

const (
	// Linear interpolates straight segments between neighbouring points.
	Linear Interpolation = iota
	// Monotone fits a Fritsch-Butland cubic through the points. It never
	// overshoots the neighbouring control points.
	Monotone
)

// ParseInterpolation maps a configuration string to an Interpolation.
// The empty string selects Linear.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "monotone":
		return Monotone, nil
	default:
		return Linear, fmt.Errorf("%w: %q", ErrInterpolation, s)
	}
}

func (i Interpolation) String() string {
	if i == Monotone {
		return "monotone"
	}
	return "linear"
}

// Options carries the optional curve settings.
type Options struct {
	Label         string
	Cooldown      time.Duration
	Interpolation Interpolation
}

// Curve is an immutable, validated reflow curve.
type Curve struct {
	name     string
	label    string
	points   []Point
	cooldown time.Duration
	interp   Interpolation
	smooth   *interp.FritschButland
}

// NewCurve validates the points and builds a curve. Points must be
// non-empty, start at time 0 and have non-decreasing times.
func NewCurve(name string, points []Point, opts Options) (*Curve, error) {
	if err := validate(points, opts); err != nil {
		return nil, fmt.Errorf("curve %q: %w", name, err)
	}

	c := &Curve{
		name:     name,
		label:    opts.Label,
		points:   append([]Point(nil), points...),
		cooldown: opts.Cooldown,
		interp:   opts.Interpolation,
	}
	if c.label == "" {
		c.label = name
	}

	if c.interp == Monotone {
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i] = float64(p.Time.Milliseconds())
			ys[i] = float64(p.Temp)
		}
		c.smooth = &interp.FritschButland{}
		if err := c.smooth.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("curve %q: %w", name, err)
		}
	}
	return c, nil
}

// MustCurve is like NewCurve but panics on invalid points. It is meant for
// tables compiled into the binary.
func MustCurve(name string, points []Point, opts Options) *Curve {
	c, err := NewCurve(name, points, opts)
	if err != nil {
		panic(err)
	}
	return c
}

func validate(points []Point, opts Options) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	if points[0].Time != 0 {
		return ErrFirstPoint
	}
	if opts.Cooldown < 0 {
		return ErrNegativeTiming
	}
	for i := 1; i < len(points); i++ {
		if points[i].Time < points[i-1].Time {
			return fmt.Errorf("%w: point %d", ErrUnordered, i)
		}
	}

	switch opts.Interpolation {
	case Linear:
	case Monotone:
		if len(points) < 3 {
			return ErrTooFewPoints
		}
		for i := 1; i < len(points); i++ {
			// The fit works on milliseconds, so sub-millisecond spacing collapses.
			if points[i].Time.Milliseconds() <= points[i-1].Time.Milliseconds() {
				return fmt.Errorf("%w: point %d", ErrNotStrict, i)
			}
		}
	default:
		return ErrInterpolation
	}
	return nil
}

// Name returns the curve identifier.
func (c *Curve) Name() string { return c.name }

// Label returns the short display label.
func (c *Curve) Label() string { return c.label }

// Cooldown returns the elapsed time at which cooling starts, or zero.
func (c *Curve) Cooldown() time.Duration { return c.cooldown }

// Interpolation returns how the curve is evaluated.
func (c *Curve) Interpolation() Interpolation { return c.interp }

// Duration returns the time of the last control point.
func (c *Curve) Duration() time.Duration {
	return c.points[len(c.points)-1].Time
}

// Points returns a copy of the control points.
func (c *Curve) Points() []Point {
	return append([]Point(nil), c.points...)
}

// Target returns the target temperature at the given elapsed time. Times
// outside the curve clamp to the first or last point.
func (c *Curve) Target(elapsed time.Duration) Millidegrees {
	first, last := c.points[0], c.points[len(c.points)-1]
	if elapsed <= first.Time {
		return first.Temp
	}
	if elapsed >= last.Time {
		return last.Temp
	}

	if c.smooth != nil {
		y := c.smooth.Predict(float64(elapsed.Milliseconds()))
		return Millidegrees(math.Round(y))
	}

	// First point strictly after elapsed; with duplicate times the later
	// point of the pair becomes the left bracket.
	i := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].Time > elapsed
	})
	p0, p1 := c.points[i-1], c.points[i]

	t := elapsed.Milliseconds() - p0.Time.Milliseconds()
	span := p1.Time.Milliseconds() - p0.Time.Milliseconds()
	if span <= 0 {
		return p0.Temp
	}
	dv := int64(p1.Temp) - int64(p0.Temp)
	return Millidegrees(int64(p0.Temp) + dv*t/span)
}
