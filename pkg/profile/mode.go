package profile

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRunning       = errors.New("profile: mode cannot change while a process is running")
	ErrNoCurves      = errors.New("profile: at least one curve is required")
	ErrConstantRange = errors.New("profile: invalid constant setpoint range")
	ErrNotConstant   = errors.New("profile: setpoint can only change in constant mode")
)

// Mode is the active setpoint source: either a curve or a constant
// temperature. The set of implementations is closed.
type Mode interface {
	// Target returns the setpoint for the given elapsed process time.
	Target(elapsed time.Duration) Millidegrees
	// Label is the short text shown on the display.
	Label() string
	// Cooldown is the elapsed time after which the door alarm sounds, or
	// zero if the mode has none.
	Cooldown() time.Duration

	isMode()
}

// CurveMode follows a reflow curve.
type CurveMode struct {
	Curve *Curve
}

func (m CurveMode) Target(elapsed time.Duration) Millidegrees { return m.Curve.Target(elapsed) }
func (m CurveMode) Label() string                             { return m.Curve.Label() }
func (m CurveMode) Cooldown() time.Duration                   { return m.Curve.Cooldown() }
func (CurveMode) isMode()                                     {}

// ConstantMode holds a fixed setpoint for the whole process.
type ConstantMode struct {
	Setpoint Millidegrees
}

func (m ConstantMode) Target(time.Duration) Millidegrees { return m.Setpoint }
func (m ConstantMode) Label() string                     { return fmt.Sprintf("T%d", m.Setpoint/1000) }
func (ConstantMode) Cooldown() time.Duration             { return 0 }
func (ConstantMode) isMode()                             {}

// ConstantRange configures the constant setpoint mode. The setpoint starts
// at Base and grows by Step, wrapping back to Base once it exceeds Max.
type ConstantRange struct {
	Base, Step, Max Millidegrees
}

// Validate checks the range is usable.
func (r ConstantRange) Validate() error {
	if r.Step <= 0 || r.Base < 0 || r.Base > r.Max {
		return fmt.Errorf("%w: base %d step %d max %d", ErrConstantRange, r.Base, r.Step, r.Max)
	}
	return nil
}

// Selector cycles through the loaded curves followed by the constant mode.
// While latched (a process is running) the selection cannot change.
type Selector struct {
	curves   []*Curve
	constant ConstantRange
	index    int
	setpoint Millidegrees
	latched  bool
}

// NewSelector creates a selector starting at the first curve.
func NewSelector(curves []*Curve, constant ConstantRange) (*Selector, error) {
	if len(curves) == 0 {
		return nil, ErrNoCurves
	}
	if err := constant.Validate(); err != nil {
		return nil, err
	}
	return &Selector{
		curves:   curves,
		constant: constant,
		setpoint: constant.Base,
	}, nil
}

// Mode returns the active mode.
func (s *Selector) Mode() Mode {
	if s.IsConstant() {
		return ConstantMode{Setpoint: s.setpoint}
	}
	return CurveMode{Curve: s.curves[s.index]}
}

// IsConstant reports whether the constant mode is active.
func (s *Selector) IsConstant() bool {
	return s.index == len(s.curves)
}

// Curves returns the loaded curves in selection order.
func (s *Selector) Curves() []*Curve {
	return s.curves
}

// Next advances to the following mode. Entering the constant mode resets
// its setpoint to the base value.
func (s *Selector) Next() (Mode, error) {
	if s.latched {
		return s.Mode(), ErrRunning
	}
	s.index = (s.index + 1) % (len(s.curves) + 1)
	if s.IsConstant() {
		s.setpoint = s.constant.Base
	}
	return s.Mode(), nil
}

// BumpSetpoint raises the constant setpoint by one step, wrapping to the
// base once the maximum is exceeded. It is allowed while running.
func (s *Selector) BumpSetpoint() (Millidegrees, error) {
	if !s.IsConstant() {
		return 0, ErrNotConstant
	}
	s.setpoint += s.constant.Step
	if s.setpoint > s.constant.Max {
		s.setpoint = s.constant.Base
	}
	return s.setpoint, nil
}

// Latch freezes the selection for the duration of a process.
func (s *Selector) Latch() { s.latched = true }

// Release allows the selection to change again.
func (s *Selector) Release() { s.latched = false }

// Latched reports whether the selection is frozen.
func (s *Selector) Latched() bool { return s.latched }
