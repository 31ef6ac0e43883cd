package control

import (
	"fmt"
	"time"

	"github.com/itohio/reflow/pkg/clock"
	"github.com/itohio/reflow/pkg/profile"
)

type controlState int

const (
	controlIdle controlState = iota
	controlRunning
)

func (s controlState) String() string {
	if s == controlRunning {
		return "running"
	}
	return "idle"
}

// ControlTask regulates the heater towards the selected mode's target while
// a process runs and keeps it off otherwise.
type ControlTask struct {
	c      *Context
	period *clock.PeriodicTimer
	state  controlState
}

func NewControlTask(c *Context, period time.Duration) *ControlTask {
	return &ControlTask{
		c:      c,
		period: clock.NewPeriodicTimer(c.Clock, period),
	}
}

func (t *ControlTask) Name() string { return "control" }

func (t *ControlTask) Step() error {
	c := t.c

	if c.active() && !c.Running() {
		c.finishRun()
	}

	switch t.state {
	case controlIdle:
		if c.Running() {
			t.state = controlRunning
			t.period.Restart(t.period.Period())
			return t.running()
		}
		c.setDuty(0)
		return nil

	case controlRunning:
		if !c.Running() {
			t.state = controlIdle
			c.setDuty(0)
			return nil
		}
		return t.running()
	}

	return fmt.Errorf("%w: control state %d", ErrInvariant, t.state)
}

func (t *ControlTask) running() error {
	c := t.c
	elapsed := c.Timer.Elapsed()
	if elapsed > c.Process {
		return fmt.Errorf("%w: elapsed %s beyond process %s", ErrInvariant, elapsed, c.Process)
	}

	mode := c.Mode()
	if cd := mode.Cooldown(); cd > 0 && elapsed >= cd && !c.alarm {
		c.setAlarm(true)
		c.Log.Infow("begin cooldown", "run", c.run.String(), "elapsed", elapsed.String())
	}

	if !t.period.Execute() {
		return nil
	}

	temp, ok := c.Temperature()
	if !ok {
		c.faults++
		c.setDuty(c.duty)
		c.Log.Warnw("sensor fault, holding heater output",
			"run", c.run.String(),
			"temperature", temp,
			"pwm", c.duty,
			"faults", c.faults,
		)
		if c.FaultCutoff > 0 && c.faults >= c.FaultCutoff {
			c.Log.Errorw("persistent sensor fault", "run", c.run.String(), "faults", c.faults)
			c.StopRun("sensor fault")
			t.state = controlIdle
		}
		return nil
	}
	c.faults = 0

	target := mode.Target(elapsed)
	actual := profile.FromCelsius(temp)
	c.PID.Update(int32(target - actual))

	out := c.PID.Value()
	p := c.PID.Params()
	if out < p.OutMin || out > p.OutMax {
		return fmt.Errorf("%w: pid output %d outside [%d, %d]", ErrInvariant, out, p.OutMin, p.OutMax)
	}

	overflow := int32(c.Board.Heater.Overflow())
	duty := uint16(max(0, min(out, overflow)))
	c.setDuty(duty)

	c.Log.Infow("regulate",
		"run", c.run.String(),
		"temperature", temp,
		"target", target.Celsius(),
		"elapsed", elapsed.Milliseconds(),
		"pwm", duty,
	)
	return nil
}
