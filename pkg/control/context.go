// Package control runs the oven: a cooperative scheduler stepping the sensor,
// control and user interface tasks over one shared controller context.
package control

import (
	"errors"
	"time"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/itohio/reflow/pkg/clock"
	"github.com/itohio/reflow/pkg/config"
	"github.com/itohio/reflow/pkg/hal"
	"github.com/itohio/reflow/pkg/history"
	"github.com/itohio/reflow/pkg/logger"
	"github.com/itohio/reflow/pkg/oven"
	"github.com/itohio/reflow/pkg/pid"
	"github.com/itohio/reflow/pkg/profile"
)

// ErrInvariant marks a broken controller invariant. It stops the scheduler.
var ErrInvariant = errors.New("control: invariant violated")

// Context is the state shared by all tasks. It is owned by the scheduler
// goroutine and never locked.
type Context struct {
	Clock   clock.Clock
	Board   hal.Board
	Display hal.Display
	Log     *logger.Logger

	Timer   *oven.Timer
	PID     *pid.Controller
	Modes   *profile.Selector
	History *history.Buffer
	Scale   history.Scale

	// Process is the length of one run.
	Process time.Duration
	// FaultCutoff stops a run after that many consecutive invalid
	// readings; 0 holds the last output.
	FaultCutoff int

	readings []float32
	sampled  bool

	duty   uint16
	alarm  bool
	faults int

	run   uuid.UUID
	label string
}

// ValidTemperature reports whether a probe reading is usable for control.
func ValidTemperature(c float32) bool {
	return !math32.IsNaN(c) && c >= config.MinTempC && c <= config.MaxTempC
}

// Temperature returns the control probe reading and whether it is valid.
func (c *Context) Temperature() (float32, bool) {
	if !c.sampled || len(c.readings) == 0 {
		return 0, false
	}
	t := c.readings[0]
	return t, ValidTemperature(t)
}

// Probe caches fresh readings.
func (c *Context) Probe(readings []float32) {
	c.readings = append(c.readings[:0], readings...)
	c.sampled = true
}

// Running reports whether a process is in progress.
func (c *Context) Running() bool {
	return c.Timer.Running()
}

// Mode returns the selected mode.
func (c *Context) Mode() profile.Mode {
	return c.Modes.Mode()
}

// Duty returns the last heater command.
func (c *Context) Duty() uint16 {
	return c.duty
}

// Alarm reports whether the buzzer is on.
func (c *Context) Alarm() bool {
	return c.alarm
}

// RunID identifies the current or last run. It is the zero UUID before the
// first start.
func (c *Context) RunID() uuid.UUID {
	return c.run
}

// active reports whether a started run has not been finished or stopped
// yet, which may differ from Running for one pass after natural expiry.
func (c *Context) active() bool {
	return c.run != uuid.Nil && c.Modes.Latched()
}

// StartRun opens a new process window with the selected mode. A previous
// run that expired but was not finished yet is finished first.
func (c *Context) StartRun() {
	if c.active() {
		c.finishRun()
	}

	c.PID.Reset()
	c.History.Reset()
	c.Modes.Latch()
	c.faults = 0
	c.run = uuid.New()
	c.label = c.Mode().Label()
	c.Timer.Restart(c.Process)

	c.Log.Infow("reflow process started",
		"run", c.run.String(),
		"mode", c.label,
		"duration", c.Process.String(),
	)
}

// StopRun aborts the process, switching the heater and buzzer off.
func (c *Context) StopRun(reason string) {
	elapsed := c.Timer.Elapsed()
	c.Timer.Restart(0)
	c.endRun()

	c.Log.Infow("reflow process stopped",
		"run", c.run.String(),
		"reason", reason,
		"elapsed", elapsed.String(),
	)
}

// finishRun completes a run whose window expired.
func (c *Context) finishRun() {
	c.endRun()
	c.Log.Infow("reflow process finished",
		"run", c.run.String(),
		"mode", c.label,
	)
}

func (c *Context) endRun() {
	c.setDuty(0)
	c.setAlarm(false)
	c.Modes.Release()
	c.faults = 0
}

// Halt puts the outputs into a safe state. It is called when the scheduler
// exits for any reason.
func (c *Context) Halt() {
	c.Timer.Restart(0)
	c.Board.Heater.Disable()
	c.duty = 0
	c.Board.Alarm.Disable()
	c.alarm = false
	c.Modes.Release()
}

func (c *Context) setDuty(duty uint16) {
	c.duty = duty
	c.Board.Heater.Set(duty)
}

func (c *Context) setAlarm(on bool) {
	if on == c.alarm {
		return
	}
	c.alarm = on
	if on {
		c.Board.Alarm.Enable()
	} else {
		c.Board.Alarm.Disable()
	}
}
