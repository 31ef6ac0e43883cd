package control

import (
	"fmt"
	"time"

	"github.com/itohio/reflow/pkg/clock"
	"github.com/itohio/reflow/pkg/debounce"
)

// Banner is shown while the controller starts up.
const Banner = "reflow-oven"

// Layout of the 128x64 panel.
const (
	tempX, tempY   = 86, 0
	timeX, timeY   = 0, 0
	dutyX, dutyY   = 39, 0
	labelX, labelY = 0, 16
)

type uiState int

const (
	uiSplash uiState = iota
	uiOperate
)

// UiOptions configures the user interface task.
type UiOptions struct {
	DebouncePeriod  time.Duration
	DebounceSamples int
	Rearm           time.Duration
	DisplayPeriod   time.Duration
	Splash          time.Duration
	PlotWidth       int
}

// UiTask handles the Start/Temp and Stop/Mode buttons, samples the
// temperature history and renders the panel.
type UiTask struct {
	c    *Context
	opts UiOptions

	state   uiState
	entered bool
	splash  *clock.Timeout

	start *debounce.Button
	stop  *debounce.Button

	buttons *clock.PeriodicTimer
	refresh *clock.PeriodicTimer
	sample  *clock.PeriodicTimer

	plot []uint8
}

func NewUiTask(c *Context, opts UiOptions) *UiTask {
	if opts.PlotWidth <= 0 {
		opts.PlotWidth = c.History.Cap()
	}
	return &UiTask{
		c:       c,
		opts:    opts,
		splash:  clock.NewTimeout(c.Clock, 0),
		start:   debounce.NewButton(c.Clock, opts.DebounceSamples, opts.Rearm),
		stop:    debounce.NewButton(c.Clock, opts.DebounceSamples, opts.Rearm),
		buttons: clock.NewPeriodicTimer(c.Clock, opts.DebouncePeriod),
		refresh: clock.NewPeriodicTimer(c.Clock, opts.DisplayPeriod),
		sample:  clock.NewPeriodicTimer(c.Clock, c.samplePeriod(opts.PlotWidth)),
		plot:    make([]uint8, 0, c.History.Cap()),
	}
}

func (c *Context) samplePeriod(width int) time.Duration {
	return c.Process / time.Duration(width)
}

func (t *UiTask) Name() string { return "ui" }

func (t *UiTask) Step() error {
	switch t.state {
	case uiSplash:
		return t.stepSplash()
	case uiOperate:
		return t.stepOperate()
	}
	return fmt.Errorf("%w: ui state %d", ErrInvariant, t.state)
}

func (t *UiTask) stepSplash() error {
	c := t.c
	if !t.entered {
		t.entered = true
		c.Board.Fan.Set(true)
		c.setAlarm(true)
		t.splash.Restart(t.opts.Splash)

		c.Display.Clear()
		c.Display.SetCursor(labelX, labelY)
		c.Display.Print(Banner)
		t.update()
	}
	if !t.splash.Expired() {
		return nil
	}
	c.setAlarm(false)
	t.state = uiOperate
	t.entered = false
	t.refresh.Restart(t.opts.DisplayPeriod)
	return nil
}

func (t *UiTask) stepOperate() error {
	c := t.c

	if t.buttons.Execute() {
		if t.start.Poll(c.Board.Start.Read()) {
			t.onStart()
		}
		if t.stop.Poll(c.Board.Stop.Read()) {
			if err := t.onStop(); err != nil {
				return err
			}
		}
	}

	if t.sample.Execute() {
		temp, ok := c.Temperature()
		if !ok {
			temp = 0
		}
		c.History.Push(c.Scale.Quantize(temp))
	}

	if t.refresh.Execute() {
		t.render()
	}
	return nil
}

func (t *UiTask) onStart() {
	c := t.c
	if !c.Running() {
		c.StartRun()
		t.sample.Restart(c.samplePeriod(t.opts.PlotWidth))
		return
	}
	if !c.Modes.IsConstant() {
		return
	}
	sp, err := c.Modes.BumpSetpoint()
	if err != nil {
		return
	}
	c.Log.Infow("setpoint changed", "run", c.run.String(), "setpoint", sp.Celsius())
}

func (t *UiTask) onStop() error {
	c := t.c
	if c.Running() {
		c.StopRun("stop button")
		return nil
	}
	mode, err := c.Modes.Next()
	if err != nil {
		return fmt.Errorf("%w: mode change while idle: %w", ErrInvariant, err)
	}
	c.Log.Infow("mode selected", "mode", mode.Label())
	return nil
}

func (t *UiTask) render() {
	c := t.c
	d := c.Display
	d.Clear()

	d.SetCursor(tempX, tempY)
	if temp, ok := c.Temperature(); ok {
		d.Print(fmt.Sprintf("%3.1fC", temp))
	} else {
		d.Print("T-ERR")
	}

	mode := c.Mode()
	d.SetCursor(labelX, labelY)
	d.Print(mode.Label())

	running := c.Running()
	d.SetCursor(timeX, timeY)
	if running {
		secs := int(c.Timer.Elapsed() / time.Second)
		d.Print(fmt.Sprintf("%d:%02d", secs/60, secs%60))
		d.SetCursor(dutyX, dutyY)
		d.Print(fmt.Sprintf("%d%%", uint32(c.duty)*100/uint32(c.Board.Heater.Overflow())))
	} else {
		d.Print("OFF")
	}

	_, h := d.Size()
	bottom := h - 1
	t.plot = c.History.Values(t.plot[:0])
	for i, q := range t.plot {
		d.DrawPixel(int16(i), bottom-int16(q))
	}

	if running {
		d.SetInverted(true)
		step := c.samplePeriod(t.opts.PlotWidth)
		for i := 0; i < t.opts.PlotWidth; i += 2 {
			target := mode.Target(time.Duration(i) * step)
			d.DrawPixel(int16(i), bottom-int16(c.Scale.Quantize(target.Celsius())))
		}
		d.SetInverted(false)
	}

	t.update()
}

func (t *UiTask) update() {
	if err := t.c.Display.Update(); err != nil {
		t.c.Log.Warnw("display update failed", "error", err)
	}
}
