package control

import (
	"fmt"

	"github.com/itohio/reflow/pkg/clock"
	"github.com/itohio/reflow/pkg/config"
	"github.com/itohio/reflow/pkg/hal"
	"github.com/itohio/reflow/pkg/history"
	"github.com/itohio/reflow/pkg/logger"
	"github.com/itohio/reflow/pkg/oven"
	"github.com/itohio/reflow/pkg/pid"
	"github.com/itohio/reflow/pkg/profile"
)

// Controller bundles the context, its tasks and the scheduler driving them.
type Controller struct {
	*Context

	Sensor    *SensorTask
	Control   *ControlTask
	UI        *UiTask
	Scheduler *Scheduler
}

// New validates cfg and wires a controller around board and disp.
func New(cfg *config.Config, board hal.Board, disp hal.Display, clk clock.Clock, log *logger.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	curves, err := cfg.Curves()
	if err != nil {
		return nil, err
	}
	modes, err := profile.NewSelector(curves, cfg.ConstantRange())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	params := pid.Params{
		Kp:            cfg.Control.Kp,
		Ki:            cfg.Control.Ki,
		Kd:            cfg.Control.Kd,
		IntegralLimit: cfg.Control.IntegralLimit,
		OutMin:        cfg.Control.OutMin,
		OutMax:        cfg.Control.OutMax,
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	c := &Context{
		Clock:   clk,
		Board:   board,
		Display: disp,
		Log:     log,

		Timer:   oven.NewTimer(clk),
		PID:     pid.New(params),
		Modes:   modes,
		History: history.New(cfg.Plot.Width),
		Scale: history.Scale{
			Height:    cfg.Plot.Height,
			FullScale: cfg.Plot.FullScale,
		},

		Process:     cfg.Control.Process,
		FaultCutoff: cfg.Control.FaultCutoff,
	}

	ctl := &Controller{
		Context: c,
		Sensor:  NewSensorTask(c, cfg.Control.SensorPeriod),
		Control: NewControlTask(c, cfg.Control.Period),
		UI: NewUiTask(c, UiOptions{
			DebouncePeriod:  cfg.UI.DebouncePeriod,
			DebounceSamples: cfg.UI.DebounceSamples,
			Rearm:           cfg.UI.Rearm,
			DisplayPeriod:   cfg.UI.DisplayPeriod,
			Splash:          cfg.UI.Splash,
			PlotWidth:       cfg.Plot.Width,
		}),
	}
	ctl.Scheduler = NewScheduler(ctl.Sensor, ctl.Control, ctl.UI)
	ctl.Scheduler.Halt = c.Halt
	ctl.Scheduler.Idle = cfg.Control.LoopIdle
	ctl.Scheduler.Log = log

	return ctl, nil
}
