package control

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/itohio/reflow/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcTask struct {
	name string
	fn   func() error
}

func (t funcTask) Name() string { return t.name }
func (t funcTask) Step() error  { return t.fn() }

func recorder(trace *[]string, name string) funcTask {
	return funcTask{name: name, fn: func() error {
		*trace = append(*trace, name)
		return nil
	}}
}

func TestScheduler_StepOrder(t *testing.T) {
	var trace []string
	s := NewScheduler(recorder(&trace, "sensor"), recorder(&trace, "control"), recorder(&trace, "ui"))

	require.NoError(t, s.Step())
	require.NoError(t, s.Step())

	assert.Equal(t, []string{"sensor", "control", "ui", "sensor", "control", "ui"}, trace)
	assert.Equal(t, uint64(2), s.Passes())
}

func TestScheduler_ErrorHalts(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	halted := 0

	s := NewScheduler(
		recorder(&trace, "a"),
		funcTask{name: "b", fn: func() error { return boom }},
		recorder(&trace, "c"),
	)
	s.Halt = func() { halted++ }

	err := s.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "task b")
	assert.Equal(t, []string{"a"}, trace, "later tasks do not run")
	assert.Equal(t, 1, halted)
	assert.Zero(t, s.Passes())
}

func TestScheduler_PanicHalts(t *testing.T) {
	halted := 0
	s := NewScheduler(funcTask{name: "bad", fn: func() error { panic("corrupt state") }})
	s.Halt = func() { halted++ }

	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "corrupt state")
	assert.Equal(t, 1, halted)
}

func TestScheduler_CancelIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	halted := 0
	steps := 0
	s := NewScheduler(funcTask{name: "count", fn: func() error {
		steps++
		if steps == 3 {
			cancel()
		}
		return nil
	}})
	s.Halt = func() { halted++ }
	s.Idle = time.Millisecond

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 3, steps)
	assert.Equal(t, uint64(3), s.Passes())
	assert.Equal(t, 1, halted)
}

func TestScheduler_CancelledBeforeRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	steps := 0
	s := NewScheduler(funcTask{name: "count", fn: func() error {
		steps++
		return nil
	}})

	require.NoError(t, s.Run(ctx))
	assert.Zero(t, steps)
}

func TestController_HaltsOutputsOnTaskFailure(t *testing.T) {
	r := newRig(t, nil)
	r.boot()
	r.sensor.set(10)
	r.press(r.start)
	r.run(time.Second)
	require.True(t, r.ctl.Running())
	require.NotZero(t, r.heater.duty)

	r.sensor.panics = true
	r.clk.Advance(20 * time.Millisecond)

	err := r.ctl.Scheduler.Run(context.Background())
	require.ErrorIs(t, err, ErrInvariant)

	assert.False(t, r.ctl.Running())
	assert.Zero(t, r.heater.duty)
	assert.NotZero(t, r.heater.disabled)
	assert.False(t, r.alarm.on)
	assert.Equal(t, 1, r.messages("scheduler halted"))
}

func TestNew_InvalidConfig(t *testing.T) {
	r := newRig(t, nil)

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"no profiles", func(cfg *config.Config) { cfg.Profiles = nil }},
		{"nan gain", func(cfg *config.Config) { cfg.Control.Kp = math.NaN() }},
		{"negative windup", func(cfg *config.Config) { cfg.Control.IntegralLimit = -1 }},
		{"empty constant range", func(cfg *config.Config) { cfg.Constant.Step = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			_, err := New(cfg, r.ctl.Board, r.disp, r.clk, nil)
			assert.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}
