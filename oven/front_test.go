package main

import (
	"testing"
	"time"

	"github.com/itohio/reflow/pkg/config"
	"github.com/itohio/reflow/pkg/hal"
	"github.com/stretchr/testify/assert"
)

func TestFrontPanel_MirrorsOutputs(t *testing.T) {
	cfg := config.Default()
	sim := hal.NewSim(&cfg.Sim, 1000)
	front, board := newFrontPanel(sim.Board())

	changes := 0
	front.onChange = func() { changes++ }

	board.Heater.Set(500)
	assert.Equal(t, uint16(500), sim.Duty())
	assert.Equal(t, uint32(50), front.DutyPercent())
	assert.Equal(t, 1, changes)

	board.Heater.Set(501)
	assert.Equal(t, 1, changes, "same percentage does not notify")

	board.Heater.Disable()
	assert.Equal(t, uint16(0), sim.Duty())
	assert.Equal(t, uint32(0), front.DutyPercent())
	assert.Equal(t, 2, changes)

	board.Alarm.Enable()
	board.Alarm.Enable()
	assert.True(t, sim.AlarmOn())
	assert.True(t, front.alarm.Load())
	assert.Equal(t, 3, changes)

	board.Fan.Set(true)
	assert.True(t, sim.FanOn())
	assert.True(t, front.fanOn.Load())
	assert.Equal(t, 4, changes)
}

func TestFrontPanel_ButtonsCombine(t *testing.T) {
	cfg := config.Default()
	sim := hal.NewSim(&cfg.Sim, 1000)
	front, board := newFrontPanel(sim.Board())

	assert.False(t, board.Start.Read())

	simStart := sim.Board().Start.(*hal.Input)
	simStart.Set(true)
	assert.True(t, board.Start.Read(), "board button")
	simStart.Set(false)

	front.stop.Press()
	assert.True(t, board.Stop.Read(), "front panel press")
	assert.False(t, board.Start.Read())
	assert.Eventually(t, func() bool { return !board.Stop.Read() }, time.Second, 5*time.Millisecond)
}
