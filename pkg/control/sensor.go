package control

import (
	"time"

	"github.com/itohio/reflow/pkg/clock"
)

// SensorTask polls the sensor collaborator and caches its readings.
type SensorTask struct {
	c      *Context
	period *clock.PeriodicTimer
}

func NewSensorTask(c *Context, period time.Duration) *SensorTask {
	return &SensorTask{
		c:      c,
		period: clock.NewPeriodicTimer(c.Clock, period),
	}
}

func (t *SensorTask) Name() string { return "sensor" }

func (t *SensorTask) Step() error {
	if !t.period.Execute() {
		return nil
	}
	if readings, ok := t.c.Board.Sensor.Read(); ok {
		t.c.Probe(readings)
	}
	return nil
}
