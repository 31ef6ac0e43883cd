package hal

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/reflow/pkg/config"
)

var (
	ErrConnected    = errors.New("already connected")
	ErrNotConnected = errors.New("not connected")
)

// Sim simulates the oven: a lumped heat capacity driven by the heater and
// losing heat to ambient, observed through a lagging, noisy probe.
type Sim struct {
	cfg      config.SimConfig
	overflow uint16

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Outputs
	duty  uint16
	alarm bool
	fan   bool

	// Plant state
	elapsed time.Duration
	chamber float64 // °C
	probe   float64 // °C
	sampled bool
	fault   *float32

	start Input
	stop  Input
}

// NewSim creates a simulated oven. overflow is the heater duty full scale.
func NewSim(cfg *config.SimConfig, overflow uint16) *Sim {
	if cfg == nil {
		def := config.Default().Sim
		cfg = &def
	}
	if overflow == 0 {
		overflow = math.MaxUint16
	}
	c := *cfg
	if c.Step <= 0 {
		c.Step = 10 * time.Millisecond
	}
	if c.HeatCapacity <= 0 {
		c.HeatCapacity = 1
	}
	return &Sim{
		cfg:      c,
		overflow: overflow,
		chamber:  cfg.Ambient,
		probe:    cfg.Ambient,
	}
}

// Connect starts advancing the plant in real time.
func (s *Sim) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return ErrConnected
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.connected = true

	go s.run(s.ctx)

	return nil
}

// Close stops the simulation.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()
	s.connected = false
	return nil
}

// IsConnected returns whether the simulation is running.
func (s *Sim) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Board returns the simulated collaborators.
func (s *Sim) Board() Board {
	return Board{
		Sensor: simSensor{s},
		Heater: simHeater{s},
		Alarm:  simAlarm{s},
		Fan:    simFan{s},
		Start:  &s.start,
		Stop:   &s.stop,
	}
}

func (s *Sim) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Advance(s.cfg.Step)
		}
	}
}

// Advance integrates the plant over dt.
func (s *Sim) Advance(dt time.Duration) {
	if dt <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sec := dt.Seconds()
	power := s.cfg.HeaterPower * float64(s.duty) / float64(s.overflow)
	loss := s.cfg.Loss
	if s.fan {
		loss += s.cfg.FanLoss
	}
	s.chamber += (power - loss*(s.chamber-s.cfg.Ambient)) * sec / s.cfg.HeatCapacity

	alpha := 1.0
	if s.cfg.SensorLag > 0 {
		alpha = math.Min(sec/s.cfg.SensorLag.Seconds(), 1)
	}
	s.probe += alpha * (s.chamber - s.probe)

	s.elapsed += dt
	s.sampled = true
}

// noise is deterministic so runs are reproducible.
func (s *Sim) noise() float64 {
	t := float64(s.elapsed.Milliseconds())
	return (math.Sin(t*0.0071) + math.Cos(t*0.0113)) * s.cfg.NoiseLevel * 0.5
}

// Temperature returns the chamber temperature in °C.
func (s *Sim) Temperature() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chamber
}

// SetTemperature forces chamber and probe to c.
func (s *Sim) SetTemperature(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chamber = c
	s.probe = c
}

// InjectFault makes the probe report v (NaN, out of range) until
// ClearFault is called.
func (s *Sim) InjectFault(v float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = &v
}

// ClearFault restores normal probe readings.
func (s *Sim) ClearFault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = nil
}

// Duty returns the last heater duty.
func (s *Sim) Duty() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duty
}

// AlarmOn reports whether the buzzer sounds.
func (s *Sim) AlarmOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alarm
}

// FanOn reports whether the fan runs.
func (s *Sim) FanOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fan
}

type simSensor struct{ s *Sim }

func (p simSensor) Read() ([]float32, bool) {
	s := p.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.sampled {
		return nil, false
	}
	probe := float32(s.probe + s.noise())
	if s.fault != nil {
		probe = *s.fault
	}
	return []float32{probe, math32.Round(float32(s.cfg.Ambient)*4) / 4}, true
}

type simHeater struct{ s *Sim }

func (h simHeater) Set(duty uint16) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.duty = min(duty, h.s.overflow)
}

func (h simHeater) Disable() { h.Set(0) }

func (h simHeater) Overflow() uint16 { return h.s.overflow }

type simAlarm struct{ s *Sim }

func (a simAlarm) Enable()  { a.set(true) }
func (a simAlarm) Disable() { a.set(false) }

func (a simAlarm) set(on bool) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.alarm = on
}

type simFan struct{ s *Sim }

func (f simFan) Set(on bool) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.fan = on
}
