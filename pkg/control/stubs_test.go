package control

import (
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/reflow/pkg/clock"
	"github.com/itohio/reflow/pkg/config"
	"github.com/itohio/reflow/pkg/hal"
	"github.com/itohio/reflow/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubSensor struct {
	readings []float32
	ok       bool
	panics   bool
}

func (s *stubSensor) Read() ([]float32, bool) {
	if s.panics {
		panic("sensor bus fault")
	}
	return s.readings, s.ok
}

func (s *stubSensor) set(c float32) {
	s.readings = []float32{c, 21}
	s.ok = true
}

type stubHeater struct {
	duty     uint16
	sets     int
	disabled int
}

func (h *stubHeater) Set(duty uint16) {
	h.duty = duty
	h.sets++
}

func (h *stubHeater) Disable() {
	h.duty = 0
	h.disabled++
}

func (h *stubHeater) Overflow() uint16 { return 0xFFFF }

type stubAlarm struct {
	on      bool
	enables int
}

func (a *stubAlarm) Enable() {
	a.on = true
	a.enables++
}

func (a *stubAlarm) Disable() { a.on = false }

type stubFan struct{ on bool }

func (f *stubFan) Set(on bool) { f.on = on }

type stubButton struct{ pressed bool }

func (b *stubButton) Read() bool { return b.pressed }

type pos struct{ x, y int16 }

// textDisplay records what was printed where.
type textDisplay struct {
	w, h     int16
	cursor   pos
	inverted bool
	texts    map[pos]string
	pixels   map[pos]bool
	updates  int
}

func newTextDisplay() *textDisplay {
	d := &textDisplay{w: 128, h: 64}
	d.Clear()
	return d
}

func (d *textDisplay) Size() (int16, int16) { return d.w, d.h }

func (d *textDisplay) Clear() {
	d.texts = map[pos]string{}
	d.pixels = map[pos]bool{}
	d.cursor = pos{}
	d.inverted = false
}

func (d *textDisplay) SetCursor(x, y int16)      { d.cursor = pos{x, y} }
func (d *textDisplay) Print(s string)            { d.texts[d.cursor] = s }
func (d *textDisplay) SetInverted(inverted bool) { d.inverted = inverted }

func (d *textDisplay) DrawPixel(x, y int16) {
	p := pos{x, y}
	if d.inverted {
		d.pixels[p] = !d.pixels[p]
		return
	}
	d.pixels[p] = true
}

func (d *textDisplay) Update() error {
	d.updates++
	return nil
}

type rig struct {
	t      *testing.T
	clk    *clock.Manual
	sensor *stubSensor
	heater *stubHeater
	alarm  *stubAlarm
	fan    *stubFan
	start  *stubButton
	stop   *stubButton
	disp   *textDisplay
	logs   *observer.ObservedLogs
	ctl    *Controller
}

func newRig(t *testing.T, mutate func(cfg *config.Config)) *rig {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	r := &rig{
		t:      t,
		clk:    clock.NewManual(0),
		sensor: &stubSensor{},
		heater: &stubHeater{},
		alarm:  &stubAlarm{},
		fan:    &stubFan{},
		start:  &stubButton{},
		stop:   &stubButton{},
		disp:   newTextDisplay(),
		logs:   logs,
	}
	board := hal.Board{
		Sensor: r.sensor,
		Heater: r.heater,
		Alarm:  r.alarm,
		Fan:    r.fan,
		Start:  r.start,
		Stop:   r.stop,
	}

	ctl, err := New(cfg, board, r.disp, r.clk, logger.FromCore(core))
	require.NoError(t, err)
	r.ctl = ctl
	return r
}

func (r *rig) step() {
	r.t.Helper()
	require.NoError(r.t, r.ctl.Scheduler.Step())
}

// run advances the clock by d in 10ms increments, stepping each time.
func (r *rig) run(d time.Duration) {
	r.t.Helper()
	for end := r.clk.Now() + d; r.clk.Now() < end; {
		r.clk.Advance(10 * time.Millisecond)
		r.step()
	}
}

// boot runs past the splash screen and the first operating frame.
func (r *rig) boot() {
	r.t.Helper()
	r.step()
	r.run(800 * time.Millisecond)
}

// press holds b for 100ms, then releases it long enough to re-arm.
func (r *rig) press(b *stubButton) {
	r.t.Helper()
	b.pressed = true
	r.run(100 * time.Millisecond)
	b.pressed = false
	r.run(500 * time.Millisecond)
}

func (r *rig) messages(msg string) int {
	return r.logs.FilterMessage(msg).Len()
}

func nan() float32 { return math32.NaN() }
