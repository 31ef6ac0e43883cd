package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/reflow/pkg/hal"
)

// pressDuration is long enough for the debouncer to accept a press.
const pressDuration = 150 * time.Millisecond

// panelButton ORs the board button with a front panel press.
type panelButton struct {
	hal.Button
	local hal.Input
}

func (b *panelButton) Read() bool {
	return b.local.Read() || b.Button.Read()
}

// Press simulates a short push.
func (b *panelButton) Press() {
	b.local.Pulse(pressDuration)
}

// frontPanel overlays the desktop controls on a board: extra push buttons
// and indicators mirroring the outputs. Outputs are written by the
// scheduler goroutine and read by the UI.
type frontPanel struct {
	start *panelButton
	stop  *panelButton

	fan      hal.Switch
	overflow uint16
	duty     atomic.Uint32
	alarm    atomic.Bool
	fanOn    atomic.Bool

	// onChange is called from the scheduler goroutine when an output
	// changes state.
	onChange func()

	heaterBtn *widget.Button
	alarmBtn  *widget.Button
	fanBtn    *widget.Button
}

func newFrontPanel(board hal.Board) (*frontPanel, hal.Board) {
	f := &frontPanel{
		start:    &panelButton{Button: board.Start},
		stop:     &panelButton{Button: board.Stop},
		fan:      board.Fan,
		overflow: board.Heater.Overflow(),
	}
	return f, hal.Board{
		Sensor: board.Sensor,
		Heater: observedHeater{Heater: board.Heater, f: f},
		Alarm:  observedAlarm{Alarm: board.Alarm, f: f},
		Fan:    observedFan{Switch: board.Fan, f: f},
		Start:  f.start,
		Stop:   f.stop,
	}
}

func (f *frontPanel) changed() {
	if f.onChange != nil {
		f.onChange()
	}
}

func (f *frontPanel) setDuty(duty uint16) {
	old := f.duty.Swap(uint32(duty))
	if f.percent(old) != f.percent(uint32(duty)) || (old == 0) != (duty == 0) {
		f.changed()
	}
}

func (f *frontPanel) percent(duty uint32) uint32 {
	return duty * 100 / uint32(f.overflow)
}

func (f *frontPanel) setAlarm(on bool) {
	if f.alarm.Swap(on) != on {
		f.changed()
	}
}

func (f *frontPanel) setFan(on bool) {
	if f.fanOn.Swap(on) != on {
		f.changed()
	}
}

// DutyPercent returns the heater duty in percent of full scale.
func (f *frontPanel) DutyPercent() uint32 {
	return f.percent(f.duty.Load())
}

type observedHeater struct {
	hal.Heater
	f *frontPanel
}

func (h observedHeater) Set(duty uint16) {
	h.Heater.Set(duty)
	h.f.setDuty(duty)
}

func (h observedHeater) Disable() {
	h.Heater.Disable()
	h.f.setDuty(0)
}

type observedAlarm struct {
	hal.Alarm
	f *frontPanel
}

func (a observedAlarm) Enable() {
	a.Alarm.Enable()
	a.f.setAlarm(true)
}

func (a observedAlarm) Disable() {
	a.Alarm.Disable()
	a.f.setAlarm(false)
}

type observedFan struct {
	hal.Switch
	f *frontPanel
}

func (s observedFan) Set(on bool) {
	s.Switch.Set(on)
	s.f.setFan(on)
}

// createToolbar creates the Start/Temp and Stop/Mode buttons and the output
// indicators. Tapping the fan indicator toggles the fan.
func createToolbar(f *frontPanel) fyne.CanvasObject {
	startBtn := widget.NewButtonWithIcon("Start / Temp", theme.MediaPlayIcon(), f.start.Press)
	stopBtn := widget.NewButtonWithIcon("Stop / Mode", theme.MediaStopIcon(), f.stop.Press)

	f.heaterBtn = widget.NewButtonWithIcon("", theme.ColorChromaticIcon(), nil)
	f.alarmBtn = widget.NewButtonWithIcon("", theme.VolumeUpIcon(), nil)
	f.fanBtn = widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		on := !f.fanOn.Load()
		f.fan.Set(on)
		f.fanOn.Store(on)
		updateIndicators(f)
	})

	f.onChange = func() {
		fyne.Do(func() { updateIndicators(f) })
	}
	updateIndicators(f)

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(startBtn, stopBtn),                 // left
		container.NewHBox(f.heaterBtn, f.alarmBtn, f.fanBtn), // right
		nil, // center (spacer)
	)
}

// updateIndicators updates the visual state of the indicator buttons.
func updateIndicators(f *frontPanel) {
	duty := f.DutyPercent()
	f.heaterBtn.SetText(fmt.Sprintf("%d%%", duty))
	updateIndicator(f.heaterBtn, duty > 0)
	updateIndicator(f.alarmBtn, f.alarm.Load())
	updateIndicator(f.fanBtn, f.fanOn.Load())
}

// updateIndicator updates a single indicator's visual state.
func updateIndicator(btn *widget.Button, isOn bool) {
	if isOn {
		btn.Importance = widget.HighImportance
	} else {
		btn.Importance = widget.MediumImportance
	}
	btn.Refresh()
}
