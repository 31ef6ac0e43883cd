// Package hal defines the hardware collaborators of the oven controller
// and two implementations: a simulated oven plant and a serial bridge to a
// microcontroller that owns the real pins.
package hal

import (
	"sync/atomic"
	"time"
)

// Sensor returns the latest temperature readings in °C. Channel 0 is the
// control probe. ok is false until the first sample arrives.
type Sensor interface {
	Read() (readings []float32, ok bool)
}

// Heater is the PWM heater output.
type Heater interface {
	Set(duty uint16)
	Disable()
	Overflow() uint16
}

// Alarm is the buzzer.
type Alarm interface {
	Enable()
	Disable()
}

// Switch is a plain digital output such as the convection fan.
type Switch interface {
	Set(on bool)
}

// Button is a raw, undebounced push button. true means pressed.
type Button interface {
	Read() bool
}

// Display is a monochrome panel with a text cursor.
type Display interface {
	Size() (w, h int16)
	Clear()
	SetCursor(x, y int16)
	Print(s string)
	SetInverted(inverted bool)
	DrawPixel(x, y int16)
	Update() error
}

// Board bundles the collaborators the controller drives.
type Board struct {
	Sensor Sensor
	Heater Heater
	Alarm  Alarm
	Fan    Switch
	Start  Button
	Stop   Button
}

// Device is a board that must be connected before use (real or simulated).
type Device interface {
	Connect() error
	Close() error
	IsConnected() bool
	Board() Board
}

// Ensure implementations satisfy Device.
var (
	_ Device = (*Serial)(nil)
	_ Device = (*Sim)(nil)
)

// Input is a button level set from another goroutine (GUI, serial reader).
type Input struct {
	level atomic.Bool
}

// Set sets the raw level.
func (in *Input) Set(pressed bool) {
	in.level.Store(pressed)
}

// Read implements Button.
func (in *Input) Read() bool {
	return in.level.Load()
}

// Pulse holds the button down for d, then releases it.
func (in *Input) Pulse(d time.Duration) {
	in.Set(true)
	time.AfterFunc(d, func() { in.Set(false) })
}
