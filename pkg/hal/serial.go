package hal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/reflow/pkg/clock"
	"github.com/itohio/reflow/pkg/logger"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultBaudRate is the bridge firmware's UART speed.
const DefaultBaudRate = 115200

// HeaterKeepalive is how often an unchanged heater duty is repeated. The
// firmware switches the heater off after 2 s without an H line.
const HeaterKeepalive = 500 * time.Millisecond

// Frame is one report line from the bridge.
type Frame struct {
	Timestamp time.Time
	Readings  []float32 // °C
	Start     bool
	Stop      bool
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial talks to a microcontroller that samples the thermocouples and
// buttons and drives the heater, buzzer and fan.
//
// Input:  unix_micros,t0,t1,t2,buttons   (t in m°C or "nan", buttons "SS")
// Output: H<duty>\n, A<0|1>\n, F<0|1>\n
type Serial struct {
	port     string
	baudRate int
	overflow uint16
	log      *logger.Logger
	clock    clock.Clock

	conn      io.ReadWriteCloser
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	last    Frame
	sampled bool

	// Last values written, commands are only sent on change. The heater
	// duty is also repeated every HeaterKeepalive.
	duty     uint16
	dutySent bool
	dutyAt   time.Duration
	alarm    *bool
	fan      *bool

	start Input
	stop  Input
}

// NewSerial creates a bridge on port. overflow is the heater duty full scale.
func NewSerial(port string, baudRate int, overflow uint16, log *logger.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if overflow == 0 {
		overflow = 0xFFFF
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Serial{
		port:     port,
		baudRate: baudRate,
		overflow: overflow,
		log:      log,
		clock:    clock.NewSystem(),
	}
}

// SetClock replaces the time source used for the heater keepalive.
func (d *Serial) SetClock(clk clock.Clock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clk
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil && len(details) > 0 {
		result := make([]Port, 0, len(details))
		for _, d := range details {
			desc := d.Name
			if d.IsUSB {
				desc = fmt.Sprintf("%s %s:%s %s", d.Product, d.VID, d.PID, d.SerialNumber)
			}
			result = append(result, Port{Name: d.Name, Description: strings.TrimSpace(desc)})
		}
		return result, nil
	}

	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading frames.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrConnected
	}

	port, err := serial.Open(d.port, &serial.Mode{
		BaudRate: d.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.attach(port)
	return nil
}

// attach starts the reader on an open connection. Caller holds mu.
func (d *Serial) attach(conn io.ReadWriteCloser) {
	d.conn = conn
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.connected = true
	d.dutySent = false
	d.alarm = nil
	d.fan = nil

	go d.readFrames(d.ctx, conn)
}

// Close closes the connection and stops reading frames.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		err = d.conn.Close()
		d.conn = nil
	}
	d.connected = false

	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Board returns the bridged collaborators.
func (d *Serial) Board() Board {
	return Board{
		Sensor: serialSensor{d},
		Heater: serialHeater{d},
		Alarm:  serialAlarm{d},
		Fan:    serialFan{d},
		Start:  &d.start,
		Stop:   &d.stop,
	}
}

// Last returns the most recent frame.
func (d *Serial) Last() (Frame, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last, d.sampled
}

func (d *Serial) readFrames(ctx context.Context, r io.Reader) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Errorw("panic in serial reader", "panic", rec)
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frame, err := parseLine(line)
		if err != nil {
			d.log.Debugw("failed to parse line", "line", line, "error", err)
			continue
		}

		d.mu.Lock()
		d.last = frame
		d.sampled = true
		d.mu.Unlock()

		d.start.Set(frame.Start)
		d.stop.Set(frame.Stop)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		d.log.Warnw("error reading from serial port", "port", d.port, "error", err)
	}
}

// send writes a command line. Caller holds mu.
func (d *Serial) send(cmd string) {
	if !d.connected || d.conn == nil {
		return
	}
	if _, err := io.WriteString(d.conn, cmd); err != nil {
		d.log.Warnw("failed to send command", "command", strings.TrimSpace(cmd), "error", err)
	}
}

// parseLine parses a report line.
// Format: unix_micros,t0,t1,t2,buttons
// Example: 1234567890123,25250,nan,24000,10
func parseLine(line string) (Frame, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 5 {
		return Frame{}, fmt.Errorf("invalid line format: expected 5 comma-separated values, got %d", len(parts))
	}

	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	readings := make([]float32, 3)
	for i := range readings {
		s := strings.TrimSpace(parts[i+1])
		if strings.EqualFold(s, "nan") {
			readings[i] = math32.NaN()
			continue
		}
		mC, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Frame{}, fmt.Errorf("invalid temperature %d: %w", i, err)
		}
		readings[i] = float32(mC) / 1000
	}

	buttons := parts[4]
	if len(buttons) != 2 {
		return Frame{}, fmt.Errorf("invalid button states: expected 2 digits, got %d", len(buttons))
	}

	return Frame{
		Timestamp: time.UnixMicro(micros),
		Readings:  readings,
		Start:     buttons[0] == '1',
		Stop:      buttons[1] == '1',
	}, nil
}

type serialSensor struct{ d *Serial }

func (p serialSensor) Read() ([]float32, bool) {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	if !p.d.sampled {
		return nil, false
	}
	return append([]float32(nil), p.d.last.Readings...), true
}

type serialHeater struct{ d *Serial }

func (h serialHeater) Set(duty uint16) {
	d := h.d
	d.mu.Lock()
	defer d.mu.Unlock()

	duty = min(duty, d.overflow)
	now := d.clock.Now()
	if d.dutySent && d.duty == duty && now-d.dutyAt < HeaterKeepalive {
		return
	}
	d.duty = duty
	d.dutySent = true
	d.dutyAt = now
	d.send("H" + strconv.FormatUint(uint64(duty), 10) + "\n")
}

func (h serialHeater) Disable() { h.Set(0) }

func (h serialHeater) Overflow() uint16 { return h.d.overflow }

func sendFlag(d *Serial, last **bool, prefix string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if *last != nil && **last == on {
		return
	}
	*last = &on
	if on {
		d.send(prefix + "1\n")
	} else {
		d.send(prefix + "0\n")
	}
}

type serialAlarm struct{ d *Serial }

func (a serialAlarm) Enable()  { sendFlag(a.d, &a.d.alarm, "A", true) }
func (a serialAlarm) Disable() { sendFlag(a.d, &a.d.alarm, "A", false) }

type serialFan struct{ d *Serial }

func (f serialFan) Set(on bool) { sendFlag(f.d, &f.d.fan, "F", on) }
