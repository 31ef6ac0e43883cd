//go:build tinygo

//go:generate tinygo flash -target=xiao

// Bridge firmware for the reflow oven: samples thermocouples and buttons,
// reports them over serial and drives the heater, buzzer and fan on command.
//
// Report: unix_micros,t0,t1,t2,buttons   (m°C or "nan", buttons "SS")
// Commands: H<duty>, A<0|1>, F<0|1>, one per line.
package main

import (
	"machine"
	"time"
)

var (
	adcs = [3]machine.ADC{}
	uart = machine.UART0

	// ADC averaging - running sums
	sums  [3]uint32
	count int

	// Heater window
	duty        uint32
	windowStart time.Time
	lastCommand time.Time

	// Timing
	lastADCRead time.Time

	// Serial buffer for reading lines
	serialBuffer [16]byte
	serialPos    int
)

func main() {
	PIN_HEATER.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_BUZZER.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_FAN.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_HEATER.Low()
	PIN_BUZZER.Low()
	PIN_FAN.Low()

	PIN_START.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_STOP.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i, pin := range [3]machine.Pin{PIN_TC0, PIN_TC1, PIN_TC2} {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastADCRead = time.Now()
	windowStart = lastADCRead
	lastCommand = lastADCRead

	for {
		now := time.Now()

		processSerial(now)
		driveHeater(now)

		if now.Sub(lastADCRead) >= SAMPLE_INTERVAL_MS*time.Millisecond {
			for i := range adcs {
				sums[i] += uint32(adcs[i].Get())
			}
			count++
			lastADCRead = now
		}

		if count >= NUM_SAMPLES {
			report(now)
			sums = [3]uint32{}
			count = 0
		}

		time.Sleep(100 * time.Microsecond)
	}
}

// driveHeater switches the relay on for duty/PWM_OVERFLOW of each window.
func driveHeater(now time.Time) {
	if now.Sub(lastCommand) > HOST_TIMEOUT_MS*time.Millisecond {
		duty = 0
	}

	elapsed := now.Sub(windowStart)
	if elapsed >= HEATER_WINDOW_MS*time.Millisecond {
		windowStart = now
		elapsed = 0
	}

	on := uint64(elapsed/time.Millisecond)*PWM_OVERFLOW < uint64(duty)*HEATER_WINDOW_MS
	PIN_HEATER.Set(on)
}

func report(now time.Time) {
	print(now.UnixNano() / 1000)
	for i := range sums {
		print(",")
		// ADC.Get is scaled to 16 bits regardless of resolution.
		mv := sums[i] / uint32(count) * ADC_REFERENCE_MV / 0xFFFF
		if mv >= TC_OPEN_LIMIT_MV {
			print("nan")
			continue
		}
		print((int32(mv) - TC_OFFSET_MV) * TC_MC_PER_MV)
	}
	print(",")
	printButton(PIN_START)
	printButton(PIN_STOP)
	print("\n")
}

func printButton(pin machine.Pin) {
	if pin.Get() {
		print("0")
	} else {
		print("1")
	}
}

func processSerial(now time.Time) {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos > 1 {
				execute(now, serialBuffer[:serialPos])
			}
			serialPos = 0
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			// Overlong line, drop it
			serialPos = 0
		}
	}
}

func execute(now time.Time, cmd []byte) {
	arg, ok := parseUint(cmd[1:])
	if !ok {
		return
	}

	switch cmd[0] {
	case 'H':
		if arg > PWM_OVERFLOW {
			arg = PWM_OVERFLOW
		}
		duty = arg
		lastCommand = now
	case 'A':
		PIN_BUZZER.Set(arg != 0)
	case 'F':
		PIN_FAN.Set(arg != 0)
	}
}

func parseUint(b []byte) (uint32, bool) {
	var v uint32
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint32(c-'0')
	}
	return v, len(b) > 0
}
