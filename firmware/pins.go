//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 2  // ADC read interval in milliseconds
	NUM_SAMPLES        = 10 // Number of samples averaged per report line

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits

	// AD8495 thermocouple amplifier: 1.25V at 0°C, 5mV/°C.
	TC_OFFSET_MV     = 1250
	TC_MC_PER_MV     = 200  // m°C per mV
	TC_OPEN_LIMIT_MV = 3200 // Output saturates high with an open probe

	// Heater drive: time proportional control of a solid state relay.
	HEATER_WINDOW_MS = 1000
	PWM_OVERFLOW     = 0xFFFF // Must match control.pwm_overflow on the host
	HOST_TIMEOUT_MS  = 2000   // Heater off when the host goes quiet

	// Probe inputs: oven probe, board probe, spare
	PIN_TC0 = machine.A1
	PIN_TC1 = machine.A2
	PIN_TC2 = machine.A3

	// Outputs
	PIN_HEATER = machine.D7
	PIN_BUZZER = machine.D8
	PIN_FAN    = machine.D9

	// Buttons, active low with pull-ups
	PIN_START = machine.D4
	PIN_STOP  = machine.D5

	// Serial configuration
	// Format "unix_micros,t0,t1,t2,SS\n" is ~45 bytes; 50 lines/s needs
	// 22,500 baud at 8N1. 115200 leaves 5x headroom.
	UART_BAUD_RATE = 115200
)
