package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/itohio/reflow/pkg/profile"
	"gopkg.in/yaml.v3"
)

// Temperature limits of the probe. Readings outside are sensor faults.
const (
	MinTempC = 0
	MaxTempC = 400
)

var ErrInvalid = errors.New("invalid configuration")

// Config represents the controller configuration.
type Config struct {
	Serial   SerialConfig    `yaml:"serial"`
	Log      LogConfig       `yaml:"log"`
	Control  ControlConfig   `yaml:"control"`
	Profiles []ProfileConfig `yaml:"profiles"`
	Constant ConstantConfig  `yaml:"constant"`
	UI       UIConfig        `yaml:"ui"`
	Plot     PlotConfig      `yaml:"plot"`
	Display  DisplayConfig   `yaml:"display"`
	Sim      SimConfig       `yaml:"sim"`
}

// SerialConfig contains the serial bridge configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// LogConfig selects the log level and, optionally, a serial port that
// receives the log instead of stdout.
type LogConfig struct {
	Level string `yaml:"level"`
	Port  string `yaml:"port"`
	Baud  int    `yaml:"baud"`
}

// ControlConfig contains the PID and process parameters.
type ControlConfig struct {
	Kp            float64       `yaml:"kp"`
	Ki            float64       `yaml:"ki"`
	Kd            float64       `yaml:"kd"`
	IntegralLimit int32         `yaml:"integral_limit"` // Bound of the accumulated error in m°C; 0 disables
	OutMin        int32         `yaml:"out_min"`
	OutMax        int32         `yaml:"out_max"`
	Period        time.Duration `yaml:"period"`           // PID update interval
	SensorPeriod  time.Duration `yaml:"sensor_period"`    // Sensor polling interval
	Process       time.Duration `yaml:"process_duration"` // Length of one reflow run
	PWMOverflow   uint16        `yaml:"pwm_overflow"`     // Maximum heater duty value
	FaultCutoff   int           `yaml:"fault_cutoff"`     // Consecutive invalid readings that stop a run; 0 holds the last output forever
	LoopIdle      time.Duration `yaml:"loop_idle"`        // Sleep between scheduler passes on a host OS
}

// ProfileConfig is one selectable reflow curve.
type ProfileConfig struct {
	Name          string        `yaml:"name"`
	Label         string        `yaml:"label"`
	Cooldown      time.Duration `yaml:"cooldown"`
	Interpolation string        `yaml:"interpolation,omitempty"`
	// Points are [time in ms, temperature in m°C] pairs.
	Points [][]int64 `yaml:"points,flow"`
}

// ConstantConfig configures the constant setpoint mode, in °C.
type ConstantConfig struct {
	Base int `yaml:"base"`
	Step int `yaml:"step"`
	Max  int `yaml:"max"`
}

// UIConfig contains button and display timing.
type UIConfig struct {
	DebouncePeriod  time.Duration `yaml:"debounce_period"`
	DebounceSamples int           `yaml:"debounce_samples"`
	Rearm           time.Duration `yaml:"rearm"`
	DisplayPeriod   time.Duration `yaml:"display_period"`
	Splash          time.Duration `yaml:"splash"`
}

// PlotConfig describes the strip chart.
type PlotConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	FullScale float32 `yaml:"full_scale"` // °C at the top row
}

// DisplayConfig describes the monochrome panel.
type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SimConfig contains the simulated oven plant parameters.
type SimConfig struct {
	Ambient      float64       `yaml:"ambient"`       // °C
	HeaterPower  float64       `yaml:"heater_power"`  // W at full duty
	HeatCapacity float64       `yaml:"heat_capacity"` // J/K
	Loss         float64       `yaml:"loss"`          // W/K to ambient
	FanLoss      float64       `yaml:"fan_loss"`      // extra W/K while the fan runs
	SensorLag    time.Duration `yaml:"sensor_lag"`    // probe time constant
	NoiseLevel   float64       `yaml:"noise_level"`   // °C
	Step         time.Duration `yaml:"step"`          // simulation step
}

// Default returns a default configuration matching the stock oven.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "/dev/ttyUSB0",
			Baud: 115200,
		},
		Log: LogConfig{
			Level: "info",
			Baud:  115200,
		},
		Control: ControlConfig{
			Kp:            2.1337,
			Ki:            -0.25,
			Kd:            3,
			IntegralLimit: 40000,
			OutMin:        -0xFFFF,
			OutMax:        0xFFFF,
			Period:        500 * time.Millisecond,
			SensorPeriod:  10 * time.Millisecond,
			Process:       360 * time.Second,
			PWMOverflow:   0xFFFF,
			FaultCutoff:   0,
			LoopIdle:      time.Millisecond,
		},
		Profiles: []ProfileConfig{
			fromCurve(profile.NoPb),
			fromCurve(profile.Pb),
		},
		Constant: ConstantConfig{
			Base: 50,
			Step: 5,
			Max:  260,
		},
		UI: UIConfig{
			DebouncePeriod:  10 * time.Millisecond,
			DebounceSamples: 5,
			Rearm:           500 * time.Millisecond,
			DisplayPeriod:   200 * time.Millisecond,
			Splash:          500 * time.Millisecond,
		},
		Plot: PlotConfig{
			Width:     128,
			Height:    48,
			FullScale: 260,
		},
		Display: DisplayConfig{
			Width:  128,
			Height: 64,
		},
		Sim: SimConfig{
			Ambient:      22,
			HeaterPower:  1400,
			HeatCapacity: 900,
			Loss:         4,
			FanLoss:      0.5,
			SensorLag:    4 * time.Second,
			NoiseLevel:   0.2,
			Step:         10 * time.Millisecond,
		},
	}
}

func fromCurve(c *profile.Curve) ProfileConfig {
	pts := c.Points()
	out := ProfileConfig{
		Name:     c.Name(),
		Label:    c.Label(),
		Cooldown: c.Cooldown(),
		Points:   make([][]int64, len(pts)),
	}
	if c.Interpolation() != profile.Linear {
		out.Interpolation = c.Interpolation().String()
	}
	for i, p := range pts {
		out.Points[i] = []int64{p.Time.Milliseconds(), int64(p.Temp)}
	}
	return out
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. The result is validated.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills fields left at their zero value.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Baud == 0 {
		c.Log.Baud = def.Log.Baud
	}

	if c.Control.Period == 0 {
		c.Control.Period = def.Control.Period
	}
	if c.Control.SensorPeriod == 0 {
		c.Control.SensorPeriod = def.Control.SensorPeriod
	}
	if c.Control.Process == 0 {
		c.Control.Process = def.Control.Process
	}
	if c.Control.PWMOverflow == 0 {
		c.Control.PWMOverflow = def.Control.PWMOverflow
	}
	if c.Control.OutMin == 0 && c.Control.OutMax == 0 {
		c.Control.OutMin = def.Control.OutMin
		c.Control.OutMax = def.Control.OutMax
	}

	if len(c.Profiles) == 0 {
		c.Profiles = def.Profiles
	}

	if c.Constant.Step == 0 {
		c.Constant = def.Constant
	}

	if c.UI.DebouncePeriod == 0 {
		c.UI.DebouncePeriod = def.UI.DebouncePeriod
	}
	if c.UI.DebounceSamples == 0 {
		c.UI.DebounceSamples = def.UI.DebounceSamples
	}
	if c.UI.Rearm == 0 {
		c.UI.Rearm = def.UI.Rearm
	}
	if c.UI.DisplayPeriod == 0 {
		c.UI.DisplayPeriod = def.UI.DisplayPeriod
	}

	if c.Plot.Width == 0 {
		c.Plot.Width = def.Plot.Width
	}
	if c.Plot.Height == 0 {
		c.Plot.Height = def.Plot.Height
	}
	if c.Plot.FullScale == 0 {
		c.Plot.FullScale = def.Plot.FullScale
	}
	if c.Display.Width == 0 {
		c.Display.Width = def.Display.Width
	}
	if c.Display.Height == 0 {
		c.Display.Height = def.Display.Height
	}

	if c.Sim.Step == 0 {
		c.Sim.Step = def.Sim.Step
	}
	if c.Sim.HeatCapacity == 0 {
		c.Sim.HeatCapacity = def.Sim.HeatCapacity
	}
}

// Validate reports the first inconsistency that would leave the controller
// in an undefined state.
func (c *Config) Validate() error {
	ctl := c.Control
	for _, g := range []float64{ctl.Kp, ctl.Ki, ctl.Kd} {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("%w: PID gains must be finite", ErrInvalid)
		}
	}
	if ctl.OutMin > ctl.OutMax {
		return fmt.Errorf("%w: out_min %d exceeds out_max %d", ErrInvalid, ctl.OutMin, ctl.OutMax)
	}
	if ctl.Period <= 0 || ctl.SensorPeriod <= 0 || ctl.Process <= 0 {
		return fmt.Errorf("%w: control periods and process duration must be positive", ErrInvalid)
	}
	if ctl.FaultCutoff < 0 {
		return fmt.Errorf("%w: fault_cutoff must not be negative", ErrInvalid)
	}

	if _, err := c.Curves(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.ConstantRange().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Constant.Max > MaxTempC {
		return fmt.Errorf("%w: constant max %d°C above probe limit", ErrInvalid, c.Constant.Max)
	}

	if c.UI.DebouncePeriod <= 0 || c.UI.DisplayPeriod <= 0 || c.UI.DebounceSamples < 1 {
		return fmt.Errorf("%w: ui periods must be positive", ErrInvalid)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("%w: display size must be positive", ErrInvalid)
	}
	if c.Plot.Width <= 0 || c.Plot.Width > c.Display.Width || c.Plot.Height <= 0 || c.Plot.Height >= c.Display.Height {
		return fmt.Errorf("%w: plot %dx%d does not fit display %dx%d", ErrInvalid,
			c.Plot.Width, c.Plot.Height, c.Display.Width, c.Display.Height)
	}
	if c.Plot.FullScale <= 0 {
		return fmt.Errorf("%w: plot full_scale must be positive", ErrInvalid)
	}
	if c.Control.Process/time.Duration(c.Plot.Width) <= 0 {
		return fmt.Errorf("%w: process too short for plot width", ErrInvalid)
	}
	return nil
}

// Curves converts the configured profiles into validated curves.
func (c *Config) Curves() ([]*profile.Curve, error) {
	if len(c.Profiles) == 0 {
		return nil, profile.ErrNoCurves
	}
	curves := make([]*profile.Curve, 0, len(c.Profiles))
	for i, pc := range c.Profiles {
		interp, err := profile.ParseInterpolation(pc.Interpolation)
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", i, err)
		}
		points := make([]profile.Point, len(pc.Points))
		for j, p := range pc.Points {
			if len(p) != 2 {
				return nil, fmt.Errorf("profile %q point %d: want [ms, mC], got %d values", pc.Name, j, len(p))
			}
			if p[1] < MinTempC*1000 || p[1] > MaxTempC*1000 {
				return nil, fmt.Errorf("profile %q point %d: temperature %d m°C outside probe range", pc.Name, j, p[1])
			}
			points[j] = profile.Point{
				Time: time.Duration(p[0]) * time.Millisecond,
				Temp: profile.Millidegrees(p[1]),
			}
		}
		curve, err := profile.NewCurve(pc.Name, points, profile.Options{
			Label:         pc.Label,
			Cooldown:      pc.Cooldown,
			Interpolation: interp,
		})
		if err != nil {
			return nil, err
		}
		curves = append(curves, curve)
	}
	return curves, nil
}

// ConstantRange converts the constant mode settings to millidegrees.
func (c *Config) ConstantRange() profile.ConstantRange {
	return profile.ConstantRange{
		Base: profile.Millidegrees(c.Constant.Base * 1000),
		Step: profile.Millidegrees(c.Constant.Step * 1000),
		Max:  profile.Millidegrees(c.Constant.Max * 1000),
	}
}
