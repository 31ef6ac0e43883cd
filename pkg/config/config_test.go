package config

import (
	"os"
	"testing"
	"time"

	"github.com/itohio/reflow/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 2.1337, cfg.Control.Kp)
	assert.Equal(t, -0.25, cfg.Control.Ki)
	assert.Equal(t, float64(3), cfg.Control.Kd)
	assert.Equal(t, int32(40000), cfg.Control.IntegralLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.Control.Period)
	assert.Equal(t, 360*time.Second, cfg.Control.Process)
	assert.Equal(t, uint16(0xFFFF), cfg.Control.PWMOverflow)
	assert.Len(t, cfg.Profiles, 2)
	assert.Equal(t, ConstantConfig{Base: 50, Step: 5, Max: 260}, cfg.Constant)
	assert.Equal(t, 5, cfg.UI.DebounceSamples)
	assert.Equal(t, 128, cfg.Plot.Width)
	assert.Equal(t, 48, cfg.Plot.Height)
	assert.NoError(t, cfg.Validate())
}

func TestDefault_CurvesMatchBuiltin(t *testing.T) {
	curves, err := Default().Curves()
	require.NoError(t, err)
	require.Len(t, curves, 2)

	assert.Equal(t, profile.NoPb.Points(), curves[0].Points())
	assert.Equal(t, profile.Pb.Points(), curves[1].Points())
	assert.Equal(t, profile.NoPb.Cooldown(), curves[0].Cooldown())
	assert.Equal(t, "  Pb", curves[1].Label())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeTemp(t, `
serial:
  port: "/dev/ttyACM0"

control:
  kp: 1.5
  ki: 0
  kd: 0
  period: 250ms
  process_duration: 4m
  fault_cutoff: 20

profiles:
  - name: lowtemp
    label: "LT"
    cooldown: 3m
    points: [[0, 20000], [60000, 100000], [120000, 150000], [180000, 0]]
  - name: smooth
    label: "SM"
    interpolation: monotone
    points: [[0, 20000], [60000, 100000], [120000, 180000]]

constant:
  base: 40
  step: 10
  max: 200
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 1.5, cfg.Control.Kp)
	assert.Equal(t, 250*time.Millisecond, cfg.Control.Period)
	assert.Equal(t, 4*time.Minute, cfg.Control.Process)
	assert.Equal(t, 20, cfg.Control.FaultCutoff)
	assert.Equal(t, profile.ConstantRange{Base: 40000, Step: 10000, Max: 200000}, cfg.ConstantRange())

	curves, err := cfg.Curves()
	require.NoError(t, err)
	require.Len(t, curves, 2)
	assert.Equal(t, "LT", curves[0].Label())
	assert.Equal(t, 3*time.Minute, curves[0].Cooldown())
	assert.Equal(t, profile.Millidegrees(60000), curves[0].Target(30*time.Second))
	assert.Equal(t, profile.Monotone, curves[1].Interpolation())
}

func TestLoad_InvalidYAML(t *testing.T) {
	name := writeTemp(t, "invalid: yaml: content: [")

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	name := writeTemp(t, `
serial:
  port: "/dev/ttyACM0"
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.Control.Period)
	assert.Len(t, cfg.Profiles, 2)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unordered profile",
			yaml: `
profiles:
  - name: bad
    points: [[0, 20000], [60000, 100000], [30000, 150000]]
`,
		},
		{
			name: "first point not at zero",
			yaml: `
profiles:
  - name: bad
    points: [[1000, 20000]]
`,
		},
		{
			name: "point arity",
			yaml: `
profiles:
  - name: bad
    points: [[0]]
`,
		},
		{
			name: "temperature above probe range",
			yaml: `
profiles:
  - name: bad
    points: [[0, 500000]]
`,
		},
		{
			name: "unknown interpolation",
			yaml: `
profiles:
  - name: bad
    interpolation: spline
    points: [[0, 20000]]
`,
		},
		{
			name: "inverted output clamp",
			yaml: `
control:
  out_min: 10
  out_max: -10
`,
		},
		{
			name: "plot taller than display",
			yaml: `
plot:
  height: 64
`,
		},
		{
			name: "negative fault cutoff",
			yaml: `
control:
  fault_cutoff: -1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeTemp(t, tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Nil(t, cfg)
		})
	}
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB1"
	cfg.Control.FaultCutoff = 50

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())
	require.NoError(t, tmpfile.Close())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", loaded.Serial.Port)
	assert.Equal(t, 50, loaded.Control.FaultCutoff)
	assert.Equal(t, cfg.Profiles, loaded.Profiles)
	assert.Equal(t, cfg.Control.Period, loaded.Control.Period)
}
