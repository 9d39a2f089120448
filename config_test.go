package yarpwbi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "10ms", c.Period)
	assert.Equal(t, DefaultPeriod, c.PeriodDuration())
	assert.Equal(t, WindowConfig{WindowLength: 16, Threshold: 1.0}, c.Velocity)
	assert.Equal(t, WindowConfig{WindowLength: 25, Threshold: 1.0}, c.Acceleration)
	assert.Equal(t, WindowConfig{WindowLength: 30, Threshold: 0.2}, c.JointTorqueDerivative)
	assert.Equal(t, WindowConfig{WindowLength: 30, Threshold: 0.2}, c.MotorTorqueDerivative)
	assert.Equal(t, CutFrequencyConfig{JointTorque: 3, MotorTorque: 3, PWM: 3}, c.CutFrequencies)
	assert.False(t, c.FilterStalePWM)
	assert.ErrorIs(t, c.Validate(), ErrMissingRobotName)
	require.NoError(t, c.validateParams())
}

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(`
robot_name: icub
period: 5ms
log_level: debug
filter_stale_pwm: true
velocity:
  window_length: 8
acceleration:
  threshold: 0.5
cut_frequencies:
  pwm: 10
`))
	require.NoError(t, err)
	assert.Equal(t, "icub", c.RobotName)
	assert.Equal(t, 5*time.Millisecond, c.PeriodDuration())
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.FilterStalePWM)
	assert.Equal(t, WindowConfig{WindowLength: 8, Threshold: 1.0}, c.Velocity)
	assert.Equal(t, WindowConfig{WindowLength: 25, Threshold: 0.5}, c.Acceleration)
	assert.Equal(t, CutFrequencyConfig{JointTorque: 3, MotorTorque: 3, PWM: 10}, c.CutFrequencies)
}

func TestParseConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		want error
	}{
		{"no robot", "period: 10ms", ErrMissingRobotName},
		{"bad period", "robot_name: r\nperiod: soon", ErrInvalidParameter},
		{"negative period", "robot_name: r\nperiod: -1ms", ErrInvalidParameter},
		{"negative window", "robot_name: r\nvelocity:\n  window_length: -2", ErrInvalidParameter},
		{"negative threshold", "robot_name: r\njoint_torque_derivative:\n  threshold: -0.1", ErrInvalidParameter},
		{"negative cut frequency", "robot_name: r\ncut_frequencies:\n  joint_torque: -3", ErrInvalidParameter},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	_, err := ParseConfig([]byte("robot_name: [unclosed"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wbs.yaml")
	c := DefaultConfig()
	c.RobotName = "icubSim"
	c.Velocity.WindowLength = 12
	data, err := c.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "icubSim", loaded.RobotName)
	assert.Equal(t, 12, loaded.Velocity.WindowLength)
	assert.Equal(t, c.CutFrequencies, loaded.CutFrequencies)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestPeriodDurationFallback(t *testing.T) {
	c := &Config{Period: "later"}
	assert.Equal(t, DefaultPeriod, c.PeriodDuration())
	c.Period = "20ms"
	assert.Equal(t, 20*time.Millisecond, c.PeriodDuration())
}
