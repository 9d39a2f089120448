package yarpwbi

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default estimation parameters.
const (
	DefaultPeriod                    = 10 * time.Millisecond
	DefaultVelocityWindow            = 16
	DefaultVelocityThreshold         = 1.0
	DefaultAccelerationWindow        = 25
	DefaultAccelerationThreshold     = 1.0
	DefaultTorqueDerivativeWindow    = 30
	DefaultTorqueDerivativeThreshold = 0.2
	DefaultCutFrequency              = 3.0
)

// WindowConfig holds the parameters of an adaptive window estimator.
type WindowConfig struct {
	WindowLength int     `yaml:"window_length"`
	Threshold    float64 `yaml:"threshold"`
}

// CutFrequencyConfig holds the cut frequencies, in Hz, of the low-pass filters.
type CutFrequencyConfig struct {
	JointTorque float64 `yaml:"joint_torque"`
	MotorTorque float64 `yaml:"motor_torque"`
	PWM         float64 `yaml:"pwm"`
}

// Config is the configuration of a States instance.
type Config struct {
	RobotName             string             `yaml:"robot_name"`
	Period                string             `yaml:"period"`
	LogLevel              string             `yaml:"log_level"`
	FilterStalePWM        bool               `yaml:"filter_stale_pwm"`
	Velocity              WindowConfig       `yaml:"velocity"`
	Acceleration          WindowConfig       `yaml:"acceleration"`
	JointTorqueDerivative WindowConfig       `yaml:"joint_torque_derivative"`
	MotorTorqueDerivative WindowConfig       `yaml:"motor_torque_derivative"`
	CutFrequencies        CutFrequencyConfig `yaml:"cut_frequencies"`

	period time.Duration
}

// DefaultConfig returns a configuration with every default set and no robot name.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration, fills the defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyDefaults fills every unset field.
func (c *Config) applyDefaults() {
	if c.Period == "" {
		c.Period = DefaultPeriod.String()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	defaultWindow(&c.Velocity, DefaultVelocityWindow, DefaultVelocityThreshold)
	defaultWindow(&c.Acceleration, DefaultAccelerationWindow, DefaultAccelerationThreshold)
	defaultWindow(&c.JointTorqueDerivative, DefaultTorqueDerivativeWindow, DefaultTorqueDerivativeThreshold)
	defaultWindow(&c.MotorTorqueDerivative, DefaultTorqueDerivativeWindow, DefaultTorqueDerivativeThreshold)
	if c.CutFrequencies.JointTorque == 0 {
		c.CutFrequencies.JointTorque = DefaultCutFrequency
	}
	if c.CutFrequencies.MotorTorque == 0 {
		c.CutFrequencies.MotorTorque = DefaultCutFrequency
	}
	if c.CutFrequencies.PWM == 0 {
		c.CutFrequencies.PWM = DefaultCutFrequency
	}
}

func defaultWindow(w *WindowConfig, length int, threshold float64) {
	if w.WindowLength == 0 {
		w.WindowLength = length
	}
	if w.Threshold == 0 {
		w.Threshold = threshold
	}
}

// Validate checks every parameter. A missing robot name is ErrMissingRobotName.
func (c *Config) Validate() error {
	if c.RobotName == "" {
		return ErrMissingRobotName
	}
	return c.validateParams()
}

// validateParams checks the estimation parameters only.
func (c *Config) validateParams() error {
	period, err := time.ParseDuration(c.Period)
	if err != nil {
		return fmt.Errorf("%w: period %q: %s", ErrInvalidParameter, c.Period, err)
	}
	if period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %s", ErrInvalidParameter, period)
	}
	c.period = period
	for name, w := range map[string]WindowConfig{
		"velocity":                c.Velocity,
		"acceleration":            c.Acceleration,
		"joint_torque_derivative": c.JointTorqueDerivative,
		"motor_torque_derivative": c.MotorTorqueDerivative,
	} {
		if err := checkWindowParams(w.WindowLength, w.Threshold); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for name, fc := range map[string]float64{
		"joint_torque": c.CutFrequencies.JointTorque,
		"motor_torque": c.CutFrequencies.MotorTorque,
		"pwm":          c.CutFrequencies.PWM,
	} {
		if err := checkCutFrequency(fc); err != nil {
			return fmt.Errorf("cut_frequencies.%s: %w", name, err)
		}
	}
	return nil
}

// PeriodDuration returns the estimation period, or DefaultPeriod if it does not parse.
func (c *Config) PeriodDuration() time.Duration {
	if c.period > 0 {
		return c.period
	}
	if d, err := time.ParseDuration(c.Period); err == nil && d > 0 {
		return d
	}
	return DefaultPeriod
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
