package yarpwbi

import "fmt"

// EstimateType identifies a kind of estimate that can be requested from States.
type EstimateType uint8

const (
	// EstimateJointPos is the joint position read from the encoders.
	EstimateJointPos EstimateType = iota + 1
	// EstimateJointVel is the joint velocity, derived from the encoders.
	EstimateJointVel
	// EstimateJointAcc is the joint acceleration, derived from the encoders.
	EstimateJointAcc
	// EstimateJointTorque is the low-pass filtered joint torque.
	EstimateJointTorque
	// EstimateJointTorqueDerivative is the derivative of the joint torque.
	EstimateJointTorqueDerivative
	// EstimateMotorPos has no backing channel.
	EstimateMotorPos
	// EstimateMotorVel has no backing channel.
	EstimateMotorVel
	// EstimateMotorAcc has no backing channel.
	EstimateMotorAcc
	// EstimateMotorTorque is the low-pass filtered motor torque.
	EstimateMotorTorque
	// EstimateMotorTorqueDerivative is the derivative of the motor torque.
	EstimateMotorTorqueDerivative
	// EstimateMotorPWM is the low-pass filtered motor PWM.
	EstimateMotorPWM
	// EstimateForceTorque is read straight from the six-axis force-torque sensors.
	EstimateForceTorque
	// EstimateExternalForceTorque has no backing channel.
	EstimateExternalForceTorque
)

var estimateNames = map[EstimateType]string{
	EstimateJointPos:              "joint_pos",
	EstimateJointVel:              "joint_vel",
	EstimateJointAcc:              "joint_acc",
	EstimateJointTorque:           "joint_torque",
	EstimateJointTorqueDerivative: "joint_torque_derivative",
	EstimateMotorPos:              "motor_pos",
	EstimateMotorVel:              "motor_vel",
	EstimateMotorAcc:              "motor_acc",
	EstimateMotorTorque:           "motor_torque",
	EstimateMotorTorqueDerivative: "motor_torque_derivative",
	EstimateMotorPWM:              "motor_pwm",
	EstimateForceTorque:           "force_torque",
	EstimateExternalForceTorque:   "external_force_torque",
}

func (k EstimateType) String() string {
	if name, ok := estimateNames[k]; ok {
		return name
	}
	return fmt.Sprintf("estimate(%d)", uint8(k))
}

// EstimationParameter identifies a tunable filter parameter.
type EstimationParameter uint8

const (
	// ParamAdaptiveWindowMaxSize is the maximum window length of an adaptive window estimator.
	ParamAdaptiveWindowMaxSize EstimationParameter = iota + 1
	// ParamAdaptiveWindowThreshold is the residual threshold of an adaptive window estimator.
	ParamAdaptiveWindowThreshold
	// ParamLowPassCutFrequency is the cut frequency, in Hz, of a low-pass filter.
	ParamLowPassCutFrequency
)

func (p EstimationParameter) String() string {
	switch p {
	case ParamAdaptiveWindowMaxSize:
		return "adaptive_window_max_size"
	case ParamAdaptiveWindowThreshold:
		return "adaptive_window_threshold"
	case ParamLowPassCutFrequency:
		return "low_pass_cut_frequency"
	}
	return fmt.Sprintf("parameter(%d)", uint8(p))
}

// Channel identifies one vector held by the estimator.
type Channel uint8

const (
	ChannelJointPos Channel = iota
	ChannelJointVel
	ChannelJointAcc
	ChannelJointTorque
	ChannelJointTorqueDerivative
	ChannelMotorTorque
	ChannelMotorTorqueDerivative
	ChannelMotorPWM
	numChannels
)

var channelNames = [numChannels]string{
	"q", "dq", "d2q", "tauJ", "dtauJ", "tauM", "dtauM", "pwm",
}

// channelSources is the sensor type whose count sizes each channel.
var channelSources = [numChannels]SensorType{
	SensorEncoder, SensorEncoder, SensorEncoder,
	SensorTorque, SensorTorque, SensorTorque, SensorTorque,
	SensorPWM,
}

// Channels lists every channel in storage order.
func Channels() []Channel {
	out := make([]Channel, numChannels)
	for i := range out {
		out[i] = Channel(i)
	}
	return out
}

func (c Channel) String() string {
	if c < numChannels {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", uint8(c))
}

// Source returns the sensor type whose count sizes this channel.
func (c Channel) Source() SensorType {
	if c < numChannels {
		return channelSources[c]
	}
	return 0
}

// ParseChannel returns the channel with the provided short name.
func ParseChannel(name string) (Channel, error) {
	for i, n := range channelNames {
		if n == name {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: channel %q", ErrInvalidParameter, name)
}
