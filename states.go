package yarpwbi

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// SensorFactory creates the sensor set of a States. It is called by Init with
// the States name and its validated configuration.
type SensorFactory func(name string, cfg *Config) (SensorSet, error)

// route is where an estimate kind comes from.
type route struct {
	sensor  SensorType
	channel Channel
	direct  bool // read from the sensor set, there is no derived channel
}

// estimateRoutes lists every supported estimate kind. Kinds not listed are
// unsupported for every operation.
var estimateRoutes = map[EstimateType]route{
	EstimateJointPos:              {sensor: SensorEncoder, channel: ChannelJointPos},
	EstimateJointVel:              {sensor: SensorEncoder, channel: ChannelJointVel},
	EstimateJointAcc:              {sensor: SensorEncoder, channel: ChannelJointAcc},
	EstimateJointTorque:           {sensor: SensorTorque, channel: ChannelJointTorque},
	EstimateJointTorqueDerivative: {sensor: SensorTorque, channel: ChannelJointTorqueDerivative},
	EstimateMotorTorque:           {sensor: SensorTorque, channel: ChannelMotorTorque},
	EstimateMotorTorqueDerivative: {sensor: SensorTorque, channel: ChannelMotorTorqueDerivative},
	EstimateMotorPWM:              {sensor: SensorPWM, channel: ChannelMotorPWM},
	EstimateForceTorque:           {sensor: SensorForceTorque, direct: true},
}

// Supported returns whether kind has a backing sensor.
func (k EstimateType) Supported() bool {
	_, ok := estimateRoutes[k]
	return ok
}

// States is the whole body state interface: it owns a SensorSet and the
// Estimator running over it, and answers estimate requests by kind.
// Failures are reported as false and logged.
type States struct {
	name    string
	factory SensorFactory
	opts    []Option
	base    logrus.FieldLogger

	mu        sync.RWMutex
	cfg       *Config
	log       logrus.FieldLogger
	sensors   SensorSet
	estimator *Estimator
}

// NewStates returns an uninitialized States. A nil cfg means DefaultConfig,
// which has no robot name and therefore fails Init.
func NewStates(name string, cfg *Config, factory SensorFactory, opts ...Option) *States {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := buildOptions(opts)
	base := o.log
	if base == nil {
		base = NewLogger(cfg.LogLevel)
	}
	s := &States{
		name:    name,
		factory: factory,
		opts:    append([]Option{}, opts...),
		base:    base,
	}
	s.setConfig(cfg)
	return s
}

func (s *States) setConfig(cfg *Config) {
	s.cfg = cfg
	s.log = s.base.WithFields(logrus.Fields{"states": s.name, "robot": cfg.RobotName})
}

// Name returns the name given to NewStates.
func (s *States) Name() string {
	return s.name
}

// Config returns a copy of the configuration.
func (s *States) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.cfg
	return &c
}

// SetConfig replaces the configuration used by the next Init. It returns false
// once initialized or for a nil cfg. The configuration is validated by Init.
// Runtime parameter changes go through SetEstimationParameter.
func (s *States) SetConfig(cfg *Config) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == nil {
		return false
	}
	if s.estimator != nil {
		s.log.Warn("configuration cannot be replaced while initialized")
		return false
	}
	s.setConfig(cfg)
	return true
}

// Init validates the configuration, creates and initializes the sensor set,
// then initializes and starts the estimator.
func (s *States) Init() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.estimator != nil {
		s.log.Warn("already initialized")
		return false
	}
	if err := s.init(); err != nil {
		s.log.WithError(err).Error("init failed")
		return false
	}
	s.log.Info("initialized")
	return true
}

func (s *States) init() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if s.factory == nil {
		return fmt.Errorf("%w: no sensor factory", ErrInvalidParameter)
	}
	sensors, err := s.factory(s.name, s.cfg)
	if err != nil {
		return fmt.Errorf("creating sensors: %w", err)
	}
	if err := sensors.Init(); err != nil {
		return fmt.Errorf("initializing sensors: %w", err)
	}
	opts := append(append([]Option{}, s.opts...), WithLogger(s.log))
	est, err := NewEstimator(sensors, s.cfg, opts...)
	if err == nil {
		err = est.Init(context.Background())
	}
	if err == nil && !buildOptions(s.opts).manual {
		err = est.Start(context.Background())
	}
	if err != nil {
		if cerr := sensors.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("closing sensors after a failed init")
		}
		return err
	}
	s.sensors, s.estimator = sensors, est
	return nil
}

// Close stops the estimator, waits for its loop and closes the sensor set.
// Closing a States that is not initialized returns true.
func (s *States) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.estimator == nil {
		return true
	}
	s.estimator.Release()
	err := s.sensors.Close()
	s.estimator, s.sensors = nil, nil
	if err != nil {
		s.log.WithError(err).Error("closing sensors")
		return false
	}
	s.log.Info("closed")
	return true
}

// Estimator returns the running estimator, or nil before Init and after Close.
func (s *States) Estimator() *Estimator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.estimator
}

// with runs f on the estimator if there is one. The read lock keeps Close out.
func (s *States) with(f func(est *Estimator, sensors SensorSet) bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.estimator == nil {
		return false
	}
	return f(s.estimator, s.sensors)
}

// AddEstimate adds the sensor backing kind. Returns false for unsupported
// kinds, before Init, and when the sensor set rejects it (e.g. a duplicate).
func (s *States) AddEstimate(kind EstimateType, id ID) bool {
	r, ok := estimateRoutes[kind]
	if !ok {
		return false
	}
	return s.with(func(est *Estimator, _ SensorSet) bool {
		var added bool
		est.lockMembership(func(ss SensorSet) { added = ss.AddSensor(r.sensor, id) })
		return added
	})
}

// AddEstimates adds the sensors backing kind and returns how many were added.
func (s *States) AddEstimates(kind EstimateType, ids IDList) int {
	r, ok := estimateRoutes[kind]
	if !ok {
		return 0
	}
	var added int
	s.with(func(est *Estimator, _ SensorSet) bool {
		est.lockMembership(func(ss SensorSet) { added = ss.AddSensors(r.sensor, ids) })
		return true
	})
	return added
}

// RemoveEstimate removes the sensor backing kind. The sensor is removed even
// if other estimate kinds share it.
func (s *States) RemoveEstimate(kind EstimateType, id ID) bool {
	r, ok := estimateRoutes[kind]
	if !ok {
		return false
	}
	return s.with(func(est *Estimator, _ SensorSet) bool {
		var removed bool
		est.lockMembership(func(ss SensorSet) { removed = ss.RemoveSensor(r.sensor, id) })
		return removed
	})
}

// EstimateList returns the sensors backing kind, in index order.
func (s *States) EstimateList(kind EstimateType) IDList {
	r, ok := estimateRoutes[kind]
	if !ok {
		return nil
	}
	var list IDList
	s.with(func(_ *Estimator, ss SensorSet) bool {
		list = ss.SensorList(r.sensor)
		return true
	})
	return list
}

// EstimateNumber returns the number of sensors backing kind.
func (s *States) EstimateNumber(kind EstimateType) int {
	r, ok := estimateRoutes[kind]
	if !ok {
		return 0
	}
	var n int
	s.with(func(_ *Estimator, ss SensorSet) bool {
		n = ss.SensorNumber(r.sensor)
		return true
	})
	return n
}

// GetEstimate writes estimate i of kind into out. Channels fill out[0],
// force-torque fills six values. The time argument is ignored, the value is
// the one of the last completed cycle. blocking only applies to force-torque.
func (s *States) GetEstimate(kind EstimateType, i int, out []float64, time float64, blocking bool) bool {
	r, ok := estimateRoutes[kind]
	if !ok {
		return false
	}
	return s.with(func(est *Estimator, ss SensorSet) bool {
		if r.direct {
			values, _, err := ss.ReadSensor(r.sensor, i, blocking)
			return s.fill(kind, out, values, err)
		}
		v, err := est.CopyElement(r.channel, i)
		if err == nil && len(out) < 1 {
			err = fmt.Errorf("%w: empty output", ErrDimension)
		}
		if err != nil {
			s.log.WithError(err).WithField("estimate", kind).Debug("get estimate")
			return false
		}
		out[0] = v
		return true
	})
}

// GetEstimates writes every estimate of kind into out, which must be large
// enough. See GetEstimate for time and blocking.
func (s *States) GetEstimates(kind EstimateType, out []float64, time float64, blocking bool) bool {
	r, ok := estimateRoutes[kind]
	if !ok {
		return false
	}
	return s.with(func(est *Estimator, ss SensorSet) bool {
		if r.direct {
			values, _, err := ss.ReadSensors(r.sensor, blocking)
			return s.fill(kind, out, values, err)
		}
		if _, err := est.CopyVector(r.channel, out); err != nil {
			s.log.WithError(err).WithField("estimate", kind).Debug("get estimates")
			return false
		}
		return true
	})
}

// fill copies a direct read into out.
func (s *States) fill(kind EstimateType, out, values []float64, err error) bool {
	if err == nil {
		err = checkDims(out, values, "output", kind.String(), lengthAtLeast)
	}
	if err != nil {
		s.log.WithError(err).WithField("estimate", kind).Debug("direct sensor read")
		return false
	}
	copy(out, values)
	return true
}

// parameterRoutes is the channel whose filter a kind's parameters tune.
var parameterRoutes = map[EstimateType]Channel{
	EstimateJointVel:              ChannelJointVel,
	EstimateJointAcc:              ChannelJointAcc,
	EstimateJointTorque:           ChannelJointTorque,
	EstimateJointTorqueDerivative: ChannelJointTorqueDerivative,
	EstimateMotorTorque:           ChannelMotorTorque,
	EstimateMotorTorqueDerivative: ChannelMotorTorqueDerivative,
	EstimateMotorPWM:              ChannelMotorPWM,
}

// SetEstimationParameter changes a filter parameter of kind. Window sizes must
// be whole numbers. Unknown (kind, param) pairs and invalid values return
// false and leave the configuration untouched.
func (s *States) SetEstimationParameter(kind EstimateType, param EstimationParameter, value float64) bool {
	ch, ok := parameterRoutes[kind]
	if !ok {
		return false
	}
	return s.with(func(est *Estimator, _ SensorSet) bool {
		var err error
		switch param {
		case ParamAdaptiveWindowMaxSize:
			if value != math.Trunc(value) || math.IsInf(value, 0) {
				err = fmt.Errorf("%w: window size %f is not a whole number", ErrInvalidParameter, value)
				break
			}
			err = est.SetWindowLength(ch, int(value))
		case ParamAdaptiveWindowThreshold:
			err = est.SetThreshold(ch, value)
		case ParamLowPassCutFrequency:
			err = est.SetCutFrequency(ch, value)
		default:
			err = fmt.Errorf("%w: parameter %s", ErrUnsupported, param)
		}
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"estimate": kind, "parameter": param}).Warn("estimation parameter rejected")
			return false
		}
		return true
	})
}

// SetWorldBasePosition is not supported, the base pose is not estimated here.
// The transform is ignored and false is returned.
func (s *States) SetWorldBasePosition(_ mat.Matrix) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.log.Debug("world base position is not supported")
	return false
}
