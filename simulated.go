package yarpwbi

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Signal returns the true value of component i at time t (seconds).
type Signal func(t float64, i int) float64

// Constant returns a signal equal to v for every component.
func Constant(v float64) Signal {
	return func(float64, int) float64 { return v }
}

// Ramp returns a signal (i+1)*slope*t.
func Ramp(slope float64) Signal {
	return func(t float64, i int) float64 { return float64(i+1) * slope * t }
}

// Parabola returns a signal 0.5*(i+1)*acc*t², whose second derivative is (i+1)*acc.
func Parabola(acc float64) Signal {
	return func(t float64, i int) float64 { return 0.5 * float64(i+1) * acc * t * t }
}

// Sine returns a signal amp*sin(2π f t + i).
func Sine(amp, freq float64) Signal {
	return func(t float64, i int) float64 { return amp * math.Sin(2*math.Pi*freq*t+float64(i)) }
}

// SimulatedSensors is an in-memory SensorSet producing signals with optional
// additive white Gaussian noise and injectable read failures.
type SimulatedSensors struct {
	mu          sync.Mutex
	clock       func() float64
	lists       map[SensorType]IDList
	signals     map[SensorType]Signal
	noise       map[SensorType]*distuv.Normal
	failures    map[SensorType]int
	noStamps    map[SensorType]bool
	reads       map[SensorType]int
	initialized bool
}

// SimOption configures a SimulatedSensors.
type SimOption func(*SimulatedSensors)

// WithSensors adds the provided sensors of type t.
func WithSensors(t SensorType, ids ...ID) SimOption {
	return func(s *SimulatedSensors) {
		l := s.lists[t]
		l.AddAll(ids)
		s.lists[t] = l
	}
}

// WithSignal sets the signal of every sensor of type t.
func WithSignal(t SensorType, sig Signal) SimOption {
	return func(s *SimulatedSensors) { s.signals[t] = sig }
}

// WithSensorNoise adds zero mean Gaussian noise of standard deviation sigma to sensors of type t.
func WithSensorNoise(t SensorType, sigma float64) SimOption {
	return func(s *SimulatedSensors) {
		if sigma <= 0 {
			delete(s.noise, t)
			return
		}
		s.noise[t] = &distuv.Normal{Mu: 0, Sigma: sigma}
	}
}

// WithSimClock sets the clock, in seconds, used both for signals and timestamps.
func WithSimClock(clock func() float64) SimOption {
	return func(s *SimulatedSensors) { s.clock = clock }
}

// WithoutTimestamps makes reads of type t return no timestamps.
func WithoutTimestamps(t SensorType) SimOption {
	return func(s *SimulatedSensors) { s.noStamps[t] = true }
}

// NewSimulatedSensors returns a SensorSet whose signals default to zero.
func NewSimulatedSensors(opts ...SimOption) *SimulatedSensors {
	start := time.Now()
	s := &SimulatedSensors{
		clock:    func() float64 { return time.Since(start).Seconds() },
		lists:    make(map[SensorType]IDList),
		signals:  make(map[SensorType]Signal),
		noise:    make(map[SensorType]*distuv.Normal),
		failures: make(map[SensorType]int),
		noStamps: make(map[SensorType]bool),
		reads:    make(map[SensorType]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init implements the SensorSet interface.
func (s *SimulatedSensors) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

// Close implements the SensorSet interface.
func (s *SimulatedSensors) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	return nil
}

// FailReads makes the next n reads of type t fail.
func (s *SimulatedSensors) FailReads(t SensorType, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[t] = n
}

// Reads returns the number of read attempts of type t.
func (s *SimulatedSensors) Reads(t SensorType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[t]
}

// SetSignal replaces the signal of sensors of type t.
func (s *SimulatedSensors) SetSignal(t SensorType, sig Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[t] = sig
}

// SensorNumber implements the SensorSet interface.
func (s *SimulatedSensors) SensorNumber(t SensorType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[t])
}

// SensorList implements the SensorSet interface.
func (s *SimulatedSensors) SensorList(t SensorType) IDList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists[t].Clone()
}

// AddSensor implements the SensorSet interface.
func (s *SimulatedSensors) AddSensor(t SensorType, id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[t]
	ok := l.Add(id)
	s.lists[t] = l
	return ok
}

// AddSensors implements the SensorSet interface.
func (s *SimulatedSensors) AddSensors(t SensorType, ids IDList) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[t]
	n := l.AddAll(ids)
	s.lists[t] = l
	return n
}

// RemoveSensor implements the SensorSet interface.
func (s *SimulatedSensors) RemoveSensor(t SensorType, id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[t]
	ok := l.Remove(id)
	s.lists[t] = l
	return ok
}

// ReadSensors implements the SensorSet interface. The blocking flag is ignored.
func (s *SimulatedSensors) ReadSensors(t SensorType, blocking bool) ([]float64, []float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.attempt(t); err != nil {
		return nil, nil, err
	}
	now := s.clock()
	n := len(s.lists[t])
	values := make([]float64, n*t.Width())
	for k := range values {
		values[k] = s.sample(t, now, k)
	}
	if s.noStamps[t] {
		return values, nil, nil
	}
	stamps := make([]float64, n)
	for i := range stamps {
		stamps[i] = now
	}
	return values, stamps, nil
}

// ReadSensor implements the SensorSet interface. The blocking flag is ignored.
func (s *SimulatedSensors) ReadSensor(t SensorType, i int, blocking bool) ([]float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.lists[t]) {
		return nil, 0, fmt.Errorf("%w: %s sensor %d of %d", ErrIndexOutOfRange, t, i, len(s.lists[t]))
	}
	if err := s.attempt(t); err != nil {
		return nil, 0, err
	}
	now := s.clock()
	w := t.Width()
	values := make([]float64, w)
	for k := range values {
		values[k] = s.sample(t, now, i*w+k)
	}
	if s.noStamps[t] {
		return values, math.NaN(), nil
	}
	return values, now, nil
}

// attempt counts a read and consumes a pending failure. Callers hold the lock.
func (s *SimulatedSensors) attempt(t SensorType) error {
	s.reads[t]++
	if !s.initialized {
		return fmt.Errorf("%w: %s sensors", ErrNotInitialized, t)
	}
	if s.failures[t] > 0 {
		s.failures[t]--
		return fmt.Errorf("%w: simulated %s failure", ErrSensorRead, t)
	}
	return nil
}

func (s *SimulatedSensors) sample(t SensorType, now float64, k int) float64 {
	v := 0.0
	if sig, ok := s.signals[t]; ok {
		v = sig(now, k)
	}
	if n, ok := s.noise[t]; ok {
		v += n.Rand()
	}
	return v
}

func (s *SimulatedSensors) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("SimulatedSensors{encoders: %d, torques: %d, pwm: %d, force_torque: %d}",
		len(s.lists[SensorEncoder]), len(s.lists[SensorTorque]), len(s.lists[SensorPWM]), len(s.lists[SensorForceTorque]))
}

// ManualClock is a clock advanced explicitly, for deterministic simulations.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

// Now returns the current time in seconds.
func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by dt seconds.
func (c *ManualClock) Advance(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += dt
}
