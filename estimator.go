package yarpwbi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EstimatorState is the lifecycle state of an Estimator.
type EstimatorState uint8

const (
	// StateCreated is the state after NewEstimator.
	StateCreated EstimatorState = iota + 1
	// StateInitialized is the state after a successful Init.
	StateInitialized
	// StateRunning is the state while the periodic loop runs.
	StateRunning
	// StateStopped is the state after Stop.
	StateStopped
	// StateReleased is the final state.
	StateReleased
)

func (s EstimatorState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateReleased:
		return "released"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// derivative indexes the adaptive window estimators.
type derivative uint8

const (
	derivJointVel derivative = iota
	derivJointAcc
	derivJointTorque
	derivMotorTorque
	numDerivatives
)

// smoother indexes the low-pass filters.
type smoother uint8

const (
	smoothJointTorque smoother = iota
	smoothMotorTorque
	smoothPWM
	numSmoothers
)

// Option configures an Estimator or a States.
type Option func(*options)

type options struct {
	log     logrus.FieldLogger
	metrics *Metrics
	clock   func() float64
	manual  bool
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics sets the collectors updated on every cycle.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock sets the clock, in seconds, used to stamp torque samples.
func WithClock(clock func() float64) Option {
	return func(o *options) { o.clock = clock }
}

// WithManualStepping makes States.Init leave the loop stopped. Cycles then run
// only through Estimator.Step.
func WithManualStepping() Option {
	return func(o *options) { o.manual = true }
}

func buildOptions(opts []Option) options {
	o := options{
		clock: func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Estimator periodically reads a SensorSet and keeps filtered positions,
// torques and PWM along with their derivatives.
// Every exported method is safe for concurrent use.
type Estimator struct {
	mu             sync.Mutex
	sensors        SensorSet
	period         time.Duration
	filterStalePWM bool
	log            logrus.FieldLogger
	metrics        *Metrics
	clock          func() float64

	state  EstimatorState
	est    Estimates
	rawPWM []float64
	cycle  uint64
	last   time.Time

	windows   [numDerivatives]WindowConfig
	cutFreqs  [numSmoothers]float64
	derivs    [numDerivatives]*AWPolyEstimator
	smoothers [numSmoothers]*LowPassFilter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEstimator returns an estimator over sensors with the parameters of cfg.
// The robot name of cfg is not needed.
func NewEstimator(sensors SensorSet, cfg *Config, opts ...Option) (*Estimator, error) {
	if sensors == nil {
		return nil, fmt.Errorf("%w: nil sensor set", ErrInvalidParameter)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validateParams(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	if o.log == nil {
		o.log = discardLogger()
	}
	e := &Estimator{
		sensors:        sensors,
		period:         cfg.PeriodDuration(),
		filterStalePWM: cfg.FilterStalePWM,
		log:            o.log,
		metrics:        o.metrics,
		clock:          o.clock,
		state:          StateCreated,
	}
	e.windows[derivJointVel] = cfg.Velocity
	e.windows[derivJointAcc] = cfg.Acceleration
	e.windows[derivJointTorque] = cfg.JointTorqueDerivative
	e.windows[derivMotorTorque] = cfg.MotorTorqueDerivative
	e.cutFreqs[smoothJointTorque] = cfg.CutFrequencies.JointTorque
	e.cutFreqs[smoothMotorTorque] = cfg.CutFrequencies.MotorTorque
	e.cutFreqs[smoothPWM] = cfg.CutFrequencies.PWM
	return e, nil
}

// State returns the lifecycle state.
func (e *Estimator) State() EstimatorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Period returns the loop period.
func (e *Estimator) Period() time.Duration {
	return e.period
}

// Init sizes the channels, seeds them with one blocking read of every sensor
// type and builds the filters. The encoder seed is mandatory, a failed torque
// or PWM seed leaves zeros. Init is the only place where the lock is held
// across a blocking read.
func (e *Estimator) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateCreated {
		return fmt.Errorf("%w: init while %s", ErrLifecycle, e.state)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.resizeAll()

	if err := e.seed(SensorEncoder, e.est.Get(ChannelJointPos)); err != nil {
		return fmt.Errorf("seeding encoders: %w", err)
	}
	if err := e.seed(SensorTorque, e.est.Get(ChannelJointTorque)); err != nil {
		e.log.WithError(err).Warn("torque seed read failed, starting from zero")
	}
	if err := e.seed(SensorPWM, e.rawPWM); err != nil {
		e.log.WithError(err).Warn("pwm seed read failed, starting from zero")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	for d := derivative(0); d < numDerivatives; d++ {
		w := e.windows[d]
		if d == derivJointAcc {
			e.derivs[d], err = NewAWQuadEstimator(w.WindowLength, w.Threshold)
		} else {
			e.derivs[d], err = NewAWLinEstimator(w.WindowLength, w.Threshold)
		}
		if err != nil {
			return err
		}
	}
	seeds := [numSmoothers][]float64{
		smoothJointTorque: e.est.Get(ChannelJointTorque),
		smoothMotorTorque: e.est.Get(ChannelJointTorque),
		smoothPWM:         e.rawPWM,
	}
	for s := smoother(0); s < numSmoothers; s++ {
		e.smoothers[s], err = NewLowPassFilter(e.cutFreqs[s], e.period.Seconds(), seeds[s])
		if err != nil {
			return err
		}
	}
	_ = e.est.Set(ChannelMotorTorque, e.est.Get(ChannelJointTorque))
	_ = e.est.Set(ChannelMotorPWM, e.rawPWM)

	e.state = StateInitialized
	e.log.WithFields(logrus.Fields{
		"encoders": e.est.Len(ChannelJointPos),
		"torques":  e.est.Len(ChannelJointTorque),
		"pwm":      len(e.rawPWM),
		"period":   e.period,
	}).Info("estimator initialized")
	return nil
}

// seed does a blocking read of type t into dst. Callers hold the lock.
func (e *Estimator) seed(t SensorType, dst []float64) error {
	values, _, err := e.sensors.ReadSensors(t, true)
	if err == nil {
		err = checkDims(values, dst, t.String(), "channel", lengthsEqual)
	}
	if err != nil {
		e.metrics.readFailed(t)
		return err
	}
	copy(dst, values)
	return nil
}

// Start launches the periodic loop. It returns once the loop goroutine is
// scheduled. The loop ends when Stop is called or ctx is done.
func (e *Estimator) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateInitialized {
		defer e.mu.Unlock()
		return fmt.Errorf("%w: start while %s", ErrLifecycle, e.state)
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.state = StateRunning
	e.wg.Add(1)
	e.mu.Unlock()

	go e.run(ctx)
	return nil
}

func (e *Estimator) run(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.log.Debug("estimation loop done")
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Stop ends the periodic loop and waits for the cycle in progress, if any.
// Stopping an estimator that is not running does nothing.
func (e *Estimator) Stop() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.cancel = nil
	e.state = StateStopped
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.log.Info("estimator stopped")
}

// Release stops the loop, waits for it and drops the filters. It is idempotent.
func (e *Estimator) Release() {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateReleased {
		return
	}
	e.derivs = [numDerivatives]*AWPolyEstimator{}
	e.smoothers = [numSmoothers]*LowPassFilter{}
	e.est.Clear()
	e.rawPWM = nil
	e.state = StateReleased
}

// Close is Release, for use with defer.
func (e *Estimator) Close() error {
	e.Release()
	return nil
}

// Step runs one estimation cycle synchronously. It returns false if the
// estimator is neither initialized nor running.
func (e *Estimator) Step() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInitialized && e.state != StateRunning {
		return false
	}
	e.step()
	return true
}

// step runs one cycle. Callers hold the lock.
func (e *Estimator) step() {
	start := time.Now()
	e.resizeAll()

	if q, stamps, err := e.read(SensorEncoder, ChannelJointPos); err == nil {
		_ = e.est.Set(ChannelJointPos, q)
		el := AWPolyElement{Data: q, Time: firstStamp(stamps)}
		_ = e.est.Set(ChannelJointVel, e.derivs[derivJointVel].Estimate(el))
		_ = e.est.Set(ChannelJointAcc, e.derivs[derivJointAcc].Estimate(el))
	}

	if tau, _, err := e.read(SensorTorque, ChannelJointTorque); err == nil {
		// Derivatives are fitted on the raw reading, the low-pass output lags.
		el := AWPolyElement{Data: tau, Time: e.clock()}
		_ = e.est.Set(ChannelJointTorque, e.smoothers[smoothJointTorque].Filt(tau))
		_ = e.est.Set(ChannelMotorTorque, e.smoothers[smoothMotorTorque].Filt(tau))
		_ = e.est.Set(ChannelJointTorqueDerivative, e.derivs[derivJointTorque].Estimate(el))
		_ = e.est.Set(ChannelMotorTorqueDerivative, e.derivs[derivMotorTorque].Estimate(el))
	}

	if pwm, _, err := e.read(SensorPWM, ChannelMotorPWM); err == nil {
		copy(e.rawPWM, pwm)
		_ = e.est.Set(ChannelMotorPWM, e.smoothers[smoothPWM].Filt(pwm))
	} else if e.filterStalePWM {
		_ = e.est.Set(ChannelMotorPWM, e.smoothers[smoothPWM].Filt(e.rawPWM))
	}

	e.cycle++
	e.last = time.Now()
	e.metrics.cycle(e.last.Sub(start).Seconds())
}

// read does a non blocking read of type t and checks it against the channel
// it feeds. Readings with NaN or Inf count as failures. Failures are logged
// and counted. Callers hold the lock.
func (e *Estimator) read(t SensorType, ch Channel) ([]float64, []float64, error) {
	values, stamps, err := e.sensors.ReadSensors(t, false)
	if err == nil {
		err = checkDims(values, e.est.Get(ch), t.String(), ch.String(), lengthsEqual)
	}
	if err == nil && !allFinite(values) {
		err = fmt.Errorf("%w: non finite %s reading", ErrSensorRead, t)
	}
	if err != nil {
		e.metrics.readFailed(t)
		e.log.WithError(err).WithFields(logrus.Fields{"sensor": t, "cycle": e.cycle}).Debug("read failed, keeping previous values")
		return nil, nil, err
	}
	return values, stamps, nil
}

// resizeAll matches every channel length to the current sensor count of its
// source. Callers hold the lock.
func (e *Estimator) resizeAll() {
	counts := map[SensorType]int{}
	for _, t := range []SensorType{SensorEncoder, SensorTorque, SensorPWM} {
		counts[t] = e.sensors.SensorNumber(t)
		e.metrics.sensors(t, counts[t])
	}
	for _, ch := range Channels() {
		if e.est.Resize(ch, counts[ch.Source()]) {
			e.metrics.resized(ch)
			e.log.WithFields(logrus.Fields{"channel": ch, "length": counts[ch.Source()]}).Debug("channel resized")
		}
	}
	if n := counts[SensorPWM]; len(e.rawPWM) != n {
		e.rawPWM = resizeVec(e.rawPWM, n)
	}
}

// Cycles returns the number of completed cycles.
func (e *Estimator) Cycles() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycle
}

// Vector returns a copy of a channel.
func (e *Estimator) Vector(ch Channel) ([]float64, error) {
	if ch >= numChannels {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneVec(e.est.Get(ch)), nil
}

// CopyVector copies a channel into dst, which must be at least as long as the
// channel, and returns the number of values copied.
func (e *Estimator) CopyVector(ch Channel, dst []float64) (int, error) {
	if ch >= numChannels {
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, ch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	src := e.est.Get(ch)
	if err := checkDims(dst, src, "destination", ch.String(), lengthAtLeast); err != nil {
		return 0, err
	}
	return copy(dst, src), nil
}

// CopyElement returns entry i of a channel.
func (e *Estimator) CopyElement(ch Channel, i int) (float64, error) {
	if ch >= numChannels {
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, ch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	src := e.est.Get(ch)
	if i < 0 || i >= len(src) {
		return 0, fmt.Errorf("%w: %s[%d] of %d", ErrIndexOutOfRange, ch, i, len(src))
	}
	return src[i], nil
}

// Snapshot returns a copy of every channel as of the last completed cycle.
func (e *Estimator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.est.snapshot(e.cycle, e.last)
}

// SetWindowParams changes the window length and threshold of the estimator
// behind ch, which must be a derivative channel. Retained samples are replayed.
func (e *Estimator) SetWindowParams(ch Channel, windowLength int, threshold float64) error {
	d, ok := derivativeOf(ch)
	if !ok {
		return fmt.Errorf("%w: %s has no adaptive window", ErrUnsupported, ch)
	}
	if err := checkWindowParams(windowLength, threshold); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setWindow(d, WindowConfig{WindowLength: windowLength, Threshold: threshold})
}

// SetWindowLength changes only the window length of the estimator behind ch.
func (e *Estimator) SetWindowLength(ch Channel, windowLength int) error {
	d, ok := derivativeOf(ch)
	if !ok {
		return fmt.Errorf("%w: %s has no adaptive window", ErrUnsupported, ch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.windows[d]
	w.WindowLength = windowLength
	return e.setWindow(d, w)
}

// SetThreshold changes only the threshold of the estimator behind ch.
func (e *Estimator) SetThreshold(ch Channel, threshold float64) error {
	d, ok := derivativeOf(ch)
	if !ok {
		return fmt.Errorf("%w: %s has no adaptive window", ErrUnsupported, ch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.windows[d]
	w.Threshold = threshold
	return e.setWindow(d, w)
}

// setWindow validates and applies w. Callers hold the lock.
func (e *Estimator) setWindow(d derivative, w WindowConfig) error {
	if err := checkWindowParams(w.WindowLength, w.Threshold); err != nil {
		return err
	}
	if cur := e.derivs[d]; cur != nil {
		next, err := cur.WithParams(w.WindowLength, w.Threshold)
		if err != nil {
			return err
		}
		e.derivs[d] = next
	}
	e.windows[d] = w
	e.log.WithFields(logrus.Fields{"window_length": w.WindowLength, "threshold": w.Threshold}).Info("adaptive window parameters changed")
	return nil
}

// SetCutFrequency changes the cut frequency of the low-pass filter behind ch.
func (e *Estimator) SetCutFrequency(ch Channel, fc float64) error {
	s, ok := smootherOf(ch)
	if !ok {
		return fmt.Errorf("%w: %s has no low-pass filter", ErrUnsupported, ch)
	}
	if err := checkCutFrequency(fc); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if f := e.smoothers[s]; f != nil {
		if err := f.SetCutFrequency(fc); err != nil {
			return err
		}
	}
	e.cutFreqs[s] = fc
	e.log.WithFields(logrus.Fields{"channel": ch, "cut_frequency": fc}).Info("cut frequency changed")
	return nil
}

// WindowParams returns the adaptive window parameters behind ch.
func (e *Estimator) WindowParams(ch Channel) (WindowConfig, error) {
	d, ok := derivativeOf(ch)
	if !ok {
		return WindowConfig{}, fmt.Errorf("%w: %s has no adaptive window", ErrUnsupported, ch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.windows[d], nil
}

// CutFrequency returns the cut frequency behind ch.
func (e *Estimator) CutFrequency(ch Channel) (float64, error) {
	s, ok := smootherOf(ch)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no low-pass filter", ErrUnsupported, ch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cutFreqs[s], nil
}

func derivativeOf(ch Channel) (derivative, bool) {
	switch ch {
	case ChannelJointVel:
		return derivJointVel, true
	case ChannelJointAcc:
		return derivJointAcc, true
	case ChannelJointTorqueDerivative:
		return derivJointTorque, true
	case ChannelMotorTorqueDerivative:
		return derivMotorTorque, true
	}
	return 0, false
}

func smootherOf(ch Channel) (smoother, bool) {
	switch ch {
	case ChannelJointTorque:
		return smoothJointTorque, true
	case ChannelMotorTorque:
		return smoothMotorTorque, true
	case ChannelMotorPWM:
		return smoothPWM, true
	}
	return 0, false
}

// lockMembership runs f with the lock held so that sensor set changes never
// interleave with a cycle.
func (e *Estimator) lockMembership(f func(SensorSet)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f(e.sensors)
}
