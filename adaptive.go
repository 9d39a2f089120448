package yarpwbi

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// AWPolyElement is one time stamped sample of a vector signal.
type AWPolyElement struct {
	Data []float64
	Time float64 // seconds
}

// AWPolyEstimator estimates a derivative of a vector signal by fitting a
// polynomial over the largest window of recent samples that the polynomial
// still explains within a threshold.
// Use NewAWLinEstimator or NewAWQuadEstimator to initialize.
type AWPolyEstimator struct {
	order        int
	windowLength int
	threshold    float64
	history      []AWPolyElement // oldest first, strictly increasing Time
	windows      []int           // accepted window length per component at the last estimate
}

// NewAWLinEstimator returns an estimator of the first derivative. It fits a
// line and returns its slope.
func NewAWLinEstimator(windowLength int, threshold float64) (*AWPolyEstimator, error) {
	return newAWPolyEstimator(1, windowLength, threshold)
}

// NewAWQuadEstimator returns an estimator of the second derivative. It fits a
// parabola and returns twice its quadratic coefficient.
func NewAWQuadEstimator(windowLength int, threshold float64) (*AWPolyEstimator, error) {
	return newAWPolyEstimator(2, windowLength, threshold)
}

func newAWPolyEstimator(order, windowLength int, threshold float64) (*AWPolyEstimator, error) {
	if err := checkWindowParams(windowLength, threshold); err != nil {
		return nil, err
	}
	return &AWPolyEstimator{order: order, windowLength: windowLength, threshold: threshold}, nil
}

func checkWindowParams(windowLength int, threshold float64) error {
	if windowLength < 1 {
		return fmt.Errorf("%w: window length must be at least 1, got %d", ErrInvalidParameter, windowLength)
	}
	if !(threshold > 0) || math.IsInf(threshold, 1) {
		return fmt.Errorf("%w: threshold must be positive and finite, got %f", ErrInvalidParameter, threshold)
	}
	return nil
}

// Order returns the degree of the fitted polynomial.
func (e *AWPolyEstimator) Order() int {
	return e.order
}

// WindowLength returns the maximum number of samples kept.
func (e *AWPolyEstimator) WindowLength() int {
	return e.windowLength
}

// Threshold returns the maximum residual allowed for a window to be accepted.
func (e *AWPolyEstimator) Threshold() float64 {
	return e.threshold
}

// History returns a copy of the retained samples, oldest first.
func (e *AWPolyEstimator) History() []AWPolyElement {
	out := make([]AWPolyElement, len(e.history))
	for i, el := range e.history {
		out[i] = AWPolyElement{Data: cloneVec(el.Data), Time: el.Time}
	}
	return out
}

// Windows returns the window length accepted for each component by the last estimate.
func (e *AWPolyEstimator) Windows() []int {
	out := make([]int, len(e.windows))
	copy(out, e.windows)
	return out
}

// Reset drops every retained sample.
func (e *AWPolyEstimator) Reset() {
	e.history = nil
	e.windows = nil
}

// WithParams returns a new estimator of the same order with the provided
// parameters, fed with the samples retained by this one.
func (e *AWPolyEstimator) WithParams(windowLength int, threshold float64) (*AWPolyEstimator, error) {
	fresh, err := newAWPolyEstimator(e.order, windowLength, threshold)
	if err != nil {
		return nil, err
	}
	for _, el := range e.history {
		fresh.Feed(el)
	}
	return fresh, nil
}

// Feed adds a sample to the history without estimating.
// A sample whose time is not finite or not after the newest retained sample
// takes the newest sample's time and replaces its data.
// A sample of a different length resizes the history: common components are
// kept and new components are back-filled with the incoming value.
func (e *AWPolyEstimator) Feed(el AWPolyElement) {
	data := cloneVec(el.Data)
	n := len(e.history)
	if n == 0 {
		if !isFinite(el.Time) {
			return
		}
		e.history = append(e.history, AWPolyElement{Data: data, Time: el.Time})
		return
	}
	if len(e.history[n-1].Data) != len(data) {
		e.resizeHistory(data)
	}
	if !isFinite(el.Time) || el.Time <= e.history[n-1].Time {
		e.history[n-1].Data = data
		return
	}
	if n == e.windowLength {
		copy(e.history, e.history[1:])
		e.history[n-1] = AWPolyElement{Data: data, Time: el.Time}
		return
	}
	e.history = append(e.history, AWPolyElement{Data: data, Time: el.Time})
}

func (e *AWPolyEstimator) resizeHistory(like []float64) {
	for i := range e.history {
		e.history[i].Data = resizeSeeded(e.history[i].Data, like)
	}
}

// Estimate feeds el and returns the derivative estimate at the newest sample.
// The result has the length of el.Data and is zero until order+1 samples are retained.
func (e *AWPolyEstimator) Estimate(el AWPolyElement) []float64 {
	e.Feed(el)
	if len(e.history) == 0 {
		e.windows = make([]int, len(el.Data))
		return Zeros(len(el.Data))
	}
	return e.estimate()
}

func (e *AWPolyEstimator) estimate() []float64 {
	m := len(e.history)
	newest := e.history[m-1]
	dim := len(newest.Data)
	out := Zeros(dim)
	e.windows = make([]int, dim)
	cols := e.order + 1
	if m < cols || dim == 0 {
		return out
	}

	done := make([]bool, dim)
	remaining := dim
	for n := cols; n <= m && remaining > 0; n++ {
		window := e.history[m-n:]
		A := mat.NewDense(n, cols, nil)
		B := mat.NewDense(n, dim, nil)
		for j, sample := range window {
			dt := sample.Time - newest.Time
			p := 1.0
			for c := 0; c < cols; c++ {
				A.Set(j, c, p)
				p *= dt
			}
			B.SetRow(j, sample.Data)
		}

		var qr mat.QR
		qr.Factorize(A)
		var coeff mat.Dense
		if err := qr.SolveTo(&coeff, false, B); err != nil {
			break
		}
		var fit mat.Dense
		fit.Mul(A, &coeff)

		for i := 0; i < dim; i++ {
			if done[i] {
				continue
			}
			if !e.explains(B, &fit, i) {
				done[i] = true
				remaining--
				continue
			}
			out[i] = e.derivative(&coeff, i)
			e.windows[i] = n
		}
	}
	return out
}

// explains returns whether every sample of component i lies within the threshold of its fit.
func (e *AWPolyEstimator) explains(samples, fit mat.Matrix, i int) bool {
	r, _ := samples.Dims()
	for j := 0; j < r; j++ {
		if math.Abs(samples.At(j, i)-fit.At(j, i)) > e.threshold {
			return false
		}
	}
	return true
}

func (e *AWPolyEstimator) derivative(coeff mat.Matrix, i int) float64 {
	if e.order == 2 {
		return 2 * coeff.At(2, i)
	}
	return coeff.At(1, i)
}

func (e *AWPolyEstimator) String() string {
	return fmt.Sprintf("AWPolyEstimator{order: %d, windowLength: %d, threshold: %g, samples: %d}", e.order, e.windowLength, e.threshold, len(e.history))
}
