package yarpwbi

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// LowPassFilter is a first order low-pass filter applied element-wise to a vector signal.
type LowPassFilter struct {
	cutFrequency float64 // Hz
	samplePeriod float64 // seconds
	alpha        float64
	y            []float64
}

// NewLowPassFilter returns a filter with the provided cut frequency (Hz) and
// sample period (seconds), whose output starts at seed.
func NewLowPassFilter(cutFrequency, samplePeriod float64, seed []float64) (*LowPassFilter, error) {
	if err := checkCutFrequency(cutFrequency); err != nil {
		return nil, err
	}
	if !(samplePeriod > 0) || math.IsInf(samplePeriod, 1) {
		return nil, fmt.Errorf("%w: sample period must be positive and finite, got %f", ErrInvalidParameter, samplePeriod)
	}
	return &LowPassFilter{
		cutFrequency: cutFrequency,
		samplePeriod: samplePeriod,
		alpha:        LowPassAlpha(cutFrequency, samplePeriod),
		y:            cloneVec(seed),
	}, nil
}

func checkCutFrequency(fc float64) error {
	if !(fc > 0) || math.IsInf(fc, 1) {
		return fmt.Errorf("%w: cut frequency must be positive and finite, got %f", ErrInvalidParameter, fc)
	}
	return nil
}

// LowPassAlpha returns the smoothing factor of a one pole filter whose pole
// matches the continuous pole at the cut frequency fc sampled every ts seconds.
func LowPassAlpha(fc, ts float64) float64 {
	return 1 - math.Exp(-2*math.Pi*fc*ts)
}

// Filt feeds x and returns a copy of the new output.
// On a length change the common entries keep their state and new entries
// start at the incoming value.
func (f *LowPassFilter) Filt(x []float64) []float64 {
	if len(f.y) != len(x) {
		f.y = resizeSeeded(f.y, x)
	}
	diff := make([]float64, len(x))
	floats.SubTo(diff, x, f.y)
	floats.AddScaled(f.y, f.alpha, diff)
	return cloneVec(f.y)
}

// SetCutFrequency changes the cut frequency keeping the filter state.
func (f *LowPassFilter) SetCutFrequency(fc float64) error {
	if err := checkCutFrequency(fc); err != nil {
		return err
	}
	f.cutFrequency = fc
	f.alpha = LowPassAlpha(fc, f.samplePeriod)
	return nil
}

// CutFrequency returns the cut frequency in Hz.
func (f *LowPassFilter) CutFrequency() float64 {
	return f.cutFrequency
}

// Alpha returns the current smoothing factor.
func (f *LowPassFilter) Alpha() float64 {
	return f.alpha
}

// Output returns a copy of the last output.
func (f *LowPassFilter) Output() []float64 {
	return cloneVec(f.y)
}

func (f *LowPassFilter) String() string {
	return fmt.Sprintf("LowPassFilter{fc: %g Hz, Ts: %g s, alpha: %.6f}", f.cutFrequency, f.samplePeriod, f.alpha)
}
