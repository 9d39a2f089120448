package yarpwbi

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GroundTruth computes the error of a channel against a known signal.
type GroundTruth struct {
	channel Channel
	signal  Signal
}

// NewGroundTruth initializes a ground truth of ch, whose true value at time t
// for component i is signal(t, i).
func NewGroundTruth(ch Channel, signal Signal) *GroundTruth {
	return &GroundTruth{ch, signal}
}

// Channel returns the channel compared by this ground truth.
func (g *GroundTruth) Channel() Channel {
	return g.channel
}

// Error returns the estimate minus the true value at time t.
func (g *GroundTruth) Error(t float64, estimate []float64) []float64 {
	truth := make([]float64, len(estimate))
	for i := range truth {
		truth[i] = g.signal(t, i)
	}
	return floats.SubTo(make([]float64, len(estimate)), estimate, truth)
}

// SnapshotError returns the error of the ground truth channel in snap at time t.
func (g *GroundTruth) SnapshotError(t float64, snap Snapshot) []float64 {
	return g.Error(t, snap.Get(g.channel))
}

// ErrorStats accumulates per component errors over many cycles.
type ErrorStats struct {
	samples map[int][]float64
	size    int
}

// NewErrorStats returns empty statistics.
func NewErrorStats() *ErrorStats {
	return &ErrorStats{samples: make(map[int][]float64)}
}

// Add records one error vector. Components beyond the first vector's length
// are recorded as they appear.
func (s *ErrorStats) Add(err []float64) {
	for i, v := range err {
		s.samples[i] = append(s.samples[i], v)
	}
	if len(err) > s.size {
		s.size = len(err)
	}
}

// Len returns the number of components seen.
func (s *ErrorStats) Len() int {
	return s.size
}

// Count returns the number of errors recorded for component i.
func (s *ErrorStats) Count(i int) int {
	return len(s.samples[i])
}

// Mean returns the mean error of every component.
func (s *ErrorStats) Mean() []float64 {
	means := make([]float64, s.size)
	for i := range means {
		means[i] = stat.Mean(s.samples[i], nil)
	}
	return means
}

// StdDev returns the standard deviation of the error of every component.
func (s *ErrorStats) StdDev() []float64 {
	devs := make([]float64, s.size)
	for i := range devs {
		devs[i] = stat.StdDev(s.samples[i], nil)
	}
	return devs
}

// RMS returns the root mean square error of every component.
func (s *ErrorStats) RMS() []float64 {
	rms := make([]float64, s.size)
	for i := range rms {
		if n := len(s.samples[i]); n > 0 {
			rms[i] = floats.Norm(s.samples[i], 2) / math.Sqrt(float64(n))
		}
	}
	return rms
}

func (s *ErrorStats) String() string {
	return fmt.Sprintf("ErrorStats{mean: %v, stddev: %v, rms: %v}", s.Mean(), s.StdDev(), s.RMS())
}
