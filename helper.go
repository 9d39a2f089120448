package yarpwbi

import "math"

// Zeros returns a zero vector of the provided size.
func Zeros(n int) []float64 {
	return make([]float64, n)
}

// IsNil returns whether the provided vector only has zero values.
func IsNil(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// resizeVec returns v with length n. Values at common indices are kept and
// new entries are zero. The backing array is reused when it is large enough.
func resizeVec(v []float64, n int) []float64 {
	if n <= cap(v) {
		old := len(v)
		v = v[:n]
		for i := old; i < n; i++ {
			v[i] = 0
		}
		return v
	}
	out := make([]float64, n)
	copy(out, v)
	return out
}

// resizeSeeded is resizeVec where new entries take the matching value in seed.
func resizeSeeded(v []float64, seed []float64) []float64 {
	old := len(v)
	out := make([]float64, len(seed))
	copy(out, v)
	for i := old; i < len(seed); i++ {
		out[i] = seed[i]
	}
	return out
}

func cloneVec(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// firstStamp returns the first finite timestamp of a reading, or NaN.
func firstStamp(stamps []float64) float64 {
	if len(stamps) == 0 || !isFinite(stamps[0]) {
		return math.NaN()
	}
	return stamps[0]
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// allFinite returns whether every entry of v is a finite number.
func allFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
