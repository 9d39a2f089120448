package yarpwbi

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowPassAlpha(t *testing.T) {
	alpha := LowPassAlpha(3, 0.01)
	assert.InDelta(t, 1-math.Exp(-2*math.Pi*0.03), alpha, 1e-15)
	if alpha <= 0 || alpha >= 1 {
		t.Fatalf("alpha %f outside (0, 1)", alpha)
	}
	if LowPassAlpha(30, 0.01) <= alpha {
		t.Fatal("a higher cut frequency must track faster")
	}
}

func TestLowPassConstantInput(t *testing.T) {
	f, err := NewLowPassFilter(3, 0.01, []float64{4, -1})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		y := f.Filt([]float64{4, -1})
		assert.Equal(t, []float64{4, -1}, y)
	}
}

func TestLowPassStepConverges(t *testing.T) {
	f, err := NewLowPassFilter(3, 0.01, []float64{0})
	require.NoError(t, err)
	alpha := f.Alpha()
	prev := 0.0
	for i := 1; i <= 500; i++ {
		y := f.Filt([]float64{1})
		want := 1 - math.Pow(1-alpha, float64(i))
		assert.InDelta(t, want, y[0], 1e-12, "step %d", i)
		if y[0] < prev || y[0] > 1 {
			t.Fatalf("step %d: output %f not monotone towards 1", i, y[0])
		}
		prev = y[0]
	}
	assert.InDelta(t, 1.0, prev, 1e-6)
}

func TestLowPassSetCutFrequency(t *testing.T) {
	f, err := NewLowPassFilter(3, 0.01, []float64{0})
	require.NoError(t, err)
	f.Filt([]float64{1})
	before := f.Output()

	require.NoError(t, f.SetCutFrequency(10))
	assert.Equal(t, 10.0, f.CutFrequency())
	assert.InDelta(t, LowPassAlpha(10, 0.01), f.Alpha(), 1e-15)
	assert.Equal(t, before, f.Output(), "changing the cut frequency must keep the state")

	for _, fc := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		if err := f.SetCutFrequency(fc); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("cut frequency %f accepted: %v", fc, err)
		}
	}
	assert.Equal(t, 10.0, f.CutFrequency())
}

func TestLowPassInvalidConstruction(t *testing.T) {
	if _, err := NewLowPassFilter(0, 0.01, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("zero cut frequency accepted: %v", err)
	}
	if _, err := NewLowPassFilter(3, 0, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("zero sample period accepted: %v", err)
	}
}

func TestLowPassResize(t *testing.T) {
	f, err := NewLowPassFilter(3, 0.01, []float64{0, 0})
	require.NoError(t, err)
	f.Filt([]float64{1, 1})
	state := f.Output()

	y := f.Filt([]float64{1, 1, 5})
	require.Len(t, y, 3)
	assert.Equal(t, 5.0, y[2], "a new entry starts at its raw value")
	assert.Greater(t, y[0], state[0])

	y = f.Filt([]float64{1})
	require.Len(t, y, 1)
}
