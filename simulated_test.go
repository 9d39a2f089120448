package yarpwbi

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestImplementsSensorSet(t *testing.T) {
	implements := func(SensorSet) {}
	implements(new(SimulatedSensors))
	implements(NewSimulatedSensors())
}

func TestSimulatedMembership(t *testing.T) {
	s := NewSimulatedSensors(WithSensors(SensorEncoder, ID{0, 0}, ID{0, 1}))
	assert.Equal(t, 2, s.SensorNumber(SensorEncoder))
	assert.False(t, s.AddSensor(SensorEncoder, ID{0, 1}), "duplicates are rejected")
	assert.True(t, s.AddSensor(SensorEncoder, ID{1, 0}))
	assert.Equal(t, 1, s.AddSensors(SensorEncoder, IDList{{0, 0}, {2, 3}}))
	assert.Equal(t, IDList{{0, 0}, {0, 1}, {1, 0}, {2, 3}}, s.SensorList(SensorEncoder))

	assert.True(t, s.RemoveSensor(SensorEncoder, ID{0, 1}))
	assert.False(t, s.RemoveSensor(SensorEncoder, ID{0, 1}))
	assert.Equal(t, IDList{{0, 0}, {1, 0}, {2, 3}}, s.SensorList(SensorEncoder))
	assert.Equal(t, 0, s.SensorNumber(SensorTorque))
}

func TestSimulatedReads(t *testing.T) {
	clock := &ManualClock{}
	s := NewSimulatedSensors(
		WithSimClock(clock.Now),
		WithSensors(SensorEncoder, ID{0, 0}, ID{0, 1}),
		WithSensors(SensorForceTorque, ID{0, 0}),
		WithSignal(SensorEncoder, Ramp(1)),
		WithSignal(SensorForceTorque, func(_ float64, i int) float64 { return float64(i) }),
	)
	_, _, err := s.ReadSensors(SensorEncoder, false)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.NoError(t, s.Init())

	clock.Advance(0.5)
	q, stamps, err := s.ReadSensors(SensorEncoder, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1}, q)
	assert.Equal(t, []float64{0.5, 0.5}, stamps)

	ft, stamp, err := s.ReadSensor(SensorForceTorque, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, ft)
	assert.Equal(t, 0.5, stamp)

	_, _, err = s.ReadSensor(SensorForceTorque, 1, true)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	values, _, err := s.ReadSensors(SensorForceTorque, false)
	require.NoError(t, err)
	assert.Len(t, values, 6)
}

func TestSimulatedFailures(t *testing.T) {
	s := NewSimulatedSensors(WithSensors(SensorTorque, ID{0, 0}))
	require.NoError(t, s.Init())
	s.FailReads(SensorTorque, 2)
	for i := 0; i < 2; i++ {
		if _, _, err := s.ReadSensors(SensorTorque, false); !errors.Is(err, ErrSensorRead) {
			t.Fatalf("read %d: expected ErrSensorRead, got %v", i, err)
		}
	}
	_, _, err := s.ReadSensors(SensorTorque, false)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Reads(SensorTorque))

	require.NoError(t, s.Close())
	_, _, err = s.ReadSensors(SensorTorque, false)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSimulatedWithoutTimestamps(t *testing.T) {
	s := NewSimulatedSensors(WithSensors(SensorPWM, ID{0, 0}), WithoutTimestamps(SensorPWM))
	require.NoError(t, s.Init())
	v, stamps, err := s.ReadSensors(SensorPWM, false)
	require.NoError(t, err)
	assert.Len(t, v, 1)
	assert.Nil(t, stamps)
	_, stamp, err := s.ReadSensor(SensorPWM, 0, false)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(stamp))
}

func TestSimulatedNoise(t *testing.T) {
	s := NewSimulatedSensors(
		WithSensors(SensorTorque, ID{0, 0}),
		WithSignal(SensorTorque, Constant(10)),
		WithSensorNoise(SensorTorque, 0.5),
	)
	require.NoError(t, s.Init())
	samples := make([]float64, 5000)
	for i := range samples {
		v, _, err := s.ReadSensors(SensorTorque, false)
		require.NoError(t, err)
		samples[i] = v[0]
	}
	mean, std := stat.MeanStdDev(samples, nil)
	assert.InDelta(t, 10, mean, 0.1)
	assert.InDelta(t, 0.5, std, 0.1)
}

func TestSignals(t *testing.T) {
	assert.Equal(t, 2.0, Constant(2)(5, 3))
	assert.Equal(t, 3.0, Ramp(1.5)(1, 1))
	assert.Equal(t, 4.0, Parabola(2)(2, 0))
	assert.InDelta(t, 0.0, Sine(1, 1)(0.5, 0), 1e-12)
}
