package yarpwbi

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatesResize(t *testing.T) {
	var s Estimates
	assert.True(t, s.Resize(ChannelJointPos, 3))
	assert.False(t, s.Resize(ChannelJointPos, 3))
	require.NoError(t, s.Set(ChannelJointPos, []float64{1, 2, 3}))

	s.Resize(ChannelJointPos, 5)
	assert.Equal(t, []float64{1, 2, 3, 0, 0}, s.Get(ChannelJointPos))
	s.Resize(ChannelJointPos, 2)
	assert.Equal(t, []float64{1, 2}, s.Get(ChannelJointPos))
	assert.Equal(t, 0, s.Len(ChannelJointVel), "other channels are untouched")
}

func TestEstimatesSetDimension(t *testing.T) {
	var s Estimates
	s.Resize(ChannelMotorPWM, 2)
	err := s.Set(ChannelMotorPWM, []float64{1, 2, 3})
	if !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	assert.Equal(t, []float64{0, 0}, s.Get(ChannelMotorPWM))
}

func TestSnapshotIsACopy(t *testing.T) {
	var s Estimates
	s.Resize(ChannelJointTorque, 2)
	require.NoError(t, s.Set(ChannelJointTorque, []float64{1, 2}))
	now := time.Now()
	snap := s.snapshot(7, now)
	require.NoError(t, s.Set(ChannelJointTorque, []float64{3, 4}))

	assert.Equal(t, []float64{1, 2}, snap.Get(ChannelJointTorque))
	assert.Equal(t, []float64{}, snap.Get(ChannelJointPos))
	assert.Nil(t, snap.Get(numChannels))
	assert.Equal(t, uint64(7), snap.Cycle)
	assert.True(t, strings.HasPrefix(snap.String(), "cycle 7 q=[]"))

	s.Clear()
	assert.Equal(t, 0, s.Len(ChannelJointTorque))
}

func TestChannelNames(t *testing.T) {
	for _, ch := range Channels() {
		parsed, err := ParseChannel(ch.String())
		require.NoError(t, err)
		assert.Equal(t, ch, parsed)
		assert.NotZero(t, ch.Source())
	}
	_, err := ParseChannel("tau")
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, SensorTorque, ChannelMotorTorqueDerivative.Source())
	assert.Equal(t, SensorPWM, ChannelMotorPWM.Source())
}
