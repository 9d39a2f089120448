package yarpwbi

import (
	"fmt"
	"strings"
	"time"
)

// Estimates holds the last value of every channel. It is not safe for
// concurrent use, the Estimator guards it with its lock.
type Estimates struct {
	channels [numChannels][]float64
}

// Len returns the length of a channel.
func (s *Estimates) Len(ch Channel) int {
	return len(s.channels[ch])
}

// Get returns the channel vector itself, not a copy.
func (s *Estimates) Get(ch Channel) []float64 {
	return s.channels[ch]
}

// Set copies v into the channel. v must have the channel length.
func (s *Estimates) Set(ch Channel, v []float64) error {
	if err := checkDims(s.channels[ch], v, ch.String(), "value", lengthsEqual); err != nil {
		return err
	}
	copy(s.channels[ch], v)
	return nil
}

// Resize sets the length of a channel to n. Values at common indices are
// kept and new entries are zero. Returns whether the length changed.
func (s *Estimates) Resize(ch Channel, n int) bool {
	if len(s.channels[ch]) == n {
		return false
	}
	s.channels[ch] = resizeVec(s.channels[ch], n)
	return true
}

// Clear drops the content of every channel.
func (s *Estimates) Clear() {
	for i := range s.channels {
		s.channels[i] = nil
	}
}

// Snapshot is a consistent copy of every channel taken at the end of a cycle.
type Snapshot struct {
	Cycle    uint64
	Time     time.Time
	Channels [numChannels][]float64
}

func (s *Estimates) snapshot(cycle uint64, at time.Time) Snapshot {
	snap := Snapshot{Cycle: cycle, Time: at}
	for i, v := range s.channels {
		snap.Channels[i] = cloneVec(v)
		if snap.Channels[i] == nil {
			snap.Channels[i] = []float64{}
		}
	}
	return snap
}

// Get returns the values of a channel.
func (s Snapshot) Get(ch Channel) []float64 {
	if ch >= numChannels {
		return nil
	}
	return s.Channels[ch]
}

func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %d", s.Cycle)
	for i, v := range s.Channels {
		fmt.Fprintf(&b, " %s=%v", Channel(i), v)
	}
	return b.String()
}
