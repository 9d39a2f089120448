package yarpwbi

import (
	"fmt"
	"strconv"
	"strings"
)

// SensorType identifies a family of sensors in a SensorSet.
type SensorType uint8

const (
	// SensorEncoder is a joint encoder.
	SensorEncoder SensorType = iota + 1
	// SensorTorque is a joint torque sensor.
	SensorTorque
	// SensorPWM is a motor PWM reading.
	SensorPWM
	// SensorForceTorque is a six-axis force-torque sensor.
	SensorForceTorque
)

// SensorTypes lists every sensor type.
var SensorTypes = []SensorType{SensorEncoder, SensorTorque, SensorPWM, SensorForceTorque}

func (t SensorType) String() string {
	switch t {
	case SensorEncoder:
		return "encoder"
	case SensorTorque:
		return "torque"
	case SensorPWM:
		return "pwm"
	case SensorForceTorque:
		return "force_torque"
	}
	return fmt.Sprintf("sensor(%d)", uint8(t))
}

// Width is the number of values one sensor of this type produces.
func (t SensorType) Width() int {
	if t == SensorForceTorque {
		return 6
	}
	return 1
}

// ID identifies a sensor by body part and index within that part.
type ID struct {
	BodyPart int
	Index    int
}

func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.BodyPart, id.Index)
}

// ParseID parses an ID in its "part:index" form.
func ParseID(s string) (ID, error) {
	part, idx, ok := strings.Cut(s, ":")
	if !ok {
		return ID{}, fmt.Errorf("%w: sensor id %q is not part:index", ErrInvalidParameter, s)
	}
	p, err := strconv.Atoi(strings.TrimSpace(part))
	if err != nil {
		return ID{}, fmt.Errorf("%w: sensor id %q: %s", ErrInvalidParameter, s, err)
	}
	i, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return ID{}, fmt.Errorf("%w: sensor id %q: %s", ErrInvalidParameter, s, err)
	}
	return ID{BodyPart: p, Index: i}, nil
}

// IDList is an ordered list of sensor identifiers without duplicates.
// The position of an ID in the list is its numeric index.
type IDList []ID

// Index returns the numeric index of id, or -1.
func (l IDList) Index(id ID) int {
	for i, v := range l {
		if v == id {
			return i
		}
	}
	return -1
}

// Contains returns whether id is in the list.
func (l IDList) Contains(id ID) bool {
	return l.Index(id) >= 0
}

// Add appends id. Returns false if it is already present.
func (l *IDList) Add(id ID) bool {
	if l.Contains(id) {
		return false
	}
	*l = append(*l, id)
	return true
}

// AddAll appends every id not already present and returns how many were added.
func (l *IDList) AddAll(ids IDList) int {
	added := 0
	for _, id := range ids {
		if l.Add(id) {
			added++
		}
	}
	return added
}

// Remove deletes id keeping the order of the others. Returns false if it is absent.
func (l *IDList) Remove(id ID) bool {
	i := l.Index(id)
	if i < 0 {
		return false
	}
	*l = append((*l)[:i], (*l)[i+1:]...)
	return true
}

// Clone returns a copy of the list.
func (l IDList) Clone() IDList {
	if l == nil {
		return nil
	}
	out := make(IDList, len(l))
	copy(out, l)
	return out
}

// SensorSet is the source of raw readings for the estimator.
// Implementations must be safe for concurrent use.
type SensorSet interface {
	Init() error                                                               // Connects to the sensors.
	Close() error                                                              // Releases the sensors.
	SensorNumber(t SensorType) int                                             // Number of sensors of that type.
	SensorList(t SensorType) IDList                                            // Copy of the sensors of that type, in index order.
	AddSensor(t SensorType, id ID) bool                                        // Adds one sensor, false if rejected.
	AddSensors(t SensorType, ids IDList) int                                   // Adds many sensors, returns how many were added.
	RemoveSensor(t SensorType, id ID) bool                                     // Removes one sensor, false if absent.
	ReadSensors(t SensorType, blocking bool) ([]float64, []float64, error)     // Values (count*width) and one stamp per sensor.
	ReadSensor(t SensorType, i int, blocking bool) ([]float64, float64, error) // Width values and a stamp for sensor i.
}
