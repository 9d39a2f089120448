package yarpwbi

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when an operation needs an initialized component.
	ErrNotInitialized = errors.New("not initialized")
	// ErrInvalidParameter is returned for out of domain filter or configuration parameters.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrUnsupported is returned for estimate kinds or parameters that have no backing channel.
	ErrUnsupported = errors.New("unsupported")
	// ErrSensorRead is returned when a sensor set cannot produce a reading.
	ErrSensorRead = errors.New("sensor read failed")
	// ErrMissingRobotName is returned by Init when no robot name is configured.
	ErrMissingRobotName = errors.New("robot name is not configured")
	// ErrIndexOutOfRange is returned for element reads past the end of a channel.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDimension is returned when two vectors have mismatched lengths.
	ErrDimension = errors.New("dimensions must agree")
	// ErrLifecycle is returned when an estimator transition is requested from the wrong state.
	ErrLifecycle = errors.New("invalid lifecycle transition")
)

// DimensionAgreement defines how two vectors' lengths should agree.
type DimensionAgreement uint8

const (
	// lengthsEqual requires both vectors to have the same length.
	lengthsEqual DimensionAgreement = iota + 1
	// lengthAtLeast requires the first vector to be at least as long as the second.
	lengthAtLeast
)

// checkDims checks the vector lengths match provided a DimensionAgreement. Returns an error if not.
func checkDims(v1, v2 []float64, name1, name2 string, method DimensionAgreement) error {
	switch method {
	case lengthsEqual:
		if len(v1) != len(v2) {
			return fmt.Errorf("%w: %s(%d) %s(%d)", ErrDimension, name1, len(v1), name2, len(v2))
		}
	case lengthAtLeast:
		if len(v1) < len(v2) {
			return fmt.Errorf("%w: %s(%d) shorter than %s(%d)", ErrDimension, name1, len(v1), name2, len(v2))
		}
	}
	return nil
}
