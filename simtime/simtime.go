// Package simtime defines the virtual clock unit for the simulation.
// Virtual time advances only when events fire and is independent of
// wall time.
package simtime

import (
	"time"
)

// Time is a point on (or an interval of) the simulated timeline, in
// nanosecond ticks.
type Time uint64

const (
	Nanosecond  Time = 1
	Microsecond      = 1000 * Nanosecond
	Millisecond      = 1000 * Microsecond
	Second           = 1000 * Millisecond
)

// TimeInvalid marks an unset time value.
const TimeInvalid Time = ^Time(0)

func (t Time) String() string {
	return time.Duration(t).String()
}

// Seconds converts ticks to floating-point seconds.
func (t Time) Seconds() float64 {
	return float64(t) / float64(Second)
}

// FromSeconds converts floating-point seconds to ticks. This is the
// conversion applied to measured guest CPU bursts; one wall second of
// guest execution costs one virtual second.
func FromSeconds(sec float64) Time {
	return Time(sec * float64(Second))
}

// FromDuration converts a wall duration to ticks.
func FromDuration(d time.Duration) Time {
	return Time(d.Nanoseconds())
}
