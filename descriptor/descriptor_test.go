package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chrisjcox79/shadow/descriptor"
	"github.com/chrisjcox79/shadow/sched"
	"github.com/chrisjcox79/shadow/simtime"
)

func newListener(fired *int) *descriptor.Listener {
	return descriptor.NewListener(func(object, argument interface{}) {
		*fired++
	}, nil, nil, nil, nil)
}

func TestFiresOnOffToOn(t *testing.T) {
	d := descriptor.NewDescriptor(3)
	fired := 0
	l := newListener(&fired)
	l.SetMonitorStatus(descriptor.StatusReadable, descriptor.ModeOffToOn)
	d.AddListener(l)

	d.AdjustStatus(descriptor.StatusReadable, true)
	assert.Equal(t, 1, fired)

	// Already on: no transition, no fire.
	d.AdjustStatus(descriptor.StatusReadable, true)
	assert.Equal(t, 1, fired)

	// Off then on again: fires again while attached.
	d.AdjustStatus(descriptor.StatusReadable, false)
	d.AdjustStatus(descriptor.StatusReadable, true)
	assert.Equal(t, 2, fired)
}

func TestDoesNotFireOnUnmonitoredBits(t *testing.T) {
	d := descriptor.NewDescriptor(3)
	fired := 0
	l := newListener(&fired)
	l.SetMonitorStatus(descriptor.StatusWritable, descriptor.ModeOffToOn)
	d.AddListener(l)

	d.AdjustStatus(descriptor.StatusReadable, true)
	assert.Equal(t, 0, fired)
	d.AdjustStatus(descriptor.StatusWritable, true)
	assert.Equal(t, 1, fired)
}

func TestModeNeverSilences(t *testing.T) {
	d := descriptor.NewDescriptor(3)
	fired := 0
	l := newListener(&fired)
	l.SetMonitorStatus(descriptor.StatusReadable, descriptor.ModeOffToOn)
	d.AddListener(l)
	l.SetMonitorStatus(descriptor.StatusNone, descriptor.ModeNever)

	d.AdjustStatus(descriptor.StatusReadable, true)
	assert.Equal(t, 0, fired)
}

func TestRemoveListenerStopsDelivery(t *testing.T) {
	d := descriptor.NewDescriptor(3)
	fired := 0
	l := newListener(&fired)
	l.SetMonitorStatus(descriptor.StatusReadable, descriptor.ModeOffToOn)
	d.AddListener(l)
	d.RemoveListener(l)

	d.AdjustStatus(descriptor.StatusReadable, true)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 0, d.NumListeners())
}

// A listener that detaches and disables a peer during delivery keeps
// the peer quiet for the rest of the batch.
func TestDetachThenDisableWithinBatch(t *testing.T) {
	d := descriptor.NewDescriptor(3)
	var first, second *descriptor.Listener
	firstFired, secondFired := 0, 0
	first = descriptor.NewListener(func(object, argument interface{}) {
		firstFired++
		d.RemoveListener(second)
		second.SetMonitorStatus(descriptor.StatusNone, descriptor.ModeNever)
	}, nil, nil, nil, nil)
	second = descriptor.NewListener(func(object, argument interface{}) {
		secondFired++
	}, nil, nil, nil, nil)
	first.SetMonitorStatus(descriptor.StatusReadable, descriptor.ModeOffToOn)
	second.SetMonitorStatus(descriptor.StatusReadable, descriptor.ModeOffToOn)
	d.AddListener(first)
	d.AddListener(second)

	d.AdjustStatus(descriptor.StatusReadable, true)
	assert.Equal(t, 1, firstFired)
	assert.Equal(t, 0, secondFired)
}

func TestListenerReleasesHandlesOnce(t *testing.T) {
	objectFrees, argumentFrees := 0, 0
	l := descriptor.NewListener(func(object, argument interface{}) {},
		"object", func() { objectFrees++ },
		"argument", func() { argumentFrees++ })
	l.Ref()
	l.Unref()
	assert.Equal(t, 0, objectFrees)
	l.Unref()
	assert.Equal(t, 1, objectFrees)
	assert.Equal(t, 1, argumentFrees)
}

func TestTimerExpiresOnVirtualClock(t *testing.T) {
	eq := sched.NewEventQueue()
	tm := descriptor.NewTimer(7)
	fired := 0
	l := newListener(&fired)
	l.SetMonitorStatus(descriptor.StatusReadable, descriptor.ModeOffToOn)
	tm.AddListener(l)

	tm.Arm(eq, 10*simtime.Millisecond)
	eq.RunUntil(5 * simtime.Millisecond)
	assert.Equal(t, 0, fired)
	assert.Equal(t, descriptor.StatusNone, tm.Status())
	eq.RunUntil(10 * simtime.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, uint64(1), tm.NumExpires())
	assert.Equal(t, descriptor.StatusReadable, tm.Status()&descriptor.StatusReadable)
}

func TestTimerDisarmCancelsPendingExpiry(t *testing.T) {
	eq := sched.NewEventQueue()
	tm := descriptor.NewTimer(7)
	fired := 0
	l := newListener(&fired)
	l.SetMonitorStatus(descriptor.StatusReadable, descriptor.ModeOffToOn)
	tm.AddListener(l)

	tm.Arm(eq, 10*simtime.Millisecond)
	tm.Disarm()
	eq.RunUntil(20 * simtime.Millisecond)
	assert.Equal(t, 0, fired)
	assert.Equal(t, uint64(0), tm.NumExpires())
}

func TestTimerRearmSupersedesOldExpiry(t *testing.T) {
	eq := sched.NewEventQueue()
	tm := descriptor.NewTimer(7)
	tm.Arm(eq, 10*simtime.Millisecond)
	tm.Arm(eq, 30*simtime.Millisecond)
	eq.RunUntil(10 * simtime.Millisecond)
	assert.Equal(t, uint64(0), tm.NumExpires())
	eq.RunUntil(30 * simtime.Millisecond)
	assert.Equal(t, uint64(1), tm.NumExpires())
}
