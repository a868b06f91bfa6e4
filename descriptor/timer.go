package descriptor

import (
	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/sched"
	"github.com/chrisjcox79/shadow/simtime"
)

// Timer is a descriptor that becomes readable when its expiry elapses
// on the virtual clock. Readability signals expiration; re-arming or
// disarming clears it.
type Timer struct {
	*Descriptor
	expireTime simtime.Time
	numExpires uint64
	generation uint64
}

func NewTimer(handle int) *Timer {
	return &Timer{
		Descriptor: NewDescriptor(handle),
		expireTime: simtime.TimeInvalid,
	}
}

// Arm schedules the timer to expire delay ticks from now. The pending
// expiration task owns a timer reference.
func (t *Timer) Arm(s sched.Scheduler, delay simtime.Time) {
	t.generation++
	gen := t.generation
	t.expireTime = s.Now() + delay
	t.AdjustStatus(StatusReadable, false)
	t.Ref()
	task := sched.NewTask(func() {
		if t.generation == gen {
			t.expire()
		}
	}, func() {
		t.Unref()
	})
	s.ScheduleTask(task, delay)
	db.DPrintf(db.TIMER, "timer %d armed for %v", t.Handle(), t.expireTime)
}

// Disarm cancels a pending expiration and clears readability.
func (t *Timer) Disarm() {
	t.generation++
	t.expireTime = simtime.TimeInvalid
	t.AdjustStatus(StatusReadable, false)
}

func (t *Timer) expire() {
	t.numExpires++
	db.DPrintf(db.TIMER, "timer %d expired (%d)", t.Handle(), t.numExpires)
	t.AdjustStatus(StatusReadable, true)
}

func (t *Timer) ExpireTime() simtime.Time {
	return t.expireTime
}

func (t *Timer) NumExpires() uint64 {
	return t.numExpires
}
