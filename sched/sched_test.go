package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chrisjcox79/shadow/sched"
	"github.com/chrisjcox79/shadow/simtime"
)

func TestFireOrder(t *testing.T) {
	eq := sched.NewEventQueue()
	order := make([]int, 0)
	mk := func(id int) *sched.Task {
		return sched.NewTask(func() { order = append(order, id) }, nil)
	}
	eq.ScheduleTask(mk(1), 20)
	eq.ScheduleTask(mk(2), 10)
	eq.ScheduleTask(mk(3), 30)
	eq.RunUntil(30)
	assert.Equal(t, []int{2, 1, 3}, order)
	assert.Equal(t, simtime.Time(30), eq.Now())
}

func TestInsertionOrderTieBreak(t *testing.T) {
	eq := sched.NewEventQueue()
	order := make([]int, 0)
	for i := 0; i < 10; i++ {
		id := i
		eq.ScheduleTask(sched.NewTask(func() { order = append(order, id) }, nil), 5)
	}
	eq.Drain()
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestNowAdvancesToDeadline(t *testing.T) {
	eq := sched.NewEventQueue()
	var at simtime.Time
	eq.ScheduleTask(sched.NewTask(func() { at = eq.Now() }, nil), 7)
	eq.RunUntil(100)
	assert.Equal(t, simtime.Time(7), at)
	assert.Equal(t, simtime.Time(100), eq.Now())
}

func TestTaskFreedOnceAfterRun(t *testing.T) {
	eq := sched.NewEventQueue()
	nfree := 0
	task := sched.NewTask(func() {}, func() { nfree++ })
	eq.ScheduleTask(task, 1)
	eq.Drain()
	task.Free()
	assert.Equal(t, 1, nfree)
}

func TestDropFreesUnexecuted(t *testing.T) {
	eq := sched.NewEventQueue()
	nrun, nfree := 0, 0
	eq.ScheduleTask(sched.NewTask(func() { nrun++ }, func() { nfree++ }), 1)
	eq.ScheduleTask(sched.NewTask(func() { nrun++ }, func() { nfree++ }), 2)
	eq.Drop()
	assert.Equal(t, 0, nrun)
	assert.Equal(t, 2, nfree)
}

// A task scheduled from within a task at the same tick still fires
// within the same RunUntil.
func TestRescheduleWithinTick(t *testing.T) {
	eq := sched.NewEventQueue()
	fired := false
	eq.ScheduleTask(sched.NewTask(func() {
		eq.ScheduleTask(sched.NewTask(func() { fired = true }, nil), 0)
	}, nil), 5)
	eq.RunUntil(5)
	assert.True(t, fired)
}
