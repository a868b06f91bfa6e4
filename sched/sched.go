// Package sched is the event-scheduler surface consumed by the process
// core: tasks posted at a virtual-time delay, fired in deadline order
// with insertion-order tie-break.
package sched

import (
	"github.com/chrisjcox79/shadow/simtime"
)

// A Task couples a run callback with a free callback. The free
// callback releases whatever the task owns (e.g. a process reference)
// and runs exactly once: after the task fires, or when the queue drops
// it unexecuted.
type Task struct {
	run   func()
	free  func()
	freed bool
}

func NewTask(run func(), free func()) *Task {
	return &Task{run: run, free: free}
}

func (t *Task) Run() {
	t.run()
}

// Free releases the task's owned references. Calls after the first
// are no-ops.
func (t *Task) Free() {
	if t.freed {
		return
	}
	t.freed = true
	if t.free != nil {
		t.free()
	}
}

// Scheduler is the interface the process core schedules against.
type Scheduler interface {
	// ScheduleTask posts task to fire delay ticks from Now. The
	// scheduler takes ownership of the task.
	ScheduleTask(task *Task, delay simtime.Time)
	// Now returns the current virtual time.
	Now() simtime.Time
}
