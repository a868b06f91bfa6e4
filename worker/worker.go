// Package worker holds the per-worker state shared by the processes of
// the hosts assigned to one event loop: the scheduler handle, the
// active-process slot used by the syscall interception layer, the
// plugin error counter, and object lifetime counters.
//
// A worker runs a single-threaded cooperative event loop; none of this
// state needs atomic access.
package worker

import (
	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/sched"
	"github.com/chrisjcox79/shadow/simtime"
)

// ActiveProcess is the view of a process the interception layer needs
// to route an intercepted call back to its owner.
type ActiveProcess interface {
	Name() string
}

type Worker struct {
	scheduler    sched.Scheduler
	active       ActiveProcess
	pluginErrors int
	counts       *objCounts
}

func NewWorker(scheduler sched.Scheduler) *Worker {
	return &Worker{
		scheduler: scheduler,
		counts:    newObjCounts(),
	}
}

func (w *Worker) ScheduleTask(task *sched.Task, delay simtime.Time) {
	w.scheduler.ScheduleTask(task, delay)
}

func (w *Worker) Now() simtime.Time {
	return w.scheduler.Now()
}

// SetActiveProcess binds p as the process currently executing guest
// code on this worker. Pass nil to clear.
func (w *Worker) SetActiveProcess(p ActiveProcess) {
	if p != nil {
		db.DPrintf(db.WORKER, "active process %v", p.Name())
	}
	w.active = p
}

func (w *Worker) ActiveProcess() ActiveProcess {
	return w.active
}

// RunAsActive executes fn with p bound as the active process and
// restores the previous binding on every exit path.
func (w *Worker) RunAsActive(p ActiveProcess, fn func()) {
	prev := w.active
	w.SetActiveProcess(p)
	defer w.SetActiveProcess(prev)
	fn()
}

func (w *Worker) IncrementPluginError() {
	w.pluginErrors++
}

func (w *Worker) PluginErrors() int {
	return w.pluginErrors
}
