package process

import (
	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/descriptor"
	"github.com/chrisjcox79/shadow/thread"
	"github.com/chrisjcox79/shadow/worker"
)

// A waiter couples a timeout timer and/or a descriptor status to a
// one-shot resume of a guest thread. It fires once, whichever side
// triggers first, and then dismantles itself: both listeners are
// detached and disabled before the guest resumes, so nothing the
// resumed guest does can reenter the same waiter. A waiter is never
// reused.
//
// The waiter itself starts with no references; each installed
// listener holds one waiter reference and one process reference.
type waiter struct {
	thread        thread.Thread
	timer         *descriptor.Timer
	timerListener *descriptor.Listener
	desc          *descriptor.Descriptor
	descListener  *descriptor.Listener
	refcount      int
}

func (p *Process) unrefWaiter(w *waiter) {
	w.refcount--
	if w.refcount < 0 {
		db.DFatalf("waiter for process '%v' refcount %d", p.processName, w.refcount)
	}
	if w.refcount == 0 {
		if w.thread != nil {
			w.thread.Unref()
		}
		if w.timer != nil {
			w.timer.Unref()
		}
		if w.desc != nil {
			w.desc.Unref()
		}
		p.worker.CountObject(worker.TobjWaiter, worker.CountFree)
	}
}

func (p *Process) logListeningState(w *waiter, started bool) {
	if !db.WillBePrinted(db.WAITER) {
		return
	}
	verb := "stopped"
	if started {
		verb = "started"
	}
	s := ""
	if w.desc != nil {
		s += "status on descriptor "
		if w.timer != nil {
			s += "and "
		}
	}
	if w.timer != nil {
		s += "a timeout"
	}
	tid := thread.Tid(-1)
	if w.thread != nil {
		tid = w.thread.Tid()
	}
	db.DPrintf(db.WAITER, "process '%v' thread %v %v listening for %v", p.processName, tid, verb, s)
}

// notifyStatusChanged fires when either side of a waiter triggers.
// Both listeners are unregistered before the guest resumes; the
// final listener unrefs cascade into the waiter free.
func (p *Process) notifyStatusChanged(w *waiter) {
	p.logListeningState(w, false)

	// Unregister both listeners whenever either one triggers.
	if w.timer != nil && w.timerListener != nil {
		w.timer.RemoveListener(w.timerListener)
		w.timerListener.SetMonitorStatus(descriptor.StatusNone, descriptor.ModeNever)
	}

	if w.desc != nil && w.descListener != nil {
		w.desc.RemoveListener(w.descListener)
		w.descListener.SetMonitorStatus(descriptor.StatusNone, descriptor.ModeNever)
	}

	p.Continue(w.thread)

	// Destroy the listeners, which also unrefs and frees the waiter.
	if w.timerListener != nil {
		w.timerListener.Unref()
	}
	if w.descListener != nil {
		w.descListener.Unref()
	}
}

// newWaiterListener builds one side's listener. The listener holds a
// reference to both the process and the waiter, released when the
// listener is destroyed.
func (p *Process) newWaiterListener(w *waiter) *descriptor.Listener {
	l := descriptor.NewListener(func(object, argument interface{}) {
		proc := object.(*Process)
		proc.notifyStatusChanged(argument.(*waiter))
	}, p, func() {
		p.Unref()
	}, w, func() {
		p.unrefWaiter(w)
		p.worker.CountObject(worker.TobjListener, worker.CountFree)
	})
	p.Ref()
	w.refcount++
	p.worker.CountObject(worker.TobjListener, worker.CountNew)
	return l
}

// ListenForStatus arms a wait for whichever fires first: the timeout
// expiring, or the descriptor reaching the given status. With neither
// side present it returns immediately.
func (p *Process) ListenForStatus(t thread.Thread, timeout *descriptor.Timer, d *descriptor.Descriptor, status descriptor.Status) {
	if timeout == nil && d == nil {
		return
	}

	w := &waiter{thread: t, timer: timeout, desc: d}

	// The waiter holds refs to these objects.
	if w.thread != nil {
		w.thread.Ref()
	}
	if w.timer != nil {
		w.timer.Ref()
	}
	if w.desc != nil {
		w.desc.Ref()
	}

	p.worker.CountObject(worker.TobjWaiter, worker.CountNew)

	if w.timer != nil {
		// The timer is readable when it expires.
		w.timerListener = p.newWaiterListener(w)
		w.timerListener.SetMonitorStatus(descriptor.StatusReadable, descriptor.ModeOffToOn)
		w.timer.AddListener(w.timerListener)
	}

	if w.desc != nil {
		// Monitor the requested status.
		w.descListener = p.newWaiterListener(w)
		w.descListener.SetMonitorStatus(status, descriptor.ModeOffToOn)
		w.desc.AddListener(w.descListener)
	}

	p.logListeningState(w, true)
}
