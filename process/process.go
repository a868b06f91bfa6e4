// Package process implements the per-guest-program controller: it
// owns the native thread, schedules start and stop on the virtual
// clock, accounts guest CPU time against the simulation, and arms
// waiters that resume the guest when awaited events fire.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/host"
	"github.com/chrisjcox79/shadow/params"
	"github.com/chrisjcox79/shadow/sched"
	"github.com/chrisjcox79/shadow/simtime"
	"github.com/chrisjcox79/shadow/thread"
	"github.com/chrisjcox79/shadow/worker"
)

// newThread builds the main thread; tests swap it to script guests.
var newThread = func(method thread.InterposeMethod, tid thread.Tid, name string, exePath string, h thread.SyscallHandler) thread.Thread {
	return thread.New(method, tid, name, exePath, h)
}

type Process struct {
	host   *host.Host
	worker *worker.Worker

	processID   uint32
	processName string

	interposeMethod thread.InterposeMethod

	exeName string
	exePath string

	// true from entering guest code until the call completes; the
	// guest may reenter simulator code meanwhile, via an intercepted
	// call.
	isExecuting bool

	totalRunTime float64

	startTime simtime.Time
	stopTime  simtime.Time

	argv []string
	envv []string

	returnCode       int
	didLogReturnCode bool

	mainThread      thread.Thread
	threadIDCounter thread.Tid
	handler         thread.SyscallHandler

	stdoutFile *os.File
	stderrFile *os.File
	stdoutFD   int
	stderrFD   int

	refcount int
}

// New stores the process configuration. It does not open files and
// does not spawn a thread; a stopTime of zero means "never stop".
// Ownership of argv and envv transfers to the process.
func New(h *host.Host, processID uint32, startTime simtime.Time, stopTime simtime.Time,
	interposeMethod thread.InterposeMethod, hostName string, exeName string, exePath string,
	envv []string, argv []string) *Process {
	if exeName == "" {
		db.DFatalf("process %d: no executable name", processID)
	}
	if exePath == "" {
		db.DFatalf("process %d: no executable path", processID)
	}
	p := &Process{
		host:            h,
		worker:          h.Worker(),
		processID:       processID,
		processName:     fmt.Sprintf("%s.%s.%d", hostName, exeName, processID),
		interposeMethod: interposeMethod,
		exeName:         exeName,
		exePath:         exePath,
		startTime:       startTime,
		stopTime:        stopTime,
		argv:            argv,
		envv:            envv,
		stdoutFD:        -1,
		stderrFD:        -1,
		refcount:        1,
	}
	h.Ref()
	p.worker.CountObject(worker.TobjProcess, worker.CountNew)
	return p
}

func (p *Process) Name() string {
	return p.processName
}

func (p *Process) InterposeMethod() thread.InterposeMethod {
	return p.interposeMethod
}

// SetSyscallHandler wires the interposition layer's handler into
// threads spawned for this process. Must be called before start.
func (p *Process) SetSyscallHandler(h thread.SyscallHandler) {
	p.handler = h
}

func (p *Process) IsRunning() bool {
	return p.mainThread != nil && p.mainThread.IsRunning()
}

// TODO: wire epoll descriptors into the listener layer so an epollfd
// wait can notify its owning process.
func (p *Process) WantsNotify(epollfd int) bool {
	return false
}

func (p *Process) TotalRunTime() float64 {
	return p.totalRunTime
}

func (p *Process) ReturnCode() int {
	return p.returnCode
}

// Schedule posts the start and stop tasks for this process. Tasks due
// now or in the past still get a delay of one tick, preserving event
// ordering. Each task owns a process reference, released when the
// task is freed.
func (p *Process) Schedule() {
	now := p.worker.Now()

	if p.stopTime == 0 || p.startTime < p.stopTime {
		startDelay := simtime.Time(1)
		if p.startTime > now {
			startDelay = p.startTime - now
		}
		p.Ref()
		p.worker.CountObject(worker.TobjTask, worker.CountNew)
		task := sched.NewTask(func() {
			p.start()
		}, func() {
			p.worker.CountObject(worker.TobjTask, worker.CountFree)
			p.Unref()
		})
		p.worker.ScheduleTask(task, startDelay)
	}

	if p.stopTime > 0 && p.stopTime > p.startTime {
		stopDelay := simtime.Time(1)
		if p.stopTime > now {
			stopDelay = p.stopTime - now
		}
		p.Ref()
		p.worker.CountObject(worker.TobjTask, worker.CountNew)
		task := sched.NewTask(func() {
			p.Stop()
		}, func() {
			p.worker.CountObject(worker.TobjTask, worker.CountFree)
			p.Unref()
		})
		p.worker.ScheduleTask(task, stopDelay)
	}
}

func (p *Process) openStdioFile(suffix string) (*os.File, int) {
	pn := filepath.Join(p.host.DataPath(), p.processName+suffix)
	f, err := os.OpenFile(pn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(params.Conf.Stdio.FILE_MODE))
	if err != nil {
		db.DFatalf("Opening %v: %v", pn, err)
	}
	return f, int(f.Fd())
}

func (p *Process) start() {
	// dont do anything if we are already running
	if p.IsRunning() {
		return
	}

	p.stdoutFile, p.stdoutFD = p.openStdioFile(".stdout")
	p.stderrFile, p.stderrFD = p.openStdioFile(".stderr")

	if p.mainThread != nil {
		db.DFatalf("process '%v' starting with live main thread", p.processName)
	}
	p.mainThread = newThread(p.interposeMethod, p.threadIDCounter, p.processName, p.exePath, p.handler)
	p.threadIDCounter++
	p.worker.CountObject(worker.TobjThread, worker.CountNew)

	db.DPrintf(db.PROCESS, "starting process '%v'", p.processName)

	elapsed := p.runGuest(func() {
		p.mainThread.Run(p.argv, p.envv, p.stderrFD, p.stdoutFD)
	})

	db.DPrintf(db.PROCESS, "process '%v' started in %f seconds", p.processName, elapsed)

	p.check()
}

// Continue resumes the guest after an awaited event occurred. The
// thread argument selects which thread to resume; nil means the main
// thread.
func (p *Process) Continue(t thread.Thread) {
	// if we are not running, no need to notify anyone
	if !p.IsRunning() {
		return
	}

	db.DPrintf(db.PROCESS, "switching to thread controller to continue executing process '%v'", p.processName)

	elapsed := p.runGuest(func() {
		if t != nil {
			t.Resume()
		} else {
			p.mainThread.Resume()
		}
	})

	db.DPrintf(db.PROCESS, "process '%v' ran for %f seconds", p.processName, elapsed)

	p.check()
}

// Stop terminates the guest. A no-op if the guest already exited.
func (p *Process) Stop() {
	db.DPrintf(db.PROCESS, "terminating process '%v'", p.processName)

	elapsed := p.runGuest(func() {
		if p.mainThread != nil {
			p.mainThread.Terminate()
			p.mainThread.Unref()
			p.mainThread = nil
			p.worker.CountObject(worker.TobjThread, worker.CountFree)
		}
	})

	db.DPrintf(db.PROCESS, "process '%v' stopped in %f seconds", p.processName, elapsed)

	p.check()
}

// runGuest wraps one entry into guest code: the process is bound as
// the worker's active process and the isExecuting latch is held for
// exactly the duration of the call, on all exit paths. The measured
// wall time is charged to the host.
func (p *Process) runGuest(fn func()) float64 {
	var elapsed float64
	p.worker.RunAsActive(p, func() {
		start := time.Now()
		p.isExecuting = true
		defer func() {
			p.isExecuting = false
			elapsed = time.Since(start).Seconds()
		}()
		fn()
	})
	p.handleTimerResult(elapsed)
	return elapsed
}

// handleTimerResult converts one guest burst's wall seconds into a
// virtual delay charged to the host CPU and tracker.
func (p *Process) handleTimerResult(elapsedSec float64) {
	delay := simtime.FromSeconds(elapsedSec)
	p.host.CPU().AddDelay(delay)
	p.host.Tracker().AddProcessingTime(delay)
	p.totalRunTime += elapsedSec
}

func (p *Process) logReturnCode(code int) {
	if p.didLogReturnCode {
		return
	}
	if code == 0 {
		db.DPrintf(db.ALWAYS, "main success code '0' for process '%v'", p.processName)
	} else {
		db.DPrintf(db.ALWAYS, "main error code '%d' for process '%v'", code, p.processName)
		p.worker.IncrementPluginError()
	}
	p.didLogReturnCode = true
}

func (p *Process) check() {
	if p.mainThread == nil {
		return
	}

	if p.mainThread.IsRunning() {
		db.DPrintf(db.PROCESS, "process '%v' is running, but threads are blocked waiting for events", p.processName)
		return
	}

	// collect return code
	p.returnCode = p.mainThread.ReturnCode()

	db.DPrintf(db.PROCESS, "process '%v' has completed or is otherwise no longer running", p.processName)
	p.logReturnCode(p.returnCode)

	p.mainThread.Terminate()
	p.mainThread.Unref()
	p.mainThread = nil
	p.worker.CountObject(worker.TobjThread, worker.CountFree)

	db.DPrintf(db.PROCESS, "total runtime for process '%v' was %f seconds", p.processName, p.totalRunTime)
}

func (p *Process) Ref() {
	p.refcount++
}

func (p *Process) Unref() {
	p.refcount--
	if p.refcount < 0 {
		db.DFatalf("process '%v' refcount %d", p.processName, p.refcount)
	}
	if p.refcount == 0 {
		p.free()
	}
}

func (p *Process) free() {
	// stop the guest if it is still running
	if p.mainThread != nil {
		if p.mainThread.IsRunning() {
			p.mainThread.Terminate()
		}
		p.mainThread.Unref()
		p.mainThread = nil
		p.worker.CountObject(worker.TobjThread, worker.CountFree)
	}

	p.argv = nil
	p.envv = nil

	if p.stdoutFile != nil {
		p.stdoutFile.Close()
	}
	if p.stderrFile != nil {
		p.stderrFile.Close()
	}

	p.host.Unref()
	p.worker.CountObject(worker.TobjProcess, worker.CountFree)
}
