//go:build linux

package thread

import (
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"

	db "github.com/chrisjcox79/shadow/debug"
)

// ptraceThread supervises a guest under ptrace: the child is spawned
// stopped, and a dedicated OS thread steps it from syscall stop to
// syscall stop, consulting the interposition handler at each entry.
type ptraceThread struct {
	refbase
	tid        Tid
	name       string
	exePath    string
	handler    SyscallHandler
	ctl        *controller
	pid        int
	running    bool
	returnCode int
}

// NewPtrace builds a ptrace-supervised thread. A nil handler uses
// DefaultHandler.
func NewPtrace(tid Tid, name string, exePath string, handler SyscallHandler) Thread {
	if handler == nil {
		handler = DefaultHandler
	}
	return &ptraceThread{
		refbase: refbase{refcount: 1},
		tid:     tid,
		name:    name,
		exePath: exePath,
		handler: handler,
	}
}

func (t *ptraceThread) Tid() Tid {
	return t.tid
}

func (t *ptraceThread) Run(argv []string, envv []string, stderrFD int, stdoutFD int) {
	t.ctl = newController()
	t.running = true
	go t.supervise(argv, envv, stderrFD, stdoutFD)
	t.handleYield(t.ctl.waitYield())
}

func (t *ptraceThread) Resume() {
	t.handleYield(t.ctl.resume())
}

func (t *ptraceThread) handleYield(y yieldReason) {
	if y == yieldExited {
		t.running = false
		db.DPrintf(db.PTRACE, "thread %v [%v] exited code %d", t.tid, t.name, t.returnCode)
	} else {
		db.DPrintf(db.PTRACE, "thread %v [%v] blocked", t.tid, t.name)
	}
}

func (t *ptraceThread) Terminate() {
	if !t.running {
		return
	}
	db.DPrintf(db.PTRACE, "terminate thread %v [%v] pid %d", t.tid, t.name, t.pid)
	unix.Kill(t.pid, unix.SIGKILL)
	t.ctl.stop()
	t.running = false
}

func (t *ptraceThread) IsRunning() bool {
	return t.running
}

func (t *ptraceThread) ReturnCode() int {
	return t.returnCode
}

func (t *ptraceThread) Unref() {
	t.unref(t.name, func() {
		if t.running {
			t.Terminate()
		}
	})
}

// spawn builds and starts the traced child. The optional trampoline
// applies the seccomp interposition filter in the child before exec.
func (t *ptraceThread) spawn(argv []string, envv []string, stderrFD int, stdoutFD int) (*exec.Cmd, error) {
	path := t.exePath
	args := argv
	if tramp := os.Getenv("SHADOW_TRAMPOLINE_BIN"); tramp != "" {
		path = tramp
		args = append([]string{tramp, t.exePath}, argv[1:]...)
		envv = append(envv, "SHADOW_INTERPOSE=PTRACE")
	}
	cmd := exec.Command(path)
	cmd.Args = args
	cmd.Env = envv
	cmd.Stdout = os.NewFile(uintptr(stdoutFD), t.name+".stdout")
	cmd.Stderr = os.NewFile(uintptr(stderrFD), t.name+".stderr")
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true, Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// supervise runs on a locked OS thread: ptrace requests must come
// from the thread that attached.
func (t *ptraceThread) supervise(argv []string, envv []string, stderrFD int, stdoutFD int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cmd, err := t.spawn(argv, envv, stderrFD, stdoutFD)
	if err != nil {
		db.DPrintf(db.THREAD_ERR, "spawn %v: %v", t.exePath, err)
		t.returnCode = 127
		t.ctl.exited()
		return
	}
	t.pid = cmd.Process.Pid
	db.DPrintf(db.PTRACE, "thread %v [%v] spawned pid %d", t.tid, t.name, t.pid)

	// The child stops with SIGTRAP at exec.
	var ws unix.WaitStatus
	if _, err := unix.Wait4(t.pid, &ws, 0, nil); err != nil {
		db.DPrintf(db.THREAD_ERR, "initial wait pid %d: %v", t.pid, err)
		t.returnCode = 127
		t.ctl.exited()
		return
	}
	unix.PtraceSetOptions(t.pid, unix.PTRACE_O_EXITKILL|unix.PTRACE_O_TRACESYSGOOD)

	inSyscall := false
	var pending Syscall
	for {
		if err := unix.PtraceSyscall(t.pid, 0); err != nil {
			t.reap(&ws)
			return
		}
		if _, err := unix.Wait4(t.pid, &ws, 0, nil); err != nil {
			t.reap(&ws)
			return
		}
		if ws.Exited() {
			t.returnCode = ws.ExitStatus()
			t.ctl.exited()
			return
		}
		if ws.Signaled() {
			t.returnCode = 128 + int(ws.Signal())
			t.ctl.exited()
			return
		}
		if !ws.Stopped() {
			continue
		}
		// Syscall stops arrive with SIGTRAP|0x80 under TRACESYSGOOD.
		if ws.StopSignal() != unix.SIGTRAP|0x80 {
			continue
		}
		inSyscall = !inSyscall
		if !inSyscall {
			// Syscall exit stop: record the observed return value.
			var regs unix.PtraceRegs
			if err := unix.PtraceGetRegs(t.pid, &regs); err == nil {
				pending.Ret = syscallRet(&regs)
				db.DPrintf(db.PTRACE, "thread %v syscall %d ret %d", t.tid, pending.Num, int64(pending.Ret))
			}
			continue
		}
		var regs unix.PtraceRegs
		if err := unix.PtraceGetRegs(t.pid, &regs); err != nil {
			continue
		}
		pending = Syscall{Num: syscallNum(&regs), Args: syscallArgs(&regs)}
		sc := &pending
		switch t.handler.HandleSyscall(t.tid, sc) {
		case ActionBlock:
			if !t.ctl.block() {
				// Stopped while parked; the child was killed.
				unix.Wait4(t.pid, &ws, 0, nil)
				t.setKilled(&ws)
				t.ctl.finish()
				return
			}
		default:
			// Native and emulated calls keep the guest running.
		}
	}
}

// reap collects a child that vanished under us (killed or detached).
func (t *ptraceThread) reap(ws *unix.WaitStatus) {
	unix.Wait4(t.pid, ws, unix.WNOHANG, nil)
	t.setKilled(ws)
	t.ctl.exited()
}

func (t *ptraceThread) setKilled(ws *unix.WaitStatus) {
	if ws.Signaled() {
		t.returnCode = 128 + int(ws.Signal())
	} else if ws.Exited() {
		t.returnCode = ws.ExitStatus()
	} else {
		t.returnCode = 128 + int(unix.SIGKILL)
	}
}
