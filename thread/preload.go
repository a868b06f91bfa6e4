//go:build linux

package thread

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/params"
)

// Environment consumed by the preloaded shim library.
const (
	EnvShimLib       = "SHADOW_SHIM_LIB"
	EnvShimChannelFD = "SHADOW_SHIM_CHANNEL_FD"
)

// defaultShimLib is the injected library redirecting libc entry
// points into the shim channel.
const defaultShimLib = "libshadow-shim.so"

// preloadThread supervises a guest launched with the shim library
// preloaded: intercepted calls arrive as events on the shim channel
// instead of ptrace stops.
type preloadThread struct {
	refbase
	tid        Tid
	name       string
	exePath    string
	handler    SyscallHandler
	ctl        *controller
	ch         *ShimChannel
	cmd        *exec.Cmd
	running    bool
	returnCode int
}

// NewPreload builds a preload-supervised thread. A nil handler uses
// DefaultHandler.
func NewPreload(tid Tid, name string, exePath string, handler SyscallHandler) Thread {
	if handler == nil {
		handler = DefaultHandler
	}
	return &preloadThread{
		refbase: refbase{refcount: 1},
		tid:     tid,
		name:    name,
		exePath: exePath,
		handler: handler,
	}
}

func (t *preloadThread) Tid() Tid {
	return t.tid
}

func (t *preloadThread) Run(argv []string, envv []string, stderrFD int, stdoutFD int) {
	t.ctl = newController()
	t.running = true
	go t.supervise(argv, envv, stderrFD, stdoutFD)
	t.handleYield(t.ctl.waitYield())
}

func (t *preloadThread) Resume() {
	t.handleYield(t.ctl.resume())
}

func (t *preloadThread) handleYield(y yieldReason) {
	if y == yieldExited {
		t.running = false
		db.DPrintf(db.SHIM, "thread %v [%v] exited code %d", t.tid, t.name, t.returnCode)
	} else {
		db.DPrintf(db.SHIM, "thread %v [%v] blocked", t.tid, t.name)
	}
}

func (t *preloadThread) Terminate() {
	if !t.running {
		return
	}
	db.DPrintf(db.SHIM, "terminate thread %v [%v]", t.tid, t.name)
	if t.cmd != nil && t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	t.ch.Close()
	t.ctl.stop()
	t.running = false
}

func (t *preloadThread) IsRunning() bool {
	return t.running
}

func (t *preloadThread) ReturnCode() int {
	return t.returnCode
}

func (t *preloadThread) Unref() {
	t.unref(t.name, func() {
		if t.running {
			t.Terminate()
		}
	})
}

func (t *preloadThread) spawn(argv []string, envv []string, stderrFD int, stdoutFD int) error {
	ch, err := NewShimChannel()
	if err != nil {
		return err
	}
	t.ch = ch

	shimLib := os.Getenv(EnvShimLib)
	if shimLib == "" {
		shimLib = defaultShimLib
	}
	cmd := exec.Command(t.exePath)
	cmd.Args = argv
	// The channel memfd is inherited as the first extra fd (3).
	cmd.ExtraFiles = []*os.File{ch.File()}
	cmd.Env = append(envv,
		"LD_PRELOAD="+shimLib,
		fmt.Sprintf("%v=%d", EnvShimChannelFD, 3))
	cmd.Stdout = os.NewFile(uintptr(stdoutFD), t.name+".stdout")
	cmd.Stderr = os.NewFile(uintptr(stderrFD), t.name+".stderr")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		ch.Close()
		return err
	}
	t.cmd = cmd
	db.DPrintf(db.SHIM, "thread %v [%v] spawned pid %d channel %v", t.tid, t.name, cmd.Process.Pid, ch.Name())
	return nil
}

func (t *preloadThread) supervise(argv []string, envv []string, stderrFD int, stdoutFD int) {
	if err := t.spawn(argv, envv, stderrFD, stdoutFD); err != nil {
		db.DPrintf(db.THREAD_ERR, "spawn %v: %v", t.exePath, err)
		t.returnCode = 127
		t.ctl.exited()
		return
	}

	var ev ShimEvent
	for {
		if !t.ch.Recv(&ev) {
			// Channel closed under us; the child was killed.
			t.cmd.Wait()
			t.returnCode = 128 + int(syscall.SIGKILL)
			t.ctl.finish()
			return
		}
		switch ev.Kind {
		case ShimEventStart:
			// Shim is up; nothing to do.
		case ShimEventSyscall:
			sc := &Syscall{Num: ev.Num, Args: ev.Args}
			action := t.handler.HandleSyscall(t.tid, sc)
			if action == ActionBlock {
				if params.Conf.Shim.SEND_EXPLICIT_BLOCK_MESSAGE {
					t.ch.Send(&ShimEvent{Kind: ShimEventBlock, Tid: ev.Tid})
				}
				if !t.ctl.block() {
					t.cmd.Wait()
					t.returnCode = 128 + int(syscall.SIGKILL)
					t.ctl.finish()
					return
				}
				t.ch.Send(&ShimEvent{Kind: ShimEventResume, Tid: ev.Tid})
				continue
			}
			native := uint64(0)
			if action == ActionNative {
				native = 1
			}
			t.ch.Send(&ShimEvent{Kind: ShimEventSyscallComplete, Tid: ev.Tid, Ret: sc.Ret, Num: native})
		case ShimEventExit:
			t.cmd.Wait()
			t.returnCode = int(ev.Ret)
			t.ch.Close()
			t.ctl.exited()
			return
		default:
			db.DPrintf(db.THREAD_ERR, "unexpected shim event kind %d", ev.Kind)
		}
	}
}
