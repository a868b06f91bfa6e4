// Package thread runs a guest program under supervision. A Thread
// spawns the native child, executes it to its next blocking point or
// exit, and presents that to the simulator as a synchronous call: Run
// and Resume return when the guest has yielded or exited.
//
// Two interposition variants exist behind the one interface: a ptrace
// supervisor that traces the child's syscalls, and a preload
// supervisor that talks to an injected shared library over a shim
// channel.
package thread

import (
	"fmt"

	db "github.com/chrisjcox79/shadow/debug"
)

type Tid int

// InterposeMethod selects how a guest's syscalls are intercepted.
type InterposeMethod int

const (
	InterposePtrace InterposeMethod = iota + 1
	InterposePreload
)

func (m InterposeMethod) String() string {
	switch m {
	case InterposePtrace:
		return "PTRACE"
	case InterposePreload:
		return "PRELOAD"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(m))
	}
}

func ParseInterposeMethod(s string) (InterposeMethod, error) {
	switch s {
	case "PTRACE", "ptrace":
		return InterposePtrace, nil
	case "PRELOAD", "preload":
		return InterposePreload, nil
	default:
		return 0, fmt.Errorf("unknown interpose method %q", s)
	}
}

// Thread is the native execution unit of a guest program. The thread
// is the sole writer of the native process state; its owning process
// is the sole owner of the thread.
type Thread interface {
	// Run spawns the child and executes it to its first blocking
	// point or exit. The child's stdout/stderr are redirected to the
	// given file descriptors.
	Run(argv []string, envv []string, stderrFD int, stdoutFD int)
	// Resume continues execution after an awaited event occurred,
	// until the next blocking point or exit.
	Resume()
	// Terminate force-stops the child.
	Terminate()
	// IsRunning reports whether the child is alive and not yet exited.
	IsRunning() bool
	// ReturnCode is defined only once IsRunning is false.
	ReturnCode() int
	Tid() Tid
	Ref()
	Unref()
}

// refbase implements the shared refcount discipline; the final unref
// terminates a still-live child.
type refbase struct {
	refcount int
}

func (r *refbase) Ref() {
	r.refcount++
}

func (r *refbase) unref(name string, free func()) {
	r.refcount--
	if r.refcount < 0 {
		db.DFatalf("thread %v refcount %d", name, r.refcount)
	}
	if r.refcount == 0 {
		free()
	}
}
