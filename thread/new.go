//go:build linux

package thread

import (
	db "github.com/chrisjcox79/shadow/debug"
)

// New builds a thread of the requested interposition variant.
func New(method InterposeMethod, tid Tid, name string, exePath string, handler SyscallHandler) Thread {
	switch method {
	case InterposePtrace:
		return NewPtrace(tid, name, exePath, handler)
	case InterposePreload:
		return NewPreload(tid, name, exePath, handler)
	default:
		db.DFatalf("Bad interpose method %d", int(method))
		return nil
	}
}
