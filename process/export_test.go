package process

import (
	"github.com/chrisjcox79/shadow/thread"
)

// SetNewThreadForTest swaps the thread factory so tests can script
// guests. Returns a restore func.
func SetNewThreadForTest(f func(thread.InterposeMethod, thread.Tid, string, string, thread.SyscallHandler) thread.Thread) func() {
	old := newThread
	newThread = f
	return func() { newThread = old }
}
