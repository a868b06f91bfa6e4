package process_test

import (
	"testing"

	"github.com/chrisjcox79/shadow/host"
	"github.com/chrisjcox79/shadow/process"
	"github.com/chrisjcox79/shadow/sched"
	"github.com/chrisjcox79/shadow/simtime"
	"github.com/chrisjcox79/shadow/thread"
	"github.com/chrisjcox79/shadow/worker"
)

// mockThread scripts a guest: onRun and onResume decide whether the
// guest blocks (stays running) or exits (clears running and sets the
// return code).
type mockThread struct {
	tid        thread.Tid
	running    bool
	returnCode int
	refcount   int
	frees      int
	runs       int
	resumes    int
	terminates int
	onRun      func(mt *mockThread)
	onResume   func(mt *mockThread)
}

func newMockThread(tid thread.Tid) *mockThread {
	return &mockThread{tid: tid, refcount: 1}
}

func (mt *mockThread) Run(argv []string, envv []string, stderrFD int, stdoutFD int) {
	mt.runs++
	mt.running = true
	if mt.onRun != nil {
		mt.onRun(mt)
	}
}

func (mt *mockThread) Resume() {
	mt.resumes++
	if mt.onResume != nil {
		mt.onResume(mt)
	}
}

func (mt *mockThread) Terminate() {
	mt.running = false
	mt.terminates++
}

func (mt *mockThread) IsRunning() bool {
	return mt.running
}

func (mt *mockThread) ReturnCode() int {
	return mt.returnCode
}

func (mt *mockThread) Tid() thread.Tid {
	return mt.tid
}

func (mt *mockThread) Ref() {
	mt.refcount++
}

func (mt *mockThread) Unref() {
	mt.refcount--
	if mt.refcount == 0 {
		if mt.running {
			mt.Terminate()
		}
		mt.frees++
	}
}

// exitOnRun scripts a guest that exits immediately with code.
func exitOnRun(code int) func(mt *mockThread) {
	return func(mt *mockThread) {
		mt.running = false
		mt.returnCode = code
	}
}

// blockOnRun scripts a guest that blocks forever.
func blockOnRun() func(mt *mockThread) {
	return func(mt *mockThread) {}
}

// env bundles one worker's simulation state for a test. The thread
// factory hands each started process a fresh mock running the
// configured script; e.mt tracks the most recently spawned one.
type env struct {
	eq      *sched.EventQueue
	w       *worker.Worker
	h       *host.Host
	mt      *mockThread
	mts     []*mockThread
	onRun   func(mt *mockThread)
	scripts map[string]func(mt *mockThread)
}

func newEnv(t *testing.T) *env {
	eq := sched.NewEventQueue()
	w := worker.NewWorker(eq)
	h := host.NewHost(w, "testhost", t.TempDir())
	e := &env{eq: eq, w: w, h: h, scripts: make(map[string]func(mt *mockThread))}
	restore := process.SetNewThreadForTest(func(m thread.InterposeMethod, tid thread.Tid, name, exePath string, h thread.SyscallHandler) thread.Thread {
		mt := newMockThread(tid)
		if s, ok := e.scripts[name]; ok {
			mt.onRun = s
		} else {
			mt.onRun = e.onRun
		}
		e.mt = mt
		e.mts = append(e.mts, mt)
		return mt
	})
	t.Cleanup(restore)
	return e
}

// newProc builds a process whose main thread will be a scripted mock.
func (e *env) newProc(t *testing.T, pid uint32, startTime, stopTime simtime.Time, onRun func(mt *mockThread)) *process.Process {
	e.onRun = onRun
	return process.New(e.h, pid, startTime, stopTime, thread.InterposePtrace,
		"testhost", "testexe", "/bin/testexe", []string{"K=V"}, []string{"testexe"})
}
