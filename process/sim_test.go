package process_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chrisjcox79/shadow/descriptor"
	"github.com/chrisjcox79/shadow/loadgen"
	"github.com/chrisjcox79/shadow/process"
	"github.com/chrisjcox79/shadow/simtime"
)

// A synthetic world: Poisson process arrivals, each guest blocking on
// a timer a few times before exiting cleanly. Everything must drain
// and every counted object must balance.
func TestSimulatedWorld(t *testing.T) {
	e := newEnv(t)
	g := loadgen.NewGenerator(2.0, 42, 3)
	tick := simtime.Second

	procs := make([]*process.Process, 0)
	pid := uint32(0)
	for i := 0; i < 5; i++ {
		now := simtime.Time(i) * tick
		for _, spec := range g.GenTick(now, tick) {
			spec := spec
			p := e.newProc(t, pid, spec.StartTime, spec.StopTime, nil)
			tm := descriptor.NewTimer(int(pid) + 100)
			nwaits := 0
			script := func(mt *mockThread) {
				if nwaits < spec.NWaits {
					nwaits++
					tm.Arm(e.eq, 10*simtime.Millisecond)
					p.ListenForStatus(mt, tm, nil, descriptor.StatusNone)
				} else {
					mt.running = false
					mt.returnCode = 0
				}
			}
			e.scripts[p.Name()] = func(mt *mockThread) {
				mt.onResume = script
				script(mt)
			}
			p.Schedule()
			procs = append(procs, p)
			pid++
		}
	}

	e.eq.Drain()

	for _, p := range procs {
		assert.False(t, p.IsRunning())
		assert.Equal(t, 0, p.ReturnCode())
		assert.True(t, p.TotalRunTime() >= 0.0)
		p.Unref()
	}
	assert.Equal(t, 0, e.w.PluginErrors())
	assert.True(t, e.w.Balanced(), e.w.CountsString())
	if len(procs) > 0 {
		// Every guest entered at least once, plus one burst per wait.
		assert.True(t, e.h.Tracker().NumBursts() >= len(procs))
	}
}
