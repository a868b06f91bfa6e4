// Package loadgen generates synthetic guest workloads: process
// arrivals drawn from a Poisson process, with bounded-uniform wait
// counts per guest.
package loadgen

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/simtime"
)

// Spec describes one synthetic guest process.
type Spec struct {
	StartTime simtime.Time
	StopTime  simtime.Time
	// Number of blocking waits the guest performs before exiting.
	NWaits int
}

type Generator struct {
	poisson  *distuv.Poisson
	rand     *rand.Rand
	maxWaits int
}

// NewGenerator builds a generator producing on average lambda process
// arrivals per tick, each guest waiting between 1 and maxWaits times.
func NewGenerator(lambda float64, seed int64, maxWaits int) *Generator {
	g := &Generator{
		poisson:  &distuv.Poisson{Lambda: lambda},
		rand:     rand.New(rand.NewSource(seed)),
		maxWaits: maxWaits,
	}
	return g
}

// GenTick produces the processes arriving in the tick of the given
// width beginning at now, with start times spread across it.
func (g *Generator) GenTick(now simtime.Time, tick simtime.Time) []*Spec {
	nproc := int(g.poisson.Rand())
	specs := make([]*Spec, nproc)
	for i := 0; i < nproc; i++ {
		start := now + simtime.Time(g.rand.Uint64()%uint64(tick))
		specs[i] = &Spec{
			StartTime: start,
			StopTime:  0,
			NWaits:    g.uniform(g.maxWaits),
		}
	}
	db.DPrintf(db.LOADGEN, "tick at %v: %d arrivals", now, nproc)
	return specs
}

func (g *Generator) uniform(max int) int {
	return int(g.rand.Uint64()%uint64(max)) + 1
}
