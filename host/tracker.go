package host

import (
	"fmt"

	"github.com/montanaflynn/stats"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/simtime"
)

// Tracker accounts the processing time a host spends inside guest
// code, burst by burst.
type Tracker struct {
	processingTime simtime.Time
	bursts         []float64 // seconds per burst
}

func NewTracker() *Tracker {
	return &Tracker{bursts: make([]float64, 0)}
}

func (tr *Tracker) AddProcessingTime(d simtime.Time) {
	tr.processingTime += d
	tr.bursts = append(tr.bursts, d.Seconds())
	db.DPrintf(db.TRACKER, "processing time +%v total %v", d, tr.processingTime)
}

func (tr *Tracker) ProcessingTime() simtime.Time {
	return tr.processingTime
}

func (tr *Tracker) NumBursts() int {
	return len(tr.bursts)
}

// Summary reports burst statistics in seconds.
func (tr *Tracker) Summary() string {
	if len(tr.bursts) == 0 {
		return "no guest bursts"
	}
	mean, _ := stats.Mean(tr.bursts)
	p50, _ := stats.Percentile(tr.bursts, 50.0)
	p99, _ := stats.Percentile(tr.bursts, 99.0)
	return fmt.Sprintf("%d bursts total %v mean %.6fs p50 %.6fs p99 %.6fs",
		len(tr.bursts), tr.processingTime, mean, p50, p99)
}
