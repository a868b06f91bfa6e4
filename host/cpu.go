package host

import (
	"time"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/params"
	"github.com/chrisjcox79/shadow/simtime"
)

// CPU models the execution cost of a simulated host. Delay charged by
// guest bursts is scaled by the ratio of the raw machine frequency to
// the modeled host frequency, so a host modeled slower than the
// simulating machine falls behind in virtual time.
type CPU struct {
	frequencyKHz    uint64
	rawFrequencyKHz uint64
	threshold       simtime.Time
	precision       simtime.Time
	delay           simtime.Time
	total           simtime.Time
}

func NewCPU() *CPU {
	c := &CPU{
		frequencyKHz:    params.Conf.CPU.FREQUENCY_KHZ,
		rawFrequencyKHz: params.Conf.CPU.RAW_FREQUENCY_KHZ,
		threshold:       parseDuration(params.Conf.CPU.THRESHOLD),
		precision:       parseDuration(params.Conf.CPU.PRECISION),
	}
	if c.frequencyKHz == 0 {
		db.DFatalf("CPU frequency is zero")
	}
	return c
}

func parseDuration(s string) simtime.Time {
	d, err := time.ParseDuration(s)
	if err != nil {
		db.DFatalf("bad CPU duration %q: %v", s, err)
	}
	return simtime.FromDuration(d)
}

// AddDelay charges raw measured ticks to this CPU.
func (c *CPU) AddDelay(raw simtime.Time) {
	scaled := simtime.Time(uint64(raw) * c.rawFrequencyKHz / c.frequencyKHz)
	c.delay += scaled
	c.total += scaled
	db.DPrintf(db.CPU, "add delay raw %v scaled %v pending %v", raw, scaled, c.delay)
}

// Delay returns the total delay charged over the CPU's lifetime.
func (c *CPU) Delay() simtime.Time {
	return c.total
}

// IsBlocked reports whether pending delay exceeds the threshold below
// which the host keeps executing without advancing the clock.
func (c *CPU) IsBlocked() bool {
	return c.delay > c.threshold
}

// TakeDelay consumes the pending delay, rounded up to the precision
// boundary, returning the amount the clock should advance.
func (c *CPU) TakeDelay() simtime.Time {
	if c.delay == 0 {
		return 0
	}
	d := c.delay
	if c.precision > 0 {
		rem := d % c.precision
		if rem > 0 {
			d += c.precision - rem
		}
	}
	c.delay = 0
	return d
}
