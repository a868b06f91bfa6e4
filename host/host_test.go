package host_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chrisjcox79/shadow/host"
	"github.com/chrisjcox79/shadow/sched"
	"github.com/chrisjcox79/shadow/simtime"
	"github.com/chrisjcox79/shadow/worker"
)

func newHost(t *testing.T) *host.Host {
	w := worker.NewWorker(sched.NewEventQueue())
	return host.NewHost(w, "testhost", t.TempDir())
}

func TestCPUDelayMonotonic(t *testing.T) {
	h := newHost(t)
	last := simtime.Time(0)
	for i := 0; i < 10; i++ {
		h.CPU().AddDelay(3 * simtime.Millisecond)
		assert.True(t, h.CPU().Delay() >= last)
		last = h.CPU().Delay()
	}
	assert.Equal(t, 30*simtime.Millisecond, h.CPU().Delay())
}

func TestCPUBlockedAboveThreshold(t *testing.T) {
	h := newHost(t)
	assert.False(t, h.CPU().IsBlocked())
	// Local params: threshold 1ms.
	h.CPU().AddDelay(2 * simtime.Millisecond)
	assert.True(t, h.CPU().IsBlocked())
	d := h.CPU().TakeDelay()
	assert.True(t, d >= 2*simtime.Millisecond)
	assert.False(t, h.CPU().IsBlocked())
}

func TestCPUTakeDelayRoundsToPrecision(t *testing.T) {
	h := newHost(t)
	// Local params: precision 200us.
	h.CPU().AddDelay(simtime.Time(300 * simtime.Microsecond))
	d := h.CPU().TakeDelay()
	assert.Equal(t, simtime.Time(400*simtime.Microsecond), d)
}

func TestTrackerAccumulates(t *testing.T) {
	h := newHost(t)
	h.Tracker().AddProcessingTime(10 * simtime.Millisecond)
	h.Tracker().AddProcessingTime(20 * simtime.Millisecond)
	assert.Equal(t, 30*simtime.Millisecond, h.Tracker().ProcessingTime())
	assert.Equal(t, 2, h.Tracker().NumBursts())
	assert.Contains(t, h.Tracker().Summary(), "2 bursts")
}

func TestAddresses(t *testing.T) {
	h := newHost(t)
	h.RegisterAddress("peer", net.IPv4(11, 0, 0, 1))
	ip, ok := h.LookupAddress("peer")
	assert.True(t, ok)
	assert.Equal(t, net.IPv4(11, 0, 0, 1), ip)
	_, ok = h.LookupAddress("nope")
	assert.False(t, ok)
}
