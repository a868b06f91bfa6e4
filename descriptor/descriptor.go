// Package descriptor implements the status-change listener layer the
// process core waits on: a descriptor carries a readiness bitmask and
// a list of listeners notified on off-to-on transitions.
package descriptor

import (
	"fmt"

	db "github.com/chrisjcox79/shadow/debug"
)

// Status describes the readiness of a simulated file or socket.
type Status int

const (
	StatusNone     Status = 0
	StatusActive   Status = 1 << 0
	StatusReadable Status = 1 << 1
	StatusWritable Status = 1 << 2
	StatusClosed   Status = 1 << 3
)

func (s Status) String() string {
	return fmt.Sprintf("0b%04b", int(s))
}

type Descriptor struct {
	handle    int
	status    Status
	listeners []*Listener
	refcount  int
}

func NewDescriptor(handle int) *Descriptor {
	return &Descriptor{handle: handle, refcount: 1}
}

func (d *Descriptor) Handle() int {
	return d.handle
}

func (d *Descriptor) Status() Status {
	return d.status
}

// AdjustStatus turns bits on or off. Off-to-on transitions are
// delivered synchronously to a snapshot of the attached listeners;
// each listener rechecks its monitor mask at delivery, so a listener
// detached and disabled by an earlier delivery in the same batch stays
// quiet.
func (d *Descriptor) AdjustStatus(bits Status, on bool) {
	if on {
		transitions := bits &^ d.status
		d.status |= bits
		if transitions == 0 {
			return
		}
		db.DPrintf(db.DESC, "descriptor %d status %v transitions %v", d.handle, d.status, transitions)
		snapshot := make([]*Listener, len(d.listeners))
		copy(snapshot, d.listeners)
		for _, l := range snapshot {
			l.NotifyStatusChanged(d.status, transitions)
		}
	} else {
		d.status &^= bits
	}
}

func (d *Descriptor) AddListener(l *Listener) {
	d.listeners = append(d.listeners, l)
}

func (d *Descriptor) RemoveListener(l *Listener) {
	for i, dl := range d.listeners {
		if dl == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

func (d *Descriptor) NumListeners() int {
	return len(d.listeners)
}

func (d *Descriptor) Ref() {
	d.refcount++
}

func (d *Descriptor) Unref() {
	d.refcount--
	if d.refcount < 0 {
		db.DFatalf("descriptor %d refcount %d", d.handle, d.refcount)
	}
}
