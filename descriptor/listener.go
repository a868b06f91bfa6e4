package descriptor

import (
	db "github.com/chrisjcox79/shadow/debug"
)

// Mode selects when an attached listener fires.
type Mode int

const (
	// ModeOffToOn fires when a monitored status bit transitions off to on.
	ModeOffToOn Mode = iota
	// ModeNever disables the listener.
	ModeNever
)

// A Listener carries a fire callback and two owning handles. The
// handles are released exactly once, when the last listener reference
// drops. Detaching a listener and setting ModeNever guarantees no
// further fires even if a status delivery is already in flight.
type Listener struct {
	fire         func(object, argument interface{})
	object       interface{}
	objectFree   func()
	argument     interface{}
	argumentFree func()
	monitoring   Status
	mode         Mode
	refcount     int
}

func NewListener(fire func(object, argument interface{}), object interface{}, objectFree func(), argument interface{}, argumentFree func()) *Listener {
	return &Listener{
		fire:         fire,
		object:       object,
		objectFree:   objectFree,
		argument:     argument,
		argumentFree: argumentFree,
		mode:         ModeNever,
		refcount:     1,
	}
}

func (l *Listener) SetMonitorStatus(status Status, mode Mode) {
	l.monitoring = status
	l.mode = mode
}

// NotifyStatusChanged delivers an off-to-on transition set to the
// listener, which fires only if it is still monitoring any of the
// transitioned bits.
func (l *Listener) NotifyStatusChanged(current Status, transitions Status) {
	if l.mode != ModeOffToOn {
		return
	}
	if l.monitoring&transitions == 0 {
		return
	}
	db.DPrintf(db.DESC, "listener fires: current %v transitions %v monitoring %v", current, transitions, l.monitoring)
	l.fire(l.object, l.argument)
}

func (l *Listener) Ref() {
	l.refcount++
}

func (l *Listener) Unref() {
	l.refcount--
	if l.refcount < 0 {
		db.DFatalf("listener refcount %d", l.refcount)
	}
	if l.refcount == 0 {
		if l.objectFree != nil {
			l.objectFree()
		}
		if l.argumentFree != nil {
			l.argumentFree()
		}
	}
}
