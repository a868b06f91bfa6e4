// Package host carries the per-host state the process core consumes:
// the host's name and data directory, its CPU delay model, the tracker
// that accounts processing time, and the address table.
package host

import (
	"net"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/worker"
)

type Host struct {
	worker    *worker.Worker
	name      string
	dataPath  string
	cpu       *CPU
	tracker   *Tracker
	addresses map[string]net.IP
	refcount  int
}

func NewHost(w *worker.Worker, name string, dataPath string) *Host {
	h := &Host{
		worker:    w,
		name:      name,
		dataPath:  dataPath,
		cpu:       NewCPU(),
		tracker:   NewTracker(),
		addresses: make(map[string]net.IP),
		refcount:  1,
	}
	db.DPrintf(db.HOST, "new host %v data %v", name, dataPath)
	return h
}

func (h *Host) Name() string {
	return h.name
}

func (h *Host) DataPath() string {
	return h.dataPath
}

func (h *Host) Worker() *worker.Worker {
	return h.worker
}

func (h *Host) CPU() *CPU {
	return h.cpu
}

func (h *Host) Tracker() *Tracker {
	return h.tracker
}

func (h *Host) RegisterAddress(name string, ip net.IP) {
	h.addresses[name] = ip
}

func (h *Host) LookupAddress(name string) (net.IP, bool) {
	ip, ok := h.addresses[name]
	return ip, ok
}

func (h *Host) Ref() {
	h.refcount++
}

func (h *Host) Unref() {
	h.refcount--
	if h.refcount < 0 {
		db.DFatalf("host %v refcount %d", h.name, h.refcount)
	}
	if h.refcount == 0 {
		db.DPrintf(db.HOST, "free host %v: %v", h.name, h.tracker.Summary())
	}
}
