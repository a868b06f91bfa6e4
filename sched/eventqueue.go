package sched

import (
	"container/heap"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/simtime"
)

type event struct {
	deadline simtime.Time
	seq      uint64
	task     *Task
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }

// Equal deadlines fire in insertion order.
func (h eventHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

// EventQueue is a single-worker deterministic event queue. It is the
// only clock source: Now advances to each task's deadline as the task
// fires.
type EventQueue struct {
	now    simtime.Time
	seq    uint64
	events eventHeap
}

func NewEventQueue() *EventQueue {
	eq := &EventQueue{}
	heap.Init(&eq.events)
	return eq
}

func (eq *EventQueue) Now() simtime.Time {
	return eq.now
}

func (eq *EventQueue) Len() int {
	return len(eq.events)
}

func (eq *EventQueue) ScheduleTask(task *Task, delay simtime.Time) {
	ev := &event{deadline: eq.now + delay, seq: eq.seq, task: task}
	eq.seq++
	heap.Push(&eq.events, ev)
	db.DPrintf(db.SCHED, "schedule task at %v (delay %v)", ev.deadline, delay)
}

// RunUntil fires every task with deadline <= t, advancing Now to each
// deadline first, and leaves Now at t.
func (eq *EventQueue) RunUntil(t simtime.Time) {
	for len(eq.events) > 0 && eq.events[0].deadline <= t {
		ev := heap.Pop(&eq.events).(*event)
		eq.now = ev.deadline
		db.DPrintf(db.SCHED, "fire task at %v", eq.now)
		ev.task.Run()
		ev.task.Free()
	}
	if eq.now < t {
		eq.now = t
	}
}

// RunNext advances to the earliest pending deadline and fires every
// task due by then, including tasks scheduled for that same tick while
// it runs. Reports whether any task was pending.
func (eq *EventQueue) RunNext() bool {
	if len(eq.events) == 0 {
		return false
	}
	eq.RunUntil(eq.events[0].deadline)
	return true
}

// Drain runs the queue dry.
func (eq *EventQueue) Drain() {
	for eq.RunNext() {
	}
}

// Drop frees all unexecuted tasks without running them.
func (eq *EventQueue) Drop() {
	for _, ev := range eq.events {
		ev.task.Free()
	}
	eq.events = eq.events[:0]
}
