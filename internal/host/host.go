// Package host provides a reference implementation of the engine.Host
// interface: a virtual host with a private, thread-safe event priority
// queue, driven by the engine's worker pool one window at a time.
package host

import (
	"container/heap"
	"sync"

	"github.com/shadowsim/corengine/internal/engine"
	"github.com/shadowsim/corengine/internal/simtime"
)

// DeliverFunc is invoked once per drained event, with the calling
// worker's context so any follow-up events it schedules go through
// w.PushEvent and are subject to the lookahead check. The host layer
// itself is domain-agnostic; DeliverFunc is how an application plugs in
// its own event semantics.
type DeliverFunc func(w *engine.Worker, ev engine.Event)

// Host is a virtual network host: an event queue plus a delivery
// callback, satisfying engine.Host.
type Host struct {
	id      engine.HostID
	deliver DeliverFunc

	mu    sync.Mutex
	queue localQueue
}

// New constructs a Host bound to id, delivering drained events to fn.
func New(id engine.HostID, fn DeliverFunc) *Host {
	h := &Host{id: id, deliver: fn}
	heap.Init(&h.queue)
	return h
}

// ID returns the host's stable identifier.
func (h *Host) ID() engine.HostID { return h.id }

// PushLocalEvent enqueues ev. Safe to call from any goroutine: the
// engine calls this when routing a cross-host event to its destination,
// and a host's own handlers call it (indirectly, via Worker.PushEvent)
// to schedule same-host follow-up work.
func (h *Host) PushLocalEvent(ev engine.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	heap.Push(&h.queue, ev)
}

// PeekNextDeliveryTime returns the delivery time of the earliest pending
// event, or (0, false) if the queue is empty.
func (h *Host) PeekNextDeliveryTime() (simtime.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.queue.Len() == 0 {
		return 0, false
	}
	return h.queue.events[0].DeliveryTime(), true
}

// PopAndDeliver drains and delivers every event with delivery time
// strictly less than until, in (DeliveryTime, SrcHostID, SequenceNumber)
// order. Only the worker that owns this window's work item for h ever
// calls PopAndDeliver, so no lock is held across the deliver callback;
// same-host PushEvent calls made from inside deliver re-enter
// PushLocalEvent safely.
func (h *Host) PopAndDeliver(w *engine.Worker, until simtime.Time) {
	for {
		h.mu.Lock()
		if h.queue.Len() == 0 || h.queue.events[0].DeliveryTime() >= until {
			h.mu.Unlock()
			return
		}
		ev := heap.Pop(&h.queue).(engine.Event)
		h.mu.Unlock()

		w.AdvanceTo(ev.DeliveryTime())
		h.deliver(w, ev)
	}
}

// localQueue orders pending events the same way the engine's master
// queue does: (DeliveryTime, SrcHostID, SequenceNumber).
type localQueue struct {
	events []engine.Event
}

func (q *localQueue) Len() int { return len(q.events) }

func (q *localQueue) Less(i, j int) bool {
	ei, ej := q.events[i], q.events[j]
	if ei.DeliveryTime() != ej.DeliveryTime() {
		return ei.DeliveryTime() < ej.DeliveryTime()
	}
	if ei.SrcHostID() != ej.SrcHostID() {
		return ei.SrcHostID() < ej.SrcHostID()
	}
	return ei.SequenceNumber() < ej.SequenceNumber()
}

func (q *localQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
}

func (q *localQueue) Push(x any) {
	q.events = append(q.events, x.(engine.Event))
}

func (q *localQueue) Pop() any {
	old := q.events
	n := len(old)
	item := old[n-1]
	q.events = old[:n-1]
	return item
}
