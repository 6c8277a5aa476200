package engine

import (
	"container/heap"
	"sync"
)

// eventHeap orders events by (DeliveryTime, SrcHostID, SequenceNumber),
// giving every consumer a deterministic drain order regardless of the
// order events were scheduled in.
type eventHeap struct {
	events []Event
}

func newEventHeap() *eventHeap {
	h := &eventHeap{events: make([]Event, 0)}
	heap.Init(h)
	return h
}

func (h *eventHeap) Len() int { return len(h.events) }

func (h *eventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]
	if ei.DeliveryTime() != ej.DeliveryTime() {
		return ei.DeliveryTime() < ej.DeliveryTime()
	}
	if ei.SrcHostID() != ej.SrcHostID() {
		return ei.SrcHostID() < ej.SrcHostID()
	}
	return ei.SequenceNumber() < ej.SequenceNumber()
}

func (h *eventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

func (h *eventHeap) Push(x any) {
	h.events = append(h.events, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[:n-1]
	return item
}

func (h *eventHeap) schedule(e Event) {
	heap.Push(h, e)
}

func (h *eventHeap) popNext() Event {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(Event)
}

func (h *eventHeap) peek() Event {
	if h.Len() == 0 {
		return nil
	}
	return h.events[0]
}

// masterQueue wraps eventHeap with its own lock so engine-level events
// can be scheduled from any goroutine while the engine thread drains
// them between windows.
type masterQueue struct {
	mu   sync.Mutex
	heap *eventHeap
}

func newMasterQueue() *masterQueue {
	return &masterQueue{heap: newEventHeap()}
}

func (q *masterQueue) schedule(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.heap.schedule(e)
}

func (q *masterQueue) peek() Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.peek()
}

func (q *masterQueue) popNext() Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.popNext()
}

func (q *masterQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
