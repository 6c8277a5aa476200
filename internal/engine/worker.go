package engine

import (
	"sync/atomic"

	"github.com/shadowsim/corengine/internal/simtime"
)

// workerState enumerates the Idle -> Running(host) -> Idle machine a
// worker steps through. Transitions occur only on work-item boundaries
// and are only ever touched by the worker's own goroutine, so no locking
// is needed.
type workerState int

const (
	workerIdle workerState = iota
	workerRunning
)

// Worker is the thread-local execution context bound to one pool
// goroutine. It holds enough state for pushEvent's lookahead check to
// learn "who is calling, and when" without any package-level or
// goroutine-local global: the engine passes the *Worker explicitly to
// every host work item, and hosts thread it through to Worker.PushEvent.
//
// Worker holds a non-owning back-reference to the Engine; the pool's
// scoped lifetime (SetupWorkers/TeardownWorkers) guarantees it stays
// valid for as long as the worker goroutine runs.
type Worker struct {
	id          uint64
	engine      *Engine
	state       workerState
	currentTime simtime.Time
	currentHost HostID
	hasHost     bool
}

func newWorker(id uint64, eng *Engine) *Worker {
	return &Worker{id: id, engine: eng, state: workerIdle}
}

// ID returns the worker's monotonic identifier.
func (w *Worker) ID() uint64 { return w.id }

// beginHost transitions Idle -> Running(host) for one work item.
func (w *Worker) beginHost(h Host, windowStart simtime.Time) {
	w.state = workerRunning
	w.currentHost = h.ID()
	w.hasHost = true
	w.currentTime = windowStart
}

// endHost transitions Running(host) -> Idle at the end of a work item.
func (w *Worker) endHost() {
	w.state = workerIdle
	w.hasHost = false
}

// AdvanceTo records that the worker is now processing an event delivered
// at t; pushEvent's lookahead check uses this as the emit time. Called by
// a Host implementation immediately before it delivers each drained event.
func (w *Worker) AdvanceTo(t simtime.Time) {
	if w == nil {
		return
	}
	w.currentTime = t
}

// CurrentHost returns the host this worker is currently bound to, and
// whether it is bound to one at all (false between work items).
func (w *Worker) CurrentHost() (HostID, bool) {
	return w.currentHost, w.hasHost
}

// PushEvent routes ev through the engine using this worker's
// (currentHost, currentTime) as the emitting context for the lookahead
// check.
func (w *Worker) PushEvent(ev Event) error {
	return w.engine.pushEventAs(w, ev)
}

// callerContext is the (srcHostID, currentTime, hasSrc) tuple pushEvent's
// lookahead check needs. A nil *Worker (main thread, pre-window dispatch)
// resolves to (NoHost, engine.clock, false).
type callerContext struct {
	srcHostID HostID
	hasSrc    bool
	emitTime  simtime.Time
}

func (w *Worker) context() callerContext {
	if w == nil {
		return callerContext{hasSrc: false}
	}
	return callerContext{srcHostID: w.currentHost, hasSrc: w.hasHost, emitTime: w.currentTime}
}

// workerIDCounter and objectIDCounter live on Engine; this helper just
// keeps the atomic fetch-and-add idiom in one place.
func nextID(counter *uint64) uint64 {
	return atomic.AddUint64(counter, 1)
}
