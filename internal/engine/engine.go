// Package engine implements the conservative parallel discrete-event
// scheduler: a global clock advanced in fixed-width execution windows,
// a worker pool that drains per-host queues within a window, and the
// lookahead-based safety barrier that makes the two safe to combine.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/shadowsim/corengine/internal/config"
	"github.com/shadowsim/corengine/internal/simtime"
)

// Engine is the global scheduler: it owns the master event queue, the
// worker pool, the execution-window barrier, the kill switch, and ID
// generation. Engine is an explicit value, never a package-level
// singleton, so nothing prevents running several in one process (handy
// for tests).
type Engine struct {
	log *logrus.Entry

	minTimeJump simtime.Time
	endTime     simtime.Time

	// mutated only between windows; read freely during a window.
	clock              atomic.Uint64
	executeWindowStart atomic.Uint64
	executeWindowEnd   atomic.Uint64

	nNodesToProcess atomic.Int64
	workerIDCounter uint64
	objectIDCounter uint64
	killed          atomic.Bool

	fatalMu  sync.Mutex
	fatalErr error

	masterEventQueue *masterQueue
	registry         *Registry

	hostsMu   sync.RWMutex
	hosts     map[HostID]Host
	hostSeq   map[HostID]*atomic.Uint64
	noHostSeq atomic.Uint64

	pool *workerPool
}

// New constructs an Engine from cfg. Fails with ConfigInvalidError if
// cfg does not validate.
func New(cfg *config.Config, log *logrus.Entry) (*Engine, error) {
	if cfg == nil {
		return nil, &ConfigInvalidError{Reason: "config is nil"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigInvalidError{Reason: err.Error()}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	e := &Engine{
		log:              log,
		minTimeJump:      simtime.Time(cfg.MinTimeJump),
		endTime:          simtime.Time(cfg.EndTime),
		masterEventQueue: newMasterQueue(),
		registry:         newRegistry(),
		hosts:            make(map[HostID]Host),
		hostSeq:          make(map[HostID]*atomic.Uint64),
	}
	e.executeWindowEnd.Store(cfg.MinTimeJump)
	return e, nil
}

// RegisterHost attaches a host to the engine's dispatch table. Hosts are
// normally registered by handling a master-queue "host creation" event
// during the pre-window phase, but tests may register directly.
func (e *Engine) RegisterHost(h Host) {
	e.hostsMu.Lock()
	defer e.hostsMu.Unlock()
	e.hosts[h.ID()] = h
	if _, ok := e.hostSeq[h.ID()]; !ok {
		e.hostSeq[h.ID()] = &atomic.Uint64{}
	}
}

// nextSeqForSource returns the next tie-breaker sequence number for
// events emitted by src. Each host's counter is only ever touched by the
// single worker currently processing that host (the pool never assigns
// two workers to the same host concurrently), so this stays deterministic
// across nWorkers without needing a global lock. Engine-level events
// (src == NoHost) share one counter; the master queue is only drained
// single-threaded during pre-window dispatch.
func (e *Engine) nextSeqForSource(src HostID) uint64 {
	if src == NoHost {
		return e.noHostSeq.Add(1)
	}
	e.hostsMu.RLock()
	counter, ok := e.hostSeq[src]
	e.hostsMu.RUnlock()
	if !ok {
		e.hostsMu.Lock()
		counter, ok = e.hostSeq[src]
		if !ok {
			counter = &atomic.Uint64{}
			e.hostSeq[src] = counter
		}
		e.hostsMu.Unlock()
	}
	return counter.Add(1)
}

// UnregisterHost removes a host from the dispatch table.
func (e *Engine) UnregisterHost(id HostID) {
	e.hostsMu.Lock()
	defer e.hostsMu.Unlock()
	delete(e.hosts, id)
}

// Registry exposes the typed SOFTWARE/CDFS/PLUGINPATHS storage.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// GenerateWorkerID returns a fresh monotonic worker ID; never reused.
func (e *Engine) GenerateWorkerID() uint64 {
	return nextID(&e.workerIDCounter)
}

// GenerateNodeID returns a fresh monotonic object ID; never reused.
func (e *Engine) GenerateNodeID() uint64 {
	return nextID(&e.objectIDCounter)
}

// IsKilled reports whether the kill switch has been set.
func (e *Engine) IsKilled() bool {
	return e.killed.Load()
}

// recordFatal notes the first fatal runtime error and trips the kill
// switch so the window loop exits at the next boundary.
func (e *Engine) recordFatal(err error) {
	e.fatalMu.Lock()
	if e.fatalErr == nil {
		e.fatalErr = err
	}
	e.fatalMu.Unlock()
	e.killed.Store(true)
}

// FatalErr returns the error that aborted the run, or nil.
func (e *Engine) FatalErr() error {
	e.fatalMu.Lock()
	defer e.fatalMu.Unlock()
	return e.fatalErr
}

// Kill sets the kill switch; the engine exits its window loop at the
// next boundary and the worker pool drains and shuts down.
func (e *Engine) Kill() {
	e.killed.Store(true)
}

// Clock returns the current virtual time.
func (e *Engine) Clock() simtime.Time {
	return simtime.Time(e.clock.Load())
}

// PushEvent is the public entry point used by callers with no worker
// context (e.g. initial setup before Run, or the main thread during
// pre-window dispatch). It is equivalent to calling Worker.PushEvent
// from an unbound worker.
func (e *Engine) PushEvent(ev Event) error {
	return e.pushEventAs(nil, ev)
}

// pushEventAs routes ev either to its destination host's local queue or
// to the master queue, enforcing the lookahead invariant for cross-host
// events: deliveryTime >= emitTime + minTimeJump.
func (e *Engine) pushEventAs(w *Worker, ev Event) error {
	caller := w.context()

	dst, hasDst := ev.DstHostID()
	crossHost := hasDst && (!caller.hasSrc || dst != caller.srcHostID)

	if crossHost {
		emitTime := caller.emitTime
		if !caller.hasSrc {
			emitTime = simtime.Time(e.clock.Load())
		}
		if ev.DeliveryTime() < emitTime.Add(e.minTimeJump) {
			verr := &LookaheadViolationError{
				SrcHostID:    caller.srcHostID,
				DstHostID:    dst,
				EmitTime:     emitTime,
				DeliveryTime: ev.DeliveryTime(),
				MinTimeJump:  e.minTimeJump,
			}
			// A lookahead violation corrupts determinism; the run cannot
			// continue past the current window.
			e.log.WithError(verr).Error("lookahead violation, aborting run")
			e.recordFatal(verr)
			return verr
		}
	}

	// The tie-breaker counter is partitioned by the event's own source so
	// the sequence always pairs with the SrcHostID the heap comparison
	// folds in, whoever pushed the event.
	ev.setSequenceNumber(e.nextSeqForSource(ev.SrcHostID()))

	if hasDst {
		e.hostsMu.RLock()
		h, ok := e.hosts[dst]
		e.hostsMu.RUnlock()
		if ok {
			h.PushLocalEvent(ev)
			return nil
		}
	}
	e.masterEventQueue.schedule(ev)
	return nil
}

// notifyHostProcessed is called by a worker once it has drained its
// current host for this window. When the counter reaches zero the
// engine's window-barrier wait is released.
func (e *Engine) notifyHostProcessed() {
	if e.nNodesToProcess.Add(-1) == 0 {
		e.pool.signalDrained()
	}
}

// SetupWorkers starts an n-goroutine worker pool. n=0 selects
// single-threaded in-line execution: host work items run on the engine's
// own goroutine inside Run, and no pool is spawned.
func (e *Engine) SetupWorkers(n uint) error {
	pool, err := newWorkerPool(e, n)
	if err != nil {
		return &WorkerPoolFailureError{Reason: err.Error()}
	}
	e.pool = pool
	return nil
}

// TeardownWorkers stops the pool, waiting for in-flight work items to drain.
func (e *Engine) TeardownWorkers() {
	if e.pool != nil {
		e.pool.stop()
		e.pool = nil
	}
}

// Run blocks until the simulation reaches endTime or is killed,
// advancing the clock one execution window of width minTimeJump at a
// time, and returns the process exit code.
func (e *Engine) Run() int {
	if e.pool == nil {
		_ = e.SetupWorkers(0)
	}
	for {
		wEnd := simtime.Time(e.executeWindowEnd.Load())

		e.drainMasterQueue(wEnd)

		hostsDue := e.hostsWithWorkBefore(wEnd)
		e.nNodesToProcess.Store(int64(len(hostsDue)))

		if len(hostsDue) > 0 {
			e.pool.dispatchAndWait(hostsDue, wEnd)
		}

		e.clock.Store(uint64(wEnd))
		if simtime.Time(e.clock.Load()) >= e.endTime || e.IsKilled() {
			break
		}

		wStart := wEnd
		wEnd = wStart.Add(e.minTimeJump)
		e.executeWindowStart.Store(uint64(wStart))
		e.executeWindowEnd.Store(uint64(wEnd))
	}
	return ExitCode(e.FatalErr())
}

// drainMasterQueue applies every master-queue event with delivery time
// strictly before until. This runs single-threaded, ahead of host
// dispatch.
func (e *Engine) drainMasterQueue(until simtime.Time) {
	for {
		ev := e.masterEventQueue.peek()
		if ev == nil || ev.DeliveryTime() >= until {
			return
		}
		ev = e.masterEventQueue.popNext()
		e.log.WithFields(logrus.Fields{
			"deliveryTime": ev.DeliveryTime(),
			"window":       until,
		}).Debug("applying master-queue event")
		// Engine-level events are applied by whatever payload handler the
		// host/application layer registers; the core only guarantees
		// ordering and draining, not event semantics.
		if applier, ok := ev.Payload().(interface{ Apply(*Engine) }); ok {
			applier.Apply(e)
		}
	}
}

func (e *Engine) hostsWithWorkBefore(until simtime.Time) []Host {
	e.hostsMu.RLock()
	defer e.hostsMu.RUnlock()

	due := make([]Host, 0, len(e.hosts))
	for _, h := range e.hosts {
		if t, ok := h.PeekNextDeliveryTime(); ok && t < until {
			due = append(due, h)
		}
	}
	return due
}
