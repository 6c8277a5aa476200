package engine

import (
	"fmt"
	"sync"

	"github.com/shadowsim/corengine/internal/simtime"
)

// hostJob is one host work item: drain host's queue of everything due
// before windowEnd.
type hostJob struct {
	host      Host
	windowEnd simtime.Time
}

// workerPool is the fixed-size pool of goroutines that process host work
// items in parallel within a window. n=0 collapses to cooperative
// single-threaded execution on the caller's own goroutine.
type workerPool struct {
	engine  *Engine
	n       uint
	inline  bool
	workers []*Worker

	jobs chan hostJob
	wg   sync.WaitGroup

	mu      sync.Mutex
	doneCh  chan struct{}
}

func newWorkerPool(e *Engine, n uint) (*workerPool, error) {
	p := &workerPool{engine: e, n: n}

	if n == 0 {
		p.inline = true
		p.workers = []*Worker{newWorker(e.GenerateWorkerID(), e)}
		return p, nil
	}

	p.jobs = make(chan hostJob, n)
	for i := uint(0); i < n; i++ {
		w := newWorker(e.GenerateWorkerID(), e)
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go p.runWorker(w)
	}
	if len(p.workers) != int(n) {
		return nil, fmt.Errorf("spawned %d of %d requested workers", len(p.workers), n)
	}
	return p, nil
}

func (p *workerPool) runWorker(w *Worker) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(w, job)
	}
}

// process executes one host work item: drain events with delivery time
// before windowEnd, then notify the engine barrier.
func (p *workerPool) process(w *Worker, job hostJob) {
	w.beginHost(job.host, simtime.Time(p.engine.executeWindowStart.Load()))
	job.host.PopAndDeliver(w, job.windowEnd)
	w.endHost()
	p.engine.notifyHostProcessed()
}

// dispatchAndWait submits every due host as a work item and blocks until
// the engine signals that all of them have been drained for this window.
func (p *workerPool) dispatchAndWait(hosts []Host, windowEnd simtime.Time) {
	if p.inline {
		w := p.workers[0]
		for _, h := range hosts {
			p.process(w, hostJob{host: h, windowEnd: windowEnd})
		}
		return
	}

	p.mu.Lock()
	p.doneCh = make(chan struct{}, 1)
	p.mu.Unlock()

	for _, h := range hosts {
		p.jobs <- hostJob{host: h, windowEnd: windowEnd}
	}

	<-p.doneCh
}

// signalDrained wakes dispatchAndWait once nNodesToProcess reaches zero.
func (p *workerPool) signalDrained() {
	p.mu.Lock()
	ch := p.doneCh
	p.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// stop drains in-flight work and shuts down the pool's goroutines.
func (p *workerPool) stop() {
	if p.inline {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}
