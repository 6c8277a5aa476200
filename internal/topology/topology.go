// Package topology loads a static network graph and answers latency,
// reliability, and routability queries for pairs of attached virtual
// hosts, caching shortest-path results behind a two-level map.
package topology

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Topology owns the graph, the virtual-IP attachment map, and the path
// cache. Lock order is fixed: ipMu -> graph lock -> cache lock; no code
// acquires these in any other order.
type Topology struct {
	log *logrus.Entry

	graph *graphStore

	ipMu       sync.RWMutex
	attachment map[string]int64 // networkIP -> vertex index

	cache *pathCache
}

// New loads and validates the graph description at graphPath.
func New(graphPath string, log *logrus.Entry) (*Topology, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	gs, err := loadGraphStore(graphPath)
	if err != nil {
		return nil, err
	}
	return &Topology{
		log:        log,
		graph:      gs,
		attachment: make(map[string]int64),
		cache:      newPathCache(),
	}, nil
}

// ConnectHints filters the PoI candidate pool for connect().
type ConnectHints struct {
	IPHint      string // keeps candidates whose IP starts with IPHint; candidates are not ranked by longest common prefix
	ClusterHint string // exact match against a candidate's geocode
	TypeHint    string // exact match against a candidate's type
}

// Connect pins networkIP to a PoI vertex chosen from the candidates
// that satisfy hints, returning the vertex's (bandwidthDown,
// bandwidthUp). Hints are honored rather than silently ignored: a hint
// with no matching candidate is reported as UnsupportedHintError, not
// dropped.
func (t *Topology) Connect(networkIP string, rng *rand.Rand, hints ConnectHints) (bwDown, bwUp float64, err error) {
	t.ipMu.Lock()
	defer t.ipMu.Unlock()

	t.graph.mu.Lock()
	candidates := make([]int64, len(t.graph.poiVertices))
	copy(candidates, t.graph.poiVertices)
	t.graph.mu.Unlock()

	candidates, err = t.filterCandidates(candidates, hints)
	if err != nil {
		return 0, 0, err
	}
	if len(candidates) == 0 {
		return 0, 0, &UnsupportedHintError{
			Hint: fmt.Sprintf("no PoI vertex matches type=%q cluster=%q ip=%q",
				hints.TypeHint, hints.ClusterHint, hints.IPHint),
		}
	}

	chosen := candidates[0]
	if len(candidates) > 1 {
		chosen = candidates[rng.Intn(len(candidates))]
	}

	t.graph.mu.Lock()
	v := t.graph.vertices[chosen]
	t.graph.mu.Unlock()

	t.attachment[networkIP] = chosen
	return v.bandwidthDown, v.bandwidthUp, nil
}

func (t *Topology) filterCandidates(candidates []int64, hints ConnectHints) ([]int64, error) {
	t.graph.mu.Lock()
	defer t.graph.mu.Unlock()

	out := candidates[:0:0]
	for _, idx := range candidates {
		v := t.graph.vertices[idx]
		if hints.TypeHint != "" && v.typ != hints.TypeHint {
			continue
		}
		if hints.ClusterHint != "" && v.geocode != hints.ClusterHint {
			continue
		}
		if hints.IPHint != "" && !strings.HasPrefix(v.ip, hints.IPHint) {
			continue
		}
		out = append(out, idx)
	}
	return out, nil
}

// Disconnect removes networkIP's PoI attachment.
func (t *Topology) Disconnect(networkIP string) {
	t.ipMu.Lock()
	defer t.ipMu.Unlock()
	delete(t.attachment, networkIP)
}

func (t *Topology) resolve(ip string) (int64, bool) {
	t.ipMu.RLock()
	defer t.ipMu.RUnlock()
	idx, ok := t.attachment[ip]
	return idx, ok
}

// Latency returns the latency in ms between src and dst, or
// UnattachedSentinel (< 0) if either endpoint is unattached.
func (t *Topology) Latency(src, dst string) float64 {
	p, ok := t.path(src, dst)
	if !ok {
		return UnattachedSentinel
	}
	return p.LatencyMS()
}

// Reliability returns the end-to-end survival probability between src
// and dst, or UnattachedSentinel (< 0) if either endpoint is unattached.
func (t *Topology) Reliability(src, dst string) float64 {
	p, ok := t.path(src, dst)
	if !ok {
		return UnattachedSentinel
	}
	return p.Reliability()
}

// IsRoutable reports whether src and dst are both attached and
// connected by a path; equivalent to Latency(src, dst) >= 0.
func (t *Topology) IsRoutable(src, dst string) bool {
	return t.Latency(src, dst) >= 0
}

// path resolves src/dst to vertex indices, serves from cache on hit,
// and computes and inserts on miss.
func (t *Topology) path(src, dst string) (Path, bool) {
	srcIdx, ok := t.resolve(src)
	if !ok {
		t.log.WithError(&AddressUnattachedError{Address: src}).Warn("topology: query against unattached address")
		return Path{}, false
	}
	dstIdx, ok := t.resolve(dst)
	if !ok {
		t.log.WithError(&AddressUnattachedError{Address: dst}).Warn("topology: query against unattached address")
		return Path{}, false
	}

	if p, ok := t.cache.get(srcIdx, dstIdx); ok {
		return p, true
	}

	lat, rel, err := t.graph.shortestPath(srcIdx, dstIdx)
	if err != nil {
		cerr := &PathComputationFailedError{Src: src, Dst: dst, Reason: err.Error()}
		t.log.WithError(cerr).Error("topology: path computation failed")
		return Path{}, false
	}

	p := NewPath(lat, rel)
	t.cache.put(srcIdx, dstIdx, p)
	return p, true
}

// SelfCheck attaches two temporary probe addresses and verifies they
// route to each other, exercising the full attach/shortest-path pipeline
// before a run commits to this topology. The probes are detached before
// returning; any computed paths stay cached.
func (t *Topology) SelfCheck(rng *rand.Rand) error {
	const probeA, probeB = "selfcheck-a", "selfcheck-b"

	if _, _, err := t.Connect(probeA, rng, ConnectHints{}); err != nil {
		return err
	}
	defer t.Disconnect(probeA)
	if _, _, err := t.Connect(probeB, rng, ConnectHints{}); err != nil {
		return err
	}
	defer t.Disconnect(probeB)

	if !t.IsRoutable(probeA, probeB) || !t.IsRoutable(probeB, probeA) {
		return &PathComputationFailedError{Src: probeA, Dst: probeB, Reason: "probe addresses do not route"}
	}
	return nil
}

// ClearCache discards every cached path. The core never invalidates
// implicitly; this is the only way the cache shrinks.
func (t *Topology) ClearCache() {
	t.cache.clear()
}

// DijkstraTime returns cumulative time spent computing shortest paths.
func (t *Topology) DijkstraTime() int64 {
	return t.graph.DijkstraTime().Nanoseconds()
}

// DijkstraCalls returns how many times Dijkstra has actually run, as
// opposed to being served from the path cache.
func (t *Topology) DijkstraCalls() uint64 {
	return t.graph.DijkstraCalls()
}
