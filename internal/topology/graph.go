package topology

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// vertex caches a node's attributes, keyed by the vertex's gonum node
// ID. Attributes are parsed once at load time and read through typed
// fields afterward; nothing resolves attributes by string name on the
// query path.
type vertex struct {
	index int64
	id    string
	typ   string
	isPoI bool

	// PoI-only attributes.
	ip            string
	geocode       string
	bandwidthUp   float64
	bandwidthDown float64
	packetLoss    float64
}

type edgeKey struct{ from, to int64 }

type edgeMeta struct {
	latencyMS  float64
	jitterMS   float64
	packetLoss float64
}

// graphStore owns the gonum graph, its vertex/edge attribute tables,
// and the edge weights Dijkstra runs over, all behind one lock. The
// graph layer is treated as non-reentrant: every operation, including
// attribute reads, takes the lock.
type graphStore struct {
	mu sync.Mutex

	g *simple.WeightedDirectedGraph

	vertices     map[int64]*vertex
	vertexByID   map[string]int64
	edges        map[edgeKey]edgeMeta
	poiVertices  []int64

	dijkstraTime  time.Duration
	dijkstraCalls uint64
}

// loadGraphStore parses and validates the graph description at path,
// returning GraphUnloadableError or UnconnectedTopologyError on
// failure.
func loadGraphStore(path_ string) (*graphStore, error) {
	f, err := os.Open(path_)
	if err != nil {
		return nil, &GraphUnloadableError{Path: path_, Reason: err.Error()}
	}
	defer f.Close()

	parsed, err := parseGML(f)
	if err != nil {
		return nil, &GraphUnloadableError{Path: path_, Reason: err.Error()}
	}

	gs := &graphStore{
		g:          simple.NewWeightedDirectedGraph(0, 0),
		vertices:   make(map[int64]*vertex),
		vertexByID: make(map[string]int64),
		edges:      make(map[edgeKey]edgeMeta),
	}

	for i, n := range parsed.nodes {
		v, err := buildVertex(int64(i), n.attrs)
		if err != nil {
			return nil, &GraphUnloadableError{Path: path_, Reason: err.Error()}
		}
		if _, dup := gs.vertexByID[v.id]; dup {
			return nil, &GraphUnloadableError{Path: path_, Reason: fmt.Sprintf("duplicate vertex id %q", v.id)}
		}
		gs.vertices[v.index] = v
		gs.vertexByID[v.id] = v.index
		gs.g.AddNode(simple.Node(v.index))
		if v.isPoI {
			gs.poiVertices = append(gs.poiVertices, v.index)
		}
	}

	for _, e := range parsed.edges {
		meta, from, to, err := buildEdge(e.attrs, gs.vertexByID)
		if err != nil {
			return nil, &GraphUnloadableError{Path: path_, Reason: err.Error()}
		}
		gs.edges[edgeKey{from, to}] = meta
		gs.g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(from),
			T: simple.Node(to),
			W: meta.latencyMS,
		})
	}

	if err := gs.checkStronglyConnected(); err != nil {
		return nil, err
	}

	return gs, nil
}

func buildVertex(index int64, attrs map[string]string) (*vertex, error) {
	id, ok := attrs["id"]
	if !ok || id == "" {
		return nil, fmt.Errorf("node missing required attribute \"id\"")
	}
	typ := attrs["type"]
	v := &vertex{index: index, id: id, typ: typ, isPoI: strings.Contains(id, "poi")}

	if !v.isPoI {
		return v, nil
	}

	ip, ok := attrs["ip"]
	if !ok || ip == "" {
		return nil, fmt.Errorf("poi node %q missing required attribute \"ip\"", id)
	}
	geocode, ok := attrs["geocode"]
	if !ok || geocode == "" {
		return nil, fmt.Errorf("poi node %q missing required attribute \"geocode\"", id)
	}
	bwUp, ok, err := parseFloatAttr(attrs, "bandwidthup")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("poi node %q missing required attribute \"bandwidthup\"", id)
	}
	bwDown, ok, err := parseFloatAttr(attrs, "bandwidthdown")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("poi node %q missing required attribute \"bandwidthdown\"", id)
	}
	ploss, ok, err := parseFloatAttr(attrs, "packetloss")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("poi node %q missing required attribute \"packetloss\"", id)
	}

	v.ip = ip
	v.geocode = geocode
	v.bandwidthUp = bwUp
	v.bandwidthDown = bwDown
	v.packetLoss = ploss
	return v, nil
}

func buildEdge(attrs map[string]string, vertexByID map[string]int64) (edgeMeta, int64, int64, error) {
	src, ok := attrs["source"]
	if !ok {
		return edgeMeta{}, 0, 0, fmt.Errorf("edge missing required attribute \"source\"")
	}
	dst, ok := attrs["target"]
	if !ok {
		return edgeMeta{}, 0, 0, fmt.Errorf("edge missing required attribute \"target\"")
	}
	from, ok := vertexByID[src]
	if !ok {
		return edgeMeta{}, 0, 0, fmt.Errorf("edge source %q is not a known node", src)
	}
	to, ok := vertexByID[dst]
	if !ok {
		return edgeMeta{}, 0, 0, fmt.Errorf("edge target %q is not a known node", dst)
	}

	latency, ok, err := parseFloatAttr(attrs, "latency")
	if err != nil {
		return edgeMeta{}, 0, 0, err
	}
	if !ok {
		return edgeMeta{}, 0, 0, fmt.Errorf("edge %s->%s missing required attribute \"latency\"", src, dst)
	}
	jitter, ok, err := parseFloatAttr(attrs, "jitter")
	if err != nil {
		return edgeMeta{}, 0, 0, err
	}
	if !ok {
		return edgeMeta{}, 0, 0, fmt.Errorf("edge %s->%s missing required attribute \"jitter\"", src, dst)
	}
	ploss, ok, err := parseFloatAttr(attrs, "packetloss")
	if err != nil {
		return edgeMeta{}, 0, 0, err
	}
	if !ok {
		return edgeMeta{}, 0, 0, fmt.Errorf("edge %s->%s missing required attribute \"packetloss\"", src, dst)
	}

	return edgeMeta{latencyMS: latency, jitterMS: jitter, packetLoss: ploss}, from, to, nil
}

// checkStronglyConnected fails with UnconnectedTopologyError unless the
// whole graph is a single strongly-connected component.
func (gs *graphStore) checkStronglyConnected() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if len(gs.vertices) == 0 {
		return &UnconnectedTopologyError{ComponentCount: 0}
	}
	sccs := topo.TarjanSCC(gs.g)
	if len(sccs) != 1 {
		return &UnconnectedTopologyError{ComponentCount: len(sccs)}
	}
	return nil
}

// shortestPath runs Dijkstra from src to dst under the graph lock and
// returns the accumulated latency and reliability. Same-vertex queries
// are a zero-edge virtual hop with a fixed latency of 1.0ms.
func (gs *graphStore) shortestPath(src, dst int64) (totalLatencyMS, totalReliability float64, err error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	srcV, ok := gs.vertices[src]
	if !ok {
		return 0, 0, fmt.Errorf("unknown vertex index %d", src)
	}
	dstV, ok := gs.vertices[dst]
	if !ok {
		return 0, 0, fmt.Errorf("unknown vertex index %d", dst)
	}

	if src == dst {
		rel := (1 - srcV.packetLoss) * (1 - dstV.packetLoss)
		return 1.0, rel, nil
	}

	start := time.Now()
	shortest := path.DijkstraFrom(simple.Node(src), gs.g)
	gs.dijkstraTime += time.Since(start)
	gs.dijkstraCalls++

	nodes, weight := shortest.To(dst)
	if nodes == nil {
		return 0, 0, fmt.Errorf("no path from vertex %d to vertex %d", src, dst)
	}

	reliability := (1 - srcV.packetLoss) * (1 - dstV.packetLoss)
	for i := 0; i+1 < len(nodes); i++ {
		meta, ok := gs.edges[edgeKey{nodes[i].ID(), nodes[i+1].ID()}]
		if !ok {
			return 0, 0, fmt.Errorf("missing edge metadata for %d->%d", nodes[i].ID(), nodes[i+1].ID())
		}
		reliability *= 1 - meta.packetLoss
	}

	return weight, reliability, nil
}

// DijkstraTime returns the cumulative wall-clock time spent in shortest
// path computation, for observability.
func (gs *graphStore) DijkstraTime() time.Duration {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.dijkstraTime
}

// DijkstraCalls returns the number of times Dijkstra has actually run,
// as opposed to being served from the path cache.
func (gs *graphStore) DijkstraCalls() uint64 {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.dijkstraCalls
}

var _ graph.WeightedDirected = (*simple.WeightedDirectedGraph)(nil)
