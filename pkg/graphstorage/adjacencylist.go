package graphstorage

import (
	"sync"

	"github.com/annisql/graphannis/pkg/ids"
)

// AdjacencyList is the general-purpose Storage implementation: a pair of
// map-of-sets adjacency indexes plus an edge-annotation map.
//
// A pair of map-of-sets indexes generalized from "per whole graph" to
// "per component" since each Component here is its own independent edge
// set.
type AdjacencyList struct {
	mu sync.RWMutex

	out map[ids.NodeID][]ids.NodeID
	in  map[ids.NodeID][]ids.NodeID

	edgeAnnos map[ids.Edge][]ids.Annotation

	edgeCount int
	cyclic    bool
}

// NewAdjacencyList creates an empty adjacency-list component storage.
func NewAdjacencyList() *AdjacencyList {
	return &AdjacencyList{
		out:       make(map[ids.NodeID][]ids.NodeID),
		in:        make(map[ids.NodeID][]ids.NodeID),
		edgeAnnos: make(map[ids.Edge][]ids.Annotation),
	}
}

// AddEdge records e in the component. Safe to call during bulk load only
// (GraphDB serializes loading under a write lock); queries never mutate.
func (a *AdjacencyList) AddEdge(e ids.Edge) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out[e.Source] = append(a.out[e.Source], e.Target)
	a.in[e.Target] = append(a.in[e.Target], e.Source)
	a.edgeCount++
	if e.Source == e.Target {
		a.cyclic = true
	}
}

// AddEdgeAnno attaches anno to edge e. e must already have been added with
// AddEdge.
func (a *AdjacencyList) AddEdgeAnno(e ids.Edge, anno ids.Annotation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.edgeAnnos[e] = append(a.edgeAnnos[e], anno)
}

func (a *AdjacencyList) GetOutgoingEdges(node ids.NodeID) []ids.NodeID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ids.NodeID, len(a.out[node]))
	copy(out, a.out[node])
	return out
}

func (a *AdjacencyList) GetIncomingEdges(node ids.NodeID) []ids.NodeID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ids.NodeID, len(a.in[node]))
	copy(out, a.in[node])
	return out
}

func (a *AdjacencyList) IsConnected(src, tgt ids.NodeID, min, max int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	dist, ok := bfsReachable(a.unlockedOutgoing, src, tgt, max)
	if !ok {
		return false
	}
	return dist >= min
}

func (a *AdjacencyList) Distance(src, tgt ids.NodeID) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return bfsReachable(a.unlockedOutgoing, src, tgt, ids.UnlimitedDistance)
}

// unlockedOutgoing is used internally by BFS helpers that already hold
// a.mu; it must not be called without the lock held.
func (a *AdjacencyList) unlockedOutgoing(node ids.NodeID) []ids.NodeID {
	return a.out[node]
}

func (a *AdjacencyList) GetEdgeAnnos(e ids.Edge) []ids.Annotation {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ids.Annotation, len(a.edgeAnnos[e]))
	copy(out, a.edgeAnnos[e])
	return out
}

func (a *AdjacencyList) GetStatistics() Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.out) == 0 {
		return Statistics{}
	}
	sum := 0
	maxDepth := 0
	for node, targets := range a.out {
		sum += len(targets)
		if depth := a.eccentricityLocked(node); depth > maxDepth {
			maxDepth = depth
		}
	}
	return Statistics{
		AvgFanOut: float64(sum) / float64(len(a.out)),
		MaxDepth:  maxDepth,
		Cyclic:    a.cyclic,
	}
}

// eccentricityLocked returns the longest shortest-path distance from node
// to any other node reachable from it. Caller holds a.mu.
func (a *AdjacencyList) eccentricityLocked(node ids.NodeID) int {
	visited := map[ids.NodeID]int{node: 0}
	frontier := []ids.NodeID{node}
	maxDist := 0
	for len(frontier) > 0 {
		var next []ids.NodeID
		for _, cur := range frontier {
			d := visited[cur]
			for _, n := range a.out[cur] {
				if _, seen := visited[n]; !seen {
					visited[n] = d + 1
					if d+1 > maxDist {
						maxDist = d + 1
					}
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return maxDist
}

func (a *AdjacencyList) NumberOfEdges() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.edgeCount
}

// SourceNodes returns every node with at least one outgoing edge, for
// serialization by graphdb's persist layer.
func (a *AdjacencyList) SourceNodes() []ids.NodeID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ids.NodeID, 0, len(a.out))
	for node := range a.out {
		out = append(out, node)
	}
	return out
}
