// Package graphstorage implements per-Component edge-labeled subgraph
// storage: adjacency iteration, bounded-distance reachability, distance
// queries, and edge annotations.
package graphstorage

import (
	"container/list"

	"github.com/annisql/graphannis/pkg/ids"
)

// Statistics summarizes a component's shape for the planner's cost model.
type Statistics struct {
	AvgFanOut float64
	MaxDepth  int
	Cyclic    bool
}

// Storage is the shared contract every component implementation satisfies,
// regardless of internal representation (adjacency list, linear chain,
// prefix-encoded, ...). The engine only depends on this interface.
type Storage interface {
	// GetOutgoingEdges returns the nodes reachable from node via a single
	// edge in this component.
	GetOutgoingEdges(node ids.NodeID) []ids.NodeID

	// GetIncomingEdges returns the nodes with a single edge into node.
	GetIncomingEdges(node ids.NodeID) []ids.NodeID

	// IsConnected reports whether tgt is reachable from src within
	// [min, max] edges. max == ids.UnlimitedDistance means no upper bound.
	IsConnected(src, tgt ids.NodeID, min, max int) bool

	// Distance returns the shortest number of edges from src to tgt, or
	// false if tgt is unreachable.
	Distance(src, tgt ids.NodeID) (int, bool)

	// GetEdgeAnnos returns the annotations on a specific edge.
	GetEdgeAnnos(e ids.Edge) []ids.Annotation

	// GetStatistics returns the planner's cost input for this component.
	GetStatistics() Statistics

	// NumberOfEdges reports the total number of edges, recorded in the
	// component manifest and counted by the corpus cache's size estimate.
	NumberOfEdges() int
}

// bfsReachable runs a breadth-first search from src and reports whether tgt
// is reachable within maxDepth edges (maxDepth < 0 meaning unbounded), and
// the shortest distance found. Callers apply any lower bound themselves.
// Used by AdjacencyList; LinearChain answers from its position index.
func bfsReachable(outgoing func(ids.NodeID) []ids.NodeID, src, tgt ids.NodeID, maxDepth int) (int, bool) {
	if src == tgt {
		return 0, true
	}
	visited := map[ids.NodeID]bool{src: true}
	queue := list.New()
	queue.PushBack(src)
	depth := 0
	for queue.Len() > 0 && (maxDepth < 0 || depth < maxDepth) {
		depth++
		levelSize := queue.Len()
		for i := 0; i < levelSize; i++ {
			front := queue.Front()
			queue.Remove(front)
			cur := front.Value.(ids.NodeID)
			for _, next := range outgoing(cur) {
				if next == tgt {
					return depth, true
				}
				if !visited[next] {
					visited[next] = true
					queue.PushBack(next)
				}
			}
		}
	}
	return 0, false
}
