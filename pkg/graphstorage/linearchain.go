package graphstorage

import (
	"sync"

	"github.com/annisql/graphannis/pkg/ids"
)

// LinearChain is a Storage implementation specialized for Ordering
// components: token sequences form a single chain (each node has at most
// one outgoing and one incoming edge), so adjacency and distance can be
// answered in O(1) from a position index instead of a general map-of-sets
// plus BFS.
type LinearChain struct {
	mu sync.RWMutex

	// position maps a node to its 0-based index in the chain.
	position map[ids.NodeID]int
	// sequence is the chain in order; sequence[i+1] follows sequence[i].
	sequence []ids.NodeID

	edgeAnnos map[ids.Edge][]ids.Annotation
}

// NewLinearChain creates an empty chain storage.
func NewLinearChain() *LinearChain {
	return &LinearChain{
		position:  make(map[ids.NodeID]int),
		edgeAnnos: make(map[ids.Edge][]ids.Annotation),
	}
}

// Append adds node to the end of the chain, connecting it to the previous
// last node with an implicit ordering edge. Must be called in chain order
// during load.
func (c *LinearChain) Append(node ids.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position[node] = len(c.sequence)
	c.sequence = append(c.sequence, node)
}

// AddEdgeAnno attaches anno to the ordering edge (prev, next).
func (c *LinearChain) AddEdgeAnno(e ids.Edge, anno ids.Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edgeAnnos[e] = append(c.edgeAnnos[e], anno)
}

func (c *LinearChain) GetOutgoingEdges(node ids.NodeID) []ids.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.position[node]
	if !ok || pos+1 >= len(c.sequence) {
		return nil
	}
	return []ids.NodeID{c.sequence[pos+1]}
}

func (c *LinearChain) GetIncomingEdges(node ids.NodeID) []ids.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.position[node]
	if !ok || pos == 0 {
		return nil
	}
	return []ids.NodeID{c.sequence[pos-1]}
}

func (c *LinearChain) IsConnected(src, tgt ids.NodeID, min, max int) bool {
	dist, ok := c.Distance(src, tgt)
	if !ok {
		return false
	}
	if dist < min {
		return false
	}
	if max != ids.UnlimitedDistance && dist > max {
		return false
	}
	return true
}

func (c *LinearChain) Distance(src, tgt ids.NodeID) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	srcPos, ok := c.position[src]
	if !ok {
		return 0, false
	}
	tgtPos, ok := c.position[tgt]
	if !ok {
		return 0, false
	}
	dist := tgtPos - srcPos
	if dist < 0 {
		return 0, false
	}
	return dist, true
}

// RetrieveOutward iterates every node at distance [min, max] from src,
// outward along the chain. Used directly by the Precedence operator's
// RetrieveMatches as an index join, avoiding the adjacency-list BFS path
// entirely.
func (c *LinearChain) RetrieveOutward(src ids.NodeID, min, max int) []ids.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	srcPos, ok := c.position[src]
	if !ok {
		return nil
	}
	start := srcPos + min
	var end int
	if max == ids.UnlimitedDistance {
		end = len(c.sequence) - 1
	} else {
		end = srcPos + max
	}
	if end >= len(c.sequence) {
		end = len(c.sequence) - 1
	}
	if start < 0 || start > end {
		return nil
	}
	out := make([]ids.NodeID, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, c.sequence[i])
	}
	return out
}

func (c *LinearChain) GetEdgeAnnos(e ids.Edge) []ids.Annotation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ids.Annotation, len(c.edgeAnnos[e]))
	copy(out, c.edgeAnnos[e])
	return out
}

func (c *LinearChain) GetStatistics() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.sequence) < 2 {
		return Statistics{}
	}
	return Statistics{
		AvgFanOut: 1.0,
		MaxDepth:  len(c.sequence) - 1,
		Cyclic:    false,
	}
}

func (c *LinearChain) NumberOfEdges() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.sequence) == 0 {
		return 0
	}
	return len(c.sequence) - 1
}

// Length returns the number of nodes in the chain (the corpus's token
// count, for Ordering/""/""), used by PrecedenceSpec's selectivity
// estimate.
func (c *LinearChain) Length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sequence)
}

// Sequence returns a copy of the chain in order, for serialization by
// graphdb's persist layer.
func (c *LinearChain) Sequence() []ids.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ids.NodeID, len(c.sequence))
	copy(out, c.sequence)
	return out
}
