// Package operator implements the concrete Operator variants the planner
// can bind into a query: Precedence, Dominance, and Identity.
package operator

import (
	"fmt"

	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/query"
)

// PrecedenceSpec orders two nodes by their position in a token ordering.
// If Segmentation is set, uses the Ordering component named by it instead
// of the base token chain.
type PrecedenceSpec struct {
	Segmentation *string
	MinDist      int
	MaxDist      int
}

func (p PrecedenceSpec) orderingComponent() ids.Component {
	name := ""
	if p.Segmentation != nil {
		name = *p.Segmentation
	}
	return ids.Component{Type: ids.Ordering, Layer: "", Name: name}
}

// NecessaryComponents reports the Ordering component plus LeftToken/
// RightToken, which Filter uses to map non-token nodes to their boundary
// tokens.
func (p PrecedenceSpec) NecessaryComponents() []ids.Component {
	return []ids.Component{
		p.orderingComponent(),
		{Type: ids.LeftToken},
		{Type: ids.RightToken},
	}
}

// CreateOperator binds the spec against a loaded GraphDB.
func (p PrecedenceSpec) CreateOperator(db *graphdb.GraphDB) (query.Operator, error) {
	ordering, ok := db.GetGraphStorage(p.orderingComponent())
	if !ok {
		return nil, fmt.Errorf("precedence: ordering component %s not loaded", p.orderingComponent())
	}
	leftToken, _ := db.GetGraphStorage(ids.Component{Type: ids.LeftToken})
	rightToken, _ := db.GetGraphStorage(ids.Component{Type: ids.RightToken})
	return &precedenceOperator{
		ordering:   ordering,
		leftToken:  leftToken,
		rightToken: rightToken,
		minDist:    p.MinDist,
		maxDist:    p.MaxDist,
	}, nil
}

type precedenceOperator struct {
	ordering   graphstorage.Storage
	leftToken  graphstorage.Storage
	rightToken graphstorage.Storage
	minDist    int
	maxDist    int
}

// rightEdgeOf maps node to the rightmost token of its span via the
// RightToken component, or returns node unchanged if it has none (it is
// already a token).
func rightEdgeOf(node ids.NodeID, rightToken graphstorage.Storage) ids.NodeID {
	if rightToken == nil {
		return node
	}
	out := rightToken.GetOutgoingEdges(node)
	if len(out) == 1 {
		return out[0]
	}
	return node
}

// leftEdgeOf maps node to the leftmost token of its span via the
// LeftToken component.
func leftEdgeOf(node ids.NodeID, leftToken graphstorage.Storage) ids.NodeID {
	if leftToken == nil {
		return node
	}
	out := leftToken.GetOutgoingEdges(node)
	if len(out) == 1 {
		return out[0]
	}
	return node
}

func (p *precedenceOperator) Filter(lhs, rhs ids.Match) (bool, error) {
	l := rightEdgeOf(lhs.Node, p.rightToken)
	r := leftEdgeOf(rhs.Node, p.leftToken)
	return p.ordering.IsConnected(l, r, p.minDist, p.maxDist), nil
}

func (p *precedenceOperator) RetrieveMatches(lhs ids.Match) ([]ids.Match, error) {
	l := rightEdgeOf(lhs.Node, p.rightToken)
	nodes := retrieveOutward(p.ordering, l, p.minDist, p.maxDist)
	out := make([]ids.Match, len(nodes))
	for i, n := range nodes {
		out[i] = ids.Match{Node: n}
	}
	return out, nil
}

func (p *precedenceOperator) EstimationType() query.Estimation {
	length := corpusLength(p.ordering)
	if length == 0 {
		return query.Estimation{Kind: query.EstimationMax}
	}
	window := float64(p.maxDist - p.minDist + 1)
	if p.maxDist == ids.UnlimitedDistance {
		window = float64(length)
	}
	selectivity := window / float64(length)
	if selectivity > 1.0 {
		selectivity = 1.0
	}
	return query.Estimation{
		Kind:        query.EstimationSelectivity,
		Selectivity: selectivity,
	}
}

func (p *precedenceOperator) IsReflexive() bool   { return p.minDist == 0 }
func (p *precedenceOperator) IsCommutative() bool { return false }

// corpusLength estimates the token count backing an Ordering component,
// for Precedence's selectivity estimate.
func corpusLength(storage graphstorage.Storage) int {
	if chain, ok := storage.(*graphstorage.LinearChain); ok {
		return chain.Length()
	}
	stats := storage.GetStatistics()
	return stats.MaxDepth + 1
}

// retrieveOutward enumerates every node at distance [min, max] from src,
// outward along storage. LinearChain exposes an O(window) primitive for
// this; any other Storage implementation is walked breadth-first layer by
// layer instead.
func retrieveOutward(storage graphstorage.Storage, src ids.NodeID, min, max int) []ids.NodeID {
	if chain, ok := storage.(*graphstorage.LinearChain); ok {
		return chain.RetrieveOutward(src, min, max)
	}

	visited := map[ids.NodeID]bool{src: true}
	frontier := []ids.NodeID{src}
	var out []ids.NodeID
	depth := 0
	for len(frontier) > 0 && (max == ids.UnlimitedDistance || depth < max) {
		depth++
		var next []ids.NodeID
		for _, n := range frontier {
			for _, t := range storage.GetOutgoingEdges(n) {
				if visited[t] {
					continue
				}
				visited[t] = true
				if depth >= min {
					out = append(out, t)
				}
				next = append(next, t)
			}
		}
		frontier = next
	}
	return out
}
