package operator

import (
	"fmt"

	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/query"
)

// DominanceSpec relates a parent node to a descendant within [min_dist,
// max_dist] edges of a named Dominance component (constituent trees).
type DominanceSpec struct {
	Layer   string
	Name    string
	MinDist int
	MaxDist int
}

func (d DominanceSpec) component() ids.Component {
	return ids.Component{Type: ids.Dominance, Layer: d.Layer, Name: d.Name}
}

func (d DominanceSpec) NecessaryComponents() []ids.Component {
	return []ids.Component{d.component()}
}

func (d DominanceSpec) CreateOperator(db *graphdb.GraphDB) (query.Operator, error) {
	storage, ok := db.GetGraphStorage(d.component())
	if !ok {
		return nil, fmt.Errorf("dominance: component %s not loaded", d.component())
	}
	return &dominanceOperator{storage: storage, minDist: d.MinDist, maxDist: d.MaxDist}, nil
}

type dominanceOperator struct {
	storage graphstorage.Storage
	minDist int
	maxDist int
}

func (d *dominanceOperator) Filter(lhs, rhs ids.Match) (bool, error) {
	return d.storage.IsConnected(lhs.Node, rhs.Node, d.minDist, d.maxDist), nil
}

func (d *dominanceOperator) RetrieveMatches(lhs ids.Match) ([]ids.Match, error) {
	nodes := retrieveOutward(d.storage, lhs.Node, d.minDist, d.maxDist)
	out := make([]ids.Match, len(nodes))
	for i, n := range nodes {
		out[i] = ids.Match{Node: n}
	}
	return out, nil
}

func (d *dominanceOperator) EstimationType() query.Estimation {
	stats := d.storage.GetStatistics()
	if stats.AvgFanOut <= 0 {
		return query.Estimation{Kind: query.EstimationMax}
	}
	// A tree's fan-out directly bounds how many descendants a single
	// dominance probe yields at distance 1; deeper windows are rarer, so
	// treating avg fan-out as the per-hop branching factor and discounting
	// it by the window size is a reasonable stand-in for a true selectivity
	// histogram, which the GraphDB does not maintain for tree components.
	window := float64(d.maxDist - d.minDist + 1)
	if d.maxDist == ids.UnlimitedDistance {
		window = float64(stats.MaxDepth + 1)
	}
	selectivity := 1.0 / (stats.AvgFanOut * window)
	if selectivity > 1.0 {
		selectivity = 1.0
	}
	return query.Estimation{Kind: query.EstimationSelectivity, Selectivity: selectivity}
}

func (d *dominanceOperator) IsReflexive() bool   { return d.minDist == 0 }
func (d *dominanceOperator) IsCommutative() bool { return false }
