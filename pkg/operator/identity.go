package operator

import (
	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/query"
)

// IdentitySpec relates two node-search positions that must resolve to the
// exact same node (used when a query references one underlying node
// through two different annotation predicates).
type IdentitySpec struct{}

func (IdentitySpec) NecessaryComponents() []ids.Component { return nil }

func (IdentitySpec) CreateOperator(db *graphdb.GraphDB) (query.Operator, error) {
	return identityOperator{}, nil
}

type identityOperator struct{}

func (identityOperator) Filter(lhs, rhs ids.Match) (bool, error) {
	return lhs.Node == rhs.Node, nil
}

func (identityOperator) RetrieveMatches(lhs ids.Match) ([]ids.Match, error) {
	return []ids.Match{{Node: lhs.Node}}, nil
}

func (identityOperator) EstimationType() query.Estimation {
	return query.Estimation{Kind: query.EstimationMin}
}

func (identityOperator) IsReflexive() bool   { return true }
func (identityOperator) IsCommutative() bool { return true }
