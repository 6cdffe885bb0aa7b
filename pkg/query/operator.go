package query

import (
	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/ids"
)

// EstimationKind classifies how an Operator's cost should be read by the
// planner's sort step.
type EstimationKind int

const (
	// EstimationMin means "treat as the cheapest possible operator" —
	// used by operators whose retrieve_matches is effectively free
	// (e.g. identity).
	EstimationMin EstimationKind = iota
	// EstimationMax means "treat as the most expensive possible
	// operator" — planner sorts these last regardless of selectivity.
	EstimationMax
	// EstimationSelectivity carries a concrete selectivity in [0, 1].
	EstimationSelectivity
)

// Estimation is an Operator's self-reported cost, consumed by the
// planner's cost-ascending sort.
type Estimation struct {
	Kind        EstimationKind
	Selectivity float64
}

// OperatorSpec is the parsed, not-yet-bound description of a binary
// operator between two node-search positions. Concrete specs (Precedence,
// Dominance, Identity, ...) live in pkg/operator; this package only needs
// the contract.
type OperatorSpec interface {
	// NecessaryComponents lists the components CreateOperator will need
	// loaded in the GraphDB it's given.
	NecessaryComponents() []ids.Component
	// CreateOperator binds the spec against a loaded GraphDB, producing
	// an Operator ready to filter or retrieve matches.
	CreateOperator(db *graphdb.GraphDB) (Operator, error)
}

// Operator is a binary relation between two Matches, realized by
// consulting one or more graph storage components. Concrete operators are
// flat structs dispatched once per row; no deep class hierarchy.
type Operator interface {
	// Filter reports whether the pair (lhs, rhs) satisfies the relation.
	Filter(lhs, rhs ids.Match) (bool, error)
	// RetrieveMatches yields every rhs candidate related to lhs, for use
	// as the inner side of an index join.
	RetrieveMatches(lhs ids.Match) ([]ids.Match, error)
	// EstimationType reports this operator's expected cost/selectivity.
	EstimationType() Estimation
	// IsReflexive reports whether lhs == rhs is a valid match.
	IsReflexive() bool
	// IsCommutative reports whether the planner may swap lhs/rhs to put
	// the cheaper side on the outer loop.
	IsCommutative() bool
}
