package query

import "github.com/annisql/graphannis/pkg/ids"

// OperatorTriple binds an OperatorSpec between two node positions within a
// Conjunction.
type OperatorTriple struct {
	Spec   OperatorSpec
	LhsPos int
	RhsPos int
}

// Conjunction is an AND of node-search predicates linked by binary
// operators. Node position == variable index in the original query.
type Conjunction struct {
	nodes     []NodeSearchSpec
	names     []string // names[i] is nodes[i]'s query-assigned variable name
	operators []OperatorTriple
}

// NewConjunction creates an empty conjunction.
func NewConjunction() *Conjunction {
	return &Conjunction{}
}

// AddNode appends a node search, returning its position (variable index).
// name is the variable identifier assigned by the query source (e.g. the
// JSON query's node id), used by GetVariablePos.
func (c *Conjunction) AddNode(name string, spec NodeSearchSpec) int {
	c.nodes = append(c.nodes, spec)
	c.names = append(c.names, name)
	return len(c.nodes) - 1
}

// AddOperator appends an operator triple between two already-added node
// positions.
func (c *Conjunction) AddOperator(spec OperatorSpec, lhsPos, rhsPos int) {
	c.operators = append(c.operators, OperatorTriple{Spec: spec, LhsPos: lhsPos, RhsPos: rhsPos})
}

// Nodes returns the ordered node-search list.
func (c *Conjunction) Nodes() []NodeSearchSpec {
	return c.nodes
}

// Operators returns the ordered operator-triple list.
func (c *Conjunction) Operators() []OperatorTriple {
	return c.operators
}

// VariablePos returns the position assigned to name, if any node in this
// conjunction was added under that name.
func (c *Conjunction) VariablePos(name string) (int, bool) {
	for i, n := range c.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// NecessaryComponents unions every component required by this
// conjunction's node searches and operators.
func (c *Conjunction) NecessaryComponents() []ids.Component {
	seen := make(map[ids.Component]struct{})
	var out []ids.Component
	add := func(comps []ids.Component) {
		for _, comp := range comps {
			if _, ok := seen[comp]; !ok {
				seen[comp] = struct{}{}
				out = append(out, comp)
			}
		}
	}
	for _, n := range c.nodes {
		add(NecessaryComponents(n))
	}
	for _, op := range c.operators {
		add(op.Spec.NecessaryComponents())
	}
	return out
}
