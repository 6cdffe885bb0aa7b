package query

import "github.com/annisql/graphannis/pkg/ids"

// Disjunction is an OR of conjunctions — the top-level query form.
type Disjunction struct {
	Alternatives []*Conjunction
}

// NewDisjunction wraps the given conjunctions as alternatives.
func NewDisjunction(alternatives ...*Conjunction) *Disjunction {
	return &Disjunction{Alternatives: alternatives}
}

// NecessaryComponents unions every alternative's required components.
func (d *Disjunction) NecessaryComponents() []ids.Component {
	seen := make(map[ids.Component]struct{})
	var out []ids.Component
	for _, c := range d.Alternatives {
		for _, comp := range c.NecessaryComponents() {
			if _, ok := seen[comp]; !ok {
				seen[comp] = struct{}{}
				out = append(out, comp)
			}
		}
	}
	return out
}

// VariablePos returns the position assigned to name in the first
// alternative that resolves it, matching the "first alternative wins"
// semantics every downstream consumer (column ordering, display) assumes.
func (d *Disjunction) VariablePos(name string) (int, bool) {
	for _, c := range d.Alternatives {
		if pos, ok := c.VariablePos(name); ok {
			return pos, true
		}
	}
	return 0, false
}

// Config tunes planner/executor behavior independent of any one query.
type Config struct {
	// UseParallelJoins is carried through from configuration; the planner
	// and executor do not read it, so joins always run single-threaded.
	UseParallelJoins bool
}
