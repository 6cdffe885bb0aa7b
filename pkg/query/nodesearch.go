// Package query defines the query intermediate representation: node search
// specifications, the operator contract, and the conjunction/disjunction
// tree that a parser builds and the planner consumes.
package query

import "github.com/annisql/graphannis/pkg/ids"

// NodeSearchSpec describes one leaf node predicate. The concrete variants
// below are the only implementations; callers type-switch on them rather
// than adding behavior to the interface, keeping each kind as flat data
// consumed by a separate builder/executor.
type NodeSearchSpec interface {
	isNodeSearchSpec()
}

// ExactValue matches nodes carrying an annotation (ns, name) = value. Ns
// nil means "any namespace"; Value nil means "any value with this name".
type ExactValue struct {
	Ns    *string
	Name  string
	Value *string
}

// RegexValue matches nodes carrying an annotation (ns, name) whose value
// matches Pattern.
type RegexValue struct {
	Ns      *string
	Name    string
	Pattern string
}

// ExactTokenValue matches token nodes whose surface text equals Text.
// LeafsOnly restricts to nodes with no Coverage fan-in besides themselves.
type ExactTokenValue struct {
	Text      string
	LeafsOnly bool
}

// RegexTokenValue matches token nodes whose surface text matches Pattern.
type RegexTokenValue struct {
	Pattern   string
	LeafsOnly bool
}

// AnyToken matches every token node.
type AnyToken struct{}

// AnyNode matches every node regardless of type.
type AnyNode struct{}

func (ExactValue) isNodeSearchSpec()      {}
func (RegexValue) isNodeSearchSpec()      {}
func (ExactTokenValue) isNodeSearchSpec() {}
func (RegexTokenValue) isNodeSearchSpec() {}
func (AnyToken) isNodeSearchSpec()        {}
func (AnyNode) isNodeSearchSpec()         {}

// NecessaryComponents returns the components a node search must have
// loaded to be evaluated. Token and annotation searches need no component
// by themselves (they read the node annotation store directly); a
// LeafsOnly token search also lists Coverage, which the executor uses to
// filter out non-leaf matches after the search itself.
func NecessaryComponents(spec NodeSearchSpec) []ids.Component {
	switch s := spec.(type) {
	case ExactTokenValue:
		if s.LeafsOnly {
			return []ids.Component{{Type: ids.Coverage}}
		}
	case RegexTokenValue:
		if s.LeafsOnly {
			return []ids.Component{{Type: ids.Coverage}}
		}
	}
	return nil
}
