// Package exec implements the pull-based executor: a chain of
// ExecutionNode iterators built by the planner, and an
// ExecutionPlan that ties one plan per disjunction alternative together
// with cross-alternative deduplication and final column reordering.
package exec

import "github.com/annisql/graphannis/pkg/ids"

// Row is one tuple of matches, indexed by the execution tree's internal
// join order — not yet reordered into query variable order. Desc.Reorder
// does that translation once, at the top of the tree.
type Row []ids.Match

// ExecutionNode is a single pull-based iterator stage. Each call to Next
// either produces the next row or reports exhaustion; there is no separate
// "has more" check; callers must not call Next again after it returns
// false.
type ExecutionNode interface {
	Next() (Row, bool, error)
}
