// Package planner compiles a query.Conjunction into an exec.Plan: a greedy
// forest-based join-tree builder that picks index joins over nested-loop
// joins wherever the right-hand side permits.
package planner

import (
	"errors"
	"sort"

	"github.com/annisql/graphannis/pkg/exec"
	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/query"
)

// ErrImpossibleSearch is returned when a conjunction's operators don't
// connect every node position into a single join tree.
var ErrImpossibleSearch = errors.New("planner: conjunction is unconnected")

// tree is one partial join tree under construction: its root executor, the
// row column each joined node position landed at, and a row-count estimate
// used to decide which side of a commutative operator drives the outer
// loop.
type tree struct {
	root    exec.ExecutionNode
	columns map[int]int // node position -> column in root's output rows
	weight  int         // row-count estimate, for commutative side choice
}

func (t *tree) col(pos int) int { return t.columns[pos] }

// boundOperator carries a bound Operator alongside its original query
// position, so the cost sort can tie-break on original order.
type boundOperator struct {
	triple query.OperatorTriple
	op     query.Operator
	index  int
}

// Plan compiles c into an execution tree against db. cfg is accepted but
// not read: UseParallelJoins has no effect, and every join runs
// single-threaded.
func Plan(c *query.Conjunction, db *graphdb.GraphDB, cfg query.Config) (*exec.Plan, error) {
	nodes := c.Nodes()
	if len(nodes) == 0 {
		return nil, errors.New("planner: conjunction has no nodes")
	}

	leaves := make([]exec.ExecutionNode, len(nodes))
	sizes := make([]int, len(nodes))
	for i, n := range nodes {
		sizes[i] = exec.EstimateNodeSearchSize(n, db)

		node, _, _, err := exec.NewNodeSearch(n, db)
		if err != nil {
			return nil, err
		}
		leaves[i] = node
	}

	operators := c.Operators()
	bound := make([]boundOperator, len(operators))
	for i, t := range operators {
		op, err := t.Spec.CreateOperator(db)
		if err != nil {
			return nil, err
		}
		bound[i] = boundOperator{triple: t, op: op, index: i}
	}
	sort.SliceStable(bound, func(i, j int) bool {
		return operatorCost(bound[i].op) < operatorCost(bound[j].op)
	})

	forest := make(map[int]*tree, len(nodes))
	live := make(map[*tree]struct{}, len(nodes))
	for i := range nodes {
		t := &tree{root: leaves[i], columns: map[int]int{i: 0}, weight: max(sizes[i], 1)}
		forest[i] = t
		live[t] = struct{}{}
	}

	for _, b := range bound {
		lhsPos, rhsPos := b.triple.LhsPos, b.triple.RhsPos
		lhsTree, rhsTree := forest[lhsPos], forest[rhsPos]

		if lhsTree == rhsTree {
			lhsTree.root = exec.NewFilter(lhsTree.root, b.op, lhsTree.col(lhsPos), lhsTree.col(rhsPos))
			continue
		}

		merged, err := joinTrees(db, nodes, lhsTree, lhsPos, rhsTree, rhsPos, b.op)
		if err != nil {
			return nil, err
		}
		delete(live, lhsTree)
		delete(live, rhsTree)
		live[merged] = struct{}{}
		for pos := range merged.columns {
			forest[pos] = merged
		}
	}

	if len(live) != 1 {
		return nil, ErrImpossibleSearch
	}
	var final *tree
	for t := range live {
		final = t
	}

	positions := make([]int, len(nodes))
	for pos, col := range final.columns {
		positions[col] = pos
	}
	return &exec.Plan{Root: final.root, Desc: exec.Desc{Positions: positions}}, nil
}

// joinTrees merges two distinct trees over operator op bound between
// lhsPos (in lhsTree) and rhsPos (in rhsTree). A commutative operator may
// swap which tree drives the outer loop, putting the lighter tree on the
// outer side.
func joinTrees(db *graphdb.GraphDB, nodes []query.NodeSearchSpec, lhsTree *tree, lhsPos int, rhsTree *tree, rhsPos int, op query.Operator) (*tree, error) {
	if op.IsCommutative() && lhsTree.weight > rhsTree.weight {
		lhsTree, rhsTree = rhsTree, lhsTree
		lhsPos, rhsPos = rhsPos, lhsPos
	}
	lhsCol := lhsTree.col(lhsPos)

	// An index join is only valid when the right
	// side is still a single, unjoined leaf — otherwise RetrieveMatches
	// has nothing matching the already-computed rhs row shape to bind to.
	if len(rhsTree.columns) == 1 {
		predicate, err := exec.NodeSearchIndex(nodes[rhsPos], db)
		if err != nil {
			return nil, err
		}
		root := exec.NewIndexJoin(lhsTree.root, lhsCol, op, predicate)
		columns := make(map[int]int, len(lhsTree.columns)+1)
		for pos, col := range lhsTree.columns {
			columns[pos] = col
		}
		columns[rhsPos] = len(lhsTree.columns)
		return &tree{root: root, columns: columns, weight: lhsTree.weight}, nil
	}

	rhsRows, err := exec.MaterializeRows(rhsTree.root)
	if err != nil {
		return nil, err
	}
	rhsCol := rhsTree.col(rhsPos)
	root := exec.NewNestedLoopJoin(lhsTree.root, lhsCol, rhsRows, rhsCol, op)

	columns := make(map[int]int, len(lhsTree.columns)+len(rhsTree.columns))
	for pos, col := range lhsTree.columns {
		columns[pos] = col
	}
	base := len(lhsTree.columns)
	for pos, col := range rhsTree.columns {
		columns[pos] = base + col
	}
	return &tree{root: root, columns: columns, weight: joinWeight(lhsTree.weight, rhsTree.weight)}, nil
}

// joinWeight estimates a nested-loop join's output size as the cartesian
// product, capped to keep later comparisons cheap and overflow-free.
func joinWeight(lhs, rhs int) int {
	const ceiling = 1 << 30
	product := lhs * rhs
	if product <= 0 || product > ceiling {
		return ceiling
	}
	return product
}

// operatorCost maps an Operator's self-reported Estimation onto a single
// ordering key for the cost-ascending sort.
func operatorCost(op query.Operator) float64 {
	switch est := op.EstimationType(); est.Kind {
	case query.EstimationMin:
		return -1
	case query.EstimationMax:
		return 2
	default:
		return est.Selectivity
	}
}
