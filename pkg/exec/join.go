package exec

import (
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/query"
)

// indexJoinNode joins lhs against an operator's RetrieveMatches, avoiding a
// full materialization of the right-hand side. For
// each lhs row it buffers every candidate RetrieveMatches returns, then
// replays them one at a time before pulling the next lhs row.
type indexJoinNode struct {
	lhs        ExecutionNode
	op         query.Operator
	lhsJoinPos int // position within each lhs row that feeds RetrieveMatches

	// rhsSpec re-checks a retrieved candidate against the right node's own
	// predicate: RetrieveMatches only guarantees operator adjacency, not
	// that the candidate also satisfies the NodeSearchSpec being joined.
	// It returns every annotation the right node's NodeSearchSpec actually
	// matched on for that candidate (nil/empty meaning no match) — a
	// candidate with several matching annotations (e.g. an ns-omitted name
	// hit under multiple namespaces) yields one emitted row per annotation,
	// same as a leaf NodeSearch over the same spec would.
	rhsSpec func(candidateNode ids.NodeID) ([]ids.Annotation, error)

	current    Row
	candidates []ids.Match
	candPos    int

	pendingNode  ids.NodeID
	pendingAnnos []ids.Annotation
	annoPos      int
}

// NewIndexJoin builds a join node that, for each lhs row, retrieves rhs
// candidates through op (anchored on row position lhsJoinPos) and filters
// them with rhsPredicate (typically a closure checking the rhs
// NodeSearchSpec against the candidate's annotations).
func NewIndexJoin(lhs ExecutionNode, lhsJoinPos int, op query.Operator, rhsPredicate func(ids.NodeID) ([]ids.Annotation, error)) ExecutionNode {
	return &indexJoinNode{lhs: lhs, lhsJoinPos: lhsJoinPos, op: op, rhsSpec: rhsPredicate}
}

func (j *indexJoinNode) Next() (Row, bool, error) {
	for {
		if j.annoPos < len(j.pendingAnnos) {
			anno := j.pendingAnnos[j.annoPos]
			j.annoPos++
			row := make(Row, 0, len(j.current)+1)
			row = append(row, j.current...)
			row = append(row, ids.Match{Node: j.pendingNode, Anno: anno})
			return row, true, nil
		}

		if j.candPos < len(j.candidates) {
			cand := j.candidates[j.candPos]
			j.candPos++
			if !j.op.IsReflexive() && j.current[j.lhsJoinPos].Node == cand.Node {
				continue
			}
			annos, err := j.rhsSpec(cand.Node)
			if err != nil {
				return nil, false, err
			}
			if len(annos) == 0 {
				continue
			}
			j.pendingNode = cand.Node
			j.pendingAnnos = annos
			j.annoPos = 0
			continue
		}

		row, ok, err := j.lhs.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		j.current = row
		matches, err := j.op.RetrieveMatches(row[j.lhsJoinPos])
		if err != nil {
			return nil, false, err
		}
		j.candidates = matches
		j.candPos = 0
	}
}

// nestedLoopJoinNode joins lhs against a fully materialized rhs, applying
// op.Filter to every pair. Used when the right side isn't a single leaf
// NodeSearch.
type nestedLoopJoinNode struct {
	lhs        ExecutionNode
	rhs        []Row // materialized once, replayed per lhs row
	op         query.Operator
	lhsJoinPos int // position within each lhs row that op.Filter reads
	rhsJoinPos int // position within each materialized rhs row that op.Filter reads

	current Row
	rhsPos  int
	started bool
}

// NewNestedLoopJoin builds a join node over a materialized rhs row set,
// testing op.Filter against row position lhsJoinPos on the lhs side and
// rhsJoinPos within each materialized rhs row.
func NewNestedLoopJoin(lhs ExecutionNode, lhsJoinPos int, rhs []Row, rhsJoinPos int, op query.Operator) ExecutionNode {
	return &nestedLoopJoinNode{lhs: lhs, lhsJoinPos: lhsJoinPos, rhs: rhs, rhsJoinPos: rhsJoinPos, op: op}
}

func (j *nestedLoopJoinNode) Next() (Row, bool, error) {
	for {
		if !j.started || j.rhsPos >= len(j.rhs) {
			row, ok, err := j.lhs.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			j.current = row
			j.rhsPos = 0
			j.started = true
		}

		for j.rhsPos < len(j.rhs) {
			cand := j.rhs[j.rhsPos]
			j.rhsPos++
			lhsMatch := j.current[j.lhsJoinPos]
			rhsMatch := cand[j.rhsJoinPos]
			if !j.op.IsReflexive() && lhsMatch.Node == rhsMatch.Node {
				continue
			}
			ok, err := j.op.Filter(lhsMatch, rhsMatch)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				continue
			}
			row := make(Row, 0, len(j.current)+1)
			row = append(row, j.current...)
			row = append(row, cand...)
			return row, true, nil
		}
	}
}

// filterNode applies op.Filter to two already-joined positions within each
// row from child, without adding a column — used when both operator sides
// landed in the same join tree.
type filterNode struct {
	child  ExecutionNode
	op     query.Operator
	lhsPos int
	rhsPos int
}

// NewFilter wraps child, keeping only rows where op.Filter(row[lhsPos],
// row[rhsPos]) holds.
func NewFilter(child ExecutionNode, op query.Operator, lhsPos, rhsPos int) ExecutionNode {
	return &filterNode{child: child, op: op, lhsPos: lhsPos, rhsPos: rhsPos}
}

func (f *filterNode) Next() (Row, bool, error) {
	for {
		row, ok, err := f.child.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		if !f.op.IsReflexive() && row[f.lhsPos].Node == row[f.rhsPos].Node {
			continue
		}
		matched, err := f.op.Filter(row[f.lhsPos], row[f.rhsPos])
		if err != nil {
			return nil, false, err
		}
		if matched {
			return row, true, nil
		}
	}
}
