package exec

import (
	"github.com/annisql/graphannis/pkg/annostore"
	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/query"
)

// nodeSearchNode is the leaf executor for a NodeSearchSpec: matches are
// computed once against the annotation store (the store's own indexes
// already do the real search work), then replayed one at a time through
// Next — an explicit cursor over a materialized slice rather than a true
// coroutine.
type nodeSearchNode struct {
	matches []ids.Match
	pos     int
}

func (n *nodeSearchNode) Next() (Row, bool, error) {
	if n.pos >= len(n.matches) {
		return nil, false, nil
	}
	m := n.matches[n.pos]
	n.pos++
	return Row{m}, true, nil
}

// NewNodeSearch builds the leaf executor for spec against db. It also
// returns the exact (outputSize, uniqueSize) pair for spec's matches,
// computed as a byproduct of materializing the leaf rather than estimated;
// EstimateNodeSearchSize is the cheaper, pre-materialization estimate the
// planner uses to decide join order before any leaf actually gets built.
func NewNodeSearch(spec query.NodeSearchSpec, db *graphdb.GraphDB) (ExecutionNode, int, int, error) {
	matches, err := searchNode(spec, db)
	if err != nil {
		return nil, 0, 0, err
	}
	return &nodeSearchNode{matches: matches}, len(matches), uniqueNodeCount(matches), nil
}

// EstimateNodeSearchSize approximates spec's match count from the
// annotation store's own statistics (NumberOfAnnotationsByName /
// GuessMaxCount(Regex)) instead of materializing every match, for the
// planner's join-order cost input — the cost estimate from
// annotation-store statistics the planner picks join order from, before
// any leaf executor has actually been built.
func EstimateNodeSearchSize(spec query.NodeSearchSpec, db *graphdb.GraphDB) int {
	switch s := spec.(type) {
	case query.ExactValue:
		key, ok := resolveKey(db, s.Ns, &s.Name)
		if !ok {
			return 0
		}
		val, ok := resolveOptionalValue(db, s.Value)
		if !ok {
			return 0
		}
		return db.Annos.GuessMaxCount(key.ns, *key.name, val)

	case query.RegexValue:
		key, ok := resolveKey(db, s.Ns, &s.Name)
		if !ok {
			return 0
		}
		return db.Annos.GuessMaxCountRegex(key.ns, *key.name, s.Pattern)

	case query.ExactTokenValue:
		ns, name, ok := tokenNsName(db)
		if !ok {
			return 0
		}
		val, ok := resolveOptionalValue(db, &s.Text)
		if !ok {
			return 0
		}
		return db.Annos.GuessMaxCount(&ns, name, val)

	case query.RegexTokenValue:
		ns, name, ok := tokenNsName(db)
		if !ok {
			return 0
		}
		return db.Annos.GuessMaxCountRegex(&ns, name, s.Pattern)

	case query.AnyToken:
		ns, name, ok := tokenNsName(db)
		if !ok {
			return 0
		}
		return db.Annos.NumberOfAnnotationsByName(&ns, name)

	case query.AnyNode:
		name, ok := db.Strings.Lookup(ids.NodeTypeAnno)
		if !ok {
			return 0
		}
		ns, ok := db.Strings.Lookup(ids.AnnisNS)
		if !ok {
			return 0
		}
		return db.Annos.NumberOfAnnotationsByName(&ns, name)

	default:
		return 0
	}
}

// tokenNsName resolves the interned (annis, tok) key shared by every
// token-anchored NodeSearchSpec variant.
func tokenNsName(db *graphdb.GraphDB) (ns, name ids.StringID, ok bool) {
	name, ok = db.Strings.Lookup(ids.TokAnno)
	if !ok {
		return 0, 0, false
	}
	ns, ok = db.Strings.Lookup(ids.AnnisNS)
	if !ok {
		return 0, 0, false
	}
	return ns, name, true
}

// NodeSearchIndex materializes spec's matches into a lookup keyed by node
// id, for use as an indexJoinNode rhs predicate: the planner binds the
// right-hand side of an operator to RetrieveMatches, then uses this index
// to confirm a candidate also satisfies the right node's own
// NodeSearchSpec and to recover the annotation(s) it matched on. A node can
// carry more than one matching annotation (an ns-omitted predicate hitting
// the same name under several namespaces), so the index returns every
// match for that node rather than collapsing to one, mirroring the
// multiplicity a leaf NodeSearch over the same spec would produce.
func NodeSearchIndex(spec query.NodeSearchSpec, db *graphdb.GraphDB) (func(ids.NodeID) ([]ids.Annotation, error), error) {
	matches, err := searchNode(spec, db)
	if err != nil {
		return nil, err
	}
	byNode := make(map[ids.NodeID][]ids.Annotation, len(matches))
	for _, m := range matches {
		byNode[m.Node] = append(byNode[m.Node], m.Anno)
	}
	return func(node ids.NodeID) ([]ids.Annotation, error) {
		return byNode[node], nil
	}, nil
}

// MaterializeRows drains node into a slice, for building the rhs row set a
// nestedLoopJoinNode replays per lhs row.
func MaterializeRows(node ExecutionNode) ([]Row, error) {
	var rows []Row
	for {
		row, ok, err := node.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

func uniqueNodeCount(matches []ids.Match) int {
	seen := make(map[ids.NodeID]struct{}, len(matches))
	for _, m := range matches {
		seen[m.Node] = struct{}{}
	}
	return len(seen)
}

func searchNode(spec query.NodeSearchSpec, db *graphdb.GraphDB) ([]ids.Match, error) {
	switch s := spec.(type) {
	case query.ExactValue:
		key, ok := resolveKey(db, s.Ns, &s.Name)
		if !ok {
			return nil, nil
		}
		val, ok := resolveOptionalValue(db, s.Value)
		if !ok {
			return nil, nil
		}
		return toMatches(db.Annos.ExactAnnoSearch(key.ns, *key.name, val)), nil

	case query.RegexValue:
		key, ok := resolveKey(db, s.Ns, &s.Name)
		if !ok {
			return nil, nil
		}
		anno, err := db.Annos.RegexAnnoSearch(key.ns, *key.name, s.Pattern)
		if err != nil {
			return nil, err
		}
		return toMatches(anno), nil

	case query.ExactTokenValue:
		name, ok := db.Strings.Lookup(ids.TokAnno)
		if !ok {
			return nil, nil
		}
		ns, ok := db.Strings.Lookup(ids.AnnisNS)
		if !ok {
			return nil, nil
		}
		val, ok := resolveOptionalValue(db, &s.Text)
		if !ok {
			return nil, nil
		}
		matches := toMatches(db.Annos.ExactAnnoSearch(&ns, name, val))
		return filterLeafsOnly(matches, s.LeafsOnly, db), nil

	case query.RegexTokenValue:
		name, ok := db.Strings.Lookup(ids.TokAnno)
		if !ok {
			return nil, nil
		}
		ns, ok := db.Strings.Lookup(ids.AnnisNS)
		if !ok {
			return nil, nil
		}
		anno, err := db.Annos.RegexAnnoSearch(&ns, name, s.Pattern)
		if err != nil {
			return nil, err
		}
		return filterLeafsOnly(toMatches(anno), s.LeafsOnly, db), nil

	case query.AnyToken:
		name, ok := db.Strings.Lookup(ids.TokAnno)
		if !ok {
			return nil, nil
		}
		ns, ok := db.Strings.Lookup(ids.AnnisNS)
		if !ok {
			return nil, nil
		}
		return toMatches(db.Annos.ExactAnnoSearch(&ns, name, nil)), nil

	case query.AnyNode:
		name, ok := db.Strings.Lookup(ids.NodeTypeAnno)
		if !ok {
			return nil, nil
		}
		ns, ok := db.Strings.Lookup(ids.AnnisNS)
		if !ok {
			return nil, nil
		}
		return toMatches(db.Annos.ExactAnnoSearch(&ns, name, nil)), nil

	default:
		return nil, nil
	}
}

type resolvedKey struct {
	ns   *ids.StringID
	name *ids.StringID
}

func resolveKey(db *graphdb.GraphDB, ns *string, name *string) (resolvedKey, bool) {
	var nsID *ids.StringID
	if ns != nil {
		id, ok := db.Strings.Lookup(*ns)
		if !ok {
			return resolvedKey{}, false
		}
		nsID = &id
	}
	if name == nil {
		return resolvedKey{ns: nsID}, true
	}
	id, ok := db.Strings.Lookup(*name)
	if !ok {
		return resolvedKey{}, false
	}
	return resolvedKey{ns: nsID, name: &id}, true
}

func resolveOptionalValue(db *graphdb.GraphDB, val *string) (*ids.StringID, bool) {
	if val == nil {
		return nil, true
	}
	id, ok := db.Strings.Lookup(*val)
	if !ok {
		return nil, false
	}
	return &id, true
}

func toMatches(anno []annostore.Match) []ids.Match {
	out := make([]ids.Match, len(anno))
	for i, m := range anno {
		out[i] = ids.Match{Node: m.Node, Anno: ids.Annotation{Key: m.MatchedKey, Value: m.MatchedValue}}
	}
	return out
}

// filterLeafsOnly restricts matches to nodes with no Coverage fan-in
// besides themselves. When the Coverage component isn't loaded, every
// match passes through unfiltered rather than erroring — a query that
// never touches coverage structure shouldn't be forced to load it.
func filterLeafsOnly(matches []ids.Match, leafsOnly bool, db *graphdb.GraphDB) []ids.Match {
	if !leafsOnly {
		return matches
	}
	coverage, ok := db.GetGraphStorage(ids.Component{Type: ids.Coverage})
	if !ok {
		return matches
	}
	out := matches[:0]
	for _, m := range matches {
		if isLeaf(m.Node, coverage) {
			out = append(out, m)
		}
	}
	return out
}

func isLeaf(node ids.NodeID, coverage graphstorage.Storage) bool {
	for _, in := range coverage.GetIncomingEdges(node) {
		if in != node {
			return false
		}
	}
	return true
}
