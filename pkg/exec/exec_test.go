package exec_test

import (
	"testing"

	"github.com/annisql/graphannis/pkg/exec"
	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/operator"
	"github.com/annisql/graphannis/pkg/query"

	"github.com/stretchr/testify/require"
)

func buildTokenCorpus(t *testing.T) *graphdb.GraphDB {
	t.Helper()
	db := graphdb.New()

	tok := db.Strings.Add(ids.TokAnno)
	annis := db.Strings.Add(ids.AnnisNS)
	nodeType := db.Strings.Add(ids.NodeTypeAnno)
	nodeTypeVal := db.Strings.Add(ids.NodeTypeToken)
	pos := db.Strings.Add("pos")
	der := db.Strings.Add("der")
	adja := db.Strings.Add("ADJA")
	haus := db.Strings.Add("Haus")
	nn := db.Strings.Add("NN")

	add := func(node ids.NodeID, nameID, valID ids.StringID) {
		db.Annos.Add(node, ids.Annotation{Key: ids.AnnoKey{Ns: annis, Name: nameID}, Value: valID})
	}
	add(1, tok, der)
	add(1, nodeType, nodeTypeVal)
	db.Annos.Add(1, ids.Annotation{Key: ids.AnnoKey{Ns: ids.EmptyString, Name: pos}, Value: adja})
	add(2, tok, haus)
	add(2, nodeType, nodeTypeVal)
	db.Annos.Add(2, ids.Annotation{Key: ids.AnnoKey{Ns: ids.EmptyString, Name: pos}, Value: nn})

	chain := graphstorage.NewLinearChain()
	chain.Append(1)
	chain.Append(2)
	db.RegisterComponent(ids.Component{Type: ids.Ordering}, chain)

	return db
}

func TestNodeSearchExactValue(t *testing.T) {
	db := buildTokenCorpus(t)
	ns := ids.AnnisNS
	val := "der"
	spec := query.ExactValue{Ns: &ns, Name: ids.TokAnno, Value: &val}

	node, output, unique, err := exec.NewNodeSearch(spec, db)
	require.NoError(t, err)
	require.Equal(t, 1, output)
	require.Equal(t, 1, unique)

	row, ok, err := node.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ids.NodeID(1), row[0].Node)

	_, ok, err = node.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNodeSearchUnknownValueYieldsNoMatches(t *testing.T) {
	db := buildTokenCorpus(t)
	ns := ids.AnnisNS
	val := "nonexistent"
	spec := query.ExactValue{Ns: &ns, Name: ids.TokAnno, Value: &val}

	node, output, _, err := exec.NewNodeSearch(spec, db)
	require.NoError(t, err)
	require.Equal(t, 0, output)

	_, ok, err := node.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNodeSearchAnyToken(t *testing.T) {
	db := buildTokenCorpus(t)
	_, output, _, err := exec.NewNodeSearch(query.AnyToken{}, db)
	require.NoError(t, err)
	require.Equal(t, 2, output)
}

func TestIndexJoinPrecedence(t *testing.T) {
	db := buildTokenCorpus(t)

	ns := ids.AnnisNS
	derVal := "der"
	lhsSpec := query.ExactValue{Ns: &ns, Name: ids.TokAnno, Value: &derVal}
	lhsNode, _, _, err := exec.NewNodeSearch(lhsSpec, db)
	require.NoError(t, err)

	opSpec := operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}
	op, err := opSpec.CreateOperator(db)
	require.NoError(t, err)

	posKey := "pos"
	nnVal := "NN"
	rhsSpec := query.ExactValue{Name: posKey, Value: &nnVal}
	rhsPredicate, err := exec.NodeSearchIndex(rhsSpec, db)
	require.NoError(t, err)

	joined := exec.NewIndexJoin(lhsNode, 0, op, rhsPredicate)
	row, ok, err := joined.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ids.NodeID(1), row[0].Node)
	require.Equal(t, ids.NodeID(2), row[1].Node)

	_, ok, err = joined.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

// TestIndexJoinEmitsOneRowPerMatchedAnnotation checks that an ns-omitted
// rhs predicate hitting the same node under two namespaces produces two
// joined rows, same as a nested-loop join over the equivalent materialized
// rhs would, instead of collapsing to one via last-write-wins.
func TestIndexJoinEmitsOneRowPerMatchedAnnotation(t *testing.T) {
	db := buildTokenCorpus(t)

	lemma := db.Strings.Add("lemma")
	nsA := db.Strings.Add("a")
	nsB := db.Strings.Add("b")
	shared := db.Strings.Add("shared")
	db.Annos.Add(2, ids.Annotation{Key: ids.AnnoKey{Ns: nsA, Name: lemma}, Value: shared})
	db.Annos.Add(2, ids.Annotation{Key: ids.AnnoKey{Ns: nsB, Name: lemma}, Value: shared})

	ns := ids.AnnisNS
	derVal := "der"
	lhsSpec := query.ExactValue{Ns: &ns, Name: ids.TokAnno, Value: &derVal}
	lhsNode, _, _, err := exec.NewNodeSearch(lhsSpec, db)
	require.NoError(t, err)

	opSpec := operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}
	op, err := opSpec.CreateOperator(db)
	require.NoError(t, err)

	sharedVal := "shared"
	rhsSpec := query.ExactValue{Name: "lemma", Value: &sharedVal}
	rhsPredicate, err := exec.NodeSearchIndex(rhsSpec, db)
	require.NoError(t, err)

	joined := exec.NewIndexJoin(lhsNode, 0, op, rhsPredicate)

	_, ok, err := joined.Next()
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = joined.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = joined.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExecutionPlanSingleAlternativeFastPath(t *testing.T) {
	db := buildTokenCorpus(t)
	node, _, _, err := exec.NewNodeSearch(query.AnyToken{}, db)
	require.NoError(t, err)

	plan := &exec.Plan{Root: node, Desc: exec.Desc{Positions: []int{0}}}
	ep := exec.NewExecutionPlan([]*exec.Plan{plan})

	count, err := ep.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestExecutionPlanDeduplicatesAcrossAlternatives(t *testing.T) {
	db := buildTokenCorpus(t)
	node1, _, _, err := exec.NewNodeSearch(query.AnyToken{}, db)
	require.NoError(t, err)
	node2, _, _, err := exec.NewNodeSearch(query.AnyToken{}, db)
	require.NoError(t, err)

	plan1 := &exec.Plan{Root: node1, Desc: exec.Desc{Positions: []int{0}}}
	plan2 := &exec.Plan{Root: node2, Desc: exec.Desc{Positions: []int{0}}}
	ep := exec.NewExecutionPlan([]*exec.Plan{plan1, plan2})

	count, err := ep.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestDescReorder(t *testing.T) {
	desc := exec.Desc{Positions: []int{1, 0}}
	row := exec.Row{{Node: 10}, {Node: 20}}
	reordered := desc.Reorder(row)
	require.Equal(t, ids.NodeID(20), reordered[0].Node)
	require.Equal(t, ids.NodeID(10), reordered[1].Node)
}
