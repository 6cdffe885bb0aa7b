package planner_test

import (
	"testing"

	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/operator"
	"github.com/annisql/graphannis/pkg/planner"
	"github.com/annisql/graphannis/pkg/query"

	"github.com/stretchr/testify/require"
)

// buildThreeTokenCorpus builds a 3-token chain "der Haus ist" at consecutive
// ordering positions, each carrying a pos annotation.
func buildThreeTokenCorpus(t *testing.T) *graphdb.GraphDB {
	t.Helper()
	db := graphdb.New()

	tok := db.Strings.Add(ids.TokAnno)
	annis := db.Strings.Add(ids.AnnisNS)
	pos := db.Strings.Add("pos")

	words := []string{"der", "Haus", "ist"}
	tags := []string{"ADJA", "NN", "VVFIN"}
	chain := graphstorage.NewLinearChain()
	for i, w := range words {
		node := ids.NodeID(i + 1)
		wordID := db.Strings.Add(w)
		tagID := db.Strings.Add(tags[i])
		db.Annos.Add(node, ids.Annotation{Key: ids.AnnoKey{Ns: annis, Name: tok}, Value: wordID})
		db.Annos.Add(node, ids.Annotation{Key: ids.AnnoKey{Ns: ids.EmptyString, Name: pos}, Value: tagID})
		chain.Append(node)
	}
	db.RegisterComponent(ids.Component{Type: ids.Ordering}, chain)
	return db
}

func exactValue(ns, name, value string) query.ExactValue {
	return query.ExactValue{Ns: &ns, Name: name, Value: &value}
}

func TestPlanSingleNodeNoOperators(t *testing.T) {
	db := buildThreeTokenCorpus(t)
	c := query.NewConjunction()
	c.AddNode("tok", query.AnyToken{})

	plan, err := planner.Plan(c, db, query.Config{})
	require.NoError(t, err)
	require.Equal(t, []int{0}, plan.Desc.Positions)

	count, err := plan.Count()
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestPlanIndexJoinPrecedence(t *testing.T) {
	db := buildThreeTokenCorpus(t)
	c := query.NewConjunction()
	lhs := c.AddNode("a", exactValue(ids.AnnisNS, ids.TokAnno, "der"))
	rhs := c.AddNode("b", query.ExactValue{Name: "pos", Value: strPtr("NN")})
	c.AddOperator(operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}, lhs, rhs)

	plan, err := planner.Plan(c, db, query.Config{})
	require.NoError(t, err)

	row, ok, err := plan.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ids.NodeID(1), row[0].Node)
	require.Equal(t, ids.NodeID(2), row[1].Node)

	_, ok, err = plan.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPlanBecomesFilterWhenBothSidesJoined(t *testing.T) {
	db := buildThreeTokenCorpus(t)
	c := query.NewConjunction()
	a := c.AddNode("a", query.AnyToken{})
	b := c.AddNode("b", query.AnyToken{})
	cc := c.AddNode("c", query.AnyToken{})
	c.AddOperator(operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}, a, b)
	c.AddOperator(operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}, b, cc)
	c.AddOperator(operator.PrecedenceSpec{MinDist: 2, MaxDist: 2}, a, cc)

	plan, err := planner.Plan(c, db, query.Config{})
	require.NoError(t, err)

	count, err := plan.Count()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPlanImpossibleSearchWhenDisconnected(t *testing.T) {
	db := buildThreeTokenCorpus(t)
	c := query.NewConjunction()
	a := c.AddNode("a", query.AnyToken{})
	b := c.AddNode("b", query.AnyToken{})
	c.AddNode("c", query.AnyToken{})
	c.AddOperator(operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}, a, b)

	_, err := planner.Plan(c, db, query.Config{})
	require.ErrorIs(t, err, planner.ErrImpossibleSearch)
}

func TestPlanNestedLoopJoinWhenRhsAlreadyJoined(t *testing.T) {
	db := buildThreeTokenCorpus(t)
	c := query.NewConjunction()
	a := c.AddNode("a", query.AnyToken{})
	b := c.AddNode("b", query.AnyToken{})
	cc := c.AddNode("c", query.AnyToken{})
	d := c.AddNode("d", query.AnyToken{})
	// Join (a,b) and (c,d) independently first, then connect the two
	// trees: the rhs side of the third operator is no longer a single
	// leaf, forcing the nested-loop fallback.
	c.AddOperator(operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}, a, b)
	c.AddOperator(operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}, cc, d)
	c.AddOperator(operator.PrecedenceSpec{MinDist: 2, MaxDist: 2}, a, cc)

	plan, err := planner.Plan(c, db, query.Config{})
	require.NoError(t, err)

	count, err := plan.Count()
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 0)
}

func strPtr(s string) *string { return &s }
