package operator_test

import (
	"testing"

	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/operator"

	"github.com/stretchr/testify/require"
)

func chainDB(t *testing.T, nodes ...ids.NodeID) *graphdb.GraphDB {
	t.Helper()
	db := graphdb.New()
	chain := graphstorage.NewLinearChain()
	for _, n := range nodes {
		chain.Append(n)
	}
	db.RegisterComponent(ids.Component{Type: ids.Ordering}, chain)
	return db
}

func TestPrecedenceFilterWithinWindow(t *testing.T) {
	db := chainDB(t, 1, 2, 3, 4)
	spec := operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}
	op, err := spec.CreateOperator(db)
	require.NoError(t, err)

	ok, err := op.Filter(ids.Match{Node: 2}, ids.Match{Node: 3})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = op.Filter(ids.Match{Node: 2}, ids.Match{Node: 4})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrecedenceRetrieveMatches(t *testing.T) {
	db := chainDB(t, 1, 2, 3, 4, 5)
	spec := operator.PrecedenceSpec{MinDist: 1, MaxDist: 2}
	op, err := spec.CreateOperator(db)
	require.NoError(t, err)

	matches, err := op.RetrieveMatches(ids.Match{Node: 2})
	require.NoError(t, err)
	got := make([]ids.NodeID, len(matches))
	for i, m := range matches {
		got[i] = m.Node
	}
	require.Equal(t, []ids.NodeID{3, 4}, got)
}

func TestPrecedenceMissingComponent(t *testing.T) {
	db := graphdb.New()
	spec := operator.PrecedenceSpec{MinDist: 1, MaxDist: 1}
	_, err := spec.CreateOperator(db)
	require.Error(t, err)
}

func TestDominanceFilter(t *testing.T) {
	db := graphdb.New()
	adj := graphstorage.NewAdjacencyList()
	adj.AddEdge(ids.Edge{Source: 100, Target: 101})
	adj.AddEdge(ids.Edge{Source: 101, Target: 102})
	comp := ids.Component{Type: ids.Dominance, Layer: "const", Name: "edge"}
	db.RegisterComponent(comp, adj)

	spec := operator.DominanceSpec{Layer: "const", Name: "edge", MinDist: 1, MaxDist: ids.UnlimitedDistance}
	op, err := spec.CreateOperator(db)
	require.NoError(t, err)

	ok, err := op.Filter(ids.Match{Node: 100}, ids.Match{Node: 102})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = op.Filter(ids.Match{Node: 102}, ids.Match{Node: 100})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIdentityFilter(t *testing.T) {
	op := operator.IdentitySpec{}
	created, err := op.CreateOperator(graphdb.New())
	require.NoError(t, err)

	ok, err := created.Filter(ids.Match{Node: 5}, ids.Match{Node: 5})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = created.Filter(ids.Match{Node: 5}, ids.Match{Node: 6})
	require.NoError(t, err)
	require.False(t, ok)

	require.True(t, created.IsReflexive())
	require.True(t, created.IsCommutative())
}
