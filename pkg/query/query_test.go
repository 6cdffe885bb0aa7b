package query_test

import (
	"testing"

	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/query"

	"github.com/stretchr/testify/require"
)

type fakeSpec struct {
	comps []ids.Component
}

func (f fakeSpec) NecessaryComponents() []ids.Component { return f.comps }
func (f fakeSpec) CreateOperator(db *graphdb.GraphDB) (query.Operator, error) {
	return nil, nil
}

func TestConjunctionVariablePos(t *testing.T) {
	c := query.NewConjunction()
	posA := c.AddNode("a", query.ExactValue{Name: "pos"})
	posB := c.AddNode("b", query.AnyToken{})
	require.Equal(t, 0, posA)
	require.Equal(t, 1, posB)

	gotA, ok := c.VariablePos("a")
	require.True(t, ok)
	require.Equal(t, 0, gotA)

	_, ok = c.VariablePos("missing")
	require.False(t, ok)
}

func TestConjunctionNecessaryComponentsUnion(t *testing.T) {
	c := query.NewConjunction()
	lhs := c.AddNode("a", query.ExactTokenValue{Text: "der", LeafsOnly: true})
	rhs := c.AddNode("b", query.AnyToken{})
	c.AddOperator(fakeSpec{comps: []ids.Component{{Type: ids.Ordering}}}, lhs, rhs)

	comps := c.NecessaryComponents()
	require.Contains(t, comps, ids.Component{Type: ids.Coverage})
	require.Contains(t, comps, ids.Component{Type: ids.Ordering})
	require.Len(t, comps, 2)
}

func TestDisjunctionVariablePosFirstAlternativeWins(t *testing.T) {
	c1 := query.NewConjunction()
	c1.AddNode("a", query.AnyNode{})

	c2 := query.NewConjunction()
	c2.AddNode("x", query.AnyNode{})
	c2.AddNode("a", query.AnyNode{})

	d := query.NewDisjunction(c1, c2)
	pos, ok := d.VariablePos("a")
	require.True(t, ok)
	require.Equal(t, 0, pos)
}

func TestDisjunctionNecessaryComponentsUnion(t *testing.T) {
	c1 := query.NewConjunction()
	n := c1.AddNode("a", query.AnyToken{})
	c1.AddOperator(fakeSpec{comps: []ids.Component{{Type: ids.Dominance}}}, n, n)

	c2 := query.NewConjunction()
	n2 := c2.AddNode("b", query.AnyToken{})
	c2.AddOperator(fakeSpec{comps: []ids.Component{{Type: ids.Pointing}}}, n2, n2)

	d := query.NewDisjunction(c1, c2)
	comps := d.NecessaryComponents()
	require.Contains(t, comps, ids.Component{Type: ids.Dominance})
	require.Contains(t, comps, ids.Component{Type: ids.Pointing})
}
