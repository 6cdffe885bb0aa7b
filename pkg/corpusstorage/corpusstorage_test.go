package corpusstorage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/annisql/graphannis/pkg/corpusstorage"
	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/operator"
	"github.com/annisql/graphannis/pkg/query"

	"github.com/stretchr/testify/require"
)

func buildTokenDB(t *testing.T, words ...string) *graphdb.GraphDB {
	t.Helper()
	db := graphdb.New()
	tok := db.Strings.Add(ids.TokAnno)
	annis := db.Strings.Add(ids.AnnisNS)

	chain := graphstorage.NewLinearChain()
	for i, w := range words {
		node := ids.NodeID(i + 1)
		wordID := db.Strings.Add(w)
		db.Annos.Add(node, ids.Annotation{Key: ids.AnnoKey{Ns: annis, Name: tok}, Value: wordID})
		db.RegisterNode(node)
		chain.Append(node)
	}
	db.RegisterComponent(ids.Component{Type: ids.Ordering}, chain)
	return db
}

func setupRoot(t *testing.T, corpusName string, words ...string) string {
	t.Helper()
	root := t.TempDir()
	db := buildTokenDB(t, words...)
	require.NoError(t, db.SaveTo(filepath.Join(root, corpusName)))
	return root
}

func anyTokenQuery() *query.Disjunction {
	c := query.NewConjunction()
	c.AddNode("tok", query.AnyToken{})
	return query.NewDisjunction(c)
}

func TestListOrdersLexicographically(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "zeta"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "alpha"), 0o755))

	cs, err := corpusstorage.New(root, 0, query.Config{})
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zeta"}, cs.List())
}

func TestCountAndFind(t *testing.T) {
	root := setupRoot(t, "pcc2", "der", "Haus")
	cs, err := corpusstorage.New(root, 0, query.Config{})
	require.NoError(t, err)

	count, err := cs.Count("pcc2", anyTokenQuery())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	rows, err := cs.Find("pcc2", anyTokenQuery(), 0, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = cs.Find("pcc2", anyTokenQuery(), 1, -1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCorpusNotFound(t *testing.T) {
	root := t.TempDir()
	cs, err := corpusstorage.New(root, 0, query.Config{})
	require.NoError(t, err)

	_, err = cs.Count("missing", anyTokenQuery())
	require.ErrorIs(t, err, corpusstorage.ErrCorpusNotFound)
}

func TestPreloadThenQuery(t *testing.T) {
	root := setupRoot(t, "pcc2", "der", "Haus")
	cs, err := corpusstorage.New(root, 0, query.Config{})
	require.NoError(t, err)

	require.NoError(t, cs.Preload("pcc2"))
	count, err := cs.Count("pcc2", anyTokenQuery())
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestImportReplacesExistingCorpus(t *testing.T) {
	root := setupRoot(t, "pcc2", "der", "Haus")
	cs, err := corpusstorage.New(root, 0, query.Config{})
	require.NoError(t, err)

	count, err := cs.Count("pcc2", anyTokenQuery())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	replacement := buildTokenDB(t, "ein")
	require.NoError(t, cs.Import("pcc2", replacement))

	count, err = cs.Count("pcc2", anyTokenQuery())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// The old corpus directory must actually be gone, not just evicted from
	// the in-memory cache.
	entries, err := os.ReadDir(filepath.Join(root, "pcc2", "Ordering"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestImportRegistersNewCorpusName(t *testing.T) {
	root := t.TempDir()
	cs, err := corpusstorage.New(root, 0, query.Config{})
	require.NoError(t, err)

	require.NoError(t, cs.Import("fresh", buildTokenDB(t, "der")))
	require.Equal(t, []string{"fresh"}, cs.List())

	count, err := cs.Count("fresh", anyTokenQuery())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestResolveReturnsInternedString(t *testing.T) {
	root := setupRoot(t, "pcc2", "der", "Haus")
	cs, err := corpusstorage.New(root, 0, query.Config{})
	require.NoError(t, err)

	rows, err := cs.Find("pcc2", anyTokenQuery(), 0, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	str, err := cs.Resolve("pcc2", rows[0][0].Anno.Value)
	require.NoError(t, err)
	require.Equal(t, "der", str)
}

func TestImpossibleSearchWhenDisjunctionCannotPlan(t *testing.T) {
	root := setupRoot(t, "pcc2", "der", "Haus")
	cs, err := corpusstorage.New(root, 0, query.Config{})
	require.NoError(t, err)

	c := query.NewConjunction()
	a := c.AddNode("a", query.AnyToken{})
	b := c.AddNode("b", query.AnyToken{})
	c.AddNode("c", query.AnyToken{}) // isolated: no operator reaches it
	c.AddOperator(operator.IdentitySpec{}, a, b)
	d := query.NewDisjunction(c)

	_, err = cs.Count("pcc2", d)
	var impossible *corpusstorage.ImpossibleSearchError
	require.ErrorAs(t, err, &impossible)
	require.Len(t, impossible.Reasons, 1)
}
