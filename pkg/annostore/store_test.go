package annostore

import (
	"testing"

	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/stringpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*Store, *stringpool.Pool) {
	t.Helper()
	pool := stringpool.New()
	store := New(pool)

	annis := pool.Add(ids.AnnisNS)
	tok := pool.Add(ids.TokAnno)
	pos := pool.Add("pos")

	der := pool.Add("der")
	adja := pool.Add("ADJA")
	haus := pool.Add("haus")
	nomen := pool.Add("NN")

	store.Add(1, ids.Annotation{Key: ids.AnnoKey{Ns: annis, Name: tok}, Value: der})
	store.Add(1, ids.Annotation{Key: ids.AnnoKey{Ns: 0, Name: pos}, Value: adja})
	store.Add(2, ids.Annotation{Key: ids.AnnoKey{Ns: annis, Name: tok}, Value: haus})
	store.Add(2, ids.Annotation{Key: ids.AnnoKey{Ns: 0, Name: pos}, Value: nomen})
	return store, pool
}

func TestGetAllPreservesInsertionOrder(t *testing.T) {
	store, pool := newFixture(t)
	annos := store.GetAll(1)
	require.Len(t, annos, 2)
	assert.Equal(t, "tok", pool.MustStr(annos[0].Key.Name))
	assert.Equal(t, "pos", pool.MustStr(annos[1].Key.Name))
}

func TestExactAnnoSearchWithNamespace(t *testing.T) {
	store, pool := newFixture(t)
	annis := pool.Add(ids.AnnisNS)
	tok := pool.Add(ids.TokAnno)
	der := pool.Add("der")

	matches := store.ExactAnnoSearch(&annis, tok, &der)
	require.Len(t, matches, 1)
	assert.Equal(t, ids.NodeID(1), matches[0].Node)
}

func TestExactAnnoSearchAnyValue(t *testing.T) {
	store, pool := newFixture(t)
	annis := pool.Add(ids.AnnisNS)
	tok := pool.Add(ids.TokAnno)

	matches := store.ExactAnnoSearch(&annis, tok, nil)
	assert.Len(t, matches, 2)
}

func TestExactAnnoSearchNamespaceOmittedFansOut(t *testing.T) {
	store, pool := newFixture(t)
	pos := pool.Add("pos")
	adja := pool.Add("ADJA")

	matches := store.ExactAnnoSearch(nil, pos, &adja)
	require.Len(t, matches, 1)
	assert.Equal(t, ids.NodeID(1), matches[0].Node)
}

func TestRegexAnnoSearch(t *testing.T) {
	store, pool := newFixture(t)
	annis := pool.Add(ids.AnnisNS)
	tok := pool.Add(ids.TokAnno)

	matches, err := store.RegexAnnoSearch(&annis, tok, "^(der|haus)$")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestRegexAnnoSearchInvalidPattern(t *testing.T) {
	store, pool := newFixture(t)
	annis := pool.Add(ids.AnnisNS)
	tok := pool.Add(ids.TokAnno)

	_, err := store.RegexAnnoSearch(&annis, tok, "(unterminated")
	assert.Error(t, err)
}

func TestNumberOfAnnotationsByName(t *testing.T) {
	store, pool := newFixture(t)
	annis := pool.Add(ids.AnnisNS)
	tok := pool.Add(ids.TokAnno)

	assert.Equal(t, 2, store.NumberOfAnnotationsByName(&annis, tok))
}

func TestGuessMaxCount(t *testing.T) {
	store, pool := newFixture(t)
	pos := pool.Add("pos")
	assert.Equal(t, 2, store.GuessMaxCount(nil, pos, nil))
}
