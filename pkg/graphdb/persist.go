package graphdb

import (
	"fmt"

	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"

	"github.com/dgraph-io/badger/v4"
)

// loadComponentStorage opens the Badger directory at path and reconstructs
// the Storage implementation named by manifest.Kind.
func loadComponentStorage(path string, manifest *Manifest) (graphstorage.Storage, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("graphdb: opening component at %s: %w", path, err)
	}
	defer bdb.Close()

	switch manifest.Kind {
	case KindAdjacencyList:
		return loadAdjacencyList(bdb)
	case KindLinearChain:
		return loadLinearChain(bdb)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorageKind, manifest.Kind)
	}
}

func loadAdjacencyList(bdb *badger.DB) (*graphstorage.AdjacencyList, error) {
	a := graphstorage.NewAdjacencyList()
	err := bdb.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			switch key[0] {
			case tagEdge:
				a.AddEdge(decodeEdgeKey(key))
			case tagEdgeAnno:
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				a.AddEdgeAnno(decodeEdgeAnnoKey(key), decodeAnnotation(val))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// loadLinearChain relies on tagChainPos entries being visited in ascending
// key order (Badger iterates lexicographically, and chainPosKey encodes
// position big-endian), so a straight Append replay reconstructs the
// original sequence.
func loadLinearChain(bdb *badger.DB) (*graphstorage.LinearChain, error) {
	c := graphstorage.NewLinearChain()
	err := bdb.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			switch key[0] {
			case tagChainPos:
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				c.Append(ids.NodeID(getInt64(val)))
			case tagEdgeAnno:
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				c.AddEdgeAnno(decodeEdgeAnnoKey(key), decodeAnnotation(val))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// saveComponentStorage writes storage's edges/annotations plus its
// manifest to componentDir, opening a fresh Badger directory there.
func saveComponentStorage(componentDir string, storage graphstorage.Storage) error {
	stats := storage.GetStatistics()

	kind := KindAdjacencyList
	if _, ok := storage.(*graphstorage.LinearChain); ok {
		kind = KindLinearChain
	}

	manifest := &Manifest{
		Kind:      kind,
		EdgeCount: storage.NumberOfEdges(),
		AvgFanOut: stats.AvgFanOut,
		MaxDepth:  stats.MaxDepth,
		Cyclic:    stats.Cyclic,
	}
	if err := writeManifest(componentDir, manifest); err != nil {
		return err
	}

	opts := badger.DefaultOptions(componentDir).WithLoggingLevel(badger.ERROR)
	bdb, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("graphdb: opening component at %s: %w", componentDir, err)
	}
	defer bdb.Close()

	switch s := storage.(type) {
	case *graphstorage.LinearChain:
		return saveLinearChain(bdb, s)
	case *graphstorage.AdjacencyList:
		return saveAdjacencyList(bdb, s)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownStorageKind, storage)
	}
}

func saveAdjacencyList(bdb *badger.DB, a *graphstorage.AdjacencyList) error {
	return bdb.Update(func(txn *badger.Txn) error {
		for _, node := range a.SourceNodes() {
			for _, target := range a.GetOutgoingEdges(node) {
				e := ids.Edge{Source: node, Target: target}
				if err := txn.Set(edgeKey(e), nil); err != nil {
					return err
				}
				for seq, anno := range a.GetEdgeAnnos(e) {
					if err := txn.Set(edgeAnnoKey(e, seq), encodeAnnotation(anno)); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func saveLinearChain(bdb *badger.DB, c *graphstorage.LinearChain) error {
	return bdb.Update(func(txn *badger.Txn) error {
		sequence := c.Sequence()
		for pos, node := range sequence {
			if err := txn.Set(chainPosKey(pos), putUint64(int64(node))); err != nil {
				return err
			}
			if pos+1 >= len(sequence) {
				continue
			}
			e := ids.Edge{Source: node, Target: sequence[pos+1]}
			for seq, anno := range c.GetEdgeAnnos(e) {
				if err := txn.Set(edgeAnnoKey(e, seq), encodeAnnotation(anno)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
