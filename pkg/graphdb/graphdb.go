// Package graphdb implements the GraphDB aggregate: a string pool, a node
// annotation store, and a Component->GraphStorage map with on-demand
// loading from a Badger-backed on-disk corpus directory.
package graphdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/annisql/graphannis/pkg/annostore"
	"github.com/annisql/graphannis/pkg/graphstorage"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/stringpool"

	"github.com/dgraph-io/badger/v4"
)

const (
	dirStrings   = "strings"
	dirNodeAnnos = "nodeannos"

	// emptyNamePlaceholder stands in for a component's empty layer or name
	// on disk, since "" is not a valid directory entry. Ordering/LeftToken/
	// RightToken components conventionally carry empty layer and name, so
	// this placeholder is exercised on every corpus, not just an edge case.
	emptyNamePlaceholder = "_"
)

func dirSegment(s string) string {
	if s == "" {
		return emptyNamePlaceholder
	}
	return s
}

func undirSegment(s string) string {
	if s == emptyNamePlaceholder {
		return ""
	}
	return s
}

// GraphDB owns a string pool, a node-annotation store, and the set of
// loaded/known graph storage components for one corpus.
//
// Loading is monotonic: once a Component transitions from known-but-
// unloaded to loaded, it is never unloaded again for this GraphDB's
// lifetime. Callers that need a consistent view of
// "is everything I need loaded" take their own lock around EnsureLoaded
// (see pkg/corpusstorage) — GraphDB's own mutex only protects its internal
// maps from concurrent EnsureLoaded calls racing each other.
type GraphDB struct {
	mu sync.RWMutex

	Strings *stringpool.Pool
	Annos   *annostore.Store

	components map[ids.Component]graphstorage.Storage
	known      map[ids.Component]string // component -> absolute on-disk directory

	rootDir string

	// loadCount is incremented once per component actually read from disk;
	// exposed for tests verifying EnsureLoaded's idempotence.
	loadCount int

	// annoNodes enumerates every node registered via RegisterNode, so
	// SaveTo can iterate db.Annos deterministically.
	annoNodes []ids.NodeID
}

// New creates an empty, unloaded GraphDB.
func New() *GraphDB {
	pool := stringpool.New()
	return &GraphDB{
		Strings:    pool,
		Annos:      annostore.New(pool),
		components: make(map[ids.Component]graphstorage.Storage),
		known:      make(map[ids.Component]string),
	}
}

// GetGraphStorage returns the loaded storage for c, if any.
func (db *GraphDB) GetGraphStorage(c ids.Component) (graphstorage.Storage, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.components[c]
	return s, ok
}

// ComponentExists reports whether c is known (loaded or not) for this
// corpus, used by the planner to distinguish "component missing from
// corpus" from "component just not loaded yet".
func (db *GraphDB) ComponentExists(c ids.Component) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if _, ok := db.components[c]; ok {
		return true
	}
	_, ok := db.known[c]
	return ok
}

// KnownComponents returns every component discovered on disk or added via
// RegisterComponent, loaded or not.
func (db *GraphDB) KnownComponents() []ids.Component {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]ids.Component, 0, len(db.known))
	for c := range db.known {
		out = append(out, c)
	}
	return out
}

// LoadCount returns how many components have actually been read from disk
// so far, for verifying ensure_loaded idempotence.
func (db *GraphDB) LoadCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loadCount
}

// LoadFrom directory-scans dir to discover which components exist,
// eagerly loads the string pool and node annotation store (every query
// needs both), and leaves every graph component unloaded — EnsureLoaded
// transitions them individually. Mirrors the lazy "discover, don't open"
// scan in graphannis-rs's DBLoader plus its skeleton load step.
func (db *GraphDB) LoadFrom(dir string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.rootDir = dir

	if err := db.loadStringsLocked(); err != nil {
		return err
	}
	if err := db.loadNodeAnnosLocked(); err != nil {
		return err
	}

	for _, t := range []ids.ComponentType{
		ids.Coverage, ids.Dominance, ids.Pointing, ids.Ordering,
		ids.LeftToken, ids.RightToken, ids.PartOfSubcorpus,
	} {
		typeDir := filepath.Join(dir, t.String())
		layers, err := os.ReadDir(typeDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("graphdb: scanning %s: %w", typeDir, err)
		}
		for _, layer := range layers {
			if !layer.IsDir() {
				continue
			}
			layerDir := filepath.Join(typeDir, layer.Name())
			names, err := os.ReadDir(layerDir)
			if err != nil {
				return fmt.Errorf("graphdb: scanning %s: %w", layerDir, err)
			}
			for _, name := range names {
				if !name.IsDir() {
					continue
				}
				c := ids.Component{Type: t, Layer: undirSegment(layer.Name()), Name: undirSegment(name.Name())}
				db.known[c] = filepath.Join(layerDir, name.Name())
			}
		}
	}
	return nil
}

// EnsureLoaded transitions c from known-but-unloaded to loaded by reading
// it from disk. Calling it a second time on an already-loaded component
// performs no disk I/O.
func (db *GraphDB) EnsureLoaded(c ids.Component) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.ensureLoadedLocked(c)
}

func (db *GraphDB) ensureLoadedLocked(c ids.Component) error {
	if _, ok := db.components[c]; ok {
		return nil
	}
	path, ok := db.known[c]
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, c)
	}

	manifest, err := readManifest(path)
	if err != nil {
		return err
	}

	storage, err := loadComponentStorage(path, manifest)
	if err != nil {
		return err
	}

	db.components[c] = storage
	db.loadCount++
	return nil
}

// EnsureLoadedAll loads every known-but-unloaded component, used by
// CorpusStorage.Import before it hands a freshly built GraphDB to the
// cache (it must be readable immediately, the way
// graphannis-rs::CorpusStorage::import calls db.ensure_loaded_all()).
func (db *GraphDB) EnsureLoadedAll() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for c := range db.known {
		if err := db.ensureLoadedLocked(c); err != nil {
			return err
		}
	}
	return nil
}

// RegisterComponent attaches an already-built, in-memory storage to the
// GraphDB directly — used when constructing a corpus programmatically
// (e.g. a corpus importer) rather than loading one from disk.
func (db *GraphDB) RegisterComponent(c ids.Component, storage graphstorage.Storage) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.components[c] = storage
	db.known[c] = "" // no on-disk path yet; SaveTo will assign one
}

// SaveTo serializes the string pool, node annotation store, and every
// loaded component to dir.
func (db *GraphDB) SaveTo(dir string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("graphdb: creating %s: %w", dir, err)
	}
	if err := db.saveStringsLocked(dir); err != nil {
		return err
	}
	if err := db.saveNodeAnnosLocked(dir); err != nil {
		return err
	}
	for c, storage := range db.components {
		componentDir := filepath.Join(dir, c.Type.String(), dirSegment(c.Layer), dirSegment(c.Name))
		if err := saveComponentStorage(componentDir, storage); err != nil {
			return fmt.Errorf("graphdb: saving component %s: %w", c, err)
		}
	}
	return nil
}

func (db *GraphDB) loadStringsLocked() error {
	path := filepath.Join(db.rootDir, dirStrings)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	bdb, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("graphdb: opening string pool at %s: %w", path, err)
	}
	defer bdb.Close()

	var entries []struct {
		ID  ids.StringID
		Str string
	}
	err = bdb.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := decodeStringKey(item.Key())
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, struct {
				ID  ids.StringID
				Str string
			}{ID: id, Str: string(val)})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("graphdb: reading string pool: %w", err)
	}
	db.Strings = stringpool.LoadEntries(entries)
	db.Annos = annostore.New(db.Strings)
	return nil
}

func (db *GraphDB) saveStringsLocked(dir string) error {
	path := filepath.Join(dir, dirStrings)
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	bdb, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("graphdb: opening string pool at %s: %w", path, err)
	}
	defer bdb.Close()

	return bdb.Update(func(txn *badger.Txn) error {
		for _, e := range db.Strings.Entries() {
			if err := txn.Set(stringKey(e.ID), []byte(e.Str)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *GraphDB) loadNodeAnnosLocked() error {
	path := filepath.Join(db.rootDir, dirNodeAnnos)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	bdb, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("graphdb: opening node annotation store at %s: %w", path, err)
	}
	defer bdb.Close()

	registered := make(map[ids.NodeID]bool, len(db.annoNodes))
	for _, n := range db.annoNodes {
		registered[n] = true
	}
	return bdb.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			node := decodeNodeAnnoKey(item.Key())
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			db.Annos.Add(node, decodeAnnotation(val))
			if !registered[node] {
				registered[node] = true
				db.annoNodes = append(db.annoNodes, node)
			}
		}
		return nil
	})
}

func (db *GraphDB) saveNodeAnnosLocked(dir string) error {
	path := filepath.Join(dir, dirNodeAnnos)
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	bdb, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("graphdb: opening node annotation store at %s: %w", path, err)
	}
	defer bdb.Close()

	return bdb.Update(func(txn *badger.Txn) error {
		seqByNode := make(map[ids.NodeID]int)
		// Iterating via GetAll per known node would require exposing node
		// enumeration from annostore; instead save relies on the caller
		// having populated db.Annos through Add, and we replay its
		// internal index through the public GetAll/IDs surface.
		for _, node := range db.annoNodeIDsLocked() {
			for _, a := range db.Annos.GetAll(node) {
				seq := seqByNode[node]
				seqByNode[node] = seq + 1
				if err := txn.Set(nodeAnnoKey(node, seq), encodeAnnotation(a)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// annoNodeIDsLocked enumerates every node with at least one annotation.
// GraphDB tracks this separately from annostore.Store (which is agnostic
// to node enumeration) so SaveTo can iterate deterministically.
func (db *GraphDB) annoNodeIDsLocked() []ids.NodeID {
	return db.annoNodes
}

// RegisterNode records that node carries annotations, so SaveTo knows to
// persist it. Call once per node after adding its annotations to
// db.Annos. Importers call this; LoadFrom's node-annotation replay
// (loadNodeAnnosLocked) records every node it reads the same way, so a
// GraphDB loaded from disk can be saved again.
func (db *GraphDB) RegisterNode(node ids.NodeID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, n := range db.annoNodes {
		if n == node {
			return
		}
	}
	db.annoNodes = append(db.annoNodes, node)
}
