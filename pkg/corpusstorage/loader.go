package corpusstorage

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/ids"
)

// dbLoader lazily loads one corpus's GraphDB from its on-disk directory,
// guarded by a readers-writer lock: queries hold the read lock for the
// duration of execution, component loads and imports hold the write lock.
type dbLoader struct {
	mu       sync.RWMutex
	path     string
	db       *graphdb.GraphDB // nil until first accessed
	lastUsed atomic.Int64     // logical clock tick, for LRU eviction
}

func newDBLoader(path string) *dbLoader {
	return &dbLoader{path: path}
}

func (l *dbLoader) touch(tick int64) { l.lastUsed.Store(tick) }

// isLoaded reports whether the GraphDB skeleton has been read from disk at
// all, independent of which individual components are loaded within it.
func (l *dbLoader) isLoaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.db != nil
}

// approxSize estimates this loader's resident footprint as a stand-in for
// true byte counts: the string pool's entry count plus each loaded
// component's edge count. Actual memory accounting would require each
// graphstorage.Storage to report its own byte size, which none of the
// storage implementations here do either — this mirrors the same
// documented-heuristic approach the Dominance operator's cost estimate
// takes (pkg/operator/dominance.go) rather than inventing real memory
// instrumentation nothing else here needs.
func (l *dbLoader) approxSize() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return 0
	}
	size := l.db.Strings.Len()
	for _, c := range l.db.KnownComponents() {
		if storage, ok := l.db.GetGraphStorage(c); ok {
			size += storage.NumberOfEdges()
		}
	}
	return size
}

// ensureSkeletonLocked reads the GraphDB skeleton (string pool, node
// annotation store, component discovery) from disk if it hasn't been
// already. Callers must hold l.mu for writing.
func (l *dbLoader) ensureSkeletonLocked() error {
	if l.db != nil {
		return nil
	}
	db := graphdb.New()
	if err := db.LoadFrom(l.path); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	l.db = db
	return nil
}

// withReadAccess implements the lazy-loading protocol: take a read lock
// and run fn if every component in need is already
// loaded; otherwise drop the read lock, take the write lock, load the
// skeleton and any missing components, then downgrade back to a read lock
// before running fn.
func (l *dbLoader) withReadAccess(need []ids.Component, tick int64, fn func(db *graphdb.GraphDB) error) error {
	l.mu.RLock()
	if l.db != nil && allLoaded(l.db, need) {
		defer l.mu.RUnlock()
		l.touch(tick)
		return fn(l.db)
	}
	l.mu.RUnlock()

	l.mu.Lock()
	if err := l.ensureSkeletonLocked(); err != nil {
		l.mu.Unlock()
		return err
	}
	for _, c := range need {
		if _, ok := l.db.GetGraphStorage(c); ok {
			continue
		}
		if !l.db.ComponentExists(c) {
			// Some operators (precedence's LeftToken/RightToken) list a
			// component as necessary whenever it exists but tolerate its
			// absence entirely for token-only corpora; nothing to load.
			continue
		}
		if err := l.db.EnsureLoaded(c); err != nil {
			l.mu.Unlock()
			return err
		}
	}
	l.mu.Unlock()

	l.mu.RLock()
	defer l.mu.RUnlock()
	l.touch(tick)
	return fn(l.db)
}

func allLoaded(db *graphdb.GraphDB, need []ids.Component) bool {
	for _, c := range need {
		if _, ok := db.GetGraphStorage(c); ok {
			continue
		}
		if !db.ComponentExists(c) {
			continue
		}
		return false
	}
	return true
}
