// Package corpusstorage implements the top-level engine API: a cache of
// per-corpus GraphDB loaders with lazy component loading, LRU eviction, and
// the list/preload/count/find/import operations.
package corpusstorage

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/annisql/graphannis/pkg/exec"
	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/planner"
	"github.com/annisql/graphannis/pkg/query"
)

// CorpusStorage is the engine's top-level handle: one per storage root,
// shared across however many concurrent queries the caller runs.
type CorpusStorage struct {
	rootDir      string
	maxCacheSize int64 // approxSize units; 0 = unbounded
	cfg          query.Config

	mu      sync.RWMutex // guards loaders (cache-level lock)
	loaders map[string]*dbLoader
	clock   atomic.Int64 // logical tick, advanced on every corpus access

	logger *log.Logger
}

// New directory-scans rootDir, registering one unloaded dbLoader per
// subdirectory, matching the §4.7 "on construction, directory-scan the
// storage root" protocol.
func New(rootDir string, maxCacheSize int64, cfg query.Config) (*CorpusStorage, error) {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", ErrIO, rootDir, err)
	}
	cs := &CorpusStorage{
		rootDir:      rootDir,
		maxCacheSize: maxCacheSize,
		cfg:          cfg,
		loaders:      make(map[string]*dbLoader),
		logger:       log.New(os.Stdout, "corpusstorage: ", log.LstdFlags),
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cs.loaders[e.Name()] = newDBLoader(filepath.Join(rootDir, e.Name()))
	}
	return cs, nil
}

// List returns every known corpus name in lexicographic order.
func (cs *CorpusStorage) List() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	names := make([]string, 0, len(cs.loaders))
	for name := range cs.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (cs *CorpusStorage) loaderFor(name string) (*dbLoader, error) {
	cs.mu.RLock()
	l, ok := cs.loaders[name]
	cs.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, name)
	}
	return l, nil
}

// Preload eagerly loads every known component of a corpus; advisory.
func (cs *CorpusStorage) Preload(name string) error {
	loader, err := cs.loaderFor(name)
	if err != nil {
		return err
	}

	loader.mu.Lock()
	if err := loader.ensureSkeletonLocked(); err != nil {
		loader.mu.Unlock()
		return err
	}
	err = loader.db.EnsureLoadedAll()
	loader.mu.Unlock()
	if err != nil {
		return err
	}

	loader.touch(cs.clock.Add(1))
	cs.logger.Printf("preloaded corpus %q", name)
	cs.maybeEvict()
	return nil
}

// Count plans and fully drains d against name, returning the total row
// count.
func (cs *CorpusStorage) Count(name string, d *query.Disjunction) (int, error) {
	loader, err := cs.loaderFor(name)
	if err != nil {
		return 0, err
	}

	var count int
	err = loader.withReadAccess(d.NecessaryComponents(), cs.clock.Add(1), func(db *graphdb.GraphDB) error {
		ep, err := planDisjunction(db, d, cs.cfg)
		if err != nil {
			return err
		}
		count, err = ep.Count()
		return err
	})
	if err != nil {
		return 0, err
	}
	cs.maybeEvict()
	return count, nil
}

// Find plans d against name and returns up to limit rows after skipping
// offset, in result order. limit < 0 means unbounded.
func (cs *CorpusStorage) Find(name string, d *query.Disjunction, offset, limit int) ([]exec.Row, error) {
	loader, err := cs.loaderFor(name)
	if err != nil {
		return nil, err
	}

	var rows []exec.Row
	err = loader.withReadAccess(d.NecessaryComponents(), cs.clock.Add(1), func(db *graphdb.GraphDB) error {
		ep, err := planDisjunction(db, d, cs.cfg)
		if err != nil {
			return err
		}
		skipped := 0
		for limit < 0 || len(rows) < limit {
			row, ok, err := ep.Next()
			if err != nil {
				// : once planning succeeds, an I/O error during
				// iteration is logged and the stream ends early rather
				// than surfacing as a hard error.
				cs.logger.Printf("find %q: iteration error: %v", name, err)
				break
			}
			if !ok {
				break
			}
			if skipped < offset {
				skipped++
				continue
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cs.maybeEvict()
	return rows, nil
}

// Resolve looks up the string a StringID names within a corpus, for
// callers (the CLI, benchmark reporting) that need to render a Row's
// ids.Match values as text rather than raw identifiers.
func (cs *CorpusStorage) Resolve(name string, id ids.StringID) (string, error) {
	loader, err := cs.loaderFor(name)
	if err != nil {
		return "", err
	}
	var s string
	err = loader.withReadAccess(nil, cs.clock.Add(1), func(db *graphdb.GraphDB) error {
		var resolveErr error
		s, resolveErr = db.Strings.Str(id)
		return resolveErr
	})
	if err != nil {
		return "", err
	}
	return s, nil
}

// planDisjunction compiles every alternative of d against db, aggregating
// per-alternative planning failures. It only fails outright when every
// alternative fails.
func planDisjunction(db *graphdb.GraphDB, d *query.Disjunction, cfg query.Config) (*exec.ExecutionPlan, error) {
	plans := make([]*exec.Plan, 0, len(d.Alternatives))
	var reasons []error
	for i, conj := range d.Alternatives {
		p, err := planner.Plan(conj, db, cfg)
		if err != nil {
			reasons = append(reasons, fmt.Errorf("alternative %d: %w", i, err))
			continue
		}
		plans = append(plans, p)
	}
	if len(plans) == 0 {
		return nil, &ImpossibleSearchError{Reasons: reasons}
	}
	return exec.NewExecutionPlan(plans), nil
}

// Import atomically replaces any existing corpus named name with db:
// db is fully loaded, flushed to a scratch directory, the old corpus
// directory (if any) is evicted and deleted, and the scratch directory is
// installed in its place.
func (cs *CorpusStorage) Import(name string, db *graphdb.GraphDB) error {
	if err := db.EnsureLoadedAll(); err != nil {
		return fmt.Errorf("corpusstorage: import %q: %w", name, err)
	}

	finalDir := filepath.Join(cs.rootDir, name)
	scratchDir := finalDir + ".importing"
	if err := os.RemoveAll(scratchDir); err != nil {
		return fmt.Errorf("%w: clearing scratch dir: %v", ErrIO, err)
	}
	if err := db.SaveTo(scratchDir); err != nil {
		return fmt.Errorf("%w: writing new corpus: %v", ErrIO, err)
	}

	cs.mu.Lock()
	old, hadOld := cs.loaders[name]
	cs.mu.Unlock()

	if hadOld {
		old.mu.Lock()
		old.db = nil
		old.mu.Unlock()
		if err := os.RemoveAll(finalDir); err != nil {
			return fmt.Errorf("%w: removing old corpus: %v", ErrIO, err)
		}
	}
	if err := os.Rename(scratchDir, finalDir); err != nil {
		return fmt.Errorf("%w: installing new corpus: %v", ErrIO, err)
	}

	newLoader := newDBLoader(finalDir)
	newLoader.db = db
	newLoader.touch(cs.clock.Add(1))

	cs.mu.Lock()
	cs.loaders[name] = newLoader
	cs.mu.Unlock()

	cs.logger.Printf("imported corpus %q", name)
	cs.maybeEvict()
	return nil
}

// maybeEvict drops the least-recently-used loaded corpora until the cache's
// total approxSize is back under maxCacheSize. A corpus currently serving a
// query can't be write-locked, so TryLock skips it — eviction never runs
// while any read lock is held on that corpus.
func (cs *CorpusStorage) maybeEvict() {
	if cs.maxCacheSize <= 0 {
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	tried := make(map[*dbLoader]struct{})
	for cs.totalSizeLocked() > cs.maxCacheSize {
		victim := cs.oldestEvictableLocked(tried)
		if victim == nil {
			return
		}
		if victim.mu.TryLock() {
			victim.db = nil
			victim.mu.Unlock()
			continue
		}
		tried[victim] = struct{}{}
	}
}

func (cs *CorpusStorage) totalSizeLocked() int64 {
	var total int64
	for _, l := range cs.loaders {
		total += int64(l.approxSize())
	}
	return total
}

func (cs *CorpusStorage) oldestEvictableLocked(tried map[*dbLoader]struct{}) *dbLoader {
	var victim *dbLoader
	oldest := int64(math.MaxInt64)
	for _, l := range cs.loaders {
		if _, skip := tried[l]; skip {
			continue
		}
		if !l.isLoaded() {
			continue
		}
		if t := l.lastUsed.Load(); t < oldest {
			oldest = t
			victim = l
		}
	}
	return victim
}
