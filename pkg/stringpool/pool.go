// Package stringpool interns strings to small integer IDs.
//
// The pool is read-mostly: lookups happen on every query, insertions only
// during corpus load. It is guarded by a single RWMutex the way the
// teacher's in-memory storage indexes guard their maps, rather than by a
// lock-free structure — contention is not expected on the write side.
package stringpool

import (
	"fmt"
	"sync"

	"github.com/annisql/graphannis/pkg/ids"
)

// Pool interns strings to StringIDs and back. The zero value is not usable;
// construct with New.
type Pool struct {
	mu     sync.RWMutex
	toID   map[string]ids.StringID
	fromID []string // index 0 unused (EmptyString), index i holds id i
	nextID ids.StringID
}

// New creates an empty pool. ID 0 is pre-reserved for ids.EmptyString.
func New() *Pool {
	p := &Pool{
		toID:   make(map[string]ids.StringID),
		fromID: make([]string, 1), // fromID[0] is the unused placeholder for EmptyString
		nextID: 1,
	}
	return p
}

// Add interns s, returning its StringID. Calling Add with the same string
// twice returns the same ID (idempotent).
func (p *Pool) Add(s string) ids.StringID {
	p.mu.RLock()
	if id, ok := p.toID[s]; ok {
		p.mu.RUnlock()
		return id
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// Re-check under the write lock: another writer may have interned s
	// while we waited.
	if id, ok := p.toID[s]; ok {
		return id
	}
	id := p.nextID
	p.nextID++
	p.toID[s] = id
	p.fromID = append(p.fromID, s)
	return id
}

// Lookup resolves s to its StringID without interning it, for query-time
// lookups where a miss means "no such value in this corpus" rather than
// "intern a new one".
func (p *Pool) Lookup(s string) (ids.StringID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.toID[s]
	return id, ok
}

// Str resolves id back to its string. It fails for an unknown ID.
func (p *Pool) Str(id ids.StringID) (string, error) {
	if id == ids.EmptyString {
		return "", nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	idx := int(id)
	if idx < 0 || idx >= len(p.fromID) {
		return "", fmt.Errorf("stringpool: unknown string id %d", id)
	}
	return p.fromID[idx], nil
}

// MustStr resolves id back to its string, panicking on failure. Intended
// for call sites that already established the id came from this pool
// (e.g. iterating over keys already stored in it).
func (p *Pool) MustStr(id ids.StringID) string {
	s, err := p.Str(id)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of distinct interned strings.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.fromID) - 1
}

// Entries returns a snapshot of id->string pairs in ascending ID order, the
// order used when serializing the pool with save_to.
func (p *Pool) Entries() []struct {
	ID  ids.StringID
	Str string
} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]struct {
		ID  ids.StringID
		Str string
	}, 0, len(p.fromID)-1)
	for i := 1; i < len(p.fromID); i++ {
		out = append(out, struct {
			ID  ids.StringID
			Str string
		}{ID: ids.StringID(i), Str: p.fromID[i]})
	}
	return out
}

// LoadEntries rebuilds the pool from a prior save_to dump, keeping each
// entry's saved ID; strings added afterwards get IDs above the highest
// loaded one.
func LoadEntries(entries []struct {
	ID  ids.StringID
	Str string
}) *Pool {
	p := New()
	maxID := ids.StringID(0)
	for _, e := range entries {
		p.toID[e.Str] = e.ID
		for ids.StringID(len(p.fromID)) <= e.ID {
			p.fromID = append(p.fromID, "")
		}
		p.fromID[e.ID] = e.Str
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	p.nextID = maxID + 1
	return p
}
