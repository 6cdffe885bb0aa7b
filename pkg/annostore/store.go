// Package annostore implements the node annotation store: the mapping from
// nodes to their annotation sets, plus the indexes that answer exact and
// regex annotation searches and the selectivity estimates the planner needs.
package annostore

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"sort"
	"sync"

	"github.com/annisql/graphannis/pkg/ids"
	"github.com/annisql/graphannis/pkg/stringpool"
)

// Match is a single hit from an annotation search: the node, and which key
// and value actually matched (relevant when ns is omitted and several
// namespaces carry the same name).
type Match struct {
	Node         ids.NodeID
	MatchedKey   ids.AnnoKey
	MatchedValue ids.StringID
}

// valueEntry is one row of the per-(ns,name) value index, kept sorted by
// value string so regex/prefix probes can binary-search into it.
type valueEntry struct {
	value string
	valID ids.StringID
	node  ids.NodeID
}

// Store holds every node's annotations, in insertion order, plus indexes
// for exact and regex value search.
//
// Concurrency: read-mostly, guarded by a single RWMutex: a map-of-sets
// index guarded by one lock per store rather than per key.
type Store struct {
	mu sync.RWMutex

	strings *stringpool.Pool

	// byNode preserves registration order per node.
	byNode map[ids.NodeID][]ids.Annotation

	// byKey indexes node->annotation for a given (ns,name) key, used by
	// number_of_annotations_by_name and as the backing store the value
	// index points into.
	byKey map[ids.AnnoKey][]valueEntry

	// byNameAcrossNS maps a bare name (namespace omitted) to every AnnoKey
	// that uses it, so exact_anno_search(ns=nil, name, ...) can fan out
	// across namespaces.2.
	byNameAcrossNS map[ids.StringID][]ids.AnnoKey

	// sorted tracks which byKey[key] slices are currently ordered by value;
	// Add appends and marks a key dirty, ensureKeySorted re-sorts lazily
	// the next time a search actually probes that key.
	sorted map[ids.AnnoKey]bool
}

// New creates an empty store bound to strings for resolving name lookups.
func New(strings *stringpool.Pool) *Store {
	return &Store{
		strings:        strings,
		byNode:         make(map[ids.NodeID][]ids.Annotation),
		byKey:          make(map[ids.AnnoKey][]valueEntry),
		byNameAcrossNS: make(map[ids.StringID][]ids.AnnoKey),
		sorted:         make(map[ids.AnnoKey]bool),
	}
}

// Add registers a single annotation on node, in the order called — get_all
// returns them in this insertion order.
func (s *Store) Add(node ids.NodeID, anno ids.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byNode[node] = append(s.byNode[node], anno)

	if _, ok := s.byKey[anno.Key]; !ok {
		s.registerKeyLocked(anno.Key)
	}

	valStr := s.strings.MustStr(anno.Value)
	s.byKey[anno.Key] = append(s.byKey[anno.Key], valueEntry{value: valStr, valID: anno.Value, node: node})
	s.sorted[anno.Key] = false
}

// registerKeyLocked records anno.Key under its bare name for
// namespace-omitted lookups. Caller holds s.mu.
func (s *Store) registerKeyLocked(key ids.AnnoKey) {
	keys := s.byNameAcrossNS[key.Name]
	for _, k := range keys {
		if k == key {
			return
		}
	}
	s.byNameAcrossNS[key.Name] = append(keys, key)
}

// sortValueIndex sorts a key's value entries by value so exactRange/
// prefixRange can binary-search into them. Caller holds s.mu for write.
func sortValueIndex(entries []valueEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].value < entries[j].value })
}

// ensureKeySorted sorts key's value entries if Add has appended to them
// since the last sort, upgrading to a write lock only when a sort is
// actually needed — the same read-then-upgrade protocol
// pkg/corpusstorage/loader.go uses for lazy component loading.
func (s *Store) ensureKeySorted(key ids.AnnoKey) {
	s.mu.RLock()
	if s.sorted[key] {
		s.mu.RUnlock()
		return
	}
	s.mu.RUnlock()

	s.mu.Lock()
	if !s.sorted[key] {
		sortValueIndex(s.byKey[key])
		s.sorted[key] = true
	}
	s.mu.Unlock()
}

// exactRange narrows entries (sorted by value) to the contiguous run equal
// to val via binary search, instead of a full linear scan.
func exactRange(entries []valueEntry, val string) []valueEntry {
	lo := sort.Search(len(entries), func(i int) bool { return entries[i].value >= val })
	hi := sort.Search(len(entries), func(i int) bool { return entries[i].value > val })
	return entries[lo:hi]
}

// prefixRange narrows entries (sorted by value) to the contiguous run
// starting with prefix via binary search. An empty prefix (no literal
// prefix could be extracted from the regex) returns entries unchanged.
func prefixRange(entries []valueEntry, prefix string) []valueEntry {
	if prefix == "" {
		return entries
	}
	lo := sort.Search(len(entries), func(i int) bool { return entries[i].value >= prefix })
	hi := len(entries)
	if upper, ok := incrementLastByte(prefix); ok {
		hi = sort.Search(len(entries), func(i int) bool { return entries[i].value >= upper })
	}
	return entries[lo:hi]
}

// incrementLastByte returns the lexicographically smallest string greater
// than every string with the given prefix, i.e. prefix with its last
// non-0xff byte incremented and everything after it dropped. ok is false
// when prefix is all 0xff bytes (or empty), meaning there is no finite
// upper bound to search for.
func incrementLastByte(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

// literalPrefix extracts the literal prefix every match of pattern must
// start with, for narrowing a regex probe to a contiguous slice of the
// value index before running the regexp engine over it. Returns "" if
// pattern has no useful literal prefix (e.g. it starts with ".*" or a
// character class), in which case prefixRange is a no-op.
func literalPrefix(pattern string) string {
	parsed, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return ""
	}
	prog, err := syntax.Compile(parsed.Simplify())
	if err != nil {
		return ""
	}
	prefix, _ := prog.Prefix()
	return prefix
}

// GetAll returns every annotation on node, in insertion order.
func (s *Store) GetAll(node ids.NodeID) []ids.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ids.Annotation, len(s.byNode[node]))
	copy(out, s.byNode[node])
	return out
}

// keysForName resolves the AnnoKeys to search given an optional namespace.
// Caller holds s.mu.
func (s *Store) keysForName(ns *ids.StringID, name ids.StringID) []ids.AnnoKey {
	if ns != nil {
		return []ids.AnnoKey{{Ns: *ns, Name: name}}
	}
	return s.byNameAcrossNS[name]
}

// keysForNameSnapshot is keysForName taken under its own read lock, for
// callers (ExactAnnoSearch, RegexAnnoSearch) that need the key list before
// separately locking per key via ensureKeySorted.
func (s *Store) keysForNameSnapshot(ns *ids.StringID, name ids.StringID) []ids.AnnoKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.keysForName(ns, name)
	out := make([]ids.AnnoKey, len(keys))
	copy(out, keys)
	return out
}

// NumberOfAnnotationsByName returns how many (node, annotation) pairs carry
// the given (ns, name) key; the planner's primary selectivity input.
func (s *Store) NumberOfAnnotationsByName(ns *ids.StringID, name ids.StringID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, key := range s.keysForName(ns, name) {
		total += len(s.byKey[key])
	}
	return total
}

// ExactAnnoSearch returns every Match whose (ns?, name) key has the given
// value (or any value, if val is nil). If ns is omitted it matches across
// namespaces, possibly emitting several matches for a single node. When val
// is given, each key's value index is kept sorted and binary-searched down
// to the contiguous equal-value run instead of scanned linearly.
func (s *Store) ExactAnnoSearch(ns *ids.StringID, name ids.StringID, val *ids.StringID) []Match {
	var valStr string
	if val != nil {
		valStr = s.strings.MustStr(*val)
	}

	var out []Match
	for _, key := range s.keysForNameSnapshot(ns, name) {
		if val != nil {
			s.ensureKeySorted(key)
		}

		s.mu.RLock()
		entries := s.byKey[key]
		if val != nil {
			entries = exactRange(entries, valStr)
		}
		for _, e := range entries {
			if val != nil && e.valID != *val {
				continue
			}
			out = append(out, Match{Node: e.node, MatchedKey: key, MatchedValue: e.valID})
		}
		s.mu.RUnlock()
	}
	return out
}

// RegexAnnoSearch returns every Match whose (ns?, name) key's value matches
// pattern as a regular expression. Narrows each key's value index to the
// run sharing pattern's literal prefix (if any) before running the regexp
// engine over it, instead of scanning every value unconditionally.
func (s *Store) RegexAnnoSearch(ns *ids.StringID, name ids.StringID, pattern string) ([]Match, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("annostore: invalid regex %q: %w", pattern, err)
	}
	prefix := literalPrefix(pattern)

	var out []Match
	for _, key := range s.keysForNameSnapshot(ns, name) {
		s.ensureKeySorted(key)

		s.mu.RLock()
		entries := prefixRange(s.byKey[key], prefix)
		for _, e := range entries {
			if re.MatchString(e.value) {
				out = append(out, Match{Node: e.node, MatchedKey: key, MatchedValue: e.valID})
			}
		}
		s.mu.RUnlock()
	}
	return out, nil
}

// GuessMaxCount estimates an upper bound on the number of matches for an
// exact-value search, used by the planner for cost ordering. It is exact
// here (the store is small enough to count directly) but kept as a
// separate entry point so a future larger backing store can approximate
// instead.
func (s *Store) GuessMaxCount(ns *ids.StringID, name ids.StringID, val *ids.StringID) int {
	return len(s.ExactAnnoSearch(ns, name, val))
}

// GuessMaxCountRegex estimates an upper bound for a regex search.
func (s *Store) GuessMaxCountRegex(ns *ids.StringID, name ids.StringID, pattern string) int {
	matches, err := s.RegexAnnoSearch(ns, name, pattern)
	if err != nil {
		return 0
	}
	return len(matches)
}

