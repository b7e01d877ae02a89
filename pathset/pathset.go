// Package pathset implements the path set and path coverage of spec §4.D: an
// ordered collection of graph paths sharing one graph, with an inverted
// index from node id to the (path, position) occurrences used to answer
// membership and coverage queries.
//
// The inverted index is kept in an llrb tree keyed by node id, so an
// in-order traversal visits nodes in ascending id order, the same trick
// encoding/bampair/shard_info.go uses for its shard index.
package pathset

import (
	"sort"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/panseed/graph"
)

// Path is an ordered walk through the graph, as in graph.Path. The set keeps
// no per-path content hash.
type Path = graph.Path

// occurrence is one (path index, position-within-path) pair.
type occurrence struct {
	pathIdx int
	pos     int
}

// nodeEntry is an llrb.Comparable keyed by node id, carrying all occurrences
// of that node across every path in the set.
type nodeEntry struct {
	id    graph.ID
	occs  []occurrence
}

func (e *nodeEntry) Compare(b llrb.Comparable) int {
	o := b.(*nodeEntry)
	switch {
	case e.id < o.id:
		return -1
	case e.id > o.id:
		return 1
	default:
		return 0
	}
}

// Set is an ordered collection of paths plus the inverted index used by
// CoveredBy/PathCoverage. Mutation (Add) clears the "initialized"
// bit; call Build before querying.
type Set struct {
	g           graph.Graph
	paths       []Path
	prefixes    [][]int // prefixes[i][j] = char offset of paths[i].Nodes[j]
	index       *llrb.Tree
	initialized bool
}

// New creates an empty path set over g.
func New(g graph.Graph) *Set {
	return &Set{g: g, index: &llrb.Tree{}}
}

// Add appends a path to the set and invalidates the index.
func (s *Set) Add(p Path) {
	s.paths = append(s.paths, p)
	s.initialized = false
}

// Len returns the number of paths in the set.
func (s *Set) Len() int { return len(s.paths) }

// Path returns the i-th path.
func (s *Set) Path(i int) Path { return s.paths[i] }

// Build (re)constructs the inverted index over the current paths. Queries
// before the first Build on an empty set are well-defined (everything is
// uncovered); queries after Add without a following Build panic, matching
// the "mutation invalidates the index" invariant of spec §3.
func (s *Set) Build() {
	s.index = &llrb.Tree{}
	s.prefixes = make([][]int, len(s.paths))
	for pi, p := range s.paths {
		prefix := make([]int, len(p.Nodes))
		off := 0
		for pos, id := range p.Nodes {
			s.insert(id, pi, pos)
			prefix[pos] = off
			off += s.g.NodeLength(id)
		}
		s.prefixes[pi] = prefix
	}
	s.initialized = true
}

// Select returns the (node id, within-node offset) for character offset off
// into path pathIdx's concatenated sequence: spec §3's "Path.select(i)", an
// O(log) rank/select over the node-length prefix sums built in Build.
func (s *Set) Select(pathIdx, off int) (graph.ID, int) {
	s.requireBuilt()
	prefix := s.prefixes[pathIdx]
	i := sort.Search(len(prefix), func(i int) bool { return prefix[i] > off }) - 1
	if i < 0 {
		panic("pathset: Select offset out of range")
	}
	return s.paths[pathIdx].Nodes[i], off - prefix[i]
}

func (s *Set) insert(id graph.ID, pathIdx, pos int) {
	key := &nodeEntry{id: id}
	if v := s.index.Get(key); v != nil {
		e := v.(*nodeEntry)
		e.occs = append(e.occs, occurrence{pathIdx: pathIdx, pos: pos})
		return
	}
	key.occs = []occurrence{{pathIdx: pathIdx, pos: pos}}
	s.index.Insert(key)
}

func (s *Set) occurrencesOf(id graph.ID) []occurrence {
	v := s.index.Get(&nodeEntry{id: id})
	if v == nil {
		return nil
	}
	return v.(*nodeEntry).occs
}

// requireBuilt panics if the set has been mutated since the last Build, the
// same discipline the teacher applies to its own lazily-rebuilt indexes
// (e.g. fusion/gene_db.go's shard registration must finish before lookups).
func (s *Set) requireBuilt() {
	if !s.initialized && len(s.paths) > 0 {
		panic("pathset: query against an uninitialized (mutated) Set; call Build first")
	}
}

// PathCoverage returns the number of paths containing node id.
func (s *Set) PathCoverage(id graph.ID) int {
	s.requireBuilt()
	occs := s.occurrencesOf(id)
	seen := map[int]bool{}
	for _, o := range occs {
		seen[o.pathIdx] = true
	}
	return len(seen)
}

// TailCoverage returns the number of paths containing the node sequence tail
// as a contiguous subsequence (spec §4.D's "path_coverage(tail)").
func (s *Set) TailCoverage(tail []graph.ID) int {
	s.requireBuilt()
	if len(tail) == 0 {
		return 0
	}
	count := 0
	for _, o := range s.occurrencesOf(tail[0]) {
		p := s.paths[o.pathIdx]
		if o.pos+len(tail) > len(p.Nodes) {
			continue
		}
		match := true
		for i, id := range tail {
			if p.Nodes[o.pos+i] != id {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}

// CoveredBy reports whether path occurs as a contiguous subsequence of some
// member path: look up the first node, then compare the following node ids
// of both paths in parallel for each occurrence (spec §4.D).
func (s *Set) CoveredBy(path []graph.ID) bool {
	s.requireBuilt()
	if len(path) == 0 {
		return true
	}
	for _, o := range s.occurrencesOf(path[0]) {
		p := s.paths[o.pathIdx]
		if o.pos+len(path) > len(p.Nodes) {
			continue
		}
		match := true
		for i, id := range path {
			if p.Nodes[o.pos+i] != id {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
