// Package traverser implements the on-graph seeding state machine of spec
// §4.H: BFS and DFS variants that walk States out from each starting locus,
// matching reads against the graph via a per-chunk readindex.Index.
//
// The state{cursor, mismatches, start, current, depth} shape (a finished
// walk is dropped rather than flagged) and
// its filter/advance/compute round structure are grounded on
// fusion/stitcher.go's Stitcher.Stitch (reset/scan/emit state machine) and
// fusion/kmer.go's kmerizer (per-character cursor-advance scan loop),
// re-expressed against readindex.Cursor and graph.Graph.
package traverser

import (
	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/loci"
	"github.com/grailbio/panseed/readindex"
)

// Hit is one on-graph seed match: a length-k walk starting at (NodeID,
// NodeOffset) equals the read substring at (ReadID, ReadOffset).
type Hit struct {
	NodeID     graph.ID
	NodeOffset int
	ReadID     int64
	ReadOffset int
	MatchLen   int
}

// Traverser drives the state machine for one (graph, k, mismatch budget)
// configuration. It is stateless between runs; a fresh readindex.Index
// (owned by one worker thread, spec §5) is supplied per chunk.
type Traverser struct {
	g          graph.Graph
	k          int
	mismatches int
}

// New builds a Traverser. mismatches is the exact-matching core's budget
// (spec §9's Open Question: 0 or 1 only; panseed.New rejects anything
// larger before it reaches here).
func New(g graph.Graph, k, mismatches int) *Traverser {
	return &Traverser{g: g, k: k, mismatches: mismatches}
}

// state is one active walk. node/offset is the current position; start is
// the locus the walk began from, which is what ends up in the emitted Hit
// (spec §3: a seed hit names where the match starts, not where it
// finishes).
type state struct {
	node       graph.ID
	offset     int
	depth      int
	mismatches int
	cursor     *readindex.Cursor
	start      loci.Locus
}

func (s *state) clone() *state {
	cp := *s
	return &cp
}

var bases = [4]byte{'A', 'C', 'G', 'T'}

// step runs one round's filter/advance/compute phases (spec §4.H) on s,
// invoking emit for every hit it produces. It returns the states that
// replace s in the next round: nil means s is done (either it emitted, or
// it ran out of options and was silently dropped, spec §4.H's Failure
// clause).
func (t *Traverser) step(s *state, rix *readindex.Index, emit func(Hit)) []*state {
	// filter
	if s.depth == t.k {
		for _, p := range s.cursor.GetOccurrences() {
			emit(Hit{
				NodeID:     s.start.Node,
				NodeOffset: s.start.Offset,
				ReadID:     p.ReadID,
				ReadOffset: p.Offset,
				MatchLen:   t.k,
			})
		}
		return nil
	}

	// advance: current node exhausted, branch over out-edges.
	if s.offset >= t.g.NodeLength(s.node) {
		var outs []graph.ID
		t.g.ForEachEdgesOut(s.node, func(e graph.Edge) bool {
			outs = append(outs, e.To)
			return true
		})
		if len(outs) == 0 {
			return nil // dead: insufficient depth, no out-edges
		}
		children := make([]*state, len(outs))
		for i, to := range outs {
			child := s.clone()
			child.node, child.offset = to, 0
			if i > 0 {
				child.cursor = s.cursor.Clone() // each branch descends its own cursor
			}
			children[i] = child
		}
		return children
	}

	// compute: consume one character of the current node's label.
	ch := t.g.NodeSequence(s.node)[s.offset]
	if ch == 'N' {
		return nil // N always fails a match
	}
	if s.cursor.GoDownChar(ch) {
		s.offset++
		s.depth++
		return []*state{s}
	}
	if s.mismatches <= 0 {
		return nil // budget exhausted, drop
	}
	// Branch over every alternative base: each surviving extension spawns a
	// sibling state with the mismatch budget decremented (spec §9's
	// approximate-matching cue, bounded to the accepted budget of 1 so this
	// never explores more than 3 siblings per mismatch).
	var children []*state
	for _, alt := range bases {
		if alt == ch {
			continue
		}
		c2 := s.cursor.Clone()
		if c2.GoDownChar(alt) {
			child := s.clone()
			child.cursor = c2
			child.offset++
			child.depth++
			child.mismatches--
			children = append(children, child)
		}
	}
	return children
}

func (t *Traverser) seedStates(locs []loci.Locus, rix *readindex.Index) []*state {
	out := make([]*state, len(locs))
	for i, l := range locs {
		out[i] = &state{node: l.Node, offset: l.Offset, mismatches: t.mismatches, cursor: rix.Root(), start: l}
	}
	return out
}

// RunBFS drives the BFS variant: every active state advances one step per
// round, in lockstep, terminating once none do.
func (t *Traverser) RunBFS(starts []loci.Locus, rix *readindex.Index, emit func(Hit)) {
	active := t.seedStates(starts, rix)
	for len(active) > 0 {
		var next []*state
		for _, s := range active {
			next = append(next, t.step(s, rix, emit)...)
		}
		active = next
	}
}

// RunDFS drives the DFS variant: a stack processes one state's full
// sequence of rounds (filter/advance/compute) before any of its siblings,
// since every step() result is pushed immediately above everything else.
func (t *Traverser) RunDFS(starts []loci.Locus, rix *readindex.Index, emit func(Hit)) {
	stack := t.seedStates(starts, rix)
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		children := t.step(s, rix, emit)
		stack = append(stack, children...)
	}
}
