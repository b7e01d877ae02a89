// Package loci implements the starting-loci selector of spec §4.F: the
// minimal set of graph positions from which a length-k walk escapes coverage
// of the chosen path set.
//
// Enumeration walks each node's in-graph neighbourhood with gwalk.Backtracker
// (bounded to k node-steps, which over-approximates a k-character bound
// since spec §3 guarantees every node has >= 1 character, then truncates the
// accumulated string to exactly k characters before the coverage check) and
// tests coverage against the path index's character-level substring search
// rather than pathset.CoveredBy's node-id containment check, since a
// starting locus can begin at an arbitrary in-node offset that node-id
// containment alone can't express.
package loci

import (
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/gwalk"
	"github.com/grailbio/panseed/pathindex"
)

// Locus is a starting locus: a graph position from which some length-k walk
// is not covered by the selected path set.
type Locus struct {
	Node   graph.ID
	Offset int
}

type locusEntry struct{ Locus }

func (e *locusEntry) Compare(b llrb.Comparable) int {
	o := b.(*locusEntry)
	if e.Node != o.Node {
		if e.Node < o.Node {
			return -1
		}
		return 1
	}
	switch {
	case e.Offset < o.Offset:
		return -1
	case e.Offset > o.Offset:
		return 1
	default:
		return 0
	}
}

// Selector enumerates starting loci for a fixed k against an (optional)
// path index. A nil index means the path set is empty (spec §4.F's
// fallback).
type Selector struct {
	g    graph.Graph
	pidx *pathindex.Index
	k    int
}

// New builds a Selector. pidx may be nil, meaning no paths were selected.
func New(g graph.Graph, pidx *pathindex.Index, k int) *Selector {
	return &Selector{g: g, pidx: pidx, k: k}
}

// Enumerate returns every starting locus sorted by node id, then offset (the
// same as node-rank order only where ids increase with rank), keeping only
// every step-th locus per node (step <= 1 means keep all).
func (s *Selector) Enumerate(step int) []Locus {
	if step < 1 {
		step = 1
	}
	tree := &llrb.Tree{}
	if s.pidx == nil {
		s.g.ForEachNode(1, func(id graph.ID) bool {
			seq := s.g.NodeSequence(id)
			for o := 0; o < len(seq); o += step {
				tree.Insert(&locusEntry{Locus{Node: id, Offset: o}})
			}
			return true
		})
	} else {
		s.g.ForEachNode(1, func(id graph.ID) bool {
			seq := s.g.NodeSequence(id)
			kept := 0
			for o := 0; o < len(seq); o++ {
				if !s.hasUncoveredKWalk(id, o) {
					continue
				}
				if kept%step == 0 {
					tree.Insert(&locusEntry{Locus{Node: id, Offset: o}})
				}
				kept++
			}
			return true
		})
	}
	out := make([]Locus, 0, tree.Len())
	tree.Do(func(c llrb.Comparable) bool {
		out = append(out, c.(*locusEntry).Locus)
		return false
	})
	return out
}

// hasUncoveredKWalk reports whether some length-k walk starting at (v,o)
// is not a substring of any selected path.
func (s *Selector) hasUncoveredKWalk(v graph.ID, o int) bool {
	bt := gwalk.NewBacktracker(s.g, s.k)
	bt.Reset(v, 0)
	for {
		if str, ok := s.walkString(bt.Tail(), o); ok {
			if len(s.pidx.Locate(str)) == 0 {
				return true
			}
			if !bt.Rewind() {
				break
			}
			continue
		}
		if !bt.Advance() {
			break
		}
	}
	return false
}

// walkString concatenates node sequences along tail (tail[0] read starting
// at offset o, subsequent nodes read in full) and returns the first k
// characters once enough have accumulated.
func (s *Selector) walkString(tail []graph.ID, o int) (string, bool) {
	var sb strings.Builder
	for i, id := range tail {
		seq := s.g.NodeSequence(id)
		if i == 0 {
			if o >= len(seq) {
				return "", false
			}
			seq = seq[o:]
		}
		sb.WriteString(seq)
		if sb.Len() >= s.k {
			return sb.String()[:s.k], true
		}
	}
	return "", false
}
