// Package suffixidx is the shared suffix-array backend behind
// pathindex (component E) and readindex (the §6 external read-index
// contract's in-repo implementation). Spec §1 lists the FM-index/suffix-tree
// library as an assumed-present external collaborator; no such package
// exists anywhere in the retrieved corpus, so this backs that seam with the
// standard library's index/suffixarray for whole-pattern lookups, plus a
// hand-built sorted suffix table that supports the character-by-character
// cursor descent (go_down(ch)/go_up) the dual seed driver's joint tree walk
// needs (spec §4.I) -- a capability index/suffixarray's opaque Index type
// does not expose. The cursor only extends a pattern at its right end; it
// has no backward (prepend-a-character) step.
package suffixidx

import (
	"index/suffixarray"
	"sort"

	"github.com/grailbio/panseed/perr"
)

// Index is a suffix index over a single concatenated text. Construct with
// Build; it is immutable and safe for concurrent read-only use (spec §5).
type Index struct {
	text []byte
	sa   []int32           // sa[i] = starting offset of the i-th suffix in sorted order
	std  *suffixarray.Index // stdlib index, used for whole-pattern Lookup/Count
}

// Build constructs an Index over text. text should already include any
// separator tokens between logical segments (paths, reads); Build itself is
// segment-agnostic.
func Build(text []byte) *Index {
	n := len(text)
	sa := make([]int32, n)
	for i := range sa {
		sa[i] = int32(i)
	}
	sort.Slice(sa, func(i, j int) bool {
		return string(text[sa[i]:]) < string(text[sa[j]:])
	})
	return &Index{text: text, sa: sa, std: suffixarray.New(text)}
}

// Len returns the number of suffixes (== len(text)).
func (ix *Index) Len() int { return len(ix.sa) }

// Text returns the indexed text. Callers must not mutate it.
func (ix *Index) Text() []byte { return ix.text }

// suffixByte returns text[sa[i]+depth], or -1 if that suffix is shorter than
// depth+1.
func (ix *Index) suffixByte(i, depth int) int {
	off := int(ix.sa[i]) + depth
	if off >= len(ix.text) {
		return -1
	}
	return int(ix.text[off])
}

// Cursor is a position in the suffix-array range tree: the set of suffixes
// sharing the current pattern as a prefix, represented as the [Lo,Hi) range
// of ix.sa they occupy. ExtendDown/GoUp/GoRoot/GoRight realize the §6
// read-index contract's generalized-suffix-tree cursor operations.
type Cursor struct {
	ix    *Index
	depth int
	lo, hi int
	// history lets GoUp restore the previous (depth, lo, hi); only the
	// immediately preceding frame is needed since traversal is always
	// single-character step in either direction.
	history []frame
}

type frame struct {
	depth, lo, hi int
}

// Root returns a cursor positioned at the empty pattern (matches everything).
func (ix *Index) Root() *Cursor {
	return &Cursor{ix: ix, depth: 0, lo: 0, hi: len(ix.sa)}
}

// IsRoot reports whether the cursor is at the empty pattern.
func (c *Cursor) IsRoot() bool { return c.depth == 0 }

// RepLength returns the length of the pattern represented by the cursor.
func (c *Cursor) RepLength() int { return c.depth }

// CountOccurrences returns the number of suffixes (hence text positions)
// sharing the current pattern as a prefix -- the gocc count of spec §3/§4.I.
func (c *Cursor) CountOccurrences() int { return c.hi - c.lo }

// GetOccurrences returns the starting offsets, in text, of every occurrence
// of the current pattern.
func (c *Cursor) GetOccurrences() []int {
	out := make([]int, c.hi-c.lo)
	for i := c.lo; i < c.hi; i++ {
		out[i-c.lo] = int(c.ix.sa[i])
	}
	return out
}

// ExtendDown narrows the cursor to suffixes whose next character is ch,
// returning false (leaving the cursor unchanged) if no such suffix exists.
func (c *Cursor) ExtendDown(ch byte) bool {
	lo := lowerBound(c.ix, c.lo, c.hi, c.depth, int(ch))
	hi := lowerBound(c.ix, c.lo, c.hi, c.depth, int(ch)+1)
	if lo >= hi {
		return false
	}
	c.history = append(c.history, frame{depth: c.depth, lo: c.lo, hi: c.hi})
	c.depth, c.lo, c.hi = c.depth+1, lo, hi
	return true
}

// ParentEdgeLabel returns the character that ExtendDown most recently
// consumed to reach this cursor position.
func (c *Cursor) ParentEdgeLabel() byte {
	if c.depth == 0 {
		panic("suffixidx: ParentEdgeLabel called at root")
	}
	return c.ix.text[int(c.ix.sa[c.lo])+c.depth-1]
}

// GoUp undoes the most recent ExtendDown. It panics at the root, matching
// the §6 contract's implicit precondition (callers track IsRoot themselves).
func (c *Cursor) GoUp() {
	if len(c.history) == 0 {
		panic("suffixidx: GoUp called at root")
	}
	f := c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
	c.depth, c.lo, c.hi = f.depth, f.lo, f.hi
}

// GoRoot resets the cursor to the empty pattern.
func (c *Cursor) GoRoot() {
	c.depth, c.lo, c.hi, c.history = 0, 0, len(c.ix.sa), nil
}

// Clone returns an independent copy of the cursor, positioned identically.
// Used (through readindex) by traverser when one state branches into several
// sibling states, each of which then descends its own copy.
func (c *Cursor) Clone() *Cursor {
	cp := *c
	cp.history = append([]frame(nil), c.history...)
	return &cp
}

// GoRight moves to the next sibling edge at the same depth as the current
// cursor (the lexicographically next character extending the parent),
// returning false if the current position was the last child. It realizes
// the §6 contract's go_right; the dual seed driver in this module steps
// through the bases with ExtendDown/GoUp instead and does not call it.
func (c *Cursor) GoRight() bool {
	if len(c.history) == 0 {
		return false
	}
	parent := c.history[len(c.history)-1]
	ch := c.ParentEdgeLabel()
	for next := int(ch) + 1; next <= 0xFF; next++ {
		lo := lowerBound(c.ix, parent.lo, parent.hi, parent.depth, next)
		hi := lowerBound(c.ix, parent.lo, parent.hi, parent.depth, next+1)
		if lo < hi {
			c.lo, c.hi = lo, hi
			return true
		}
	}
	return false
}

// lowerBound finds the smallest index i in [lo,hi) such that
// ix.suffixByte(i, depth) >= target (treating the sentinel -1 as smaller
// than every real byte value), i.e. a standard sort.Search over the
// already-sorted [lo,hi) range.
func lowerBound(ix *Index, lo, hi, depth, target int) int {
	return lo + sort.Search(hi-lo, func(i int) bool {
		b := ix.suffixByte(lo+i, depth)
		return b >= target
	})
}

// Locate returns every occurrence of pattern, using the stdlib index for the
// whole-pattern case (spec §4.E's locate(pattern)).
func (ix *Index) Locate(pattern []byte) []int {
	return ix.std.Lookup(pattern, -1)
}

// Count returns the number of occurrences of pattern.
func (ix *Index) Count(pattern []byte) int {
	return len(ix.std.Lookup(pattern, -1))
}

// ErrEmptyText is returned by Build callers (pathindex, readindex) that
// reject a zero-length text at construction; Build itself never fails, so
// the check lives at those call sites using perr's taxonomy.
var ErrEmptyText = perr.ErrInvalidArgument
