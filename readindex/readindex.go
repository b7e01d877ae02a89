// Package readindex implements the §6 read-index contract: a generalized
// suffix-tree cursor over a chunk of reads, built fresh per chunk and owned
// by exactly one worker thread (spec §5: "Read-index and traverser: one per
// thread (not shared)").
package readindex

import (
	"bytes"

	"github.com/grailbio/panseed/perr"
	"github.com/grailbio/panseed/suffixidx"
)

const separator = '#'

// Read is one input read: an id and its sequence.
type Read struct {
	ID  int64
	Seq string
}

// Index is a suffix index over a concatenated, separator-joined chunk of
// reads, with an offset table translating text positions back to
// (read_id, read_offset) pairs.
type Index struct {
	reads   []Read
	offsets []int // offsets[i] = start of reads[i] in sidx.Text()
	sidx    *suffixidx.Index
}

// Build constructs a read index over one chunk's reads.
func Build(reads []Read) (*Index, error) {
	if len(reads) == 0 {
		return nil, perr.Wrap(perr.ErrInvalidArgument, "readindex.Build: empty chunk")
	}
	var buf bytes.Buffer
	offsets := make([]int, len(reads))
	for i, r := range reads {
		offsets[i] = buf.Len()
		buf.WriteString(r.Seq)
		buf.WriteByte(separator)
	}
	return &Index{reads: append([]Read(nil), reads...), offsets: offsets, sidx: suffixidx.Build(buf.Bytes())}, nil
}

// Position is a (read id, offset-within-read) pair.
type Position struct {
	ReadID int64
	Offset int
}

func (ix *Index) positionOf(textOff int) (Position, bool) {
	for i := len(ix.offsets) - 1; i >= 0; i-- {
		if textOff >= ix.offsets[i] {
			local := textOff - ix.offsets[i]
			if local >= len(ix.reads[i].Seq) {
				return Position{}, false // landed on the separator byte
			}
			return Position{ReadID: ix.reads[i].ID, Offset: local}, true
		}
	}
	return Position{}, false
}

// Cursor implements the §6 read-index contract over Index.
type Cursor struct {
	ix *Index
	c  *suffixidx.Cursor
}

// Root returns a cursor at the empty pattern.
func (ix *Index) Root() *Cursor { return &Cursor{ix: ix, c: ix.sidx.Root()} }

func (c *Cursor) GoDownChar(ch byte) bool { return c.c.ExtendDown(ch) }

// Clone returns an independent copy of the cursor, used by traverser when
// one state branches into several (out-edges or mismatch alternatives).
func (c *Cursor) Clone() *Cursor { return &Cursor{ix: c.ix, c: c.c.Clone()} }
func (c *Cursor) GoUp()                  { c.c.GoUp() }
func (c *Cursor) GoRoot()                { c.c.GoRoot() }
func (c *Cursor) GoRight() bool          { return c.c.GoRight() }
func (c *Cursor) IsRoot() bool           { return c.c.IsRoot() }
func (c *Cursor) RepLength() int        { return c.c.RepLength() }
func (c *Cursor) CountOccurrences() int { return c.c.CountOccurrences() }

// ParentEdgeLabel and ParentEdgeLength realize the remaining §6 contract
// methods; with a suffix-array backend every edge is a single character, so
// ParentEdgeLength is always 1 at a non-root cursor.
func (c *Cursor) ParentEdgeLabel() byte {
	if c.c.IsRoot() {
		panic("readindex: ParentEdgeLabel called at root")
	}
	return parentEdgeLabel(c)
}

func parentEdgeLabel(c *Cursor) byte {
	// suffixidx.Cursor already exposes this; re-derive via GetOccurrences
	// would be wasteful, so readindex simply forwards through a small shim.
	return c.c.ParentEdgeLabel()
}

func (c *Cursor) ParentEdgeLength() int {
	if c.c.IsRoot() {
		return 0
	}
	return 1
}

// GetOccurrences returns every (read id, offset) the cursor currently
// represents.
func (c *Cursor) GetOccurrences() []Position {
	out := make([]Position, 0, c.c.CountOccurrences())
	for _, off := range c.c.GetOccurrences() {
		if p, ok := c.ix.positionOf(off); ok {
			out = append(out, p)
		}
	}
	return out
}

// GoDown is unsupported: the §6 contract's zero-argument go_down descends to
// an arbitrary (implementation-chosen) child edge, which a suffix-array
// backend has no stable notion of without a caller-supplied character;
// every call site in this repo uses GoDownChar instead.
func (c *Cursor) GoDown() error {
	return perr.Wrap(perr.ErrNotImplemented, "readindex.Cursor.GoDown (use GoDownChar)")
}
