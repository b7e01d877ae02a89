// Package crs implements the Range-CRS sparse boolean matrix (spec §3, §4.A):
// a row-major sparse matrix whose rows are sorted, non-touching half-open
// column ranges rather than individual column entries. It is the storage
// format and algebra (SpGEMM, SpAdd, matrix power) that the distance index
// (package distidx) is built from.
//
// The representation is modeled on interval/endpoint_index.go's sorted-range
// union-scan approach, generalized from a single interval set to one per row.
package crs

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/panseed/perr"
)

// Range is a half-open column interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Row is a sorted, non-overlapping, non-touching list of column ranges.
type Row []Range

// RowProvider yields (row index, ranges) chunks for Build. Chunks for the
// same row index may be delivered more than once (e.g. per-region diagonal
// blocks); Build merges them via the same coalescing rule as SpAdd.
type RowProvider interface {
	// Next returns the next chunk, or ok == false when exhausted.
	Next() (row int, ranges []Range, ok bool)
}

// SliceProvider adapts a []Row (one row per provider entry, in row order)
// into a RowProvider, for tests and small graphs.
type SliceProvider struct {
	Rows []Row
	pos  int
}

func (p *SliceProvider) Next() (int, []Range, bool) {
	for p.pos < len(p.Rows) {
		i := p.pos
		p.pos++
		if len(p.Rows[i]) == 0 {
			continue
		}
		return i, p.Rows[i], true
	}
	return 0, nil, false
}

// Matrix is a Range-CRS sparse boolean matrix. The zero value is not usable;
// construct with Build.
type Matrix struct {
	nRows, nCols int
	rows         []Row
}

// NRows and NCols return the matrix dimensions.
func (m *Matrix) NRows() int { return m.nRows }
func (m *Matrix) NCols() int { return m.nCols }

// Build assembles a Matrix from provider chunks. Multiple chunks touching the
// same row are merged with the SpAdd coalescing rule, so a provider is free
// to emit a row's ranges across several calls (e.g. one call per
// weakly-connected region).
func Build(nRows, nCols int, provider RowProvider) (*Matrix, error) {
	if nRows < 0 || nCols < 0 {
		return nil, perr.Wrap(perr.ErrInvalidArgument, "crs.Build: negative dimension")
	}
	m := &Matrix{nRows: nRows, nCols: nCols, rows: make([]Row, nRows)}
	for {
		i, ranges, ok := provider.Next()
		if !ok {
			break
		}
		if i < 0 || i >= nRows {
			return nil, perr.Wrapf(perr.ErrInvalidArgument, "crs.Build: row %d out of range [0,%d)", i, nRows)
		}
		for _, r := range ranges {
			if r.Lo < 0 || r.Hi > nCols || r.Lo >= r.Hi {
				return nil, perr.Wrapf(perr.ErrInvalidArgument, "crs.Build: malformed range [%d,%d) for row %d", r.Lo, r.Hi, i)
			}
		}
		m.rows[i] = mergeCoalesce(m.rows[i], ranges)
	}
	for i, row := range m.rows {
		if !rowInvariant(row, nCols) {
			log.Panicf("crs.Build: row %d violates invariants after merge: %v", i, row)
		}
	}
	return m, nil
}

// rowInvariant checks the §3/§8.1 row invariants.
func rowInvariant(row Row, nCols int) bool {
	for i, r := range row {
		if r.Lo >= r.Hi || r.Hi > nCols {
			return false
		}
		if i > 0 && row[i-1].Hi >= r.Lo {
			return false
		}
	}
	return true
}

// mergeCoalesce merges two already-sorted, coalesced range slices into one,
// coalescing overlapping and touching ranges (the shared rule behind SpAdd,
// SpGEMM's per-row union, and Build's multi-chunk assembly).
func mergeCoalesce(a, b []Range) Row {
	if len(a) == 0 {
		return append(Row(nil), sortCoalesce(b)...)
	}
	if len(b) == 0 {
		return append(Row(nil), sortCoalesce(a)...)
	}
	all := make([]Range, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return sortCoalesce(all)
}

// sortCoalesce sorts ranges by Lo and coalesces overlapping/touching runs:
// {[0,3),[3,7)} -> {[0,7)}; {[0,2),[5,7)} U {[1,6)} -> {[0,7)}.
func sortCoalesce(ranges []Range) Row {
	if len(ranges) == 0 {
		return nil
	}
	cp := append([]Range(nil), ranges...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Lo < cp[j].Lo })
	out := make(Row, 0, len(cp))
	cur := cp[0]
	for _, r := range cp[1:] {
		if r.Lo <= cur.Hi { // overlap or touch
			if r.Hi > cur.Hi {
				cur.Hi = r.Hi
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

// NNZ returns the number of set (row, col) entries: sum of (hi-lo) over all
// ranges.
func (m *Matrix) NNZ() int64 {
	var n int64
	for _, row := range m.rows {
		for _, r := range row {
			n += int64(r.Hi - r.Lo)
		}
	}
	return n
}

// Storage returns the 2*(#ranges) storage-cost metric of spec §4.A.
func (m *Matrix) Storage() int64 {
	var n int64
	for _, row := range m.rows {
		n += int64(2 * len(row))
	}
	return n
}

// RowIter returns the ranges of row i, in sorted order. The returned slice
// must not be mutated by the caller.
func (m *Matrix) RowIter(i int) Row {
	return m.rows[i]
}

// Has reports whether column col is set in row.
func (m *Matrix) Has(row, col int) bool {
	r := m.rows[row]
	idx := sort.Search(len(r), func(i int) bool { return r[i].Hi > col })
	return idx < len(r) && r[idx].Lo <= col
}

// Mul computes the SpGEMM product m x other: output row i is the union over
// (i,k) in m of the ranges of row k in other (spec §4.A).
func (m *Matrix) Mul(other *Matrix) (*Matrix, error) {
	if m.nCols != other.nRows {
		return nil, perr.Wrapf(perr.ErrInvalidArgument, "crs.Mul: dimension mismatch %dx%d * %dx%d", m.nRows, m.nCols, other.nRows, other.nCols)
	}
	out := &Matrix{nRows: m.nRows, nCols: other.nCols, rows: make([]Row, m.nRows)}
	for i := 0; i < m.nRows; i++ {
		var acc Row
		for _, r := range m.rows[i] {
			for k := r.Lo; k < r.Hi; k++ {
				acc = mergeCoalesce(acc, other.rows[k])
			}
		}
		out.rows[i] = acc
	}
	return out, nil
}

// Add computes the SpAdd sum m + other: per-row merge with the same
// coalescing rule as Mul's union (spec §4.A).
func (m *Matrix) Add(other *Matrix) (*Matrix, error) {
	if m.nRows != other.nRows || m.nCols != other.nCols {
		return nil, perr.Wrap(perr.ErrInvalidArgument, "crs.Add: dimension mismatch")
	}
	out := &Matrix{nRows: m.nRows, nCols: m.nCols, rows: make([]Row, m.nRows)}
	for i := range out.rows {
		out.rows[i] = mergeCoalesce(m.rows[i], other.rows[i])
	}
	return out, nil
}

// Identity returns the n x n identity matrix in Range-CRS form.
func Identity(n int) *Matrix {
	m := &Matrix{nRows: n, nCols: n, rows: make([]Row, n)}
	for i := 0; i < n; i++ {
		m.rows[i] = Row{{Lo: i, Hi: i + 1}}
	}
	return m
}

// Power computes A^d by exponentiation by squaring (spec §4.A). It is only
// meaningful when A = I + adjacency, so that A^d holds reachability for
// walks of length <= d; Power itself is dimension-agnostic and doesn't
// enforce that precondition.
func Power(a *Matrix, d int) (*Matrix, error) {
	if d < 0 {
		return nil, perr.Wrap(perr.ErrInvalidArgument, "crs.Power: negative exponent")
	}
	if a.nRows != a.nCols {
		return nil, perr.Wrap(perr.ErrInvalidArgument, "crs.Power: non-square matrix")
	}
	if d == 0 {
		return Identity(a.nRows), nil
	}
	result := Identity(a.nRows)
	base := a
	for d > 0 {
		if d&1 == 1 {
			var err error
			result, err = result.Mul(base)
			if err != nil {
				return nil, err
			}
		}
		d >>= 1
		if d > 0 {
			var err error
			base, err = base.Mul(base)
			if err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// Sub computes the per-row boolean difference m &^ other: every column set
// in m's row but not in other's row. Used by distidx to compute
// (A+I)^dmax - (A+I)^(dmin-1) (spec §4.G); unlike Add/Mul it is not
// commutative and isn't one of spec §4.A's named kernels, but it reuses the
// same sorted-range representation and merge discipline.
func (m *Matrix) Sub(other *Matrix) (*Matrix, error) {
	if m.nRows != other.nRows || m.nCols != other.nCols {
		return nil, perr.Wrap(perr.ErrInvalidArgument, "crs.Sub: dimension mismatch")
	}
	out := &Matrix{nRows: m.nRows, nCols: m.nCols, rows: make([]Row, m.nRows)}
	for i := range out.rows {
		out.rows[i] = subtractRow(m.rows[i], other.rows[i])
	}
	return out, nil
}

// subtractRow removes every column covered by b from a, preserving sorted,
// non-touching order.
func subtractRow(a, b Row) Row {
	if len(b) == 0 {
		return append(Row(nil), a...)
	}
	var out Row
	bi := 0
	for _, r := range a {
		lo := r.Lo
		for bi < len(b) && b[bi].Hi <= lo {
			bi++
		}
		j := bi
		for j < len(b) && b[j].Lo < r.Hi {
			if b[j].Lo > lo {
				out = append(out, Range{Lo: lo, Hi: b[j].Lo})
			}
			if b[j].Hi > lo {
				lo = b[j].Hi
			}
			j++
		}
		if lo < r.Hi {
			out = append(out, Range{Lo: lo, Hi: r.Hi})
		}
	}
	return out
}

// Serialize writes m in the §6 distance-matrix layout: a (n_rows, n_cols,
// n_ranges_total) header, one range count per row, then the flat sequence of
// (lo, hi) pairs row by row. persist.SaveDistanceMatrix wraps this with the
// checksummed, compressed sibling-file framing.
func (m *Matrix) Serialize(w io.Writer) error {
	total := m.NNZRanges()
	header := [3]int64{int64(m.nRows), int64(m.nCols), total}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return perr.Wrap(err, "crs.Serialize: header")
	}
	for _, row := range m.rows {
		if err := binary.Write(w, binary.LittleEndian, int32(len(row))); err != nil {
			return perr.Wrap(err, "crs.Serialize: row count")
		}
	}
	for _, row := range m.rows {
		for _, r := range row {
			pair := [2]int64{int64(r.Lo), int64(r.Hi)}
			if err := binary.Write(w, binary.LittleEndian, pair); err != nil {
				return perr.Wrap(err, "crs.Serialize: range")
			}
		}
	}
	return nil
}

// NNZRanges returns the total number of ranges across all rows (as opposed
// to NNZ, which counts individual set columns).
func (m *Matrix) NNZRanges() int64 {
	var n int64
	for _, row := range m.rows {
		n += int64(len(row))
	}
	return n
}

// Load reads back a Matrix written by Serialize.
func Load(r io.Reader) (*Matrix, error) {
	var header [3]int64
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, perr.Wrap(err, "crs.Load: header")
	}
	nRows, nCols, total := int(header[0]), int(header[1]), header[2]
	if nRows < 0 || nCols < 0 || total < 0 {
		return nil, perr.Wrap(perr.ErrIndexCorruption, "crs.Load: negative header field")
	}
	counts := make([]int32, nRows)
	if nRows > 0 {
		if err := binary.Read(r, binary.LittleEndian, counts); err != nil {
			return nil, perr.Wrap(err, "crs.Load: row counts")
		}
	}
	m := &Matrix{nRows: nRows, nCols: nCols, rows: make([]Row, nRows)}
	var seen int64
	for i, c := range counts {
		if c == 0 {
			continue
		}
		row := make(Row, c)
		for j := range row {
			var pair [2]int64
			if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
				return nil, perr.Wrap(err, "crs.Load: range")
			}
			row[j] = Range{Lo: int(pair[0]), Hi: int(pair[1])}
		}
		m.rows[i] = row
		seen += int64(c)
	}
	if seen != total {
		return nil, perr.Wrapf(perr.ErrIndexCorruption, "crs.Load: range count mismatch: header says %d, read %d", total, seen)
	}
	return m, nil
}

// CompressIntraNode removes, from every row whose index falls inside
// [cloc, nloc), the columns in [cloc, nloc); ranges that cross either
// boundary are trimmed to the part outside it (spec §4.A's compression
// step, applied after distance-matrix construction: self-reachability
// within a node is instead answered on the fly from offsets by
// distidx.Verify).
func (m *Matrix) CompressIntraNode(cloc, nloc int) {
	for i := cloc; i < nloc && i < m.nRows; i++ {
		m.rows[i] = subtractRow(m.rows[i], Row{{Lo: cloc, Hi: nloc}})
	}
}
