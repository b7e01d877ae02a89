// Package bitvec implements the hierarchical bitvector of spec §3, §4.B: a
// scratch bitset of logical size n, rotated so a configured center index
// falls inside a small "L1" window sized to fit team-shared fast memory,
// with the remaining bits in slower "L2" storage. It is a write-heavy output
// accumulator for one matrix row: values are never queried, only set and
// later flushed into a crs.Row. distidx builds its rows directly and does
// not use it.
//
// Layout and the set(i)/set(s,f) seam-wrapping rules are grounded on
// circular/bitmap.go's rotated-bitmap-in-scratch design, with the exact
// relative-index/centering arithmetic taken from the original
// HierarchicalBitVector (original_source/include/psi/hierarchical_bitvector.hpp).
package bitvec

import (
	"math/bits"

	"github.com/grailbio/base/log"
	"github.com/grailbio/panseed/crs"
)

const wordBits = 64

// DefaultL1Bits is the default L1 window width in bits. Real team-shared
// scratch is typically a few KB; this is a conservative default sized to a
// handful of cache lines.
const DefaultL1Bits = 2048

func wordsFor(bitsN int) int { return (bitsN + wordBits - 1) / wordBits }

// Arena is a typed scratch allocator for Vector's L1/L2 backing storage,
// kept separate from Vector itself so allocator ownership and vector
// lifetime never mix (spec §9's scratch-memory-discipline cue): a kernel
// acquires an Arena once, hands out Vectors per row, and releases each
// Vector's storage back to the Arena's free pool instead of letting the
// garbage collector reclaim it.
type Arena struct {
	l1Pool [][]uint64
	l2Pool [][]uint64
}

// NewArena returns an empty scratch arena.
func NewArena() *Arena { return &Arena{} }

func (a *Arena) acquire(pool *[][]uint64, words int) []uint64 {
	if n := len(*pool); n > 0 {
		buf := (*pool)[n-1]
		*pool = (*pool)[:n-1]
		if cap(buf) >= words {
			buf = buf[:words]
			for i := range buf {
				buf[i] = 0
			}
			return buf
		}
	}
	return make([]uint64, words)
}

func (a *Arena) release(pool *[][]uint64, buf []uint64) {
	*pool = append(*pool, buf)
}

// Vector is a hierarchical bitvector over logical columns [0, n). Construct
// with New; it is not safe for concurrent use (matches spec §5: matrix
// scratch is per-team within one kernel invocation).
type Vector struct {
	arena    *Arena
	n        int
	l1Begin  int // absolute column where the L1 window starts
	l1Bits   int // width of the L1 window, in bits
	l1       []uint64
	l2       []uint64
}

// New allocates a Vector of logical size n, with its L1 window positioned so
// that center falls inside it (clamped to [0, n)). team_scratch in spec
// terms is the Arena.
func New(n, center int, arena *Arena) *Vector {
	if n <= 0 {
		log.Panicf("bitvec.New: n must be positive, got %d", n)
	}
	l1Bits := DefaultL1Bits
	if l1Bits > n {
		l1Bits = n
	}
	l1Begin := center - l1Bits/2
	if l1Begin < 0 {
		l1Begin = 0
	}
	if l1Begin+l1Bits > n {
		l1Begin = n - l1Bits
	}
	v := &Vector{
		arena:   arena,
		n:       n,
		l1Begin: l1Begin,
		l1Bits:  l1Bits,
		l1:      arena.acquire(&arena.l1Pool, wordsFor(l1Bits)),
		l2:      arena.acquire(&arena.l2Pool, wordsFor(n-l1Bits)),
	}
	return v
}

// Release returns the Vector's scratch storage to its Arena. The Vector must
// not be used afterward.
func (v *Vector) Release() {
	v.arena.release(&v.arena.l1Pool, v.l1)
	v.arena.release(&v.arena.l2Pool, v.l2)
	v.l1, v.l2 = nil, nil
}

// relativeIdx maps an absolute column i to its position relative to the
// rotated L1 window, per original_source's relative_idx(i).
func (v *Vector) relativeIdx(i int) int {
	r := (i - v.l1Begin) % v.n
	if r < 0 {
		r += v.n
	}
	return r
}

func setBit(words []uint64, idx int) {
	words[idx/wordBits] |= uint64(1) << uint(idx%wordBits)
}

// Set marks a single absolute column i.
func (v *Vector) Set(i int) {
	if i < 0 || i >= v.n {
		log.Panicf("bitvec.Set: index %d out of range [0,%d)", i, v.n)
	}
	ridx := v.relativeIdx(i)
	if ridx < v.l1Bits {
		setBit(v.l1, ridx)
	} else {
		setBit(v.l2, ridx-v.l1Bits)
	}
}

// fillRange sets bits [lo, hi) of words, word-aligned.
func fillRange(words []uint64, lo, hi int) {
	if lo >= hi {
		return
	}
	loWord, hiWord := lo/wordBits, (hi-1)/wordBits
	if loWord == hiWord {
		mask := (uint64(1)<<uint(hi-lo) - 1) << uint(lo%wordBits)
		words[loWord] |= mask
		return
	}
	words[loWord] |= ^uint64(0) << uint(lo%wordBits)
	for w := loWord + 1; w < hiWord; w++ {
		words[w] = ^uint64(0)
	}
	rem := (hi-1)%wordBits + 1
	words[hiWord] |= uint64(1)<<uint(rem) - 1
	if rem == wordBits {
		words[hiWord] = ^uint64(0)
	}
}

// setBitsRange sets the contiguous relative-index range [relLo, relHi),
// splitting across the L1/L2 seam when it spans both.
func (v *Vector) setBitsRange(relLo, relHi int) {
	switch {
	case relHi <= v.l1Bits:
		fillRange(v.l1, relLo, relHi)
	case relLo >= v.l1Bits:
		fillRange(v.l2, relLo-v.l1Bits, relHi-v.l1Bits)
	default:
		fillRange(v.l1, relLo, v.l1Bits)
		fillRange(v.l2, 0, relHi-v.l1Bits)
	}
}

// SetRange marks absolute columns [s, f). The interval may wrap across the
// rotation seam (relativeIdx(s)+len(s,f) > n), in which case it is split into
// the two relative sub-ranges that compose it before being routed to L1/L2.
func (v *Vector) SetRange(s, f int) {
	if s < 0 || f > v.n || s >= f {
		log.Panicf("bitvec.SetRange: malformed range [%d,%d) over n=%d", s, f, v.n)
	}
	relLo := v.relativeIdx(s)
	relHi := relLo + (f - s)
	if relHi <= v.n {
		v.setBitsRange(relLo, relHi)
	} else {
		v.setBitsRange(relLo, v.n)
		v.setBitsRange(0, relHi-v.n)
	}
}

// appendRunsAsAbsolute scans words (which cover relative indices
// [relBase, relBase+len(words)*wordBits)) for runs of set bits and appends
// the corresponding absolute-column ranges to out, splitting a run across
// the n-wraparound point when relBase+l1Begin crosses n.
func (v *Vector) appendRunsAsAbsolute(words []uint64, relBase int, out []crs.Range) []crs.Range {
	nBits := len(words) * wordBits
	i := 0
	for i < nBits {
		w := words[i/wordBits]
		if w == 0 {
			i = (i/wordBits + 1) * wordBits
			continue
		}
		// Find next set bit at or after i within this word, then the run's end.
		bitInWord := i % wordBits
		shifted := w >> uint(bitInWord)
		if shifted == 0 {
			i = (i/wordBits + 1) * wordBits
			continue
		}
		start := i + bits.TrailingZeros64(shifted)
		end := start
		for end < nBits {
			ww := words[end/wordBits]
			bit := uint(end % wordBits)
			if ww&(uint64(1)<<bit) == 0 {
				break
			}
			end++
		}
		out = v.emitRelRun(relBase+start, relBase+end, out)
		i = end
	}
	return out
}

// emitRelRun converts one contiguous relative-index run [relLo, relHi) to
// one or two absolute column ranges, splitting it if it straddles the
// logical wraparound at column n.
func (v *Vector) emitRelRun(relLo, relHi int, out []crs.Range) []crs.Range {
	absLo := v.l1Begin + relLo
	absHi := v.l1Begin + relHi
	switch {
	case absHi <= v.n:
		out = append(out, crs.Range{Lo: absLo, Hi: absHi})
	case absLo >= v.n:
		out = append(out, crs.Range{Lo: absLo - v.n, Hi: absHi - v.n})
	default:
		out = append(out, crs.Range{Lo: absLo, Hi: v.n})
		out = append(out, crs.Range{Lo: 0, Hi: absHi - v.n})
	}
	return out
}

// Flush drains the vector into a set of absolute-column ranges, scanning L1,
// then L2. The returned ranges are
// not required to be sorted; crs.Build's merge step sorts and coalesces them
// (ranges that wrapped across the seam split here are recombined there).
func (v *Vector) Flush() crs.Row {
	var out []crs.Range
	out = v.appendRunsAsAbsolute(v.l1, 0, out)
	out = v.appendRunsAsAbsolute(v.l2, v.l1Bits, out)
	return out
}
