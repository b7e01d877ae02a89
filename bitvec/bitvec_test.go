package bitvec

import (
	"sort"
	"testing"

	"github.com/grailbio/panseed/crs"
	"github.com/stretchr/testify/require"
)

func flushSorted(v *Vector) crs.Row {
	row := v.Flush()
	sort.Slice(row, func(i, j int) bool { return row[i].Lo < row[j].Lo })
	return row
}

func TestSetSingleBits(t *testing.T) {
	arena := NewArena()
	v := New(100, 50, arena)
	v.Set(3)
	v.Set(4)
	v.Set(5)
	v.Set(90)
	got, err := crs.Build(1, 100, &crs.SliceProvider{Rows: []crs.Row{flushSorted(v)}})
	require.NoError(t, err)
	require.Equal(t, crs.Row{{3, 6}, {90, 91}}, got.RowIter(0))
}

func TestSetRangeWithinOneLevel(t *testing.T) {
	arena := NewArena()
	v := New(5000, 10, arena) // center 10 clamps the L1 window to start at column 0, so both ranges lie in L1
	v.SetRange(10, 20)
	v.SetRange(25, 30)
	got, err := crs.Build(1, 5000, &crs.SliceProvider{Rows: []crs.Row{flushSorted(v)}})
	require.NoError(t, err)
	require.Equal(t, crs.Row{{10, 20}, {25, 30}}, got.RowIter(0))
}

func TestSetRangeSpansSeam(t *testing.T) {
	arena := NewArena()
	n := 5000
	v := New(n, n/2, arena) // L1 starts mid-row, so [0,n) crosses the L1/L2 seam and the wraparound
	v.SetRange(0, n) // full range must cover every column exactly once
	got, err := crs.Build(1, n, &crs.SliceProvider{Rows: []crs.Row{flushSorted(v)}})
	require.NoError(t, err)
	require.Equal(t, crs.Row{{0, n}}, got.RowIter(0))
}

func TestArenaReuse(t *testing.T) {
	arena := NewArena()
	v1 := New(1000, 0, arena)
	v1.Set(5)
	v1.Release()
	v2 := New(1000, 0, arena)
	// A reused buffer must come back zeroed.
	require.False(t, hasBit(v2, 5))
}

func hasBit(v *Vector, i int) bool {
	for _, r := range v.Flush() {
		if r.Lo <= i && i < r.Hi {
			return true
		}
	}
	return false
}
