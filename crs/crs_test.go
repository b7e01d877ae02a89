package crs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rows(rs ...Row) []Row { return rs }

func TestBuildRowInvariants(t *testing.T) {
	m, err := Build(2, 10, &SliceProvider{Rows: rows(
		Row{{0, 3}, {3, 7}},
		Row{{1, 2}, {5, 7}},
	)})
	require.NoError(t, err)
	require.Equal(t, Row{{0, 7}}, m.RowIter(0))
	require.Equal(t, Row{{1, 2}, {5, 7}}, m.RowIter(1))
}

func TestAddCoalesces(t *testing.T) {
	a, _ := Build(1, 10, &SliceProvider{Rows: rows(Row{{0, 2}})})
	b, _ := Build(1, 10, &SliceProvider{Rows: rows(Row{{1, 6}})})
	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, Row{{0, 6}}, sum.RowIter(0))
}

func TestSpGEMMDistributesOverSpAdd(t *testing.T) {
	a, _ := Build(2, 2, &SliceProvider{Rows: rows(Row{{0, 2}}, Row{{1, 2}})})
	b, _ := Build(2, 2, &SliceProvider{Rows: rows(Row{{0, 1}}, nil)})
	c, _ := Build(2, 2, &SliceProvider{Rows: rows(nil, Row{{0, 2}})})

	bc, err := b.Add(c)
	require.NoError(t, err)
	lhs, err := a.Mul(bc)
	require.NoError(t, err)

	ab, err := a.Mul(b)
	require.NoError(t, err)
	ac, err := a.Mul(c)
	require.NoError(t, err)
	rhs, err := ab.Add(ac)
	require.NoError(t, err)

	require.Equal(t, len(lhs.rows), len(rhs.rows))
	for i := range lhs.rows {
		require.Equal(t, rhs.RowIter(i), lhs.RowIter(i))
	}
}

func TestPowerIdentityBase(t *testing.T) {
	a, _ := Build(3, 3, &SliceProvider{Rows: rows(Row{{1, 2}}, Row{{2, 3}}, nil)})
	iPlusA, err := Identity(3).Add(a)
	require.NoError(t, err)

	p0, err := Power(iPlusA, 0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.Equal(t, Identity(3).RowIter(i), p0.RowIter(i))
	}

	p1, err := Power(iPlusA, 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.Equal(t, iPlusA.RowIter(i), p1.RowIter(i))
	}
}

func TestCompressIntraNode(t *testing.T) {
	// 3-node "ACG" self loop: (A+I)^2 over char-order indices 0,1,2.
	a, _ := Build(3, 3, &SliceProvider{Rows: rows(Row{{0, 1}, {1, 2}}, Row{{1, 2}, {2, 3}}, Row{{2, 3}})})
	for c := 0; c < 3; c++ {
		a.CompressIntraNode(c, c+1) // one call per one-character node
	}
	require.Equal(t, Row{{1, 2}}, a.RowIter(0))
	require.Equal(t, Row{{2, 3}}, a.RowIter(1))
	require.Equal(t, Row(nil), a.RowIter(2))
}
