package pathset

import (
	"testing"

	"github.com/grailbio/panseed/graph"
	"github.com/stretchr/testify/require"
)

func diamond() *graph.Memory {
	return graph.NewMemory(
		map[graph.ID]string{1: "A", 2: "C", 3: "G", 4: "T"},
		[]graph.ID{1, 2, 3, 4},
		[]graph.Edge{{1, 2}, {1, 3}, {2, 4}, {3, 4}},
	)
}

func TestCoveredByAndCoverage(t *testing.T) {
	g := diamond()
	s := New(g)
	s.Add(graph.Path{Nodes: []graph.ID{1, 2, 4}})
	s.Build()

	require.True(t, s.CoveredBy([]graph.ID{1, 2}))
	require.True(t, s.CoveredBy([]graph.ID{2, 4}))
	require.False(t, s.CoveredBy([]graph.ID{1, 3}))
	require.Equal(t, 1, s.PathCoverage(graph.ID(2)))
	require.Equal(t, 0, s.PathCoverage(graph.ID(3)))
	require.Equal(t, 1, s.TailCoverage([]graph.ID{1, 2, 4}))
	require.Equal(t, 0, s.TailCoverage([]graph.ID{1, 3}))
}

func TestEmptySetCoversNothing(t *testing.T) {
	s := New(diamond())
	s.Build()
	require.False(t, s.CoveredBy([]graph.ID{1}))
	require.Equal(t, 0, s.PathCoverage(graph.ID(1)))
}

func TestSelectRecoversNodeAndOffset(t *testing.T) {
	g := diamond()
	s := New(g)
	s.Add(graph.Path{Nodes: []graph.ID{1, 2, 4}}) // sequence "ACT"
	s.Build()

	for off, want := range map[int]graph.ID{0: 1, 1: 2, 2: 4} {
		id, nodeOff := s.Select(0, off)
		require.Equal(t, want, id)
		require.Equal(t, 0, nodeOff) // every node here is one character long
	}
}
