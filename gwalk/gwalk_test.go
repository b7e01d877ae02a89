package gwalk

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

func TestBFSVisitsEachNodeOnce(t *testing.T) {
	g := diamond()
	w := NewBFS(g)
	w.Reset(1, 0)
	var seen []graph.ID
	for w.Advance() {
		seen = append(seen, w.Current())
	}
	require.ElementsMatch(t, []graph.ID{1, 2, 3, 4}, seen)
}

func TestBacktrackerEnumeratesBothLength2Walks(t *testing.T) {
	g := diamond()
	w := NewBacktracker(g, 2)
	w.Reset(1, 0)
	var tails [][]graph.ID
	for w.Advance() {
		if len(w.Tail()) == 3 {
			tails = append(tails, append([]graph.ID{}, w.Tail()...))
		}
	}
	require.ElementsMatch(t, [][]graph.ID{{1, 2, 4}, {1, 3, 4}}, tails)
}

func TestHaplotyperRandomStaysOnGraph(t *testing.T) {
	g := diamond()
	w := NewHaplotyper(g, Random, nil)
	w.Reset(1, 42)
	require.True(t, w.Advance())
	require.Contains(t, []graph.ID{2, 3}, w.Current())
}
