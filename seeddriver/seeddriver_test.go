package seeddriver

import (
	"testing"

	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/loci"
	"github.com/grailbio/panseed/pathindex"
	"github.com/grailbio/panseed/pathset"
	"github.com/grailbio/panseed/seedstats"
	"github.com/grailbio/panseed/traverser"
	"github.com/stretchr/testify/require"
)

// repeatGraph builds three single-node paths, two spelling "AAAA" and one
// spelling "CCCC" -- spec §8 S4's repeat-heavy path text.
func repeatGraph() (*graph.Memory, *pathset.Set) {
	g := graph.NewMemory(
		map[graph.ID]string{1: "AAAA", 2: "CCCC", 3: "AAAA"},
		[]graph.ID{1, 2, 3},
		nil,
	)
	ps := pathset.New(g)
	ps.Add(graph.Path{Nodes: []graph.ID{1}})
	ps.Add(graph.Path{Nodes: []graph.ID{2}})
	ps.Add(graph.Path{Nodes: []graph.ID{3}})
	ps.Build()
	return g, ps
}

func TestGoccThresholdSkipsBothRepeats(t *testing.T) {
	g, ps := repeatGraph()
	pidx, err := pathindex.BuildFromSet(g, ps)
	require.NoError(t, err)

	trav := traverser.New(g, 2, 0)
	driver := New(ps, pidx, trav, nil, Config{K: 2, GoccThreshold: 2, Distance: 2})

	stats := seedstats.New()
	var hits []Hit
	err = driver.RunChunk([]Read{{ID: 0, Seq: "AA"}, {ID: 1, Seq: "CC"}}, stats, func(h Hit) { hits = append(hits, h) })
	require.NoError(t, err)

	require.Empty(t, hits)
	require.EqualValues(t, 2, stats.Skipped())
}

func TestUnlimitedThresholdEmitsOnPathHits(t *testing.T) {
	g, ps := repeatGraph()
	pidx, err := pathindex.BuildFromSet(g, ps)
	require.NoError(t, err)

	trav := traverser.New(g, 2, 0)
	driver := New(ps, pidx, trav, nil, Config{K: 2, GoccThreshold: 0, Distance: 2})

	var hits []Hit
	err = driver.RunChunk([]Read{{ID: 0, Seq: "AA"}}, nil, func(h Hit) { hits = append(hits, h) })
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		require.Equal(t, int64(0), h.ReadID)
		require.Equal(t, 2, h.MatchLen)
	}
}

func TestOffPathHitsFallBackToTraversal(t *testing.T) {
	// Diamond graph, no path set: every seed must be found by traversal.
	g := graph.NewMemory(
		map[graph.ID]string{1: "A", 2: "C", 3: "G", 4: "T"},
		[]graph.ID{1, 2, 3, 4},
		[]graph.Edge{{1, 2}, {1, 3}, {2, 4}, {3, 4}},
	)
	trav := traverser.New(g, 3, 0)
	starts := []loci.Locus{{Node: 1, Offset: 0}, {Node: 3, Offset: 0}}
	driver := New(nil, nil, trav, starts, Config{K: 3, Distance: 3})

	var hits []Hit
	err := driver.RunChunk([]Read{{ID: 0, Seq: "ACT"}}, nil, func(h Hit) { hits = append(hits, h) })
	require.NoError(t, err)
	require.Equal(t, []Hit{{NodeID: 1, NodeOffset: 0, ReadID: 0, ReadOffset: 0, MatchLen: 3}}, hits)
}
