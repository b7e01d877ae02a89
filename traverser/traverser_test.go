package traverser

import (
	"testing"

	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/loci"
	"github.com/grailbio/panseed/readindex"
	"github.com/stretchr/testify/require"
)

// diamond builds the spec §8 S1/S2 scenario graph: nodes {1:"A",2:"C",3:"G",
// 4:"T"}, edges 1->2, 1->3, 2->4, 3->4.
func diamond() *graph.Memory {
	return graph.NewMemory(
		map[graph.ID]string{1: "A", 2: "C", 3: "G", 4: "T"},
		[]graph.ID{1, 2, 3, 4},
		[]graph.Edge{{1, 2}, {1, 3}, {2, 4}, {3, 4}},
	)
}

// TestDiamondEmitsSingleExactHit reproduces spec §8's S1: read "ACT" with
// k=3 and no path set only matches the 1-2-4 walk ("ACT"); 1-3-4 spells
// "AGT" and never matches.
func TestDiamondEmitsSingleExactHit(t *testing.T) {
	g := diamond()
	rix, err := readindex.Build([]readindex.Read{{ID: 0, Seq: "ACT"}})
	require.NoError(t, err)

	tr := New(g, 3, 0)
	starts := []loci.Locus{{Node: 1, Offset: 0}, {Node: 3, Offset: 0}}

	var hits []Hit
	tr.RunBFS(starts, rix, func(h Hit) { hits = append(hits, h) })

	require.Equal(t, []Hit{{NodeID: 1, NodeOffset: 0, ReadID: 0, ReadOffset: 0, MatchLen: 3}}, hits)
}

func TestDiamondDFSMatchesBFS(t *testing.T) {
	g := diamond()
	rix, err := readindex.Build([]readindex.Read{{ID: 0, Seq: "ACT"}})
	require.NoError(t, err)

	tr := New(g, 3, 0)
	starts := []loci.Locus{{Node: 1, Offset: 0}, {Node: 3, Offset: 0}}

	var hits []Hit
	tr.RunDFS(starts, rix, func(h Hit) { hits = append(hits, h) })

	require.Equal(t, []Hit{{NodeID: 1, NodeOffset: 0, ReadID: 0, ReadOffset: 0, MatchLen: 3}}, hits)
}

func TestNCharacterNeverMatches(t *testing.T) {
	g := graph.NewMemory(
		map[graph.ID]string{1: "N", 2: "C"},
		[]graph.ID{1, 2},
		[]graph.Edge{{1, 2}},
	)
	rix, err := readindex.Build([]readindex.Read{{ID: 0, Seq: "NC"}})
	require.NoError(t, err)

	tr := New(g, 2, 0)
	var hits []Hit
	tr.RunBFS([]loci.Locus{{Node: 1, Offset: 0}}, rix, func(h Hit) { hits = append(hits, h) })
	require.Empty(t, hits)
}
