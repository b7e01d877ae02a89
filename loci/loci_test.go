package loci

import (
	"testing"

	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/pathindex"
	"github.com/stretchr/testify/require"
)

// diamond builds the spec S1/S2 scenario graph: nodes {1:"A",2:"C",3:"G",4:"T"},
// edges 1->2, 1->3, 2->4, 3->4.
func diamond() *graph.Memory {
	return graph.NewMemory(
		map[graph.ID]string{1: "A", 2: "C", 3: "G", 4: "T"},
		[]graph.ID{1, 2, 3, 4},
		[]graph.Edge{{1, 2}, {1, 3}, {2, 4}, {3, 4}},
	)
}

func TestEmptyPathSetFallsBackToEveryOffset(t *testing.T) {
	g := diamond()
	sel := New(g, nil, 3)
	locs := sel.Enumerate(1)
	require.Len(t, locs, 4) // one offset per single-character node
}

func TestPathCoverageNarrowsStartingLoci(t *testing.T) {
	g := diamond()
	// Reference path 1-2-4 ("ACT") covers that branch; node 3 ("G") is
	// unreached by the reference, so (1,0) must remain a starting locus (the
	// 1-3-4 "AGT" walk is never indexed). (3,0) is not one: no length-3 walk
	// starts there.
	pidx, err := pathindex.Build([]string{"ACT"})
	require.NoError(t, err)
	sel := New(g, pidx, 3)
	locs := sel.Enumerate(1)
	require.Contains(t, locs, Locus{Node: 1, Offset: 0})
}
