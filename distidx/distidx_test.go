package distidx

import (
	"testing"

	"github.com/grailbio/panseed/graph"
	"github.com/stretchr/testify/require"
)

// linear builds the spec §8 S3 scenario: a linear graph of 5 one-character
// nodes spelling "ACGTA".
func linear() *graph.Memory {
	return graph.NewMemory(
		map[graph.ID]string{1: "A", 2: "C", 3: "G", 4: "T", 5: "A"},
		[]graph.ID{1, 2, 3, 4, 5},
		[]graph.Edge{{1, 2}, {2, 3}, {3, 4}, {4, 5}},
	)
}

func TestVerifyDistanceBounds(t *testing.T) {
	g := linear()
	ix, err := Build(g, 2, 3)
	require.NoError(t, err)

	require.True(t, ix.Verify(1, 0, 3, 0))  // length 2
	require.True(t, ix.Verify(1, 0, 4, 0))  // length 3
	require.False(t, ix.Verify(1, 0, 5, 0)) // length 4, outside dmax
	require.False(t, ix.Verify(3, 0, 1, 0)) // wrong direction
}

func TestVerifySameNodeUsesOffsetsOnly(t *testing.T) {
	g := linear()
	ix, err := Build(g, 2, 3)
	require.NoError(t, err)

	// Same-node queries never touch the matrix: intra-node ranges were
	// compressed out of it at Build time (spec §4.A/§4.G).
	require.False(t, ix.Verify(1, 0, 1, 0))
}

func TestBuildRejectsInvalidBounds(t *testing.T) {
	g := linear()
	_, err := Build(g, 3, 2)
	require.Error(t, err)
	_, err = Build(g, 0, 2)
	require.Error(t, err)
}

func TestRegionOfGroupsWeaklyConnectedNodes(t *testing.T) {
	g := linear()
	ix, err := Build(g, 1, 1)
	require.NoError(t, err)
	r1 := ix.RegionOf(1)
	for _, id := range []graph.ID{2, 3, 4, 5} {
		require.Equal(t, r1, ix.RegionOf(id))
	}
}
