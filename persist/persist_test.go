package persist

import (
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/panseed/distidx"
	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/loci"
	"github.com/grailbio/panseed/pathindex"
)

func TestPathIndexRoundTrip(t *testing.T) {
	ctx := vcontext.Background()
	prefix := filepath.Join(t.TempDir(), "p")

	pidx, err := pathindex.Build([]string{"ACT", "GGTA"})
	require.NoError(t, err)
	require.NoError(t, SavePathIndex(ctx, prefix, pidx))

	got, err := LoadPathIndex(ctx, prefix)
	require.NoError(t, err)
	require.Equal(t, pidx.Locate("ACT"), got.Locate("ACT"))
	require.Equal(t, pidx.Paths(), got.Paths())
}

func TestLociRoundTrip(t *testing.T) {
	ctx := vcontext.Background()
	prefix := filepath.Join(t.TempDir(), "p")

	locs := []loci.Locus{{Node: 1, Offset: 0}, {Node: 3, Offset: 2}}
	require.NoError(t, SaveLoci(ctx, prefix, 1, 3, locs))

	got, err := LoadLoci(ctx, prefix, 1, 3)
	require.NoError(t, err)
	require.Equal(t, locs, got)
}

func TestDistanceMatrixRoundTrip(t *testing.T) {
	ctx := vcontext.Background()
	prefix := filepath.Join(t.TempDir(), "p")

	g := graph.NewMemory(
		map[graph.ID]string{1: "A", 2: "C", 3: "G"},
		[]graph.ID{1, 2, 3},
		[]graph.Edge{{From: 1, To: 2}, {From: 2, To: 3}},
	)
	ix, err := distidx.Build(g, 1, 2)
	require.NoError(t, err)
	require.NoError(t, SaveDistanceMatrix(ctx, prefix, 1, 2, ix))

	m, err := LoadDistanceMatrix(ctx, prefix, 1, 2)
	require.NoError(t, err)
	reloaded := distidx.FromMatrix(g, 1, 2, m)
	require.Equal(t, ix.Verify(1, 0, 3, 0), reloaded.Verify(1, 0, 3, 0))
	require.True(t, reloaded.Verify(1, 0, 2, 0))
}

func TestLoadMissingFileErrors(t *testing.T) {
	ctx := vcontext.Background()
	prefix := filepath.Join(t.TempDir(), "absent")
	_, err := LoadPathIndex(ctx, prefix)
	require.Error(t, err)
}
