package panseed

import (
	"sort"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/seeddriver"
)

// diamond builds spec §8's S1/S2 scenario graph: nodes {1:"A",2:"C",3:"G",4:"T"},
// edges 1->2, 1->3, 2->4, 3->4.
func diamond() *graph.Memory {
	return graph.NewMemory(
		map[graph.ID]string{1: "A", 2: "C", 3: "G", 4: "T"},
		[]graph.ID{1, 2, 3, 4},
		[]graph.Edge{{1, 2}, {1, 3}, {2, 4}, {3, 4}},
	)
}

func sortHits(hits []seeddriver.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		switch {
		case a.NodeID != b.NodeID:
			return a.NodeID < b.NodeID
		case a.NodeOffset != b.NodeOffset:
			return a.NodeOffset < b.NodeOffset
		case a.ReadID != b.ReadID:
			return a.ReadID < b.ReadID
		default:
			return a.ReadOffset < b.ReadOffset
		}
	})
}

// TestSeedsAll_NoPathsDiamond realizes spec §8 S1: zero paths selected, read
// "ACT" with k=3. Only the 1-2-4 walk spells "ACT"; 1-3-4 spells "AGT".
func TestSeedsAll_NoPathsDiamond(t *testing.T) {
	g := diamond()
	f, err := New(g, 3, 0, 0)
	require.NoError(t, err)
	require.NoError(t, f.CreatePathIndex(0, false, 0, 1, 1, 1))
	require.Nil(t, f.pidx)

	var hits []seeddriver.Hit
	err = f.SeedsAll([]seeddriver.Read{{ID: 0, Seq: "ACT"}}, func(h seeddriver.Hit) { hits = append(hits, h) })
	require.NoError(t, err)

	require.Equal(t, []seeddriver.Hit{{NodeID: 1, NodeOffset: 0, ReadID: 0, ReadOffset: 0, MatchLen: 3}}, hits)
}

func TestNew_RejectsInvalidK(t *testing.T) {
	_, err := New(diamond(), 0, 0, 0)
	require.Error(t, err)
}

func TestNew_RejectsUnsupportedMismatchBudget(t *testing.T) {
	_, err := New(diamond(), 3, 0, 2)
	require.Error(t, err)
}

func TestNormalize_AppliesParameterRelationships(t *testing.T) {
	// context=0 && patched => context defaults to k.
	n, err := normalize(5, Opts{Patched: true, Context: 0, DMin: 1})
	require.NoError(t, err)
	require.Equal(t, 5, n.context)

	// patched=false forces context=0 even if the caller passed one.
	n, err = normalize(5, Opts{Patched: false, Context: 7, DMin: 1})
	require.NoError(t, err)
	require.Equal(t, 0, n.context)

	// patched && explicit context < k is an error.
	_, err = normalize(5, Opts{Patched: true, Context: 2, DMin: 1})
	require.Error(t, err)

	// dmax=0 defaults to dmin.
	n, err = normalize(5, Opts{DMin: 3, DMax: 0})
	require.NoError(t, err)
	require.Equal(t, 3, n.dmax)

	// distance=0 defaults to k.
	n, err = normalize(5, Opts{DMin: 1, Distance: 0})
	require.NoError(t, err)
	require.Equal(t, 5, n.distance)
}

// TestCreatePathIndex_EmptyPathSetFallsBackToTraversal covers spec §4.F's
// "when the path set is empty" fallback end to end: every offset is a
// starting locus and SeedsAll still finds hits purely via traversal.
func TestCreatePathIndex_EmptyPathSetFallsBackToTraversal(t *testing.T) {
	g := diamond()
	f, err := New(g, 1, 0, 0)
	require.NoError(t, err)
	require.NoError(t, f.CreatePathIndex(0, false, 0, 1, 1, 1))
	require.Len(t, f.StartingLoci(), 4)
	require.NotNil(t, f.DistanceIndex())

	var hits []seeddriver.Hit
	err = f.SeedsAll([]seeddriver.Read{{ID: 0, Seq: "A"}}, func(h seeddriver.Hit) { hits = append(hits, h) })
	require.NoError(t, err)
	require.NotEmpty(t, hits)
}

// linear builds a 2-node, unambiguous-sequence graph ("A" -> "C") so
// pathFromSequence's character-walk reconstruction in LoadPathIndex is
// deterministic, for the round-trip test below.
func linear() *graph.Memory {
	return graph.NewMemory(
		map[graph.ID]string{1: "A", 2: "C"},
		[]graph.ID{1, 2},
		[]graph.Edge{{1, 2}},
	)
}

// TestSaveLoadRoundTrip realizes spec §8 S5: after create+serialize, a fresh
// finder that loads the saved prefix reproduces the same seed output.
func TestSaveLoadRoundTrip(t *testing.T) {
	g := linear()
	dir := t.TempDir()
	prefix := dir + "/idx"
	ctx := vcontext.Background()
	reads := []seeddriver.Read{{ID: 0, Seq: "AC"}}

	f1, err := New(g, 1, 0, 0)
	require.NoError(t, err)
	require.NoError(t, f1.CreatePathIndex(1, false, 0, 1, 1, 1))
	require.NoError(t, f1.SerializePathIndex(ctx, prefix))

	var want []seeddriver.Hit
	require.NoError(t, f1.SeedsAll(reads, func(h seeddriver.Hit) { want = append(want, h) }))

	f2, err := New(g, 1, 0, 0)
	require.NoError(t, err)
	require.NoError(t, f2.LoadPathIndex(ctx, prefix, 1, false, 0, 1, 1, 1))

	var got []seeddriver.Hit
	require.NoError(t, f2.SeedsAll(reads, func(h seeddriver.Hit) { got = append(got, h) }))

	sortHits(want)
	sortHits(got)
	require.Equal(t, want, got)
}
