package pathindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocateFindsExactOccurrence(t *testing.T) {
	ix, err := Build([]string{"ACT"})
	require.NoError(t, err)

	occs := ix.Locate("ACT")
	require.Equal(t, []Occurrence{{PathIndex: 0, Offset: 0}}, occs)

	require.Empty(t, ix.Locate("AGT"))
}

func TestGoccCountsRepeats(t *testing.T) {
	// "AAAA" contains three occurrences of "AA" (offsets 0,1,2); a second
	// identical path doubles that to six (spec §8 S4's repeat-heavy text).
	ix, err := Build([]string{"AAAA", "AAAA"})
	require.NoError(t, err)
	require.Equal(t, 6, len(ix.Locate("AA")))
}

func TestCursorWalksCharacterByCharacter(t *testing.T) {
	ix, err := Build([]string{"ACT"})
	require.NoError(t, err)

	c := ix.Root()
	require.True(t, c.IsRoot())
	require.True(t, c.ExtendDown('A'))
	require.True(t, c.ExtendDown('C'))
	require.True(t, c.ExtendDown('T'))
	require.Equal(t, 3, c.RepLength())
	require.Equal(t, []Occurrence{{PathIndex: 0, Offset: 0}}, c.Occurrences())

	require.False(t, ix.Root().ExtendDown('G'))
}

func TestBuildRejectsEmptyPathSet(t *testing.T) {
	_, err := Build(nil)
	require.Error(t, err)
}
