package suffixidx

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtendDownFindsAllOccurrences(t *testing.T) {
	ix := Build([]byte("banana"))
	c := ix.Root()
	require.True(t, c.ExtendDown('a'))
	require.True(t, c.ExtendDown('n'))
	offs := c.GetOccurrences()
	sort.Ints(offs)
	require.Equal(t, []int{1, 3}, offs)
}

func TestExtendDownFailsOnAbsentChar(t *testing.T) {
	ix := Build([]byte("banana"))
	c := ix.Root()
	require.False(t, c.ExtendDown('z'))
	require.Equal(t, 0, c.RepLength())
}

func TestGoUpRestoresRange(t *testing.T) {
	ix := Build([]byte("banana"))
	c := ix.Root()
	before := c.CountOccurrences()
	c.ExtendDown('a')
	c.GoUp()
	require.Equal(t, before, c.CountOccurrences())
	require.True(t, c.IsRoot())
}

func TestCountOccurrencesGocc(t *testing.T) {
	ix := Build([]byte("AAAA$CCCC$AAAA"))
	require.Equal(t, 6, ix.Count([]byte("AA")))
	require.Equal(t, 3, ix.Count([]byte("CC")))
}
