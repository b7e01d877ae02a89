package readindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOccurrencesTranslatesToReadPosition(t *testing.T) {
	ix, err := Build([]Read{{ID: 5, Seq: "ACT"}, {ID: 9, Seq: "TACTG"}})
	require.NoError(t, err)

	c := ix.Root()
	require.True(t, c.GoDownChar('A'))
	require.True(t, c.GoDownChar('C'))
	require.True(t, c.GoDownChar('T'))
	got := c.GetOccurrences()
	require.ElementsMatch(t, []Position{{ReadID: 5, Offset: 0}, {ReadID: 9, Offset: 1}}, got)
}

func TestGoUpAndGoRoot(t *testing.T) {
	ix, err := Build([]Read{{ID: 0, Seq: "ACGT"}})
	require.NoError(t, err)

	c := ix.Root()
	require.True(t, c.GoDownChar('A'))
	require.True(t, c.GoDownChar('C'))
	c.GoUp()
	require.Equal(t, 1, c.RepLength())
	c.GoRoot()
	require.True(t, c.IsRoot())
}

func TestBuildRejectsEmptyChunk(t *testing.T) {
	_, err := Build(nil)
	require.Error(t, err)
}
