package correlation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableAddFindRemove(t *testing.T) {
	tbl := New[int, string]()
	require.True(t, tbl.Empty())

	require.NoError(t, tbl.Add(1, "one"))
	require.Equal(t, 1, tbl.Len())

	v, ok := tbl.Find(1)
	require.True(t, ok)
	require.Equal(t, "one", v)

	_, ok = tbl.Find(2)
	require.False(t, ok)

	v, err := tbl.Remove(1)
	require.NoError(t, err)
	require.Equal(t, "one", v)
	require.True(t, tbl.Empty())
}

func TestTableAddDuplicateRejected(t *testing.T) {
	tbl := New[int, string]()
	require.NoError(t, tbl.Add(1, "one"))
	err := tbl.Add(1, "again")
	require.Error(t, err)
}

func TestTableRemoveMissing(t *testing.T) {
	tbl := New[int, string]()
	_, err := tbl.Remove(99)
	require.Error(t, err)
}
