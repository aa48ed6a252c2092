package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rina-project/kipcm/internal/transport"
)

func TestInstanceMapInsertFindRemove(t *testing.T) {
	m := NewInstanceMap()
	require.True(t, m.Empty())

	f := &Factory{name: "normal-ipc", create: stubCreate, destroy: stubDestroy}
	ops, _ := f.Create(transport.Name{}, 7)
	inst := &Instance{ID: 7, Factory: f, Ops: ops}

	require.NoError(t, m.Insert(7, inst))
	require.Equal(t, 1, m.Len())
	require.True(t, f.InUse())

	found, ok := m.Find(7)
	require.True(t, ok)
	require.Same(t, inst, found)

	removed, err := m.Remove(7)
	require.NoError(t, err)
	require.Same(t, inst, removed)
	require.False(t, f.InUse())
	require.True(t, m.Empty())
}

func TestInstanceMapInsertDuplicate(t *testing.T) {
	m := NewInstanceMap()
	f := &Factory{name: "normal-ipc", create: stubCreate, destroy: stubDestroy}
	require.NoError(t, m.Insert(1, &Instance{ID: 1, Factory: f}))
	err := m.Insert(1, &Instance{ID: 1, Factory: f})
	require.Error(t, err)
}

func TestInstanceMapRemoveMissing(t *testing.T) {
	m := NewInstanceMap()
	_, err := m.Remove(404)
	require.Error(t, err)
}
