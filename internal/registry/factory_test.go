package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rina-project/kipcm/internal/ids"
	"github.com/rina-project/kipcm/internal/transport"
)

type stubOps struct{}

func (stubOps) AssignToDIF(string, transport.DIFConfig) error { return nil }
func (stubOps) ApplicationRegister(transport.Name) error       { return nil }
func (stubOps) ApplicationUnregister(transport.Name) error     { return nil }
func (stubOps) FlowAllocateRequest(transport.Name, transport.Name, transport.FlowSpec, ids.PortId, ids.FlowId) error {
	return nil
}
func (stubOps) FlowAllocateResponse(ids.FlowId, ids.PortId, int32) error { return nil }
func (stubOps) FlowDeallocate(ids.PortId) error                          { return nil }

func stubCreate(transport.Name, ids.IpcpId) (Ops, bool) { return stubOps{}, true }
func stubDestroy(Ops) error                              { return nil }

func TestFactoryTableRegisterFindUnregister(t *testing.T) {
	tbl := NewFactoryTable()

	f, err := tbl.Register("normal-ipc", stubCreate, stubDestroy)
	require.NoError(t, err)
	require.Equal(t, "normal-ipc", f.Name())
	require.False(t, f.InUse())

	found, ok := tbl.Find("normal-ipc")
	require.True(t, ok)
	require.Same(t, f, found)

	require.NoError(t, tbl.Unregister(f))
	_, ok = tbl.Find("normal-ipc")
	require.False(t, ok)
}

func TestFactoryTableRegisterDuplicate(t *testing.T) {
	tbl := NewFactoryTable()
	_, err := tbl.Register("normal-ipc", stubCreate, stubDestroy)
	require.NoError(t, err)

	_, err = tbl.Register("normal-ipc", stubCreate, stubDestroy)
	require.Error(t, err)
}

func TestFactoryTableRegisterMissingOps(t *testing.T) {
	tbl := NewFactoryTable()
	_, err := tbl.Register("normal-ipc", nil, stubDestroy)
	require.Error(t, err)
}

func TestFactoryTableUnregisterInUse(t *testing.T) {
	tbl := NewFactoryTable()
	f, err := tbl.Register("normal-ipc", stubCreate, stubDestroy)
	require.NoError(t, err)

	instances := NewInstanceMap()
	ops, _ := f.Create(transport.Name{}, 1)
	require.NoError(t, instances.Insert(1, &Instance{ID: 1, Factory: f, Ops: ops}))

	require.True(t, f.InUse())
	err = tbl.Unregister(f)
	require.Error(t, err)

	_, err = instances.Remove(1)
	require.NoError(t, err)
	require.False(t, f.InUse())
	require.NoError(t, tbl.Unregister(f))
}
