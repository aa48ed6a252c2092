package kipcm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rina-project/kipcm/internal/transport"
)

func newTestKIPCM(t *testing.T) (*KIPCM, *MockOps, *transport.Fake) {
	t.Helper()
	ft := NewFakeTransport()
	ops := NewMockOps()
	create, destroy, _ := NewMockFactory(ops)

	k, err := Create(Options{Transport: ft})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = k.IpcpDestroy(1)
		_ = k.Destroy()
	})

	_, err = k.FactoryRegister("normal-ipc", create, destroy)
	require.NoError(t, err)

	_, err = k.IpcpCreate(Name{Process: "normal-ipc"}, 1, "")
	require.NoError(t, err)

	return k, ops, ft
}

func TestCreateInstallsAllSixHandlers(t *testing.T) {
	ft := NewFakeTransport()
	k, err := Create(Options{Transport: ft})
	require.NoError(t, err)
	defer k.Destroy()

	for _, kind := range []Kind{
		KindAssignToDIFRequest,
		KindAllocateFlowRequest,
		KindAllocateFlowResponse,
		KindDeallocateFlowRequest,
		KindRegisterApplicationRequest,
		KindUnregisterApplicationRequest,
	} {
		require.True(t, ft.Installed(kind), "kind %s should be installed", kind)
	}
}

func TestCreateRequiresTransport(t *testing.T) {
	_, err := Create(Options{})
	require.Error(t, err)
	require.True(t, IsKind(err, KindInvalidArg))
}

func TestDestroyRemovesAllHandlers(t *testing.T) {
	ft := NewFakeTransport()
	k, err := Create(Options{Transport: ft})
	require.NoError(t, err)
	require.NoError(t, k.Destroy())
	require.False(t, ft.Installed(KindAssignToDIFRequest))
}

func TestIpcpCreateDuplicateRejected(t *testing.T) {
	k, ops, _ := newTestKIPCM(t)
	_ = ops

	_, err := k.IpcpCreate(Name{}, 1, "")
	require.Error(t, err)
	require.True(t, IsKind(err, KindAlreadyExists))
}

func TestIpcpCreateUnknownFactory(t *testing.T) {
	k, _, _ := newTestKIPCM(t)
	_, err := k.IpcpCreate(Name{}, 2, "does-not-exist")
	require.Error(t, err)
	require.True(t, IsKind(err, KindNotFound))
}

func TestFactoryUnregisterInUse(t *testing.T) {
	ft := NewFakeTransport()
	ops := NewMockOps()
	create, destroy, _ := NewMockFactory(ops)

	k, err := Create(Options{Transport: ft})
	require.NoError(t, err)
	defer func() {
		_ = k.IpcpDestroy(1)
		_ = k.Destroy()
	}()

	f, err := k.FactoryRegister("normal-ipc", create, destroy)
	require.NoError(t, err)

	_, err = k.IpcpCreate(Name{}, 1, "normal-ipc")
	require.NoError(t, err)

	err = k.FactoryUnregister(f)
	require.Error(t, err)
	require.True(t, IsKind(err, KindInUse))
}

// TestFlowAllocationRoundTrip walks the full allocate-flow transaction:
// a local app's ALLOCATE_FLOW_REQUEST mints a flow and parks it in the
// ingress table, the IPCP binds it via FlowAdd and resolves it via
// FlowRes, and the KIPCM replies over the fixed notification channel.
func TestFlowAllocationRoundTrip(t *testing.T) {
	k, ops, fake := newTestKIPCM(t)

	msg := &transport.AllocateFlowRequestMsg{
		Header: transport.Header{DstIPCID: 1, Seq: 7},
		Attrs:  transport.AllocateFlowRequestAttrs{PortID: 100},
	}
	require.NoError(t, fake.Deliver(KindAllocateFlowRequest, 5, msg))
	require.Equal(t, 1, ops.FlowAllocateRequestCalls)

	flowID := ops.LastFlowID
	require.True(t, flowID.Valid())

	require.NoError(t, k.FlowAdd(1, 100, flowID))
	require.NoError(t, k.FlowRes(1, flowID, 0))
	require.Len(t, fake.Sent, 1)
	require.Equal(t, "alloc-flow-result", fake.Sent[0].Kind)
	require.Equal(t, int32(0), fake.Sent[0].Result)
	require.Equal(t, SessionID(1), fake.Sent[0].Session)
}

// TestFlowResDiscardsUnboundFlowOnFailure covers the path where the
// IPCP never calls FlowAdd because the peer allocation failed: FlowRes
// must discard the minted flow rather than leaking it.
func TestFlowResDiscardsUnboundFlowOnFailure(t *testing.T) {
	k, ops, fake := newTestKIPCM(t)

	msg := &transport.AllocateFlowRequestMsg{
		Header: transport.Header{DstIPCID: 1, Seq: 7},
		Attrs:  transport.AllocateFlowRequestAttrs{PortID: 100},
	}
	require.NoError(t, fake.Deliver(KindAllocateFlowRequest, 5, msg))
	flowID := ops.LastFlowID

	require.NoError(t, k.FlowRes(1, flowID, -1))
	require.Len(t, fake.Sent, 1)
	require.Equal(t, int32(-1), fake.Sent[0].Result)
	require.False(t, k.KFA().FlowExists(flowID))
}

// TestDestroyFailsWithOutstandingState is the scenario where destroying
// a KIPCM with a live IPCP must refuse rather than silently stranding
// it.
func TestDestroyFailsWithOutstandingState(t *testing.T) {
	ft := NewFakeTransport()
	ops := NewMockOps()
	create, destroy, destroyed := NewMockFactory(ops)

	k, err := Create(Options{Transport: ft})
	require.NoError(t, err)

	_, err = k.FactoryRegister("normal-ipc", create, destroy)
	require.NoError(t, err)
	_, err = k.IpcpCreate(Name{}, 1, "normal-ipc")
	require.NoError(t, err)

	err = k.Destroy()
	require.Error(t, err)
	require.True(t, IsKind(err, KindNotEmpty))
	require.True(t, ft.Installed(KindAssignToDIFRequest), "handlers must stay installed when destroy refuses")

	require.NoError(t, k.IpcpDestroy(1))
	require.NoError(t, k.Destroy())
	require.Equal(t, 1, *destroyed)
}

func TestFlowArrivedNotifiesOverFixedChannel(t *testing.T) {
	k, _, fake := newTestKIPCM(t)

	require.NoError(t, k.FlowArrived(1, 9, "normal.DIF", Name{}, Name{}, FlowSpec{}))
	require.Len(t, fake.Sent, 1)
	require.Equal(t, "alloc-flow-req-arrived", fake.Sent[0].Kind)
	require.Equal(t, SessionID(1), fake.Sent[0].Session)
}
