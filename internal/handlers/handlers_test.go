package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rina-project/kipcm/internal/correlation"
	"github.com/rina-project/kipcm/internal/ids"
	"github.com/rina-project/kipcm/internal/kfa"
	"github.com/rina-project/kipcm/internal/logging"
	"github.com/rina-project/kipcm/internal/registry"
	"github.com/rina-project/kipcm/internal/transport"
)

type stubOps struct {
	failAllocate bool
}

func (s *stubOps) AssignToDIF(string, transport.DIFConfig) error { return nil }
func (s *stubOps) ApplicationRegister(transport.Name) error       { return nil }
func (s *stubOps) ApplicationUnregister(transport.Name) error     { return nil }
func (s *stubOps) FlowAllocateRequest(transport.Name, transport.Name, transport.FlowSpec, ids.PortId, ids.FlowId) error {
	if s.failAllocate {
		return errStub
	}
	return nil
}
func (s *stubOps) FlowAllocateResponse(ids.FlowId, ids.PortId, int32) error { return nil }
func (s *stubOps) FlowDeallocate(ids.PortId) error                          { return nil }

type stubErr string

func (e stubErr) Error() string { return string(e) }

const errStub = stubErr("stub delegate failure")

func newDeps(t *testing.T, ops registry.Ops) *Deps {
	t.Helper()
	instances := registry.NewInstanceMap()
	require.NoError(t, instances.Insert(1, &registry.Instance{ID: 1, Ops: ops}))

	return &Deps{
		Instances: instances,
		Ingress:   correlation.New[ids.FlowId, ids.SeqNum](),
		Egress:    correlation.New[ids.SeqNum, ids.FlowId](),
		Transport: transport.NewFake(),
		KFA:       kfa.NewReference(),
		Logger:    logging.NewLogger(logging.DefaultConfig()),
	}
}

func TestHandleAllocateFlowRequestSuccessLeavesIngressEntry(t *testing.T) {
	d := newDeps(t, &stubOps{})
	fake := d.Transport.(*transport.Fake)

	msg := &transport.AllocateFlowRequestMsg{
		Header: transport.Header{DstIPCID: 1, Seq: 42},
		Attrs:  transport.AllocateFlowRequestAttrs{PortID: 100},
	}
	require.NoError(t, HandleAllocateFlowRequest(d, 9, msg))
	require.Equal(t, 1, d.Ingress.Len())
	require.Empty(t, fake.Sent, "no reply is sent on a successful allocate-flow-request")
}

func TestHandleAllocateFlowRequestDelegateFailureRollsBack(t *testing.T) {
	d := newDeps(t, &stubOps{failAllocate: true})
	fake := d.Transport.(*transport.Fake)

	msg := &transport.AllocateFlowRequestMsg{
		Header: transport.Header{DstIPCID: 1, Seq: 42},
		Attrs:  transport.AllocateFlowRequestAttrs{PortID: 100},
	}
	require.NoError(t, HandleAllocateFlowRequest(d, 9, msg))

	require.True(t, d.Ingress.Empty(), "ingress entry must be rolled back on delegate failure")
	require.Len(t, fake.Sent, 1)
	require.Equal(t, int32(-1), fake.Sent[0].Result)
}

func TestHandleAllocateFlowRequestUnknownIPCP(t *testing.T) {
	d := newDeps(t, &stubOps{})
	fake := d.Transport.(*transport.Fake)

	msg := &transport.AllocateFlowRequestMsg{
		Header: transport.Header{DstIPCID: 404, Seq: 1},
	}
	require.NoError(t, HandleAllocateFlowRequest(d, 9, msg))
	require.True(t, d.Ingress.Empty())
	require.Len(t, fake.Sent, 1)
	require.Equal(t, uint32(0), uint32(fake.Sent[0].IpcID))
}

func TestHandleAllocateFlowResponseConsumesEgress(t *testing.T) {
	d := newDeps(t, &stubOps{})
	require.NoError(t, d.Egress.Add(7, 55))

	msg := &transport.AllocateFlowResponseMsg{
		Header: transport.Header{DstIPCID: 1, Seq: 7},
		Attrs:  transport.AllocateFlowResponseAttrs{PortID: 9, Result: 0},
	}
	require.NoError(t, HandleAllocateFlowResponse(d, 9, msg))
	require.True(t, d.Egress.Empty())
}

func TestHandleDeallocateFlowRequestSendsReply(t *testing.T) {
	d := newDeps(t, &stubOps{})
	fake := d.Transport.(*transport.Fake)
	ref := d.KFA.(*kfa.Reference)

	flowID, err := ref.FlowCreate()
	require.NoError(t, err)
	require.NoError(t, ref.FlowBind(1, 5, flowID))

	msg := &transport.DeallocateFlowRequestMsg{
		Header: transport.Header{DstIPCID: 1, Seq: 3},
		Attrs:  transport.DeallocateFlowRequestAttrs{PortID: 5},
	}
	require.NoError(t, HandleDeallocateFlowRequest(d, 9, msg))
	require.Len(t, fake.Sent, 1)
	require.Equal(t, int32(0), fake.Sent[0].Result)
}

func TestHandleRegisterApplication(t *testing.T) {
	d := newDeps(t, &stubOps{})
	fake := d.Transport.(*transport.Fake)

	msg := &transport.ApplicationRequestMsg{
		Header: transport.Header{DstIPCID: 1, Seq: 3},
		Attrs:  transport.ApplicationAttrs{AppName: transport.Name{Process: "app"}},
	}
	require.NoError(t, HandleRegisterApplication(d, 9, msg))
	require.Len(t, fake.Sent, 1)
	require.True(t, fake.Sent[0].IsRegister)
}
