package handlers

import (
	"fmt"

	"github.com/rina-project/kipcm/internal/ids"
	"github.com/rina-project/kipcm/internal/registry"
	"github.com/rina-project/kipcm/internal/transport"
)

// lookupIPCP resolves dst against the instance map, logging the miss the
// way every handler must on a not-found target.
func lookupIPCP(d *Deps, op string, dst ids.IpcpId) (*registry.Instance, bool) {
	inst, ok := d.Instances.Find(dst)
	if !ok {
		d.Logger.Warn("target IPCP not found", "op", op, "ipcp", dst)
	}
	return inst, ok
}

// HandleAssignToDIF implements ASSIGN_TO_DIF_REQUEST.
func HandleAssignToDIF(d *Deps, session transport.SessionID, msg transport.RawMessage) error {
	if d == nil {
		return fmt.Errorf("handlers: nil deps")
	}
	var c cleanup
	defer c.release()

	hdr, attrs, err := d.Transport.ParseAssignToDIF(msg)
	if err != nil {
		d.Logger.Error("assign-to-dif parse failed", "err", err)
		return d.Transport.SendAssignToDIFResponse(session, 0, hdr.Seq, -1)
	}

	inst, ok := lookupIPCP(d, "assign-to-dif", hdr.DstIPCID)
	if !ok {
		return d.Transport.SendAssignToDIFResponse(session, 0, hdr.Seq, -1)
	}

	if err := inst.Ops.AssignToDIF(attrs.DIFName, attrs.DIFConfig); err != nil {
		d.Logger.Error("assign-to-dif delegate failed", "ipcp", hdr.DstIPCID, "err", err)
		return d.Transport.SendAssignToDIFResponse(session, hdr.DstIPCID, hdr.Seq, -1)
	}

	return d.Transport.SendAssignToDIFResponse(session, hdr.DstIPCID, hdr.Seq, 0)
}

// HandleAllocateFlowRequest implements ALLOCATE_FLOW_REQUEST: the
// outbound (application-initiated) allocate leg. On success no reply is
// sent here — the IPCP eventually calls back through kipcm_flow_res.
func HandleAllocateFlowRequest(d *Deps, session transport.SessionID, msg transport.RawMessage) error {
	if d == nil {
		return fmt.Errorf("handlers: nil deps")
	}
	var c cleanup
	defer c.release()

	hdr, attrs, err := d.Transport.ParseAllocateFlowRequest(msg)
	if err != nil {
		d.Logger.Error("allocate-flow-request parse failed", "err", err)
		return d.Transport.SendAllocateFlowResult(session, 0, hdr.Seq, attrs.PortID, -1)
	}

	inst, ok := lookupIPCP(d, "allocate-flow-request", hdr.DstIPCID)
	if !ok {
		return d.Transport.SendAllocateFlowResult(session, 0, hdr.Seq, attrs.PortID, -1)
	}

	flowID, err := d.KFA.FlowCreate()
	if err != nil || !flowID.Valid() {
		d.Logger.Error("allocate-flow-request KFA mint failed", "ipcp", hdr.DstIPCID, "err", err)
		return d.Transport.SendAllocateFlowResult(session, hdr.DstIPCID, hdr.Seq, attrs.PortID, -1)
	}
	c.push(func() {
		if err := d.KFA.FlowDiscard(flowID); err != nil {
			d.Logger.Warn("allocate-flow-request: flow discard during rollback failed", "flow", flowID, "err", err)
		}
	})

	if err := d.Ingress.Add(flowID, hdr.Seq); err != nil {
		d.Logger.Error("allocate-flow-request ingress insert failed", "flow", flowID, "err", err)
		return d.Transport.SendAllocateFlowResult(session, hdr.DstIPCID, hdr.Seq, attrs.PortID, -1)
	}
	c.push(func() {
		// Only reached if a later step fails: undoes the insert above so
		// the ingress table never leaks a transaction the IPCP never
		// actually started (resolves the open question left by the
		// reference source, which left this entry behind).
		if _, err := d.Ingress.Remove(flowID); err != nil {
			d.Logger.Warn("allocate-flow-request: ingress rollback failed", "flow", flowID, "err", err)
		}
	})

	if err := inst.Ops.FlowAllocateRequest(attrs.Source, attrs.Dest, attrs.FlowSpec, attrs.PortID, flowID); err != nil {
		d.Logger.Error("allocate-flow-request delegate failed", "ipcp", hdr.DstIPCID, "flow", flowID, "err", err)
		return d.Transport.SendAllocateFlowResult(session, hdr.DstIPCID, hdr.Seq, attrs.PortID, -1)
	}

	// Success: cancel the rollback cleanups, the transaction is now live
	// in the ingress table awaiting kipcm_flow_res.
	c.fns = nil
	return nil
}

// HandleAllocateFlowResponse implements ALLOCATE_FLOW_RESPONSE: the
// inbound (peer-initiated) allocate leg's reply. It has no reply kind of
// its own — it consumes the egress entry recorded by flow_arrived.
func HandleAllocateFlowResponse(d *Deps, session transport.SessionID, msg transport.RawMessage) error {
	if d == nil {
		return fmt.Errorf("handlers: nil deps")
	}

	hdr, attrs, err := d.Transport.ParseAllocateFlowResponse(msg)
	if err != nil {
		d.Logger.Error("allocate-flow-response parse failed", "err", err)
		return nil
	}

	flowID, err := d.Egress.Remove(hdr.Seq)
	if err != nil {
		d.Logger.Error("allocate-flow-response: no egress entry", "seq", hdr.Seq, "err", err)
		return nil
	}

	inst, ok := lookupIPCP(d, "allocate-flow-response", hdr.DstIPCID)
	if !ok {
		return nil
	}

	if err := inst.Ops.FlowAllocateResponse(flowID, attrs.PortID, attrs.Result); err != nil {
		d.Logger.Error("allocate-flow-response delegate failed", "ipcp", hdr.DstIPCID, "flow", flowID, "err", err)
	}
	return nil
}

// HandleDeallocateFlowRequest implements DEALLOCATE_FLOW_REQUEST.
func HandleDeallocateFlowRequest(d *Deps, session transport.SessionID, msg transport.RawMessage) error {
	if d == nil {
		return fmt.Errorf("handlers: nil deps")
	}

	hdr, attrs, err := d.Transport.ParseDeallocateFlowRequest(msg)
	if err != nil {
		d.Logger.Error("deallocate-flow-request parse failed", "err", err)
		return d.Transport.SendDeallocateFlowResponse(session, 0, hdr.Seq, -1)
	}

	inst, ok := lookupIPCP(d, "deallocate-flow-request", hdr.DstIPCID)
	if !ok {
		return d.Transport.SendDeallocateFlowResponse(session, 0, hdr.Seq, -1)
	}

	result := int32(0)
	if err := inst.Ops.FlowDeallocate(attrs.PortID); err != nil {
		d.Logger.Error("deallocate-flow-request delegate failed", "ipcp", hdr.DstIPCID, "port", attrs.PortID, "err", err)
		result = -1
	} else if err := d.KFA.FlowRemove(attrs.PortID); err != nil {
		d.Logger.Error("deallocate-flow-request KFA teardown failed", "ipcp", hdr.DstIPCID, "port", attrs.PortID, "err", err)
		result = -1
	}

	return d.Transport.SendDeallocateFlowResponse(session, hdr.DstIPCID, hdr.Seq, result)
}

// HandleRegisterApplication implements REGISTER_APPLICATION_REQUEST.
func HandleRegisterApplication(d *Deps, session transport.SessionID, msg transport.RawMessage) error {
	return handleApplicationRequest(d, session, msg, true)
}

// HandleUnregisterApplication implements UNREGISTER_APPLICATION_REQUEST.
func HandleUnregisterApplication(d *Deps, session transport.SessionID, msg transport.RawMessage) error {
	return handleApplicationRequest(d, session, msg, false)
}

func handleApplicationRequest(d *Deps, session transport.SessionID, msg transport.RawMessage, isRegister bool) error {
	if d == nil {
		return fmt.Errorf("handlers: nil deps")
	}
	op := "unregister-app"
	if isRegister {
		op = "register-app"
	}

	hdr, attrs, err := d.Transport.ParseApplicationRequest(msg)
	if err != nil {
		d.Logger.Error(op+" parse failed", "err", err)
		return d.Transport.SendRegistrationResponse(session, 0, hdr.Seq, -1, isRegister)
	}

	inst, ok := lookupIPCP(d, op, hdr.DstIPCID)
	if !ok {
		return d.Transport.SendRegistrationResponse(session, 0, hdr.Seq, -1, isRegister)
	}

	var opErr error
	if isRegister {
		opErr = inst.Ops.ApplicationRegister(attrs.AppName)
	} else {
		opErr = inst.Ops.ApplicationUnregister(attrs.AppName)
	}

	result := int32(0)
	if opErr != nil {
		d.Logger.Error(op+" delegate failed", "ipcp", hdr.DstIPCID, "app", attrs.AppName.String(), "err", opErr)
		result = -1
	}

	return d.Transport.SendRegistrationResponse(session, hdr.DstIPCID, hdr.Seq, result, isRegister)
}
