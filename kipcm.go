package kipcm

import (
	"sync"

	"github.com/rina-project/kipcm/internal/constants"
	"github.com/rina-project/kipcm/internal/correlation"
	"github.com/rina-project/kipcm/internal/ids"
	"github.com/rina-project/kipcm/internal/kfa"
	"github.com/rina-project/kipcm/internal/logging"
	"github.com/rina-project/kipcm/internal/registry"
)

// KIPCM is the Kernel IPC Manager: the registry of IPCP factories and
// instances, the ingress/egress flow-allocation correlation tables, and
// the control-message dispatcher, all serialized behind a single mutex.
// A KIPCM is created with Create and must be released with Destroy.
type KIPCM struct {
	mu sync.Mutex

	factories *registry.FactoryTable
	instances *registry.InstanceMap
	ingress   *correlation.Table[ids.FlowId, ids.SeqNum]
	egress    *correlation.Table[ids.SeqNum, ids.FlowId]

	transport Transport
	kfa       KFA
	ownsKFA   bool
	sduSink   SDUSink

	logger   *logging.Logger
	observer Observer
}

// Create builds a KIPCM, installing all six control-message handlers on
// opts.Transport. On any handler registration failure, every handler
// installed so far is rolled back and Create returns a non-nil error;
// callers never receive a partially-wired KIPCM.
func Create(opts Options) (*KIPCM, error) {
	if opts.Transport == nil {
		return nil, newError("create", KindInvalidArg, 0, 0, nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	ownsKFA := false
	kernelFA := opts.KFA
	if kernelFA == nil {
		kernelFA = kfa.NewReference()
		ownsKFA = true
	}

	k := &KIPCM{
		factories: registry.NewFactoryTable(),
		instances: registry.NewInstanceMap(),
		ingress:   correlation.New[ids.FlowId, ids.SeqNum](),
		egress:    correlation.New[ids.SeqNum, ids.FlowId](),
		transport: opts.Transport,
		kfa:       kernelFA,
		ownsKFA:   ownsKFA,
		sduSink:   opts.SDUSink,
		logger:    logger,
		observer:  observer,
	}

	if err := k.registerAllHandlers(); err != nil {
		if ownsKFA {
			_ = kernelFA.Close()
		}
		return nil, err
	}

	logger.Info("kipcm created")
	return k, nil
}

// Destroy unregisters every handler and, if Create built the reference
// KFA itself, closes it. It first asserts that the instance map and both
// correlation tables are empty: destroying a KIPCM with live IPCPs or
// outstanding allocate-flow transactions would silently strand them, so
// Destroy refuses and returns KindNotEmpty instead of releasing anything.
// Unregistration is attempted for every handler even if an earlier one
// fails; the first error encountered there is returned.
func (k *KIPCM) Destroy() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.instances.Empty() || !k.ingress.Empty() || !k.egress.Empty() {
		k.logger.Error("destroy called with outstanding state",
			"instances", k.instances.Len(), "ingress", k.ingress.Len(), "egress", k.egress.Len())
		return newError("destroy", KindNotEmpty, 0, 0, nil)
	}

	err := k.unregisterAllHandlers()
	if k.ownsKFA {
		if cerr := k.kfa.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	k.logger.Info("kipcm destroyed")
	return err
}

// KFA returns the Kernel Flow Allocator this KIPCM drives, so a caller
// that supplied its own can still reach it (e.g. to post inbound SDUs).
func (k *KIPCM) KFA() KFA {
	return k.kfa
}

// FactoryRegister adds a new IPCP factory kind.
func (k *KIPCM) FactoryRegister(name string, create CreateFunc, destroy DestroyFunc) (*Factory, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	f, err := k.factories.Register(name, create, destroy)
	if err != nil {
		if _, exists := k.factories.Find(name); exists {
			return nil, newError("factory-register", KindAlreadyExists, 0, 0, err)
		}
		return nil, newError("factory-register", KindInvalidArg, 0, 0, err)
	}
	return f, nil
}

// FactoryUnregister removes a factory kind. Fails with KindInUse if any
// live instance still references it.
func (k *KIPCM) FactoryUnregister(f *Factory) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if f != nil && f.InUse() {
		return newError("factory-unregister", KindInUse, 0, 0, nil)
	}
	if err := k.factories.Unregister(f); err != nil {
		return newError("factory-unregister", KindNotFound, 0, 0, err)
	}
	return nil
}

// IpcpCreate instantiates a new IPCP of the named factory kind under id.
// An empty factoryName selects constants.DefaultFactoryName.
func (k *KIPCM) IpcpCreate(name Name, id IpcpId, factoryName string) (IpcpId, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if factoryName == "" {
		factoryName = constants.DefaultFactoryName
	}
	if !id.Valid() {
		return 0, newError("ipcp-create", KindInvalidArg, id, 0, nil)
	}
	if _, exists := k.instances.Find(id); exists {
		return 0, newError("ipcp-create", KindAlreadyExists, id, 0, nil)
	}
	f, ok := k.factories.Find(factoryName)
	if !ok {
		return 0, newError("ipcp-create", KindNotFound, id, 0, nil)
	}

	ops, ok := f.Create(name, id)
	if !ok {
		return 0, newError("ipcp-create", KindAllocFail, id, 0, nil)
	}

	inst := &registry.Instance{ID: id, Factory: f, Ops: ops}
	if err := k.instances.Insert(id, inst); err != nil {
		if derr := f.Destroy(ops); derr != nil {
			k.logger.Warn("ipcp-create: rollback destroy failed", "ipcp", id, "err", derr)
		}
		return 0, newError("ipcp-create", KindAlreadyExists, id, 0, err)
	}

	k.observer.IpcpCreated()
	k.logger.Info("ipcp created", "ipcp", id, "factory", factoryName)
	return id, nil
}

// IpcpDestroy tears down the IPCP instance at id: every flow it owns is
// removed from the KFA before the factory releases the Ops value.
func (k *KIPCM) IpcpDestroy(id IpcpId) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	inst, err := k.instances.Remove(id)
	if err != nil {
		return newError("ipcp-destroy", KindNotFound, id, 0, err)
	}

	if err := k.kfa.RemoveAllForIPCP(id); err != nil {
		k.logger.Warn("ipcp-destroy: flow teardown failed", "ipcp", id, "err", err)
	}
	if err := inst.Factory.Destroy(inst.Ops); err != nil {
		k.logger.Error("ipcp-destroy: factory destroy failed", "ipcp", id, "err", err)
		return newError("ipcp-destroy", KindDelegateFail, id, 0, err)
	}

	k.observer.IpcpDestroyed()
	k.logger.Info("ipcp destroyed", "ipcp", id)
	return nil
}

// FlowArrived notifies the application side of a peer-initiated flow
// request: ipcID is the local IPCP that accepted it, flowID the handle
// the IPCP (via the KFA) already minted for it. The egress correlation
// table records flowID against a freshly minted sequence number so the
// eventual ALLOCATE_FLOW_RESPONSE can be matched back to it.
func (k *KIPCM) FlowArrived(ipcID IpcpId, flowID FlowId, difName string, source, dest Name, fspec FlowSpec) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.instances.Find(ipcID); !ok {
		return newError("flow-arrived", KindNotFound, ipcID, 0, nil)
	}

	seq := k.transport.NextSeqNum()
	if err := k.egress.Add(seq, flowID); err != nil {
		return newError("flow-arrived", KindAllocFail, ipcID, seq, err)
	}

	session := SessionID(constants.NotificationPortID)
	if err := k.transport.SendAllocateFlowReqArrived(ipcID, difName, source, dest, fspec, seq, session); err != nil {
		if _, rerr := k.egress.Remove(seq); rerr != nil {
			k.logger.Warn("flow-arrived: egress rollback failed", "seq", seq, "err", rerr)
		}
		return newError("flow-arrived", KindTransportFail, ipcID, seq, err)
	}
	return nil
}

// FlowAdd binds the KFA flow flowID to (ipcID, portID), completing a
// successful peer flow allocation before the application is notified of
// the result. Grounded on the reference source's kipcm_flow_add, which
// calls kfa_flow_bind and nothing else.
func (k *KIPCM) FlowAdd(ipcID IpcpId, portID PortId, flowID FlowId) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.instances.Find(ipcID); !ok {
		return newError("flow-add", KindNotFound, ipcID, 0, nil)
	}
	if err := k.kfa.FlowBind(ipcID, portID, flowID); err != nil {
		return newError("flow-add", KindDelegateFail, ipcID, 0, err)
	}
	k.observer.FlowAllocated()
	return nil
}

// FlowRes completes an outbound allocate-flow transaction previously
// started by ALLOCATE_FLOW_REQUEST: the IPCP calls this once it has a
// final result for flowID, after already calling FlowAdd on success. It
// only looks up the original sequence number in the ingress table,
// emits the alloc-flow-result reply, and removes the entry — it does
// not touch the KFA, matching the reference source's kipcm_flow_res,
// which takes no port_id and performs no binding. On a failing result
// the minted-but-never-bound flow is discarded. The reply is always
// addressed to the fixed notification channel, matching kipcm_flow_res
// (which hardcodes its nl_port_id argument rather than recalling the
// original requester's session).
func (k *KIPCM) FlowRes(ipcID IpcpId, flowID FlowId, result int32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.instances.Find(ipcID); !ok {
		return newError("flow-res", KindNotFound, ipcID, 0, nil)
	}

	seq, err := k.ingress.Remove(flowID)
	if err != nil {
		return newError("flow-res", KindNotFound, ipcID, 0, err)
	}

	if result != 0 {
		if err := k.kfa.FlowDiscard(flowID); err != nil {
			k.logger.Warn("flow-res: flow discard failed", "flow", flowID, "err", err)
		}
	}

	session := SessionID(constants.NotificationPortID)
	if err := k.transport.SendAllocateFlowResult(session, ipcID, seq, 0, result); err != nil {
		return newError("flow-res", KindTransportFail, ipcID, seq, err)
	}
	return nil
}

// FlowDeallocated releases the KFA-side state for a flow torn down
// outside the DEALLOCATE_FLOW_REQUEST path (e.g. the IPCP detecting a
// peer-initiated teardown) and records it with the observer.
func (k *KIPCM) FlowDeallocated(portID PortId) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.kfa.FlowRemove(portID); err != nil {
		return newError("flow-deallocated", KindNotFound, 0, 0, err)
	}
	k.observer.FlowDeallocated()
	return nil
}

// SDUWrite hands sdu to the KFA for delivery on the flow bound at
// portID.
func (k *KIPCM) SDUWrite(portID PortId, sdu []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.kfa.SDUWrite(portID, sdu); err != nil {
		return newError("sdu-write", KindDelegateFail, 0, 0, err)
	}
	return nil
}

// SDURead retrieves the next SDU queued on the flow bound at portID.
func (k *KIPCM) SDURead(portID PortId) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	sdu, err := k.kfa.SDURead(portID)
	if err != nil {
		return nil, newError("sdu-read", KindDelegateFail, 0, 0, err)
	}
	return sdu, nil
}

// SDUPost delivers an inbound SDU, received by the KFA on portID, up to
// the configured SDUSink (kipcm_sdu_post in the reference source).
// Fails with KindInvalidArg if no sink was configured.
func (k *KIPCM) SDUPost(portID PortId, sdu []byte) error {
	k.mu.Lock()
	sink := k.sduSink
	k.mu.Unlock()

	if sink == nil {
		return newError("sdu-post", KindInvalidArg, 0, 0, nil)
	}
	if err := sink.SDUPost(portID, sdu); err != nil {
		return newError("sdu-post", KindDelegateFail, 0, 0, err)
	}
	return nil
}
