package kfa

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/rina-project/kipcm/internal/ids"
)

// flowState tracks one minted flow, plus a real kernel file descriptor
// standing in for the buffer queue a production KFA would own. Holding an
// actual fd (rather than a bare counter) keeps this reference
// implementation honest about per-flow resource bookkeeping.
type flowState struct {
	fd     int
	ipcID  ids.IpcpId
	portID ids.PortId
	bound  bool
	sdu    []byte
}

// Reference is a minimal in-process KFA: enough flow and SDU bookkeeping
// to drive the KIPCM's handlers and facade end to end in tests, without
// any real kernel buffer-queue behavior.
type Reference struct {
	mu       sync.Mutex
	nextID   ids.FlowId
	flows    map[ids.FlowId]*flowState
	byPort   map[ids.PortId]ids.FlowId
	byIPC    map[ids.IpcpId]map[ids.FlowId]struct{}
}

// NewReference builds an empty reference KFA.
func NewReference() *Reference {
	return &Reference{
		flows:  make(map[ids.FlowId]*flowState),
		byPort: make(map[ids.PortId]ids.FlowId),
		byIPC:  make(map[ids.IpcpId]map[ids.FlowId]struct{}),
	}
}

func (r *Reference) FlowCreate() (ids.FlowId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fd, err := unix.Open("/dev/null", unix.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("kfa: open flow handle: %w", err)
	}

	r.nextID++
	id := r.nextID
	r.flows[id] = &flowState{fd: fd}
	return id, nil
}

func (r *Reference) FlowExists(flowID ids.FlowId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.flows[flowID]
	return ok
}

func (r *Reference) FlowBind(ipcID ids.IpcpId, portID ids.PortId, flowID ids.FlowId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fs, ok := r.flows[flowID]
	if !ok {
		return fmt.Errorf("kfa: flow %d not found", flowID)
	}
	if _, exists := r.byPort[portID]; exists {
		return fmt.Errorf("kfa: port %d already bound", portID)
	}
	fs.ipcID = ipcID
	fs.portID = portID
	fs.bound = true
	r.byPort[portID] = flowID
	if r.byIPC[ipcID] == nil {
		r.byIPC[ipcID] = make(map[ids.FlowId]struct{})
	}
	r.byIPC[ipcID][flowID] = struct{}{}
	return nil
}

func (r *Reference) FlowDiscard(flowID ids.FlowId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fs, ok := r.flows[flowID]
	if !ok {
		return fmt.Errorf("kfa: flow %d not found", flowID)
	}
	if fs.bound {
		return fmt.Errorf("kfa: flow %d already bound to port %d", flowID, fs.portID)
	}
	delete(r.flows, flowID)
	unix.Close(fs.fd)
	return nil
}

func (r *Reference) FlowRemove(portID ids.PortId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeByPortLocked(portID)
}

func (r *Reference) removeByPortLocked(portID ids.PortId) error {
	flowID, ok := r.byPort[portID]
	if !ok {
		return fmt.Errorf("kfa: port %d not bound", portID)
	}
	fs := r.flows[flowID]
	delete(r.byPort, portID)
	delete(r.flows, flowID)
	if fs != nil {
		if set, ok := r.byIPC[fs.ipcID]; ok {
			delete(set, flowID)
			if len(set) == 0 {
				delete(r.byIPC, fs.ipcID)
			}
		}
		unix.Close(fs.fd)
	}
	return nil
}

func (r *Reference) RemoveAllForIPCP(ipcID ids.IpcpId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byIPC[ipcID]
	if !ok {
		return nil
	}
	var firstErr error
	for flowID := range set {
		for port, fid := range r.byPort {
			if fid == flowID {
				if err := r.removeByPortLocked(port); err != nil && firstErr == nil {
					firstErr = err
				}
				break
			}
		}
		delete(r.flows, flowID)
	}
	delete(r.byIPC, ipcID)
	return firstErr
}

func (r *Reference) SDUWrite(portID ids.PortId, sdu []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	flowID, ok := r.byPort[portID]
	if !ok {
		return fmt.Errorf("kfa: port %d not bound", portID)
	}
	r.flows[flowID].sdu = sdu
	return nil
}

func (r *Reference) SDURead(portID ids.PortId) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flowID, ok := r.byPort[portID]
	if !ok {
		return nil, fmt.Errorf("kfa: port %d not bound", portID)
	}
	fs := r.flows[flowID]
	sdu := fs.sdu
	fs.sdu = nil
	return sdu, nil
}

func (r *Reference) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fs := range r.flows {
		unix.Close(fs.fd)
	}
	r.flows = make(map[ids.FlowId]*flowState)
	r.byPort = make(map[ids.PortId]ids.FlowId)
	r.byIPC = make(map[ids.IpcpId]map[ids.FlowId]struct{})
	return nil
}
