// Package kfa names the Kernel Flow Allocator interface the KIPCM calls
// into for flow minting and SDU I/O. The real KFA (buffer queues, blocking
// read/write) is out of scope for this module; this package only defines
// the boundary and a reference in-process implementation for tests and
// standalone use.
package kfa

import "github.com/rina-project/kipcm/internal/ids"

// KFA is the Kernel Flow Allocator's interface as seen by the KIPCM.
type KFA interface {
	// FlowCreate mints a new FlowId for an outstanding allocation.
	FlowCreate() (ids.FlowId, error)
	// FlowExists reports whether flowID is still known to the KFA.
	FlowExists(flowID ids.FlowId) bool
	// FlowBind binds a minted flow to (ipcID, portID) once the
	// allocation is committed.
	FlowBind(ipcID ids.IpcpId, portID ids.PortId, flowID ids.FlowId) error
	// FlowRemove tears down the bound flow at portID.
	FlowRemove(portID ids.PortId) error
	// RemoveAllForIPCP tears down every flow owned by ipcID, used during
	// ipcp_destroy.
	RemoveAllForIPCP(ipcID ids.IpcpId) error
	// FlowDiscard releases a flow that was minted but never bound to a
	// port, used to roll back a failed allocate-request.
	FlowDiscard(flowID ids.FlowId) error
	// SDUWrite delegates a write to the flow bound at portID. Ownership
	// of sdu passes to the KFA on every return, success or error.
	SDUWrite(portID ids.PortId, sdu []byte) error
	// SDURead delegates a blocking read from the flow bound at portID.
	SDURead(portID ids.PortId) ([]byte, error)
	// Close releases all KFA-owned resources.
	Close() error
}
