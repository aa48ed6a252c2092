// Package transport defines the KIPCM's view of the control transport: the
// message kinds it dispatches on, the attribute payloads each kind carries,
// and the Transport interface through which handler registration and
// outbound messages flow.
//
// The concrete parser/serializer and netlink plumbing (RNL, in the RINA
// stack's own terms) are explicitly out of scope for this module — this
// package only names the interface the KIPCM calls into. A reference
// implementation usable in tests lives in fake.go.
package transport

import (
	"fmt"

	"github.com/rina-project/kipcm/internal/ids"
)

// SessionID identifies the requester's control-transport session (its
// nl_port_id). Distinct from ids.PortId: a SessionID addresses a control
// message exchange, not a data-plane flow endpoint.
type SessionID uint32

// Kind enumerates the request kinds the dispatcher accepts.
type Kind int

const (
	KindAssignToDIFRequest Kind = iota
	KindAllocateFlowRequest
	KindAllocateFlowResponse
	KindDeallocateFlowRequest
	KindRegisterApplicationRequest
	KindUnregisterApplicationRequest
)

func (k Kind) String() string {
	switch k {
	case KindAssignToDIFRequest:
		return "ASSIGN_TO_DIF_REQUEST"
	case KindAllocateFlowRequest:
		return "ALLOCATE_FLOW_REQUEST"
	case KindAllocateFlowResponse:
		return "ALLOCATE_FLOW_RESPONSE"
	case KindDeallocateFlowRequest:
		return "DEALLOCATE_FLOW_REQUEST"
	case KindRegisterApplicationRequest:
		return "REGISTER_APPLICATION_REQUEST"
	case KindUnregisterApplicationRequest:
		return "UNREGISTER_APPLICATION_REQUEST"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// AllKinds lists the six request kinds in the order they must be
// registered/unregistered, so registration rollback is deterministic.
var AllKinds = []Kind{
	KindAssignToDIFRequest,
	KindAllocateFlowRequest,
	KindAllocateFlowResponse,
	KindDeallocateFlowRequest,
	KindRegisterApplicationRequest,
	KindUnregisterApplicationRequest,
}

// Header is the fixed part of every request, independent of its kind.
type Header struct {
	DstIPCID ids.IpcpId
	Seq      ids.SeqNum
	Session  SessionID
}

// Name is a RINA application name: a 4-tuple identifying a process,
// instance, entity and entity instance.
type Name struct {
	Process        string
	Instance       string
	Entity         string
	EntityInstance string
}

func (n Name) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", n.Process, n.Instance, n.Entity, n.EntityInstance)
}

// FlowSpec carries the QoS parameters requested for a flow.
type FlowSpec struct {
	AverageBandwidth   uint64
	AverageSDUBandwidth uint64
	MaxAllowableGapSDU  int32
	Delay               uint32
	Jitter              uint32
	InOrderDelivery     bool
	PartialDelivery     bool
}

// DIFConfig carries the DIF-specific configuration passed to assign_to_dif.
// The KIPCM treats it as opaque and forwards it verbatim to the IPCP.
type DIFConfig struct {
	Params map[string]string
}

// RawMessage is the opaque control-message payload a handler must parse.
// Its concrete shape is an RNL concern; the KIPCM only ever passes it
// through to a Parser.
type RawMessage any

// Attribute payloads per request kind.

type AssignToDIFAttrs struct {
	DIFName   string
	DIFConfig DIFConfig
}

type AllocateFlowRequestAttrs struct {
	Source   Name
	Dest     Name
	DIFName  string
	FlowSpec FlowSpec
	PortID   ids.PortId
}

type AllocateFlowResponseAttrs struct {
	PortID ids.PortId
	Result int32
}

type DeallocateFlowRequestAttrs struct {
	PortID ids.PortId
}

// ApplicationAttrs is shared by register-app and unregister-app: both
// carry only an application name and a DIF name.
type ApplicationAttrs struct {
	AppName Name
	DIFName string
}

// Parser parses a RawMessage into the header and kind-specific attributes.
// Implemented by the control-transport layer (RNL); the KIPCM only calls it.
type Parser interface {
	ParseAssignToDIF(msg RawMessage) (Header, AssignToDIFAttrs, error)
	ParseAllocateFlowRequest(msg RawMessage) (Header, AllocateFlowRequestAttrs, error)
	ParseAllocateFlowResponse(msg RawMessage) (Header, AllocateFlowResponseAttrs, error)
	ParseDeallocateFlowRequest(msg RawMessage) (Header, DeallocateFlowRequestAttrs, error)
	ParseApplicationRequest(msg RawMessage) (Header, ApplicationAttrs, error)
}

// HandlerFunc is the callback shape installed per Kind. It returns a
// non-nil error only on an unrecoverable transport failure; handler-local
// errors are turned into a negative-result reply and never propagate here.
type HandlerFunc func(session SessionID, msg RawMessage) error

// Transport is the KIPCM's view of the control transport: registration of
// per-kind handlers plus the outbound messages the KIPCM itself emits,
// replies and unsolicited notifications alike.
type Transport interface {
	Parser

	// RegisterHandler installs fn for kind. AlreadyExists if one is
	// already installed for that kind.
	RegisterHandler(kind Kind, fn HandlerFunc) error
	// UnregisterHandler removes the handler installed for kind. NotFound
	// if none is installed.
	UnregisterHandler(kind Kind) error

	// NextSeqNum mints the next sequence number for a KIPCM-initiated
	// notification (used by flow_arrived).
	NextSeqNum() ids.SeqNum

	SendAssignToDIFResponse(session SessionID, ipcID ids.IpcpId, seq ids.SeqNum, result int32) error
	SendAllocateFlowResult(session SessionID, ipcID ids.IpcpId, seq ids.SeqNum, portID ids.PortId, result int32) error
	SendDeallocateFlowResponse(session SessionID, ipcID ids.IpcpId, seq ids.SeqNum, result int32) error
	SendRegistrationResponse(session SessionID, ipcID ids.IpcpId, seq ids.SeqNum, result int32, isRegister bool) error
	SendAllocateFlowReqArrived(ipcID ids.IpcpId, difName string, source, dest Name, fspec FlowSpec, seq ids.SeqNum, session SessionID) error
}
