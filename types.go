package kipcm

import (
	"github.com/rina-project/kipcm/internal/ids"
	"github.com/rina-project/kipcm/internal/kfa"
	"github.com/rina-project/kipcm/internal/registry"
	"github.com/rina-project/kipcm/internal/transport"
)

// Identifier types, re-exported so callers never import internal/ids
// directly.
type (
	IpcpId = ids.IpcpId
	PortId = ids.PortId
	FlowId = ids.FlowId
	SeqNum = ids.SeqNum
)

// Control-transport types.
type (
	SessionID          = transport.SessionID
	Kind               = transport.Kind
	Name               = transport.Name
	FlowSpec           = transport.FlowSpec
	DIFConfig          = transport.DIFConfig
	RawMessage         = transport.RawMessage
	Header             = transport.Header
	Transport          = transport.Transport
	AssignToDIFAttrs   = transport.AssignToDIFAttrs
	AllocateFlowReqAttrs = transport.AllocateFlowRequestAttrs
	AllocateFlowRespAttrs = transport.AllocateFlowResponseAttrs
	DeallocateFlowAttrs = transport.DeallocateFlowRequestAttrs
	ApplicationAttrs   = transport.ApplicationAttrs
)

// Control-message kinds, re-exported alongside Kind.
const (
	KindAssignToDIFRequest           = transport.KindAssignToDIFRequest
	KindAllocateFlowRequest          = transport.KindAllocateFlowRequest
	KindAllocateFlowResponse         = transport.KindAllocateFlowResponse
	KindDeallocateFlowRequest        = transport.KindDeallocateFlowRequest
	KindRegisterApplicationRequest   = transport.KindRegisterApplicationRequest
	KindUnregisterApplicationRequest = transport.KindUnregisterApplicationRequest
)

// IPCP factory/instance types.
type (
	IpcpOps     = registry.Ops
	CreateFunc  = registry.CreateFunc
	DestroyFunc = registry.DestroyFunc
	Factory     = registry.Factory
)

// KFA is the Kernel Flow Allocator collaborator's interface.
type KFA = kfa.KFA

// SDUSink is the out-of-scope collaborator (RMT, in the reference stack)
// that KFA hands received SDUs to via kipcm_sdu_post.
type SDUSink interface {
	SDUPost(portID PortId, sdu []byte) error
}
