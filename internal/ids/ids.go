// Package ids defines the small typed identifiers the KIPCM correlates
// requests, flows and ports by, and their validity predicates.
package ids

import "fmt"

// IpcpId identifies an in-kernel IPC process instance. It is chosen by the
// caller of ipcp_create and must be non-zero.
type IpcpId uint32

// Valid reports whether the id can identify a real IPCP. Zero is reserved
// to mean "no IPCP identified" in error replies.
func (id IpcpId) Valid() bool { return id != 0 }

func (id IpcpId) String() string { return fmt.Sprintf("ipcp:%d", uint32(id)) }

// PortId identifies an application-visible flow endpoint, bound once a
// flow allocation is committed. Distinct from FlowId: a PortId is bound
// later than the FlowId that precedes it.
type PortId uint32

// Valid reports whether the id can identify a bound flow endpoint.
func (id PortId) Valid() bool { return id != 0 }

func (id PortId) String() string { return fmt.Sprintf("port:%d", uint32(id)) }

// FlowId is an internal handle minted by the KFA at allocation-request
// time, preceding port binding.
type FlowId uint32

// Valid reports whether the id can identify an outstanding flow.
func (id FlowId) Valid() bool { return id != 0 }

func (id FlowId) String() string { return fmt.Sprintf("flow:%d", uint32(id)) }

// SeqNum is a control-transport request identifier, supplied by the peer
// and used to correlate requests and responses on a session.
type SeqNum uint32

// Valid reports whether the sequence number can identify an outstanding
// transaction.
func (s SeqNum) Valid() bool { return s != 0 }

func (s SeqNum) String() string { return fmt.Sprintf("seq:%d", uint32(s)) }
