package transport

import (
	"fmt"
	"sync"

	"github.com/rina-project/kipcm/internal/ids"
)

// Fake is an in-process reference Transport, usable both as the control
// transport in tests and as a minimal standalone implementation. It parses
// RawMessage by type-asserting the attrs struct directly, records every
// outbound message for assertions, and lets tests inject registration or
// send failures to exercise the KIPCM's rollback and error paths.
type Fake struct {
	mu       sync.Mutex
	handlers map[Kind]HandlerFunc
	seq      ids.SeqNum

	// FailRegister, if set for a Kind, makes RegisterHandler fail for it.
	FailRegister map[Kind]bool
	// FailSend, if true, makes every Send* call fail.
	FailSend bool

	Sent []SentMessage
}

// SentMessage records one outbound message, for test assertions.
type SentMessage struct {
	Kind       string
	Session    SessionID
	IpcID      ids.IpcpId
	Seq        ids.SeqNum
	PortID     ids.PortId
	Result     int32
	IsRegister bool
}

// NewFake builds a ready-to-use Fake transport.
func NewFake() *Fake {
	return &Fake{handlers: make(map[Kind]HandlerFunc)}
}

func (f *Fake) RegisterHandler(kind Kind, fn HandlerFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRegister[kind] {
		return fmt.Errorf("transport: registration refused for %s", kind)
	}
	if _, exists := f.handlers[kind]; exists {
		return fmt.Errorf("transport: handler already installed for %s", kind)
	}
	f.handlers[kind] = fn
	return nil
}

func (f *Fake) UnregisterHandler(kind Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.handlers[kind]; !exists {
		return fmt.Errorf("transport: no handler installed for %s", kind)
	}
	delete(f.handlers, kind)
	return nil
}

// Deliver simulates an inbound message of kind arriving on session,
// invoking whatever handler is currently installed. It is the test-side
// entry point standing in for the real transport's receive thread.
func (f *Fake) Deliver(kind Kind, session SessionID, msg RawMessage) error {
	f.mu.Lock()
	fn, ok := f.handlers[kind]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: no handler installed for %s", kind)
	}
	return fn(session, msg)
}

func (f *Fake) Installed(kind Kind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[kind]
	return ok
}

func (f *Fake) NextSeqNum() ids.SeqNum {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq
}

func (f *Fake) record(m SentMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSend {
		return fmt.Errorf("transport: send failed")
	}
	f.Sent = append(f.Sent, m)
	return nil
}

func (f *Fake) SendAssignToDIFResponse(session SessionID, ipcID ids.IpcpId, seq ids.SeqNum, result int32) error {
	return f.record(SentMessage{Kind: "assign-dif-response", Session: session, IpcID: ipcID, Seq: seq, Result: result})
}

func (f *Fake) SendAllocateFlowResult(session SessionID, ipcID ids.IpcpId, seq ids.SeqNum, portID ids.PortId, result int32) error {
	return f.record(SentMessage{Kind: "alloc-flow-result", Session: session, IpcID: ipcID, Seq: seq, PortID: portID, Result: result})
}

func (f *Fake) SendDeallocateFlowResponse(session SessionID, ipcID ids.IpcpId, seq ids.SeqNum, result int32) error {
	return f.record(SentMessage{Kind: "dealloc-flow-response", Session: session, IpcID: ipcID, Seq: seq, Result: result})
}

func (f *Fake) SendRegistrationResponse(session SessionID, ipcID ids.IpcpId, seq ids.SeqNum, result int32, isRegister bool) error {
	return f.record(SentMessage{Kind: "reg-unreg-response", Session: session, IpcID: ipcID, Seq: seq, Result: result, IsRegister: isRegister})
}

func (f *Fake) SendAllocateFlowReqArrived(ipcID ids.IpcpId, difName string, source, dest Name, fspec FlowSpec, seq ids.SeqNum, session SessionID) error {
	return f.record(SentMessage{Kind: "alloc-flow-req-arrived", Session: session, IpcID: ipcID, Seq: seq})
}

// Parser: the fake "parses" a RawMessage by asserting it already holds the
// typed attrs the caller built — standing in for real RNL decoding, which
// is out of scope for this module.

func (f *Fake) ParseAssignToDIF(msg RawMessage) (Header, AssignToDIFAttrs, error) {
	m, ok := msg.(*AssignToDIFMsg)
	if !ok {
		return Header{}, AssignToDIFAttrs{}, fmt.Errorf("transport: malformed ASSIGN_TO_DIF_REQUEST")
	}
	return m.Header, m.Attrs, nil
}

func (f *Fake) ParseAllocateFlowRequest(msg RawMessage) (Header, AllocateFlowRequestAttrs, error) {
	m, ok := msg.(*AllocateFlowRequestMsg)
	if !ok {
		return Header{}, AllocateFlowRequestAttrs{}, fmt.Errorf("transport: malformed ALLOCATE_FLOW_REQUEST")
	}
	return m.Header, m.Attrs, nil
}

func (f *Fake) ParseAllocateFlowResponse(msg RawMessage) (Header, AllocateFlowResponseAttrs, error) {
	m, ok := msg.(*AllocateFlowResponseMsg)
	if !ok {
		return Header{}, AllocateFlowResponseAttrs{}, fmt.Errorf("transport: malformed ALLOCATE_FLOW_RESPONSE")
	}
	return m.Header, m.Attrs, nil
}

func (f *Fake) ParseDeallocateFlowRequest(msg RawMessage) (Header, DeallocateFlowRequestAttrs, error) {
	m, ok := msg.(*DeallocateFlowRequestMsg)
	if !ok {
		return Header{}, DeallocateFlowRequestAttrs{}, fmt.Errorf("transport: malformed DEALLOCATE_FLOW_REQUEST")
	}
	return m.Header, m.Attrs, nil
}

func (f *Fake) ParseApplicationRequest(msg RawMessage) (Header, ApplicationAttrs, error) {
	m, ok := msg.(*ApplicationRequestMsg)
	if !ok {
		return Header{}, ApplicationAttrs{}, fmt.Errorf("transport: malformed application request")
	}
	return m.Header, m.Attrs, nil
}

// Concrete RawMessage shapes the Fake parser understands. Production RNL
// would decode these from wire bytes; tests build them directly.

type AssignToDIFMsg struct {
	Header Header
	Attrs  AssignToDIFAttrs
}

type AllocateFlowRequestMsg struct {
	Header Header
	Attrs  AllocateFlowRequestAttrs
}

type AllocateFlowResponseMsg struct {
	Header Header
	Attrs  AllocateFlowResponseAttrs
}

type DeallocateFlowRequestMsg struct {
	Header Header
	Attrs  DeallocateFlowRequestAttrs
}

type ApplicationRequestMsg struct {
	Header Header
	Attrs  ApplicationAttrs
}
