package kipcm

import (
	"sync"

	"github.com/rina-project/kipcm/internal/transport"
)

// NewFakeTransport builds an in-process reference Transport, usable both
// in tests and as a minimal standalone implementation: it records every
// outbound message and lets a test inject registration or send failures
// to exercise the KIPCM's rollback and error paths.
func NewFakeTransport() *transport.Fake {
	return transport.NewFake()
}

// MockOps is a mock IpcpOps implementation for testing: it tracks every
// call it receives and lets a test inject a failure per method.
type MockOps struct {
	mu sync.Mutex

	AssignToDIFCalls          int
	ApplicationRegisterCalls  int
	ApplicationUnregisterCalls int
	FlowAllocateRequestCalls  int
	FlowAllocateResponseCalls int
	FlowDeallocateCalls       int

	FailAssignToDIF          bool
	FailApplicationRegister  bool
	FailApplicationUnregister bool
	FailFlowAllocateRequest  bool
	FailFlowAllocateResponse bool
	FailFlowDeallocate       bool

	LastDIFName  string
	LastAppName  Name
	LastSource   Name
	LastDest     Name
	LastPortID   PortId
	LastFlowID   FlowId
	LastResult   int32
}

// NewMockOps returns a ready-to-use mock IPCP implementation.
func NewMockOps() *MockOps {
	return &MockOps{}
}

func (m *MockOps) AssignToDIF(difName string, _ DIFConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AssignToDIFCalls++
	m.LastDIFName = difName
	if m.FailAssignToDIF {
		return errMock
	}
	return nil
}

func (m *MockOps) ApplicationRegister(appName Name) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplicationRegisterCalls++
	m.LastAppName = appName
	if m.FailApplicationRegister {
		return errMock
	}
	return nil
}

func (m *MockOps) ApplicationUnregister(appName Name) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplicationUnregisterCalls++
	m.LastAppName = appName
	if m.FailApplicationUnregister {
		return errMock
	}
	return nil
}

func (m *MockOps) FlowAllocateRequest(source, dest Name, _ FlowSpec, portID PortId, flowID FlowId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FlowAllocateRequestCalls++
	m.LastSource, m.LastDest, m.LastPortID, m.LastFlowID = source, dest, portID, flowID
	if m.FailFlowAllocateRequest {
		return errMock
	}
	return nil
}

func (m *MockOps) FlowAllocateResponse(flowID FlowId, portID PortId, result int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FlowAllocateResponseCalls++
	m.LastFlowID, m.LastPortID, m.LastResult = flowID, portID, result
	if m.FailFlowAllocateResponse {
		return errMock
	}
	return nil
}

func (m *MockOps) FlowDeallocate(portID PortId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FlowDeallocateCalls++
	m.LastPortID = portID
	if m.FailFlowDeallocate {
		return errMock
	}
	return nil
}

// errMock is returned by MockOps when its matching Fail* flag is set.
var errMock = newError("mock-ops", KindDelegateFail, 0, 0, nil)

// NewMockFactory wraps a single MockOps as a factory: every IpcpCreate
// call through it returns the same instance, which is enough for tests
// that only ever create one IPCP per factory registration. destroyed is
// incremented on every Destroy call.
func NewMockFactory(ops *MockOps) (CreateFunc, DestroyFunc, *int) {
	destroyed := 0
	create := func(_ Name, _ IpcpId) (IpcpOps, bool) {
		return ops, true
	}
	destroy := func(_ IpcpOps) error {
		destroyed++
		return nil
	}
	return create, destroy, &destroyed
}
