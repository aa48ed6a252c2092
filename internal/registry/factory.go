// Package registry holds the IPCP factory table and instance map: the
// registry of pluggable IPCP kinds and the live instances created from
// them. Callers (the KIPCM facade) are responsible for serializing access;
// nothing here takes its own lock.
package registry

import (
	"fmt"

	"github.com/rina-project/kipcm/internal/ids"
	"github.com/rina-project/kipcm/internal/transport"
)

// Ops is the set of operations an IPCP instance exposes to the KIPCM.
// A concrete IPCP implementation (shim, "normal" IPCP, ...) satisfies
// this; the KIPCM never inspects its internals.
type Ops interface {
	AssignToDIF(difName string, difConfig transport.DIFConfig) error
	ApplicationRegister(appName transport.Name) error
	ApplicationUnregister(appName transport.Name) error
	FlowAllocateRequest(source, dest transport.Name, fspec transport.FlowSpec, portID ids.PortId, flowID ids.FlowId) error
	FlowAllocateResponse(flowID ids.FlowId, portID ids.PortId, result int32) error
	FlowDeallocate(portID ids.PortId) error
}

// CreateFunc builds a new Ops value for an IPCP of the factory's kind.
// The second return reports whether creation succeeded, matching the
// reference source's "instance or NULL" convention.
type CreateFunc func(name transport.Name, id ids.IpcpId) (Ops, bool)

// DestroyFunc releases an Ops value previously built by the same factory's
// CreateFunc.
type DestroyFunc func(ops Ops) error

// Factory is a registered IPCP implementation kind.
type Factory struct {
	name    string
	create  CreateFunc
	destroy DestroyFunc
	refs    int // live instances created by this factory
}

func (f *Factory) Name() string { return f.name }

// InUse reports whether any live instance still references this factory.
func (f *Factory) InUse() bool { return f.refs > 0 }

// Create builds a new Ops value through this factory.
func (f *Factory) Create(name transport.Name, id ids.IpcpId) (Ops, bool) {
	return f.create(name, id)
}

// Destroy releases an Ops value previously built by this factory.
func (f *Factory) Destroy(ops Ops) error {
	return f.destroy(ops)
}

// FactoryTable is the set of registered IPCP factory kinds, indexed by
// name. Insertion order is not observable.
type FactoryTable struct {
	byName map[string]*Factory
}

// NewFactoryTable returns an empty factory table.
func NewFactoryTable() *FactoryTable {
	return &FactoryTable{byName: make(map[string]*Factory)}
}

// Register adds a new factory kind. Fails if name is already registered
// or either callback is nil.
func (t *FactoryTable) Register(name string, create CreateFunc, destroy DestroyFunc) (*Factory, error) {
	if create == nil || destroy == nil {
		return nil, fmt.Errorf("registry: factory %q missing ops", name)
	}
	if _, exists := t.byName[name]; exists {
		return nil, fmt.Errorf("registry: factory %q already registered", name)
	}
	f := &Factory{name: name, create: create, destroy: destroy}
	t.byName[name] = f
	return f, nil
}

// Unregister removes a factory. Fails with InUse (via the returned error)
// if any instance created by it is still live.
func (t *FactoryTable) Unregister(f *Factory) error {
	if f == nil {
		return fmt.Errorf("registry: nil factory")
	}
	existing, ok := t.byName[f.name]
	if !ok || existing != f {
		return fmt.Errorf("registry: factory %q not registered", f.name)
	}
	if f.refs > 0 {
		return fmt.Errorf("registry: factory %q in use by %d instance(s)", f.name, f.refs)
	}
	delete(t.byName, f.name)
	return nil
}

// Find looks up a factory by name.
func (t *FactoryTable) Find(name string) (*Factory, bool) {
	f, ok := t.byName[name]
	return f, ok
}
