package registry

import (
	"fmt"

	"github.com/rina-project/kipcm/internal/ids"
)

// Instance is a live IPCP: an id, the factory that owns it (non-owning
// reference), and the Ops used to drive it.
type Instance struct {
	ID      ids.IpcpId
	Factory *Factory
	Ops     Ops
}

// InstanceMap maps IpcpId to the live Instance, owning exactly one entry
// per id. IDs are externally assigned; a colliding insert is a caller
// error, not silently overwritten.
type InstanceMap struct {
	byID map[ids.IpcpId]*Instance
}

// NewInstanceMap returns an empty instance map.
func NewInstanceMap() *InstanceMap {
	return &InstanceMap{byID: make(map[ids.IpcpId]*Instance)}
}

// Insert adds inst under id, bumping its factory's reference count. Fails
// if id is already present.
func (m *InstanceMap) Insert(id ids.IpcpId, inst *Instance) error {
	if _, exists := m.byID[id]; exists {
		return fmt.Errorf("registry: ipcp %d already exists", id)
	}
	m.byID[id] = inst
	if inst.Factory != nil {
		inst.Factory.refs++
	}
	return nil
}

// Find looks up the instance for id.
func (m *InstanceMap) Find(id ids.IpcpId) (*Instance, bool) {
	inst, ok := m.byID[id]
	return inst, ok
}

// Remove deletes the entry for id, releasing its factory's reference.
// Fails if id is not present.
func (m *InstanceMap) Remove(id ids.IpcpId) (*Instance, error) {
	inst, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("registry: ipcp %d not found", id)
	}
	delete(m.byID, id)
	if inst.Factory != nil {
		inst.Factory.refs--
	}
	return inst, nil
}

// Empty reports whether the map holds no instances.
func (m *InstanceMap) Empty() bool {
	return len(m.byID) == 0
}

// Len reports the number of live instances.
func (m *InstanceMap) Len() int {
	return len(m.byID)
}
