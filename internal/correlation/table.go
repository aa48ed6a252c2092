// Package correlation implements the directional correlation tables that
// bind external request sequence numbers to internal flow identifiers
// across an asynchronous, multi-party handshake. The two directions
// (ingress: FlowId->SeqNum, egress: SeqNum->FlowId) share an identical
// contract, expressed here once as a generic table.
package correlation

import "fmt"

// Table is a plain mapping with unique keys and explicit removal on
// transaction exit. It is not a general-purpose container: Add rejects
// duplicate keys, and every entry is expected to be removed exactly once
// by the handler that completes its transaction.
type Table[K comparable, V any] struct {
	m map[K]V
}

// New returns an empty correlation table.
func New[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{m: make(map[K]V)}
}

// Add inserts v under k. Fails if k is already present.
func (t *Table[K, V]) Add(k K, v V) error {
	if _, exists := t.m[k]; exists {
		return fmt.Errorf("correlation: key %v already present", k)
	}
	t.m[k] = v
	return nil
}

// Find returns the value for k, or the zero value and false if absent.
func (t *Table[K, V]) Find(k K) (V, bool) {
	v, ok := t.m[k]
	return v, ok
}

// Remove deletes and returns the entry for k. Fails if k is not present.
func (t *Table[K, V]) Remove(k K) (V, error) {
	v, ok := t.m[k]
	if !ok {
		var zero V
		return zero, fmt.Errorf("correlation: key %v not found", k)
	}
	delete(t.m, k)
	return v, nil
}

// Empty reports whether the table holds no entries.
func (t *Table[K, V]) Empty() bool {
	return len(t.m) == 0
}

// Len reports the number of outstanding entries.
func (t *Table[K, V]) Len() int {
	return len(t.m)
}
