// Package handlers implements the six control-message transaction
// handlers: allocate-flow-request, allocate-flow-response, deallocate,
// assign-to-DIF, register-app and unregister-app. Every handler follows
// the same discipline: validate, parse, locate the target IPCP, execute,
// and clean up on every exit path — expressed here as a small deferred
// cleanup stack rather than the goto chains of the reference source.
package handlers

import (
	"github.com/rina-project/kipcm/internal/correlation"
	"github.com/rina-project/kipcm/internal/ids"
	"github.com/rina-project/kipcm/internal/kfa"
	"github.com/rina-project/kipcm/internal/logging"
	"github.com/rina-project/kipcm/internal/registry"
	"github.com/rina-project/kipcm/internal/transport"
)

// Deps bundles the collaborators a handler needs. The caller (the KIPCM
// facade) holds its mutex for the whole call, so nothing here locks.
type Deps struct {
	Instances *registry.InstanceMap
	Ingress   *correlation.Table[ids.FlowId, ids.SeqNum]
	Egress    *correlation.Table[ids.SeqNum, ids.FlowId]
	Transport transport.Transport
	KFA       kfa.KFA
	Logger    *logging.Logger
}

// cleanup is a small LIFO stack of release actions, standing in for the
// reference source's goto-based free-and-reply chains: each step that
// allocates or mutates shared state pushes its undo here, and a single
// epilogue runs them all on the way out.
type cleanup struct {
	fns []func()
}

func (c *cleanup) push(fn func()) {
	c.fns = append(c.fns, fn)
}

func (c *cleanup) release() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}
