package kipcm

import (
	"github.com/rina-project/kipcm/internal/handlers"
	"github.com/rina-project/kipcm/internal/transport"
)

// registerAllHandlers installs all six handlers in transport.AllKinds
// order. If any installation fails, every handler installed so far in
// this call is rolled back before returning, so a partially-initialized
// KIPCM never ends up registered for a subset of its message kinds
// (resolving the open question the reference source leaves unhandled).
func (k *KIPCM) registerAllHandlers() error {
	var installed []Kind
	for _, kind := range transport.AllKinds {
		if err := k.transport.RegisterHandler(kind, k.handlerFor(kind)); err != nil {
			k.logger.Error("handler registration failed, rolling back", "kind", kind, "err", err)
			for i := len(installed) - 1; i >= 0; i-- {
				if uerr := k.transport.UnregisterHandler(installed[i]); uerr != nil {
					k.logger.Warn("handler rollback failed", "kind", installed[i], "err", uerr)
				}
			}
			return newError("create", KindTransportFail, 0, 0, err)
		}
		installed = append(installed, kind)
	}
	return nil
}

// unregisterAllHandlers removes all six handlers, attempting every one
// even if an earlier removal fails, and returns the first error seen.
func (k *KIPCM) unregisterAllHandlers() error {
	var firstErr error
	for _, kind := range transport.AllKinds {
		if err := k.transport.UnregisterHandler(kind); err != nil {
			k.logger.Warn("handler unregister failed", "kind", kind, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// handlerFor builds the transport.HandlerFunc installed for kind: it
// takes the facade lock, assembles the handlers.Deps the dispatch
// packages needs, dispatches to the matching handlers.HandleX function,
// and records the transaction with the observer.
func (k *KIPCM) handlerFor(kind Kind) transport.HandlerFunc {
	return func(session transport.SessionID, msg transport.RawMessage) error {
		k.mu.Lock()
		defer k.mu.Unlock()

		k.observer.TransactionStarted(kind)
		deps := &handlers.Deps{
			Instances: k.instances,
			Ingress:   k.ingress,
			Egress:    k.egress,
			Transport: k.transport,
			KFA:       k.kfa,
			Logger:    k.logger,
		}

		var err error
		switch kind {
		case transport.KindAssignToDIFRequest:
			err = handlers.HandleAssignToDIF(deps, session, msg)
		case transport.KindAllocateFlowRequest:
			err = handlers.HandleAllocateFlowRequest(deps, session, msg)
		case transport.KindAllocateFlowResponse:
			err = handlers.HandleAllocateFlowResponse(deps, session, msg)
		case transport.KindDeallocateFlowRequest:
			err = handlers.HandleDeallocateFlowRequest(deps, session, msg)
		case transport.KindRegisterApplicationRequest:
			err = handlers.HandleRegisterApplication(deps, session, msg)
		case transport.KindUnregisterApplicationRequest:
			err = handlers.HandleUnregisterApplication(deps, session, msg)
		}
		if err != nil {
			k.observer.TransactionFailed(kind)
		}
		return err
	}
}
