package kipcm

import (
	"github.com/rina-project/kipcm/internal/logging"
)

// Options configures a new KIPCM. Transport is required; KFA, Logger and
// SDUSink default to a reference in-process implementation, the package
// default logger, and none, respectively.
type Options struct {
	// Transport is the control transport the KIPCM registers its six
	// handlers with and sends replies/notifications through.
	Transport Transport

	// KFA is the Kernel Flow Allocator. If nil, Create builds a
	// reference in-process KFA and owns its lifetime (Destroy closes
	// it). If supplied, the caller owns it and Destroy leaves it open.
	KFA KFA

	// SDUSink receives SDUs posted by the KFA via SDUPost. Optional;
	// if nil, SDUPost fails with KindInvalidArg.
	SDUSink SDUSink

	// Logger receives structured log lines from the facade's lifecycle,
	// IPCP and failure paths and from handler decisions; FlowAdd, FlowRes
	// and the SDU operations log nothing on success. Defaults to
	// logging.Default().
	Logger *logging.Logger

	// Observer receives transaction and lifecycle counts. Defaults to a
	// no-op; pass a *Metrics to collect them.
	Observer Observer
}
