package kipcm

import "sync/atomic"

// Observer receives counts of KIPCM activity. Implementations must be safe
// for concurrent use; the facade calls every method with its own lock
// held.
type Observer interface {
	// TransactionStarted is called once per dispatched control message,
	// keyed by its Kind.
	TransactionStarted(kind Kind)
	// TransactionFailed is called when a handler returns an error (an
	// unrecoverable transport failure, such as a reply that could not be
	// sent), keyed by its Kind. Transactions answered with a
	// negative-result reply that was sent are not counted here.
	TransactionFailed(kind Kind)
	// IpcpCreated/IpcpDestroyed track instance lifecycle.
	IpcpCreated()
	IpcpDestroyed()
	// FlowAllocated/FlowDeallocated track flow lifecycle.
	FlowAllocated()
	FlowDeallocated()
}

// Metrics is a reference Observer: plain atomic counters, no external
// dependency. Pass one as Options.Observer to collect counts; when
// Options.Observer is nil, Create uses a no-op observer instead.
type Metrics struct {
	transactionsByKind [6]atomic.Int64
	failuresByKind     [6]atomic.Int64
	ipcpsCreated       atomic.Int64
	ipcpsDestroyed     atomic.Int64
	flowsAllocated     atomic.Int64
	flowsDeallocated   atomic.Int64
}

// NewMetrics returns a ready-to-use Metrics observer.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) TransactionStarted(kind Kind) {
	if i := int(kind); i >= 0 && i < len(m.transactionsByKind) {
		m.transactionsByKind[i].Add(1)
	}
}

func (m *Metrics) TransactionFailed(kind Kind) {
	if i := int(kind); i >= 0 && i < len(m.failuresByKind) {
		m.failuresByKind[i].Add(1)
	}
}

func (m *Metrics) IpcpCreated()   { m.ipcpsCreated.Add(1) }
func (m *Metrics) IpcpDestroyed() { m.ipcpsDestroyed.Add(1) }

func (m *Metrics) FlowAllocated()   { m.flowsAllocated.Add(1) }
func (m *Metrics) FlowDeallocated() { m.flowsDeallocated.Add(1) }

// Snapshot is a point-in-time copy of the counters, safe to log or export.
type Snapshot struct {
	TransactionsByKind map[Kind]int64
	FailuresByKind     map[Kind]int64
	IpcpsCreated       int64
	IpcpsDestroyed     int64
	FlowsAllocated     int64
	FlowsDeallocated   int64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		TransactionsByKind: make(map[Kind]int64, len(m.transactionsByKind)),
		FailuresByKind:     make(map[Kind]int64, len(m.failuresByKind)),
		IpcpsCreated:       m.ipcpsCreated.Load(),
		IpcpsDestroyed:     m.ipcpsDestroyed.Load(),
		FlowsAllocated:     m.flowsAllocated.Load(),
		FlowsDeallocated:   m.flowsDeallocated.Load(),
	}
	for i := range m.transactionsByKind {
		s.TransactionsByKind[Kind(i)] = m.transactionsByKind[i].Load()
		s.FailuresByKind[Kind(i)] = m.failuresByKind[i].Load()
	}
	return s
}

// noopObserver discards everything; used when Options.Observer is nil and
// the caller has not asked for a Metrics either.
type noopObserver struct{}

func (noopObserver) TransactionStarted(Kind) {}
func (noopObserver) TransactionFailed(Kind)  {}
func (noopObserver) IpcpCreated()            {}
func (noopObserver) IpcpDestroyed()          {}
func (noopObserver) FlowAllocated()          {}
func (noopObserver) FlowDeallocated()        {}
