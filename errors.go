// Package kipcm implements the Kernel IPC Manager: the control-plane core
// that manages IPCP lifecycle, brokers flow-allocation transactions, and
// dispatches control messages to the correct IPCP instance.
package kipcm

import (
	"errors"
	"fmt"

	"github.com/rina-project/kipcm/internal/ids"
)

// ErrorKind categorizes KIPCM failures, mirroring the error kinds named in
// the control-plane design: bogus input, allocation failure during parse,
// malformed messages, missing/duplicate identifiers, a delegate (IPCP or
// KFA) returning failure, and transport send failure.
type ErrorKind string

const (
	KindInvalidArg    ErrorKind = "invalid argument"
	KindAllocFail     ErrorKind = "allocation failure"
	KindParseFail     ErrorKind = "parse failure"
	KindNotFound      ErrorKind = "not found"
	KindAlreadyExists ErrorKind = "already exists"
	KindDelegateFail  ErrorKind = "delegate failure"
	KindTransportFail ErrorKind = "transport failure"
	// KindInUse is named by the factory-table component (a registered
	// factory cannot be unregistered while instances still reference
	// it) even though the error-kind catalogue elsewhere omits it.
	KindInUse ErrorKind = "in use"
	// KindNotEmpty is returned by Destroy when the instance map or
	// either correlation table still holds entries.
	KindNotEmpty ErrorKind = "not empty"
)

// Error is a structured KIPCM error carrying enough context (operation,
// IPCP id, sequence number) to log and to convert into a negative-result
// reply without re-deriving it at the call site.
type Error struct {
	Op     string
	IpcID  ids.IpcpId
	Seq    ids.SeqNum
	Kind   ErrorKind
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.IpcID != 0 {
		return fmt.Sprintf("kipcm: %s: %s (ipcp=%d)", e.Op, msg, uint32(e.IpcID))
	}
	return fmt.Sprintf("kipcm: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is against the package's Kind sentinels
// (ErrNotFound, ErrAlreadyExists, ...) as well as against another *Error
// with the same Kind.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if ke, ok := target.(kindSentinel); ok {
		return e.Kind == ErrorKind(ke)
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind
	}
	return false
}

// kindSentinel lets the package-level Err* values compare equal to any
// *Error of the matching Kind via errors.Is, without exposing ErrorKind's
// underlying string type as part of that contract.
type kindSentinel ErrorKind

func (k kindSentinel) Error() string { return string(k) }

var (
	ErrInvalidArg    error = kindSentinel(KindInvalidArg)
	ErrAllocFail     error = kindSentinel(KindAllocFail)
	ErrParseFail     error = kindSentinel(KindParseFail)
	ErrNotFound      error = kindSentinel(KindNotFound)
	ErrAlreadyExists error = kindSentinel(KindAlreadyExists)
	ErrDelegateFail  error = kindSentinel(KindDelegateFail)
	ErrTransportFail error = kindSentinel(KindTransportFail)
	ErrInUse         error = kindSentinel(KindInUse)
	ErrNotEmpty      error = kindSentinel(KindNotEmpty)
)

func newError(op string, kind ErrorKind, ipcID ids.IpcpId, seq ids.SeqNum, inner error) *Error {
	e := &Error{Op: op, Kind: kind, IpcID: ipcID, Seq: seq, Inner: inner}
	if inner != nil {
		e.Msg = inner.Error()
	}
	return e
}

// IsKind reports whether err is a *Error (at any wrap depth) of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
