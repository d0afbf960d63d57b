package transfer

import (
	"errors"
	"os"
	"syscall"
)

// Kind classifies the fatal conditions of a transfer.
type Kind int

const (
	KindOpen Kind = iota + 1
	KindDismount
	KindLock
	KindAllocation
	KindRead
	KindWrite
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindDismount:
		return "dismount"
	case KindLock:
		return "lock"
	case KindAllocation:
		return "allocation"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Error is a fatal transfer error. Its text is the user-facing message
// followed by the system's description of the cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + Reason(e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Reason returns the operating system's description of the innermost cause
// of err, falling back to err's own text.
func Reason(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno.Error()
	}
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	var se *os.SyscallError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

// ExitError carries the process exit status for an error that has already
// been reported to the user.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }
