package actor

import (
	"fmt"
)

// ExitCode is the exit code of a failed actor method
type ExitCode uint32

const (
	ExitOk ExitCode = 0

	ExitIllegalArgument  ExitCode = 16
	ExitIllegalState     ExitCode = 20
	ExitUnhandledMessage ExitCode = 22

	ExitExecutionReverted ExitCode = 33
	ExitExecutionFault    ExitCode = 34
)

func (c ExitCode) String() string {
	switch c {
	case ExitOk:
		return "ok"
	case ExitIllegalArgument:
		return "illegal argument"
	case ExitIllegalState:
		return "illegal state"
	case ExitUnhandledMessage:
		return "unhandled message"
	case ExitExecutionReverted:
		return "execution reverted"
	case ExitExecutionFault:
		return "execution fault"
	default:
		return fmt.Sprintf("exit(%d)", uint32(c))
	}
}

// Error is the failure of an actor method. ReturnData carries the revert data
// of a reverted invocation.
type Error struct {
	Exit       ExitCode
	Err        error
	ReturnData []byte
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Exit.String()
	}

	return fmt.Sprintf("%s: %v", e.Exit, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(exit ExitCode, err error) *Error {
	return &Error{Exit: exit, Err: err}
}
