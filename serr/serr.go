// The serr package defines the errors of the bootstrap protocol.
// Every one of them is fatal to the root task: callers report the
// error, naming the failed step, and halt.
package serr

import (
	"errors"
	"fmt"
)

type Terror uint32

const (
	TErrNoError Terror = iota
	TErrEnvironmentMissing
	TErrResourceNotFound
	TErrAllocationFailed
	TErrMissingCapability
	TErrConfigurationFailed
	TErrAlignment
	TErrRegisterWriteFailed
	TErrResumeFailed
	TErrError // generic error
)

func (err Terror) String() string {
	switch err {
	case TErrNoError:
		return "no error"
	case TErrEnvironmentMissing:
		return "boot environment missing"
	case TErrResourceNotFound:
		return "resource not found"
	case TErrAllocationFailed:
		return "allocation failed"
	case TErrMissingCapability:
		return "missing capability"
	case TErrConfigurationFailed:
		return "configuration failed"
	case TErrAlignment:
		return "alignment error"
	case TErrRegisterWriteFailed:
		return "register write failed"
	case TErrResumeFailed:
		return "resume failed"
	case TErrError:
		return "error"
	default:
		return "unknown error"
	}
}

type Err struct {
	ErrCode Terror
	Obj     string
	Err     error
}

func NewErr(err Terror, obj interface{}) *Err {
	return &Err{err, fmt.Sprintf("%v", obj), nil}
}

// NewErrError wraps err as a generic error, unless it already is an
// *Err.
func NewErrError(error error) *Err {
	var err *Err
	if errors.As(error, &err) {
		return err
	}
	return &Err{TErrError, "", error}
}

// NewErrWrap reports err at step obj; the wrapped error (typically a
// kernel status) stays reachable through errors.Unwrap.
func NewErrWrap(code Terror, obj interface{}, error error) *Err {
	return &Err{code, fmt.Sprintf("%v", obj), error}
}

func (err *Err) Code() Terror {
	return err.ErrCode
}

func (err *Err) Unwrap() error { return err.Err }

func (err *Err) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("{Err: %q Obj: %q}", err.ErrCode, err.Obj)
	}
	return fmt.Sprintf("{Err: %q Obj: %q (%v)}", err.ErrCode, err.Obj, err.Err)
}

func (err *Err) String() string {
	return err.Error()
}

// IsErrCode reports whether any *Err in err's chain carries code.
func IsErrCode(error error, code Terror) bool {
	for e := error; e != nil; e = errors.Unwrap(e) {
		if err, ok := e.(*Err); ok && err.ErrCode == code {
			return true
		}
	}
	return false
}

func IsErrAllocationFailed(error error) bool {
	return IsErrCode(error, TErrAllocationFailed)
}

func IsErrResourceNotFound(error error) bool {
	return IsErrCode(error, TErrResourceNotFound)
}
