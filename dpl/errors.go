// Package dpl is the backend-agnostic façade: a Context aggregates
// endpoints, credentials, signing version, timeouts, and the pool; Request
// is the per-call builder; the package ties the request/response pipeline,
// signing, and connection pool together behind a small per-protocol vtable.
package dpl

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is one of the §6 core error codes. The pipeline classifies builder
// errors, transport failures and reply statuses into one of these so
// callers can branch on outcome instead of string-matching. Errors returned
// by a Backend's own hooks (ApplyObjectHeaders, Sign, GenURL) and dial
// errors from the dispatcher other than pool-full/all-endpoints-exhausted
// reach the caller as they are, not as *Error.
type Code int

const (
	CodeSuccess Code = iota
	CodeFailure
	CodeNoMem
	CodeInval
	CodeNoEnt
	CodeIO
	CodeLimit
	CodeTimeout
	CodePerm
	CodePrecond
	CodeConflict
	CodeRedirect
	CodeRangeUnavail
	CodeNotSupp
	CodeExist
	CodeIsDir
	CodeNotDir
	CodeNameTooLong
	CodeNotEmpty
)

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "SUCCESS"
	case CodeFailure:
		return "FAILURE"
	case CodeNoMem:
		return "ENOMEM"
	case CodeInval:
		return "EINVAL"
	case CodeNoEnt:
		return "ENOENT"
	case CodeIO:
		return "EIO"
	case CodeLimit:
		return "ELIMIT"
	case CodeTimeout:
		return "ETIMEOUT"
	case CodePerm:
		return "EPERM"
	case CodePrecond:
		return "EPRECOND"
	case CodeConflict:
		return "ECONFLICT"
	case CodeRedirect:
		return "EREDIRECT"
	case CodeRangeUnavail:
		return "ERANGEUNAVAIL"
	case CodeNotSupp:
		return "ENOTSUPP"
	case CodeExist:
		return "EEXIST"
	case CodeIsDir:
		return "EISDIR"
	case CodeNotDir:
		return "ENOTDIR"
	case CodeNameTooLong:
		return "ENAMETOOLONG"
	case CodeNotEmpty:
		return "ENOTEMPTY"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error wraps a Code with a message and, optionally, an underlying cause.
// Public operations return it for every failure the pipeline classifies;
// see Code for the errors that are passed through unwrapped.
type Error struct {
	Code  Code
	msg   string
	cause error
	// Retryable marks transient-network/5xx classes per spec.md §7: the
	// dispatcher blacklists the host and tries the next endpoint before
	// this surfaces to the caller.
	Retryable bool
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.msg, e.cause)
	}
	if e.msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

// Unwrap lets errors.Is/As see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

func newErr(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...), cause: cause}
}

func newRetryableErr(code Code, cause error, format string, args ...interface{}) *Error {
	e := newErr(code, cause, format, args...)
	e.Retryable = true
	return e
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
