// Package pvcerr classifies the error kinds the cluster core surfaces so
// the HTTP adapter can map them to status codes and so the task bus can
// distinguish "retry is pointless" from "transient, reconnect and
// re-derive state" without string matching.
package pvcerr

import (
	"errors"
	"fmt"
)

// Kind is one of the five error categories the core surfaces.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindPrecondition     Kind = "precondition"
	KindCoordinationLost Kind = "coordination_lost"
	KindExecutorFailure  Kind = "executor_failure"
)

// Error wraps an underlying cause with a Kind so callers can classify it
// with errors.As without parsing message text.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation indicates the request was rejected at entry — bad XML,
// unknown selector, unknown node, conflicting options — and never
// reached coordination state.
func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

// NotFound indicates an unknown VM/network/OSD/fault/task.
func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

// Precondition indicates the requested transition is illegal from the
// current state (e.g. flush-locks on a running VM).
func Precondition(format string, args ...any) *Error {
	return newf(KindPrecondition, format, args...)
}

// CoordinationLost indicates a ZooKeeper session expired mid-operation.
// Callers must not retry internally; they re-enter once the session is
// reestablished, per pkg/coord's ErrSessionLost contract.
func CoordinationLost(cause error) *Error {
	return &Error{Kind: KindCoordinationLost, Message: "coordination lost", Cause: cause}
}

// ExecutorFailure wraps a non-zero return from libvirt, Ceph, or IPMI,
// capturing stderr for operator visibility.
func ExecutorFailure(executor string, stderr string, cause error) *Error {
	return &Error{
		Kind:    KindExecutorFailure,
		Message: fmt.Sprintf("%s executor failed: %s", executor, stderr),
		Cause:   cause,
	}
}

// Is reports whether err (or anything it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
