package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed request attempt. The dispatcher uses the
// kind to decide between retrying, queueing for offline replay, or
// surfacing the failure to the caller immediately.
type ErrorKind int

const (
	// KindNetwork covers connection failures and timeouts. Retryable,
	// and eligible for offline queueing on mutating calls.
	KindNetwork ErrorKind = iota

	// KindServer covers 5xx responses. Retryable up to the policy cap.
	KindServer

	// KindValidation covers 4xx responses other than 401. Never retried
	// and never queued; the user has to correct their input.
	KindValidation

	// KindAuth covers 401 responses. Not retried here; the auth
	// collaborator handles it (typically by forcing re-login).
	KindAuth

	// KindOffline is raised when a call without offline fallback is
	// attempted while the device is known to be offline, to fail fast
	// instead of waiting for a timeout.
	KindOffline
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Error is a classified request failure.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status when the server responded, 0 otherwise
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error (status %d)", e.Kind, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error wrapping cause.
func NewError(kind ErrorKind, status int, msg string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: msg, Err: cause}
}

// KindOf extracts the classification from err. Unclassified errors are
// treated as network failures, matching how an unreachable transport
// presents itself.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindNetwork
}

// IsNetwork reports whether err is a connection/timeout class failure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsRetryable reports whether the retry policy may attempt err again.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindNetwork || k == KindServer
}

// IsTerminal reports whether err must be surfaced immediately rather
// than retried or queued.
func IsTerminal(err error) bool { return !IsRetryable(err) }
