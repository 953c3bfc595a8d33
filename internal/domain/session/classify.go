package session

import (
	"errors"
	"fmt"
)

// ErrorCode is the transport-level failure code attached to send errors
// and connection closures.
type ErrorCode string

const (
	CodeTimeout       ErrorCode = "timeout"
	CodeNetwork       ErrorCode = "network"
	CodeRateLimited   ErrorCode = "rate_limited"
	CodeRevoked       ErrorCode = "revoked"
	CodeAlreadyLinked ErrorCode = "already_linked"
	CodeBadSession    ErrorCode = "bad_session"
	CodeDeviceLimit   ErrorCode = "device_limit"
	CodeSyncFailure   ErrorCode = "sync_failure"
	CodeUnknown       ErrorCode = "unknown"
)

// TransportError is the error shape the transport provider surfaces.
type TransportError struct {
	Code    ErrorCode
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %s", e.Code, e.Message)
}

// NewTransportError builds a TransportError.
func NewTransportError(code ErrorCode, message string) *TransportError {
	return &TransportError{Code: code, Message: message}
}

// Category is the user-facing bucket a transport failure maps to.
type Category string

const (
	CategoryReauth        Category = "reauth"
	CategoryAlreadyLinked Category = "already_linked"
	CategoryRateLimited   Category = "rate_limited"
	CategoryConnectivity  Category = "connectivity"
	CategoryUnknown       Category = "unknown"
)

// Classification is the outcome of mapping a transport failure: the
// message shown to the tenant, whether the session is unrecoverable, and
// whether automatic reconnection is appropriate.
type Classification struct {
	Category    Category
	UserMessage string
	Terminal    bool
	Retry       bool
}

var classifications = map[ErrorCode]Classification{
	CodeRevoked: {
		Category:    CategoryReauth,
		UserMessage: "Your session was signed out by the messaging network. Please re-authenticate by scanning a new pairing code.",
		Terminal:    true,
	},
	CodeBadSession: {
		Category:    CategoryReauth,
		UserMessage: "Your stored session is no longer valid. Please re-authenticate by scanning a new pairing code.",
		Terminal:    true,
	},
	CodeAlreadyLinked: {
		Category:    CategoryAlreadyLinked,
		UserMessage: "This number is linked on another device. Unlink the other device first, then reconnect.",
		Terminal:    true,
	},
	CodeDeviceLimit: {
		Category:    CategoryAlreadyLinked,
		UserMessage: "This number has reached its linked-device limit. Remove a device, then reconnect.",
		Terminal:    true,
	},
	CodeRateLimited: {
		Category:    CategoryRateLimited,
		UserMessage: "The messaging network is rate-limiting this account. Wait a few minutes and retry.",
		Retry:       true,
	},
	CodeTimeout: {
		Category:    CategoryConnectivity,
		UserMessage: "The messaging network did not respond in time. Check connectivity and retry.",
		Retry:       true,
	},
	CodeNetwork: {
		Category:    CategoryConnectivity,
		UserMessage: "Could not reach the messaging network. Check connectivity and retry.",
		Retry:       true,
	},
	CodeSyncFailure: {
		Category:    CategoryConnectivity,
		UserMessage: "The session closed while syncing message history. It will retry shortly.",
		Retry:       true,
	},
}

// Classify maps any transport failure to its user-facing classification.
// Unrecognized codes and non-transport errors pass the raw message
// through so nothing is swallowed.
func Classify(err error) Classification {
	var te *TransportError
	if errors.As(err, &te) {
		return ClassifyCode(te.Code, te.Message)
	}
	return Classification{Category: CategoryUnknown, UserMessage: err.Error(), Retry: true}
}

// ClassifyCode maps a bare close code, used when a connection drops with
// a code but no error value.
func ClassifyCode(code ErrorCode, reason string) Classification {
	if c, ok := classifications[code]; ok {
		return c
	}
	return Classification{Category: CategoryUnknown, UserMessage: reason, Retry: true}
}

// DeliveryError is an outbound send failure carrying its classification.
// Error() reads as the user-facing message so callers that log or
// display it show the right text; the transport cause stays reachable
// through Unwrap.
type DeliveryError struct {
	Classification Classification
	Cause          error
}

func (e *DeliveryError) Error() string { return e.Classification.UserMessage }

func (e *DeliveryError) Unwrap() error { return e.Cause }
