package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies every failure the system can surface, upstream and local.
type Kind string

const (
	// Upstream store classification (propagated unchanged by the fetcher).
	KindAuthInvalid         Kind = "auth_invalid"
	KindPermissionDenied    Kind = "permission_denied"
	KindStoreNotFound       Kind = "store_not_found"
	KindUpstreamRateLimited Kind = "upstream_rate_limited"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamError       Kind = "upstream_error"

	// Local server-side conditions.
	KindRateLimited    Kind = "rate_limited"
	KindSyncInProgress Kind = "sync_in_progress"

	// Transport-side classification.
	KindTimeout            Kind = "timeout"
	KindNetworkFailure     Kind = "network"
	KindClientRequestError Kind = "client"
	KindOffline            Kind = "offline"

	KindUnknown Kind = "unknown"
)

// Error is the typed error carried across component boundaries.
// Kind drives retry policy and the HTTP status mapping; UserMessage is safe
// to render to an end user.
type Error struct {
	Kind        Kind
	Message     string
	UserMessage string
	Retryable   bool
	Status      int // upstream HTTP status when relevant, 0 otherwise
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed error with the canonical retryable flag and user
// message for its kind.
func NewError(kind Kind, message string) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		UserMessage: userMessageFor(kind),
		Retryable:   retryableFor(kind),
	}
}

// WrapError is NewError with an underlying cause attached.
func WrapError(kind Kind, message string, err error) *Error {
	e := NewError(kind, message)
	e.Err = err
	return e
}

// KindOf extracts the Kind from any error chain, KindUnknown if untyped.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// UserMessage extracts the human-readable message from any error chain,
// falling back to the generic unknown-error message.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.UserMessage
	}
	return userMessageFor(KindUnknown)
}

// IsRetryable reports whether the error chain carries a retryable kind.
// Untyped errors are treated as retryable network-class failures.
func IsRetryable(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Retryable
	}
	return true
}

// HTTPStatus maps an error kind to the status code of the API error envelope.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthInvalid:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindStoreNotFound:
		return http.StatusNotFound
	case KindUpstreamRateLimited, KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable, KindNetworkFailure, KindOffline:
		return http.StatusServiceUnavailable
	case KindSyncInProgress:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindClientRequestError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ClassifyUpstreamStatus maps an upstream HTTP status to a domain error kind.
func ClassifyUpstreamStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthInvalid
	case status == http.StatusForbidden:
		return KindPermissionDenied
	case status == http.StatusNotFound:
		return KindStoreNotFound
	case status == http.StatusTooManyRequests:
		return KindUpstreamRateLimited
	case status >= 500:
		return KindUpstreamUnavailable
	default:
		return KindUpstreamError
	}
}

func retryableFor(kind Kind) bool {
	switch kind {
	case KindTimeout, KindNetworkFailure, KindUpstreamUnavailable,
		KindUpstreamRateLimited, KindRateLimited, KindSyncInProgress:
		return true
	default:
		return false
	}
}

func userMessageFor(kind Kind) string {
	switch kind {
	case KindAuthInvalid:
		return "The upstream credential is invalid. Check the configured token."
	case KindPermissionDenied:
		return "The upstream store has not been shared with this integration."
	case KindStoreNotFound:
		return "The configured upstream store does not exist."
	case KindUpstreamRateLimited:
		return "The upstream store is rate limiting requests. Try again shortly."
	case KindUpstreamUnavailable:
		return "The upstream store is temporarily unavailable."
	case KindRateLimited:
		return "Too many requests. Slow down and try again."
	case KindSyncInProgress:
		return "A sync is already running. Try again in a moment."
	case KindTimeout:
		return "The request timed out. Retrying usually helps."
	case KindNetworkFailure:
		return "Network error. Check your connection and retry."
	case KindOffline:
		return "You appear to be offline."
	case KindClientRequestError:
		return "The request was rejected. Reload and try again."
	default:
		return "Something went wrong. Try again later."
	}
}
