package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Error describes a failed remote call. Connectivity distinguishes transport
// unavailability (queue and retry later) from the server rejecting the
// request's content (roll back, never retried automatically).
type Error struct {
	Operation    string
	StatusCode   int
	Reason       string
	Connectivity bool
	Err          error
}

func (e *Error) Error() string {
	kind := "rejected"
	if e.Connectivity {
		kind = "unreachable"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Operation, e.Reason, kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Operation, e.Reason, kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err is a connectivity-class remote failure.
func IsConnectivity(err error) bool {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Connectivity
	}
	return false
}

// classifyTransport decides whether a transport-level error counts as a
// connectivity failure. Timeouts, DNS failures, refused or reset connections,
// and cancelled contexts all mean the server never judged the request.
func classifyTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable")
}

// classifyStatus decides whether an HTTP error status counts as a
// connectivity failure. Gateway errors mean the service was unreachable
// through an intermediary; everything else is a judgment on the request.
func classifyStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func transportError(operation string, err error) *Error {
	return &Error{
		Operation:    operation,
		Reason:       err.Error(),
		Connectivity: classifyTransport(err),
		Err:          err,
	}
}

func statusError(operation string, status int, body string) *Error {
	reason := strings.TrimSpace(body)
	if reason == "" {
		reason = http.StatusText(status)
	}
	return &Error{
		Operation:    operation,
		StatusCode:   status,
		Reason:       reason,
		Connectivity: classifyStatus(status),
	}
}
