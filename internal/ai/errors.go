package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// NetworkError means the remote service could not be reached or did not answer
// in time.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline rather than a refused or
// broken connection.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// RemoteServiceError is a non-success status from the remote service,
// including 405 when the endpoint does not accept the method.
type RemoteServiceError struct {
	Status int
	Body   string
}

func (e *RemoteServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote service returned status %d", e.Status)
	}
	return fmt.Sprintf("remote service returned status %d: %s", e.Status, e.Body)
}

// MalformedResponseError is a success status whose payload is not what the
// contract promises: wrong content type, undecodable body, missing fields.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
	}
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Failure kinds reported by FailureKind.
const (
	FailureNetwork   = "network"
	FailureStatus    = "remote_status"
	FailureMalformed = "malformed"
)

// FailureKind names which remote failure err is, or returns false when err is
// not one of the remote failure types.
func FailureKind(err error) (string, bool) {
	var netErr *NetworkError
	var statusErr *RemoteServiceError
	var malformed *MalformedResponseError
	switch {
	case errors.As(err, &netErr):
		return FailureNetwork, true
	case errors.As(err, &statusErr):
		return FailureStatus, true
	case errors.As(err, &malformed):
		return FailureMalformed, true
	}
	return "", false
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
