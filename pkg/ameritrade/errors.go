package ameritrade

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by operations the upstream API documents but
// this client does not support (order placement and preference updates).
var ErrNotImplemented = errors.New("ameritrade: not implemented")

// AuthError reports a rejected token or authenticated REST call. Status is
// the HTTP status code of the rejection, or 0 when the call was refused
// locally because no access token is held.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return "ameritrade: not authorized: " + e.Body
	}
	return fmt.Sprintf("ameritrade: authorization rejected: status %d: %s", e.Status, e.Body)
}

// ProtocolError reports a response whose shape does not match the API
// contract, such as a principals document missing streamer fields or a
// timestamp that fails to parse.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ameritrade: protocol error: %s: %v", e.Reason, e.Err)
	}
	return "ameritrade: protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// StateError reports an operation invoked in the wrong lifecycle stage, such
// as renewing tokens on a session that was never authorized.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("ameritrade: %s: %s", e.Op, e.Reason)
}
