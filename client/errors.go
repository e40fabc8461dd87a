package client

import (
	"errors"
	"fmt"
)

// ProtocolErrorKind classifies desynchronizations between client and server.
type ProtocolErrorKind int

const (
	// ProtocolPendingCount means more than one status was unconsumed.
	ProtocolPendingCount ProtocolErrorKind = iota
	// ProtocolUnknownStatus means the server wrote a tag outside the closed set.
	ProtocolUnknownStatus
	// ProtocolStatusDecode means the server slot could not be decoded.
	ProtocolStatusDecode
	// ProtocolFollowUpRejected means a continuation or chained request
	// could not be submitted after its status was consumed.
	ProtocolFollowUpRejected
)

func (k ProtocolErrorKind) String() string {
	switch k {
	case ProtocolPendingCount:
		return "pending_count"
	case ProtocolUnknownStatus:
		return "unknown_status"
	case ProtocolStatusDecode:
		return "status_decode"
	case ProtocolFollowUpRejected:
		return "follow_up_rejected"
	default:
		return "unknown"
	}
}

// ProtocolError is the value Poll panics with when the two sides of the
// block have desynchronized. No in-band recovery exists for these.
type ProtocolError struct {
	Kind ProtocolErrorKind
	Msg  string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol violation (%s): %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("protocol violation (%s): %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// AsProtocolError extracts a ProtocolError from a recovered panic value.
func AsProtocolError(v any) (*ProtocolError, bool) {
	err, ok := v.(error)
	if !ok {
		return nil, false
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

var (
	// ErrNotConnected is returned by operations that need a mapped block.
	ErrNotConnected = errors.New("not connected to shared memory")
	// ErrStreamTooLarge is returned when an upload does not fit the
	// client to server buffer.
	ErrStreamTooLarge = errors.New("stream exceeds shared memory chunk size")
)
