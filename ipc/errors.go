package ipc

import (
	"errors"
	"fmt"
)

// LayoutErrorKind classifies block layout errors.
type LayoutErrorKind int

const (
	// LayoutErrorTooSmall indicates a mapped region smaller than BlockSize.
	LayoutErrorTooSmall LayoutErrorKind = iota
	// LayoutErrorOverflow indicates a declared item count that would read
	// or write past the capacity of a slot or stream buffer.
	LayoutErrorOverflow
	// LayoutErrorNegative indicates a negative declared item count.
	LayoutErrorNegative
	// LayoutErrorMismatch indicates arguments that do not belong to the tag.
	LayoutErrorMismatch
	// LayoutErrorCodec indicates a fixed-size encode or decode failure.
	LayoutErrorCodec
)

func (k LayoutErrorKind) String() string {
	switch k {
	case LayoutErrorTooSmall:
		return "too_small"
	case LayoutErrorOverflow:
		return "overflow"
	case LayoutErrorNegative:
		return "negative"
	case LayoutErrorMismatch:
		return "mismatch"
	case LayoutErrorCodec:
		return "codec"
	default:
		return "unknown"
	}
}

// LayoutError represents a violation of the shared block layout.
type LayoutError struct {
	Kind LayoutErrorKind
	Msg  string
	Err  error
}

func (e *LayoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *LayoutError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error prevents using the block at all.
// Overflowing or negative chunks only invalidate the chunk they describe.
func (e *LayoutError) IsFatal() bool {
	return e.Kind == LayoutErrorTooSmall
}

// IsFatalLayoutError returns true if the error is a fatal layout error.
func IsFatalLayoutError(err error) bool {
	var layoutErr *LayoutError
	if errors.As(err, &layoutErr) {
		return layoutErr.IsFatal()
	}
	return false
}

// IsLayoutErrorKind reports whether err is a *LayoutError of the given kind.
func IsLayoutErrorKind(err error, kind LayoutErrorKind) bool {
	var layoutErr *LayoutError
	if errors.As(err, &layoutErr) {
		return layoutErr.Kind == kind
	}
	return false
}
