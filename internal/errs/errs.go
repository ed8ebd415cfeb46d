// Package errs defines the error taxonomy shared by every codec stage:
// bit-I/O, sparse buffers, the tile initializer, and the marker parser all
// fail with one of these kinds rather than an ad hoc fmt.Errorf.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which error taxonomy entry an error belongs to.
type Kind int

const (
	TruncatedPacketHeader Kind = iota
	InvalidMarker
	UnexpectedMarker
	CodestreamOutOfOrder
	UnsupportedFeature
	Overflow
	OutOfMemory
	InvalidRegion
	UnexpectedEOF
	InvalidParameter
	BlockCodecFailure
)

func (k Kind) String() string {
	switch k {
	case TruncatedPacketHeader:
		return "TruncatedPacketHeader"
	case InvalidMarker:
		return "InvalidMarker"
	case UnexpectedMarker:
		return "UnexpectedMarker"
	case CodestreamOutOfOrder:
		return "CodestreamOutOfOrder"
	case UnsupportedFeature:
		return "UnsupportedFeature"
	case Overflow:
		return "Overflow"
	case OutOfMemory:
		return "OutOfMemory"
	case InvalidRegion:
		return "InvalidRegion"
	case UnexpectedEOF:
		return "UnexpectedEOF"
	case InvalidParameter:
		return "InvalidParameter"
	case BlockCodecFailure:
		return "BlockCodecFailure"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type for every taxonomy kind. Marker carries
// the full marker word for InvalidMarker/UnexpectedMarker; Detail carries a
// feature name or parameter name for UnsupportedFeature/InvalidParameter.
type Error struct {
	Kind   Kind
	Marker uint16
	Detail string
	cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidMarker, UnexpectedMarker:
		msg := fmt.Sprintf("%s: 0x%04X", e.Kind, e.Marker)
		if e.cause != nil {
			return msg + ": " + e.cause.Error()
		}
		return msg
	case UnsupportedFeature, InvalidParameter:
		msg := e.Kind.String()
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
		if e.cause != nil {
			msg += ": " + e.cause.Error()
		}
		return msg
	default:
		if e.cause != nil {
			return e.Kind.String() + ": " + e.cause.Error()
		}
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, errs.New(errs.Overflow, nil)) works without comparing
// Marker/Detail/cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error of the given kind, wrapping cause with a stack trace
// via pkg/errors so the first point of failure is preserved.
func New(kind Kind, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, cause: cause}
}

// Newf creates an Error of the given kind with a formatted cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, cause: errors.WithStack(fmt.Errorf(format, args...))}
}

// WithMarker creates an InvalidMarker or UnexpectedMarker error carrying the
// full marker word, per spec: a 0xFF byte followed by a lead-in >= 0x90
// surfaces InvalidMarker; SOP/EPH lead-ins inside a packet header surface
// UnexpectedMarker.
func WithMarker(kind Kind, marker uint16) *Error {
	return &Error{Kind: kind, Marker: marker}
}

// WithDetail creates an UnsupportedFeature or InvalidParameter error naming
// the feature or parameter.
func WithDetail(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Sentinel returns a bare error of the given kind, suitable as the target
// of errors.Is when the caller only cares about the kind.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Of reports the Kind of err if err (or something it wraps) is an *Error,
// and ok=false otherwise.
func Of(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
