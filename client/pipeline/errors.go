package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindCancelled is never delivered: cancelled attempts are suppressed.
	KindCancelled
	// KindTransport is a network or transport level failure.
	KindTransport
	// KindValidationFailed means the response was received but rejected
	// by the descriptor's validation rule.
	KindValidationFailed
	// KindSerializationFailed means the body was not valid JSON.
	KindSerializationFailed
	// KindInvalidResponse means the JSON root was not an object.
	KindInvalidResponse
	// KindDecodingFailed means the JSON object did not match the schema.
	KindDecodingFailed
	// KindEncodingFailed means the request body could not be built, so
	// nothing was transmitted.
	KindEncodingFailed
)

func (k Kind) String() string {
	switch k {
	case KindCancelled:
		return "cancelled"
	case KindTransport:
		return "transport failure"
	case KindValidationFailed:
		return "validation failed"
	case KindSerializationFailed:
		return "serialization failed"
	case KindInvalidResponse:
		return "invalid response"
	case KindDecodingFailed:
		return "decoding failed"
	case KindEncodingFailed:
		return "encoding failed"
	default:
		return "unknown"
	}
}

// Error is the single failure type delivered in an [Envelope].
// errors.Is matches it against the Err* sentinels by kind, and against
// the wrapped cause through Unwrap.
type Error struct {
	Kind Kind
	Err  error
}

// NewError wraps err with kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrCancelled           = &Error{Kind: KindCancelled}
	ErrTransport           = &Error{Kind: KindTransport}
	ErrValidationFailed    = &Error{Kind: KindValidationFailed}
	ErrSerializationFailed = &Error{Kind: KindSerializationFailed}
	ErrInvalidResponse     = &Error{Kind: KindInvalidResponse}
	ErrDecodingFailed      = &Error{Kind: KindDecodingFailed}
	ErrEncodingFailed      = &Error{Kind: KindEncodingFailed}
)

// errNotObject is the cause carried by KindInvalidResponse failures.
var errNotObject = errors.New("json root is not an object")

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}

	if IsCancelled(err) {
		return KindCancelled
	}

	return KindUnknown
}

// IsCancelled reports whether err signals a cancelled request.
// Deadline expiry is a transport failure, not a cancellation.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// normalize converts a transport error into an *Error. An *Error built
// upstream, such as an encoding failure, keeps its kind even when it was
// wrapped on the way.
func normalize(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe == err {
			return pe
		}
		return NewError(pe.Kind, err)
	}
	return NewError(KindTransport, err)
}
