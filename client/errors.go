package client

import (
	"github.com/adamwoolhether/netreq/client/dispatch"
	"github.com/adamwoolhether/netreq/client/pipeline"
	"github.com/adamwoolhether/netreq/client/request"
)

// Type aliases re-exporting the user-facing result and error types.
type (
	// Envelope carries the typed result of one call.
	Envelope[T any] = pipeline.Envelope[T]

	// Error is the failure type delivered in an [Envelope].
	Error = pipeline.Error

	// Kind classifies an [Error].
	Kind = pipeline.Kind

	// UnexpectedStatusError is wrapped by validation failures caused by the
	// response status.
	UnexpectedStatusError = request.UnexpectedStatusError

	// Call is the handle of one dispatched request.
	Call = dispatch.Call
)

// Sentinel errors, matched with errors.Is.
var (
	ErrTransport           = pipeline.ErrTransport
	ErrValidationFailed    = pipeline.ErrValidationFailed
	ErrSerializationFailed = pipeline.ErrSerializationFailed
	ErrInvalidResponse     = pipeline.ErrInvalidResponse
	ErrDecodingFailed      = pipeline.ErrDecodingFailed
	ErrEncodingFailed      = pipeline.ErrEncodingFailed

	ErrUnexpectedStatusCode = request.ErrUnexpectedStatusCode
	ErrAuthFailure          = request.ErrAuthFailure

	ErrShutdown = dispatch.ErrShutdown
)

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return pipeline.IsCancelled(err)
}
