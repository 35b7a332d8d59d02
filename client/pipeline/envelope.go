package pipeline

import (
	"net/http"
)

// Outcome is what the transport hands to the pipeline: either a response
// with its body, or a failure. Request and Response are set whenever the
// transport knows them, including on failure.
type Outcome struct {
	Request  *http.Request
	Response *http.Response
	Body     []byte
	Err      error
}

// Failed builds an Outcome for a failure detected before or during
// transmission.
func Failed(req *http.Request, err error) Outcome {
	return Outcome{Request: req, Err: err}
}

// Envelope carries the typed result of one request together with the wire
// request and response metadata. Exactly one of Value and Err is meaningful:
// Err is nil on success, and Value is the zero T on failure.
type Envelope[T any] struct {
	Request  *http.Request
	Response *http.Response
	Data     []byte
	Value    T
	Err      error
}

// Success reports whether the envelope holds a value.
func (e Envelope[T]) Success() bool {
	return e.Err == nil
}

// Result returns the value and error.
func (e Envelope[T]) Result() (T, error) {
	return e.Value, e.Err
}

// StatusCode returns the response status, or 0 when no response was received.
func (e Envelope[T]) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// Kind returns the failure kind, or KindUnknown on success.
func (e Envelope[T]) Kind() Kind {
	return KindOf(e.Err)
}

// Completion receives the envelope once processing is finished.
type Completion[T any] func(Envelope[T])
