// Package request describes network requests as immutable values and
// encodes them into transport-ready [*http.Request]s.
//
// A [Descriptor] captures the method, URL, parameters and headers of a call
// together with an optional response validation rule and lifecycle hooks.
// Build one with [New]:
//
//	d, err := request.New(request.MethodGet, u,
//		request.WithParameters(map[string]any{"page": 2}),
//		request.OnError(func(err error, r *http.Request) { ... }),
//	)
//
// [Encode], [EncodeUpload] and [EncodeMultipart] turn a Descriptor into a
// wire request. They hold the only method-dependent encoding policy.
package request

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

// Method is an HTTP verb.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodOptions Method = http.MethodOptions
	MethodTrace   Method = http.MethodTrace
	MethodConnect Method = http.MethodConnect
)

// Valid reports whether m is one of the known verbs.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodHead, MethodPost, MethodPut, MethodPatch,
		MethodDelete, MethodOptions, MethodTrace, MethodConnect:
		return true
	}
	return false
}

// carriesBody reports whether parameters for m belong in the request body
// under the method-dependent URL encoding.
func (m Method) carriesBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

var (
	ErrInvalidMethod = errors.New("invalid method")
	ErrInvalidURL    = errors.New("url must be absolute")
)

// Parameters maps parameter names to scalar, slice or map values.
type Parameters map[string]any

// Validation decides whether a received response counts as a success,
// independent of the transport. A nil Validation accepts any 2xx status.
type Validation func(resp *http.Response, body []byte) error

// Hooks are lifecycle callbacks fired by the response pipeline before the
// completion callback. Every hook is optional.
type Hooks struct {
	// OnDecoded receives a freshly decoded object, before OnSuccess.
	OnDecoded func(value any)
	// OnSuccess receives the successful value and the wire request.
	OnSuccess func(value any, req *http.Request)
	// OnError receives the failure and the wire request, when known.
	OnError func(err error, req *http.Request)
}

// Decoded fires OnDecoded if set.
func (h Hooks) Decoded(value any) {
	if h.OnDecoded != nil {
		h.OnDecoded(value)
	}
}

// Success fires OnSuccess if set.
func (h Hooks) Success(value any, req *http.Request) {
	if h.OnSuccess != nil {
		h.OnSuccess(value, req)
	}
}

// Error fires OnError if set.
func (h Hooks) Error(err error, req *http.Request) {
	if h.OnError != nil {
		h.OnError(err, req)
	}
}

// Descriptor is an immutable description of one request.
type Descriptor struct {
	method     Method
	url        url.URL
	parameters Parameters
	headers    map[string]string
	validation Validation
	hooks      Hooks
	encoding   Encoding
}

// New builds a Descriptor. u must be absolute.
func New(method Method, u *url.URL, optFns ...Option) (Descriptor, error) {
	method = Method(strings.ToUpper(string(method)))
	if !method.Valid() {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	if u == nil || !u.IsAbs() || u.Host == "" {
		return Descriptor{}, ErrInvalidURL
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return Descriptor{}, fmt.Errorf("applying request option: %w", err)
		}
	}

	d := Descriptor{
		method:     method,
		url:        *u,
		parameters: cloneParameters(opts.parameters),
		headers:    maps.Clone(opts.headers),
		validation: opts.validation,
		hooks:      opts.hooks,
		encoding:   opts.encoding,
	}
	if u.User != nil {
		user := *u.User
		d.url.User = &user
	}

	return d, nil
}

// Parse is New with a string URL.
func Parse(method Method, rawURL string, optFns ...Option) (Descriptor, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	return New(method, u, optFns...)
}

// Method returns the HTTP verb.
func (d Descriptor) Method() Method { return d.method }

// URL returns a copy of the resource locator.
func (d Descriptor) URL() *url.URL {
	u := d.url
	if d.url.User != nil {
		user := *d.url.User
		u.User = &user
	}
	return &u
}

// Parameters returns a deep copy of the parameters, or nil.
func (d Descriptor) Parameters() Parameters { return cloneParameters(d.parameters) }

// Headers returns a copy of the headers, or nil.
func (d Descriptor) Headers() map[string]string { return maps.Clone(d.headers) }

// Validation returns the response validation rule, or nil for the 2xx default.
func (d Descriptor) Validation() Validation { return d.validation }

// Hooks returns the lifecycle hooks.
func (d Descriptor) Hooks() Hooks { return d.hooks }

// Encoding returns the parameter encoding.
func (d Descriptor) Encoding() Encoding { return d.encoding }
