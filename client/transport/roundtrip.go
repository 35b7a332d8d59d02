package transport

import (
	"net/http"

	"github.com/google/uuid"
)

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// requestID sets a fresh UUID header on requests that lack one.
type requestID struct {
	header string
	base   http.RoundTripper
}

func (id requestID) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get(id.header) != "" {
		return id.base.RoundTrip(r)
	}

	cpy := r.Clone(r.Context())
	cpy.Header.Set(id.header, uuid.NewString())
	return id.base.RoundTrip(cpy)
}
