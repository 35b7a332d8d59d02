package request

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// maxErrBodySize caps the amount of response body copied into an
// [UnexpectedStatusError].
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
)

// UnexpectedStatusError is returned by validation when the HTTP response
// status code is not acceptable.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// AcceptSuccess is the default validation: any 2xx status passes.
func AcceptSuccess(resp *http.Response, body []byte) error {
	if resp == nil {
		return nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return statusError(resp.StatusCode, body)
}

// StatusIn returns a Validation that accepts only the given codes.
func StatusIn(codes ...int) Validation {
	codes = slices.Clone(codes)

	return func(resp *http.Response, body []byte) error {
		if resp == nil || slices.Contains(codes, resp.StatusCode) {
			return nil
		}

		return statusError(resp.StatusCode, body)
	}
}

func statusError(code int, body []byte) *UnexpectedStatusError {
	if len(body) > maxErrBodySize {
		body = body[:maxErrBodySize]
	}

	err := ErrUnexpectedStatusCode
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		err = fmt.Errorf("%w: %w", ErrAuthFailure, ErrUnexpectedStatusCode)
	}

	return &UnexpectedStatusError{
		StatusCode: code,
		Body:       string(body),
		Err:        err,
	}
}
