// Package decode maps parsed JSON values onto typed domain objects.
//
// A [Decoder] is the single seam between the response pipeline and the
// concrete decoding mechanism. [Schema] is the default implementation: the
// JSON object is unmarshalled into T with encoding/json and T's `validate`
// struct tags are then enforced with go-playground/validator, so a missing
// required member is a decoding failure rather than a silent zero value.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adamwoolhether/netreq/client/jsonvalue"
)

// ErrSchemaMismatch indicates the JSON value could not be mapped onto the
// target type, e.g. a member had the wrong JSON type.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Decoder turns a parsed JSON value into a T.
type Decoder[T any] interface {
	Decode(v jsonvalue.Value) (T, error)
}

// Func adapts a function to a [Decoder].
type Func[T any] func(v jsonvalue.Value) (T, error)

// Decode implements Decoder.
func (f Func[T]) Decode(v jsonvalue.Value) (T, error) {
	return f(v)
}

// Option configures a [Schema] decoder.
type Option func(*options)

type options struct {
	disallowUnknown bool
	skipValidation  bool
}

// WithDisallowUnknownFields rejects JSON members that have no matching field in T.
func WithDisallowUnknownFields() Option {
	return func(opts *options) {
		opts.disallowUnknown = true
	}
}

// WithoutValidation skips the `validate` tag checks.
func WithoutValidation() Option {
	return func(opts *options) {
		opts.skipValidation = true
	}
}

type schema[T any] struct {
	opts options
}

// Schema returns a Decoder that unmarshals into T and validates it against
// T's struct tags.
func Schema[T any](optFns ...Option) Decoder[T] {
	var opts options
	for _, opt := range optFns {
		opt(&opts)
	}

	return schema[T]{opts: opts}
}

func (s schema[T]) Decode(v jsonvalue.Value) (T, error) {
	var zero T

	b, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("re-encoding value: %w", err)
	}

	d := json.NewDecoder(bytes.NewReader(b))
	if s.opts.disallowUnknown {
		d.DisallowUnknownFields()
	}

	var out T
	if err := d.Decode(&out); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}

	if !s.opts.skipValidation {
		if err := Validate(&out); err != nil {
			return zero, err
		}
	}

	return out, nil
}
