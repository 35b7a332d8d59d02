package request

import (
	"errors"
	"net/http"
)

// Option is a functional option for [New].
type Option func(*options) error

type options struct {
	parameters Parameters
	headers    map[string]string
	validation Validation
	hooks      Hooks
	encoding   Encoding
}

// WithParameters sets the request parameters.
func WithParameters(params map[string]any) Option {
	return func(opts *options) error {
		opts.parameters = params
		return nil
	}
}

// WithHeaders sets the request headers.
func WithHeaders(headers map[string]string) Option {
	return func(opts *options) error {
		for k := range headers {
			if k == "" {
				return errors.New("header name must not be empty")
			}
		}
		opts.headers = headers
		return nil
	}
}

// WithValidation replaces the default 2xx status check.
func WithValidation(fn Validation) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("validation must not be nil")
		}
		opts.validation = fn
		return nil
	}
}

// WithStatusCodes accepts only the given status codes.
func WithStatusCodes(codes ...int) Option {
	return func(opts *options) error {
		if len(codes) == 0 {
			return errors.New("at least one status code is required")
		}
		opts.validation = StatusIn(codes...)
		return nil
	}
}

// WithHooks sets all lifecycle hooks at once.
func WithHooks(h Hooks) Option {
	return func(opts *options) error {
		opts.hooks = h
		return nil
	}
}

// OnSuccess sets the success hook.
func OnSuccess(fn func(value any, req *http.Request)) Option {
	return func(opts *options) error {
		opts.hooks.OnSuccess = fn
		return nil
	}
}

// OnError sets the failure hook.
func OnError(fn func(err error, req *http.Request)) Option {
	return func(opts *options) error {
		opts.hooks.OnError = fn
		return nil
	}
}

// OnDecoded sets the hook fired with each decoded object.
func OnDecoded(fn func(value any)) Option {
	return func(opts *options) error {
		opts.hooks.OnDecoded = fn
		return nil
	}
}

// WithEncoding selects how parameters are encoded.
func WithEncoding(enc Encoding) Option {
	return func(opts *options) error {
		if enc != URLEncoding && enc != JSONEncoding {
			return errors.New("unknown parameter encoding")
		}
		opts.encoding = enc
		return nil
	}
}
