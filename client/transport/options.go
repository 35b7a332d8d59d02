package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"net/textproto"
	"time"

	"github.com/adamwoolhether/netreq/client/throttle"
)

// Option is a functional option for configuring an [HTTP] session via [NewHTTP].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	requestIDHeader   string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
}

// WithClient replaces the default [http.Client]. The session works on a copy.
func WithClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithRoundTripper sets a custom [http.RoundTripper] as the base of the chain.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("round tripper must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
// An expired timeout is a transport failure, not a cancellation.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithRequestID stamps every outgoing request with a random UUID under the
// given header, unless the request already carries one.
func WithRequestID(header string) Option {
	return func(o *options) error {
		if header == "" {
			return errors.New("request id header must not be empty")
		}
		o.requestIDHeader = textproto.CanonicalMIMEHeaderKey(header)
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting.
func WithThrottle(cfg throttle.Config) Option {
	return func(o *options) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.throttle = &cfg
		return nil
	}
}

// WithNoFollowRedirects prevents the session from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}
