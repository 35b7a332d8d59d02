package client

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/netreq/client/metrics"
	"github.com/adamwoolhether/netreq/client/request"
	"github.com/adamwoolhether/netreq/client/transport"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	session       Transport
	transportOpts []transport.Option
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *metrics.Collector
}

// WithSession injects the transport collaborator. When unset, [Build]
// creates a [transport.HTTP] session.
func WithSession(t Transport) Option {
	return func(o *options) error {
		if t == nil {
			return errors.New("session must not be nil")
		}
		o.session = t
		return nil
	}
}

// WithTransportOptions configures the default [transport.HTTP] session.
// It cannot be combined with [WithSession].
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) error {
		o.transportOpts = append(o.transportOpts, opts...)
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used to open one span per call.
// Defaults to a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithMetrics records call outcomes on the given collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) error {
		if m == nil {
			return errors.New("metrics collector must not be nil")
		}
		o.metrics = m
		return nil
	}
}

// CallOption is a functional option for a single call.
type CallOption func(*callOpts) error

type callOpts struct {
	upload      []byte
	contentType string
	hasUpload   bool
	form        request.FormFunc
}

// WithUpload sends data as the request body. An empty contentType is
// detected from data.
func WithUpload(data []byte, contentType string) CallOption {
	return func(o *callOpts) error {
		if o.form != nil {
			return errors.New("upload cannot be combined with multipart")
		}
		o.upload = data
		o.contentType = contentType
		o.hasUpload = true
		return nil
	}
}

// WithMultipart builds a multipart body with fn and sends it as the
// request body.
func WithMultipart(fn request.FormFunc) CallOption {
	return func(o *callOpts) error {
		if fn == nil {
			return request.ErrEmptyForm
		}
		if o.hasUpload {
			return errors.New("multipart cannot be combined with upload")
		}
		o.form = fn
		return nil
	}
}
