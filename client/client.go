package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/netreq/client/decode"
	"github.com/adamwoolhether/netreq/client/dispatch"
	"github.com/adamwoolhether/netreq/client/jsonvalue"
	"github.com/adamwoolhether/netreq/client/metrics"
	"github.com/adamwoolhether/netreq/client/pipeline"
	"github.com/adamwoolhether/netreq/client/request"
	"github.com/adamwoolhether/netreq/client/transport"
)

const (
	shapeRaw    = "raw"
	shapeJSON   = "json"
	shapeObject = "object"
)

// Transport sends a wire request and reports what happened. Uploads use the
// same call with a body-carrying request.
type Transport interface {
	Do(req *http.Request) pipeline.Outcome
}

// Client runs descriptors through the encoder, the session and the response
// pipeline. Every call is dispatched asynchronously.
type Client struct {
	session Transport
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Collector
	queue   *dispatch.Queue
}

// Build creates a Client with the given options.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	c := &Client{
		session: opts.session,
		logger:  slog.Default(),
		tracer:  opts.tracer,
		metrics: opts.metrics,
		queue:   dispatch.NewQueue(),
	}

	if opts.logger != nil {
		c.logger = opts.logger
	}

	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	if c.session == nil {
		h, err := transport.NewHTTP(append([]transport.Option{transport.WithLogger(c.logger)}, opts.transportOpts...)...)
		if err != nil {
			return nil, fmt.Errorf("building http session: %w", err)
		}
		c.session = h
	} else if len(opts.transportOpts) > 0 {
		return nil, errors.New("transport options cannot be combined with a custom session")
	}

	return c, nil
}

// Data sends d and delivers the raw response body.
func (c *Client) Data(ctx context.Context, d request.Descriptor, done pipeline.Completion[[]byte], opts ...CallOption) *dispatch.Call {
	return run(ctx, c, shapeRaw, d, pipeline.ProcessRaw, done, opts)
}

// JSON sends d and delivers the response body parsed as a generic JSON value.
func (c *Client) JSON(ctx context.Context, d request.Descriptor, done pipeline.Completion[jsonvalue.Value], opts ...CallOption) *dispatch.Call {
	return run(ctx, c, shapeJSON, d, pipeline.ProcessJSON, done, opts)
}

// Object sends d and delivers the response body decoded by dec.
func Object[T any](ctx context.Context, c *Client, d request.Descriptor, dec decode.Decoder[T], done pipeline.Completion[T], opts ...CallOption) *dispatch.Call {
	process := func(d request.Descriptor, o pipeline.Outcome, done pipeline.Completion[T]) bool {
		return pipeline.ProcessObject(d, o, dec, done)
	}
	return run(ctx, c, shapeObject, d, process, done, opts)
}

// Wait blocks until every call started on c completes and returns the
// errors of the failures delivered since the previous Wait, joined.
func (c *Client) Wait() error {
	return c.queue.Wait()
}

// Shutdown refuses new calls. A call started afterwards is delivered as a
// transport failure wrapping [dispatch.ErrShutdown].
func (c *Client) Shutdown() {
	c.queue.Shutdown()
}

type processFunc[T any] func(d request.Descriptor, o pipeline.Outcome, done pipeline.Completion[T]) bool

// run dispatches one call: encode, send, process, observe.
func run[T any](ctx context.Context, c *Client, shape string, d request.Descriptor, process processFunc[T], done pipeline.Completion[T], optFns []CallOption) *dispatch.Call {
	work := func(ctx context.Context) (bool, error) {
		end := c.metrics.Start(shape)
		defer end()

		ctx, span := c.startSpan(ctx, shape, d)
		defer span.End()

		obs := observation{
			shape:   shape,
			method:  string(d.Method()),
			path:    d.URL().Path,
			traceID: traceID(span),
			start:   time.Now(),
			span:    span,
		}

		var result error
		observed := func(env pipeline.Envelope[T]) {
			result = env.Err
			c.observe(ctx, obs, env.StatusCode(), env.Err)
			if done != nil {
				done(env)
			}
		}

		if !process(d, c.send(ctx, d, optFns), observed) {
			c.cancelled(ctx, obs)
			return false, nil
		}

		return true, result
	}

	refuse := func(err error) {
		c.logger.InfoContext(ctx, "request refused", "method", d.Method(), "path", d.URL().Path, "error", err)
		process(d, pipeline.Failed(nil, err), done)
	}

	return c.queue.Start(ctx, work, refuse)
}

// send encodes d with the call options and hands the wire request to the
// session. Encoding failures never reach the session.
func (c *Client) send(ctx context.Context, d request.Descriptor, optFns []CallOption) pipeline.Outcome {
	var opts callOpts
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return pipeline.Failed(nil, pipeline.NewError(pipeline.KindEncodingFailed, fmt.Errorf("applying call option: %w", err)))
		}
	}

	var req *http.Request
	var err error
	switch {
	case opts.form != nil:
		req, err = request.EncodeMultipart(ctx, d, opts.form)
	case opts.hasUpload:
		req, err = request.EncodeUpload(ctx, d, opts.upload, opts.contentType)
	default:
		req, err = request.Encode(ctx, d)
	}
	if err != nil {
		return pipeline.Failed(nil, pipeline.NewError(pipeline.KindEncodingFailed, err))
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return c.session.Do(req)
}

func (c *Client) startSpan(ctx context.Context, shape string, d request.Descriptor) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "netreq."+shape)
	span.SetAttributes(
		attribute.String("http.method", string(d.Method())),
		attribute.String("url.path", d.URL().Path),
		attribute.String("server.address", d.URL().Host),
	)

	return ctx, span
}

func traceID(span trace.Span) string {
	if id := span.SpanContext().TraceID(); id.IsValid() {
		return id.String()
	}
	return uuid.New().String()
}

// observation holds what is logged and measured for one call.
type observation struct {
	shape   string
	method  string
	path    string
	traceID string
	start   time.Time
	span    trace.Span
}

func (c *Client) observe(ctx context.Context, obs observation, status int, err error) {
	since := time.Since(obs.start)
	obs.span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		kind := pipeline.KindOf(err)
		obs.span.RecordError(err)
		obs.span.SetStatus(codes.Error, kind.String())
		c.metrics.Record(obs.shape, obs.method, kind.String(), since)

		c.logger.InfoContext(ctx, "request failed", "traceid", obs.traceID, "method", obs.method, "path", obs.path,
			"status", status, "kind", kind, "error", err, "since", since.String())
		return
	}

	obs.span.SetStatus(codes.Ok, "")
	c.metrics.Record(obs.shape, obs.method, metrics.OutcomeSuccess, since)

	c.logger.DebugContext(ctx, "request completed", "traceid", obs.traceID, "method", obs.method, "path", obs.path,
		"status", status, "since", since.String())
}

func (c *Client) cancelled(ctx context.Context, obs observation) {
	since := time.Since(obs.start)
	obs.span.SetAttributes(attribute.Bool("cancelled", true))
	c.metrics.Record(obs.shape, obs.method, metrics.OutcomeCancelled, since)

	c.logger.DebugContext(ctx, "request cancelled, completion suppressed", "traceid", obs.traceID, "method", obs.method,
		"path", obs.path, "since", since.String())
}
