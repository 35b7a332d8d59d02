// Package transport provides the sessions that put wire requests on the
// network and hand the result to the response pipeline as a
// [pipeline.Outcome].
//
// [HTTP] is built on [net/http] with a RoundTripper chain for the user agent,
// request id and throttle. [Resty] adapts a go-resty client. Both read the full
// response body before returning.
package transport

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/netreq/client/pipeline"
	"github.com/adamwoolhether/netreq/client/throttle"
)

// HTTP is a session backed by an [http.Client].
type HTTP struct {
	c      *http.Client
	logger *slog.Logger
}

// NewHTTP builds an HTTP session. Without options it uses a fresh
// [http.Client] over [http.DefaultTransport].
func NewHTTP(optFns ...Option) (*HTTP, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying transport option: %w", err)
		}
	}

	h := &HTTP{
		c:      &http.Client{},
		logger: slog.Default(),
	}

	if opts.client != nil {
		cpy := *opts.client
		h.c = &cpy
	}

	if opts.logger != nil {
		h.logger = opts.logger
	}

	if opts.timeout != nil {
		h.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		h.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var rt http.RoundTripper
	switch {
	case opts.rt != nil:
		rt = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		rt = opts.client.Transport
	default:
		rt = http.DefaultTransport
	}
	if opts.requestIDHeader != "" {
		rt = requestID{header: opts.requestIDHeader, base: rt}
	}
	if opts.userAgent != "" {
		rt = userAgent{value: opts.userAgent, base: rt}
	}
	if opts.throttle != nil {
		throttled, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return h.logger }, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		rt = throttled
	}
	h.c.Transport = rt

	return h, nil
}

// Do sends req and reads the whole response body. A response is attached to
// the outcome whenever one was received, including when reading its body
// fails.
func (h *HTTP) Do(req *http.Request) pipeline.Outcome {
	resp, err := h.c.Do(req)
	if err != nil {
		return pipeline.Failed(req, fmt.Errorf("http do: %w", err))
	}
	defer h.closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pipeline.Outcome{
			Request:  req,
			Response: resp,
			Err:      fmt.Errorf("reading response body: %w", err),
		}
	}

	return pipeline.Outcome{
		Request:  req,
		Response: resp,
		Body:     body,
	}
}

func (h *HTTP) closeBody(resp *http.Response) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		h.logger.Error("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		h.logger.Error("failed to close response body", "error", err)
	}
}
