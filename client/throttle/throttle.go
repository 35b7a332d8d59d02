// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound requests with a token bucket from [golang.org/x/time/rate].
//
// When the bucket is empty a request blocks until a token is available or
// its context ends. A request whose context is cancelled while waiting fails
// with an error wrapping [context.Canceled], which the response pipeline
// treats as a cancellation.
package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the sustained requests per second and the burst capacity.
type Config struct {
	RPS   int
	Burst int
}

// Validate reports whether both limits are positive.
func (c Config) Validate() error {
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps[%d] and burst[%d] %w", c.RPS, c.Burst, ErrMustNotBeZero)
	}
	return nil
}

// roundTripper waits on the limiter before handing the request to next.
type roundTripper struct {
	limiter *rate.Limiter
	cfg     Config
	next    http.RoundTripper
	logFn   func() *slog.Logger
}

// NewRoundTripper wraps next with cfg's limits. logFn is resolved on every
// request so the logger may be configured after the transport is built; a
// nil logger disables the exhaustion logs.
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if next == nil {
		next = http.DefaultTransport
	}

	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	return &roundTripper{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:     cfg,
		next:    next,
		logFn:   logFn,
	}, nil
}

func (t *roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if logger := t.logFn(); logger != nil && t.limiter.Tokens() < 1 {
		start := time.Now()
		logger.Info("throttle tokens exhausted", "rate", t.cfg.RPS, "burst", t.cfg.Burst, "host", r.URL.Host, "path", r.URL.Path)

		defer func() {
			logger.Info("throttle wait complete", "waited", time.Since(start).String(), "host", r.URL.Host)
		}()
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
