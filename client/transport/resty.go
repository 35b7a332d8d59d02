package transport

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/adamwoolhether/netreq/client/pipeline"
)

// Resty is a session backed by a [resty.Client]. The wire request built by
// the encoder is replayed through resty with its method, URL, headers and
// body unchanged.
type Resty struct {
	c *resty.Client
}

// NewResty wraps c. A nil c is replaced by [resty.New].
func NewResty(c *resty.Client) *Resty {
	if c == nil {
		c = resty.New()
	}
	return &Resty{c: c}
}

// Do executes req through resty.
func (r *Resty) Do(req *http.Request) pipeline.Outcome {
	rr := r.c.R().
		SetContext(req.Context()).
		SetHeaderMultiValues(req.Header)

	if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return pipeline.Failed(req, fmt.Errorf("reading request body: %w", err))
		}
		if err := req.Body.Close(); err != nil {
			return pipeline.Failed(req, fmt.Errorf("closing request body: %w", err))
		}
		rr.SetBody(body)
	}

	resp, err := rr.Execute(req.Method, req.URL.String())
	if err != nil {
		return pipeline.Outcome{
			Request:  req,
			Response: rawResponse(resp),
			Err:      fmt.Errorf("resty execute: %w", err),
		}
	}

	return pipeline.Outcome{
		Request:  req,
		Response: resp.RawResponse,
		Body:     resp.Body(),
	}
}

// Client returns the underlying resty client.
func (r *Resty) Client() *resty.Client {
	return r.c
}

func rawResponse(resp *resty.Response) *http.Response {
	if resp == nil {
		return nil
	}
	return resp.RawResponse
}
