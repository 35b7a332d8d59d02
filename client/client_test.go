package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/adamwoolhether/netreq/client"
	"github.com/adamwoolhether/netreq/client/decode"
	"github.com/adamwoolhether/netreq/client/jsonvalue"
	"github.com/adamwoolhether/netreq/client/metrics"
	"github.com/adamwoolhether/netreq/client/pipeline"
	"github.com/adamwoolhether/netreq/client/request"
	"github.com/adamwoolhether/netreq/client/transport"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name" validate:"required"`
}

type test struct {
	*client.Client

	server *httptest.Server
	logs   *bytes.Buffer
}

func newTest(t *testing.T, h http.HandlerFunc, optFns ...client.Option) *test {
	t.Helper()

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&syncWriter{w: &logs}, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, err := client.Build(append([]client.Option{client.WithLogger(logger)}, optFns...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return &test{Client: c, server: server, logs: &logs}
}

func (tt *test) descriptor(t *testing.T, method request.Method, path string, optFns ...request.Option) request.Descriptor {
	t.Helper()

	d, err := request.Parse(method, tt.server.URL+path, optFns...)
	if err != nil {
		t.Fatalf("failed to build descriptor: %v", err)
	}
	return d
}

func userHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/users/1":
		_, _ = io.WriteString(w, `{"id":1,"name":"Ann"}`)
	case "/users/2":
		_, _ = io.WriteString(w, `{"id":2}`)
	case "/users":
		_, _ = io.WriteString(w, `[{"id":1,"name":"Ann"}]`)
	case "/broken":
		_, _ = io.WriteString(w, `{"id":`)
	case "/private":
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"forbidden"}`)
	default:
		http.NotFound(w, r)
	}
}

func TestObject_Decoded(t *testing.T) {
	tt := newTest(t, userHandler)

	var events []string
	d := tt.descriptor(t, request.MethodGet, "/users/1",
		request.OnDecoded(func(any) { events = append(events, "decoded") }),
		request.OnSuccess(func(any, *http.Request) { events = append(events, "success") }),
	)

	var got client.Envelope[user]
	call := client.Object(t.Context(), tt.Client, d, decode.Schema[user](), func(env client.Envelope[user]) {
		events = append(events, "complete")
		got = env
	})

	if err := call.Err(); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	if diff := cmp.Diff(user{ID: 1, Name: "Ann"}, got.Value); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"decoded", "success", "complete"}, events); diff != "" {
		t.Errorf("event order mismatch (-want +got):\n%s", diff)
	}
	if got.StatusCode() != http.StatusOK {
		t.Errorf("exp status %d, got: %d", http.StatusOK, got.StatusCode())
	}
	if !strings.Contains(tt.logs.String(), "request completed") {
		t.Errorf("expected completion log, got:\n%s", tt.logs.String())
	}
}

func TestObject_DecodingFailed(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodGet, "/users/2")

	var got client.Envelope[user]
	call := client.Object(t.Context(), tt.Client, d, decode.Schema[user](), func(env client.Envelope[user]) {
		got = env
	})

	if err := call.Err(); !errors.Is(err, client.ErrDecodingFailed) {
		t.Fatalf("exp err %v; got: %v", client.ErrDecodingFailed, err)
	}
	if got.Success() {
		t.Fatal("exp failure envelope")
	}
	if fe := decode.GetFieldErrors(got.Err); fe == nil || fe.Fields()["name"] == "" {
		t.Errorf("exp field error for name, got: %v", got.Err)
	}
	if string(got.Data) != `{"id":2}` {
		t.Errorf("exp raw body kept on failure, got: %q", got.Data)
	}
	if !strings.Contains(tt.logs.String(), "request failed") {
		t.Errorf("expected failure log, got:\n%s", tt.logs.String())
	}
}

func TestObject_InvalidResponse(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodGet, "/users")

	call := client.Object(t.Context(), tt.Client, d, decode.Schema[user](), nil)

	if err := call.Err(); !errors.Is(err, client.ErrInvalidResponse) {
		t.Fatalf("exp err %v; got: %v", client.ErrInvalidResponse, err)
	}
}

func TestJSON_Array(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodGet, "/users")

	var got jsonvalue.Value
	call := tt.JSON(t.Context(), d, func(env client.Envelope[jsonvalue.Value]) {
		got = env.Value
	})

	if err := call.Err(); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if got.Kind() != jsonvalue.Array || got.Len() != 1 {
		t.Errorf("exp one-element array, got: %v", got)
	}
}

func TestJSON_SerializationFailed(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodGet, "/broken")

	call := tt.JSON(t.Context(), d, nil)

	if err := call.Err(); !errors.Is(err, client.ErrSerializationFailed) {
		t.Fatalf("exp err %v; got: %v", client.ErrSerializationFailed, err)
	}
}

func TestData_ValidationFailed(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodGet, "/private")

	var got client.Envelope[[]byte]
	call := tt.Data(t.Context(), d, func(env client.Envelope[[]byte]) {
		got = env
	})

	err := call.Err()
	if !errors.Is(err, client.ErrValidationFailed) || !errors.Is(err, client.ErrAuthFailure) {
		t.Fatalf("exp validation auth failure, got: %v", err)
	}

	var statusErr *client.UnexpectedStatusError
	if !errors.As(got.Err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("exp *UnexpectedStatusError with 403, got: %v", got.Err)
	}
	if got.StatusCode() != http.StatusForbidden {
		t.Errorf("exp response metadata kept, got status: %d", got.StatusCode())
	}
}

func TestData_ParametersInQuery(t *testing.T) {
	tt := newTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.RawQuery)
	})
	d := tt.descriptor(t, request.MethodGet, "/search",
		request.WithParameters(map[string]any{"q": "go", "page": 2}))

	var got []byte
	call := tt.Data(t.Context(), d, func(env client.Envelope[[]byte]) {
		got = env.Value
	})

	if err := call.Err(); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if string(got) != "page=2&q=go" {
		t.Errorf("exp query %q, got: %q", "page=2&q=go", got)
	}
}

func TestData_Upload(t *testing.T) {
	tt := newTest(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "text/plain" {
			t.Errorf("exp text/plain, got %q", ct)
		}
		if got := r.URL.Query().Get("name"); got != "notes.txt" {
			t.Errorf("exp name query param, got %q", got)
		}
		_, _ = io.Copy(w, r.Body)
	})
	d := tt.descriptor(t, request.MethodPost, "/upload",
		request.WithParameters(map[string]any{"name": "notes.txt"}))

	var got []byte
	call := tt.Data(t.Context(), d, func(env client.Envelope[[]byte]) {
		got = env.Value
	}, client.WithUpload([]byte("hello"), "text/plain"))

	if err := call.Err(); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("exp echoed body, got: %q", got)
	}
}

func TestData_Multipart(t *testing.T) {
	tt := newTest(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, r.FormValue("title"))
	})
	d := tt.descriptor(t, request.MethodPost, "/upload")

	var got []byte
	call := tt.Data(t.Context(), d, func(env client.Envelope[[]byte]) {
		got = env.Value
	}, client.WithMultipart(func(w *multipart.Writer) error {
		return w.WriteField("title", "report")
	}))

	if err := call.Err(); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if string(got) != "report" {
		t.Errorf("exp %q, got: %q", "report", got)
	}
}

func TestData_MultipartBuilderFails(t *testing.T) {
	var hits atomic.Int32
	tt := newTest(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	d := tt.descriptor(t, request.MethodPost, "/upload")

	buildErr := errors.New("file vanished")
	var got client.Envelope[[]byte]
	call := tt.Data(t.Context(), d, func(env client.Envelope[[]byte]) {
		got = env
	}, client.WithMultipart(func(*multipart.Writer) error {
		return buildErr
	}))

	err := call.Err()
	if !errors.Is(err, client.ErrEncodingFailed) || !errors.Is(err, buildErr) {
		t.Fatalf("exp encoding failure wrapping %v, got: %v", buildErr, err)
	}
	if got.Response != nil {
		t.Error("exp no response on local encoding failure")
	}
	if hits.Load() != 0 {
		t.Errorf("exp nothing transmitted, server hit %d times", hits.Load())
	}
}

func TestData_ConflictingCallOptions(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodPost, "/upload")

	call := tt.Data(t.Context(), d, nil,
		client.WithUpload([]byte("x"), ""),
		client.WithMultipart(func(*multipart.Writer) error { return nil }),
	)

	if err := call.Err(); !errors.Is(err, client.ErrEncodingFailed) {
		t.Fatalf("exp err %v; got: %v", client.ErrEncodingFailed, err)
	}
}

func TestCall_CancelSuppressesDelivery(t *testing.T) {
	started := make(chan struct{})
	tt := newTest(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})

	var hooks atomic.Int32
	d := tt.descriptor(t, request.MethodGet, "/slow",
		request.OnSuccess(func(any, *http.Request) { hooks.Add(1) }),
		request.OnError(func(error, *http.Request) { hooks.Add(1) }),
	)

	var completions atomic.Int32
	call := tt.Data(t.Context(), d, func(client.Envelope[[]byte]) {
		completions.Add(1)
	})

	<-started
	call.Cancel()

	select {
	case <-call.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled call did not finish in time")
	}

	if call.Delivered() {
		t.Error("exp cancelled call to deliver nothing")
	}
	if n := completions.Load(); n != 0 {
		t.Errorf("exp zero completions, got: %d", n)
	}
	if n := hooks.Load(); n != 0 {
		t.Errorf("exp zero hooks, got: %d", n)
	}
	if !strings.Contains(tt.logs.String(), "request cancelled, completion suppressed") {
		t.Errorf("expected cancellation log, got:\n%s", tt.logs.String())
	}
}

func TestCall_PreCancelledContext(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodGet, "/users/1")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var completions atomic.Int32
	call := tt.Data(ctx, d, func(client.Envelope[[]byte]) {
		completions.Add(1)
	})

	if err := call.Err(); err != nil {
		t.Errorf("exp nil err for suppressed call, got: %v", err)
	}
	if completions.Load() != 0 {
		t.Error("exp no completion for pre-cancelled call")
	}
}

func TestCall_TimeoutIsTransportFailure(t *testing.T) {
	tt := newTest(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, client.WithTransportOptions(transport.WithTimeout(20*time.Millisecond)))
	d := tt.descriptor(t, request.MethodGet, "/slow")

	var got client.Envelope[[]byte]
	call := tt.Data(t.Context(), d, func(env client.Envelope[[]byte]) {
		got = env
	})

	if err := call.Err(); !errors.Is(err, client.ErrTransport) {
		t.Fatalf("exp err %v; got: %v", client.ErrTransport, err)
	}
	if client.IsCancelled(got.Err) {
		t.Error("exp timeout not to be a cancellation")
	}
}

func TestClient_Shutdown(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodGet, "/users/1")

	tt.Shutdown()

	var got client.Envelope[[]byte]
	call := tt.Data(t.Context(), d, func(env client.Envelope[[]byte]) {
		got = env
	})
	<-call.Done()

	if !errors.Is(got.Err, client.ErrTransport) || !errors.Is(got.Err, client.ErrShutdown) {
		t.Errorf("exp transport failure wrapping %v, got: %v", client.ErrShutdown, got.Err)
	}
	if err := tt.Wait(); !errors.Is(err, client.ErrShutdown) {
		t.Errorf("exp %v from Wait, got: %v", client.ErrShutdown, err)
	}
}

func TestClient_ConcurrentCalls(t *testing.T) {
	tt := newTest(t, userHandler)
	d := tt.descriptor(t, request.MethodGet, "/users/1")

	var mu sync.Mutex
	var names []string
	for range 10 {
		client.Object(t.Context(), tt.Client, d, decode.Schema[user](), func(env client.Envelope[user]) {
			mu.Lock()
			defer mu.Unlock()
			names = append(names, env.Value.Name)
		})
	}

	if err := tt.Wait(); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if len(names) != 10 {
		t.Errorf("exp 10 completions, got: %d", len(names))
	}
}

func TestClient_WaitReportsSinceLastWait(t *testing.T) {
	tt := newTest(t, userHandler)
	bad := tt.descriptor(t, request.MethodGet, "/users/2")
	ok := tt.descriptor(t, request.MethodGet, "/users/1")

	client.Object(t.Context(), tt.Client, bad, decode.Schema[user](), nil)
	if err := tt.Wait(); !errors.Is(err, client.ErrDecodingFailed) {
		t.Fatalf("exp err %v; got: %v", client.ErrDecodingFailed, err)
	}

	client.Object(t.Context(), tt.Client, ok, decode.Schema[user](), nil)
	if err := tt.Wait(); err != nil {
		t.Errorf("exp earlier failures cleared, got: %v", err)
	}
}

func TestClient_WithSession(t *testing.T) {
	var seen *http.Request
	session := sessionFunc(func(req *http.Request) pipeline.Outcome {
		seen = req
		return pipeline.Outcome{
			Request:  req,
			Response: &http.Response{StatusCode: http.StatusOK, Request: req},
			Body:     []byte(`{"id":7,"name":"Bo"}`),
		}
	})

	c, err := client.Build(client.WithSession(session))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	d, err := request.Parse(request.MethodGet, "https://api.example.com/users/7")
	if err != nil {
		t.Fatalf("failed to build descriptor: %v", err)
	}

	var got user
	call := client.Object(t.Context(), c, d, decode.Schema[user](), func(env client.Envelope[user]) {
		got = env.Value
	})

	if err := call.Err(); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if got.Name != "Bo" {
		t.Errorf("exp Bo, got: %q", got.Name)
	}
	if seen == nil || seen.URL.Path != "/users/7" {
		t.Errorf("exp session to receive the wire request, got: %v", seen)
	}
}

func TestClient_WithRestySession(t *testing.T) {
	tt := newTest(t, userHandler)

	c, err := client.Build(client.WithSession(transport.NewResty(nil)))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	d := tt.descriptor(t, request.MethodGet, "/users/1")

	var got user
	call := client.Object(t.Context(), c, d, decode.Schema[user](), func(env client.Envelope[user]) {
		got = env.Value
	})

	if err := call.Err(); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if got.Name != "Ann" {
		t.Errorf("exp Ann, got: %q", got.Name)
	}
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tt := newTest(t, userHandler, client.WithMetrics(metrics.New(reg)))

	ok := tt.descriptor(t, request.MethodGet, "/users/1")
	bad := tt.descriptor(t, request.MethodGet, "/users/2")

	client.Object(t.Context(), tt.Client, ok, decode.Schema[user](), nil)
	client.Object(t.Context(), tt.Client, bad, decode.Schema[user](), nil)
	_ = tt.Wait()

	exp := `
# HELP netreq_calls_total Total number of request calls by response shape and outcome
# TYPE netreq_calls_total counter
netreq_calls_total{method="GET",outcome="decoding failed",shape="object"} 1
netreq_calls_total{method="GET",outcome="success",shape="object"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(exp), "netreq_calls_total"); err != nil {
		t.Error(err)
	}
}

func TestBuild_OptionErrors(t *testing.T) {
	testCases := []struct {
		name string
		opts []client.Option
	}{
		{name: "nil session", opts: []client.Option{client.WithSession(nil)}},
		{name: "nil logger", opts: []client.Option{client.WithLogger(nil)}},
		{name: "nil tracer", opts: []client.Option{client.WithTracer(nil)}},
		{name: "nil metrics", opts: []client.Option{client.WithMetrics(nil)}},
		{name: "bad transport option", opts: []client.Option{client.WithTransportOptions(transport.WithTimeout(-time.Second))}},
		{name: "session with transport options", opts: []client.Option{
			client.WithSession(transport.NewResty(nil)),
			client.WithTransportOptions(transport.WithUserAgent("x")),
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := client.Build(tc.opts...); err == nil {
				t.Error("exp build error, got nil")
			}
		})
	}
}

type sessionFunc func(*http.Request) pipeline.Outcome

func (f sessionFunc) Do(req *http.Request) pipeline.Outcome {
	return f(req)
}

// syncWriter serializes writes from concurrent call goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
