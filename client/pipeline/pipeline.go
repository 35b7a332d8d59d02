// Package pipeline turns raw transport outcomes into typed envelopes.
//
// Every operation follows the same sequence:
//
//  1. A cancelled outcome is dropped: no hook fires and the completion is
//     never called.
//  2. Any other failure is normalized into an [*Error], OnError fires and a
//     failure envelope is delivered.
//  3. A received response is checked by the descriptor's validation rule.
//  4. The body is shaped into the target type: raw bytes, a
//     [jsonvalue.Value], or an object produced by a [decode.Decoder].
//  5. On success OnDecoded (objects only) and then OnSuccess fire.
//
// The completion is always invoked last, exactly once per attempt that was
// not cancelled. Each operation reports whether it delivered an envelope.
package pipeline

import (
	"net/http"

	"github.com/adamwoolhether/netreq/client/decode"
	"github.com/adamwoolhether/netreq/client/jsonvalue"
	"github.com/adamwoolhether/netreq/client/request"
)

// ProcessRaw delivers the response body unchanged.
func ProcessRaw(d request.Descriptor, o Outcome, done Completion[[]byte]) bool {
	if IsCancelled(o.Err) {
		return false
	}

	if err := check(d, o); err != nil {
		return fail(d, o, err, done)
	}

	return succeed(d, o, o.Body, done)
}

// ProcessJSON parses the response body into a generic JSON value.
func ProcessJSON(d request.Descriptor, o Outcome, done Completion[jsonvalue.Value]) bool {
	if IsCancelled(o.Err) {
		return false
	}

	if err := check(d, o); err != nil {
		return fail(d, o, err, done)
	}

	v, err := parseBody(o)
	if err != nil {
		return fail(d, o, NewError(KindSerializationFailed, err), done)
	}

	return succeed(d, o, v, done)
}

// ProcessObject parses the response body and decodes its root object with dec.
func ProcessObject[T any](d request.Descriptor, o Outcome, dec decode.Decoder[T], done Completion[T]) bool {
	if IsCancelled(o.Err) {
		return false
	}

	if err := check(d, o); err != nil {
		return fail(d, o, err, done)
	}

	v, err := parseBody(o)
	if err != nil {
		return fail(d, o, NewError(KindSerializationFailed, err), done)
	}

	if v.Kind() != jsonvalue.Object {
		return fail(d, o, NewError(KindInvalidResponse, errNotObject), done)
	}

	obj, err := dec.Decode(v)
	if err != nil {
		return fail(d, o, NewError(KindDecodingFailed, err), done)
	}

	d.Hooks().Decoded(obj)

	return succeed(d, o, obj, done)
}

// check normalizes a transport failure or applies response validation.
func check(d request.Descriptor, o Outcome) error {
	if o.Err != nil {
		return normalize(o.Err)
	}

	valid := d.Validation()
	if valid == nil {
		valid = request.AcceptSuccess
	}

	if err := valid(o.Response, o.Body); err != nil {
		return NewError(KindValidationFailed, err)
	}

	return nil
}

func fail[T any](d request.Descriptor, o Outcome, err error, done Completion[T]) bool {
	req := requestOf(o)
	d.Hooks().Error(err, req)

	deliver(done, Envelope[T]{
		Request:  req,
		Response: o.Response,
		Data:     o.Body,
		Err:      err,
	})

	return true
}

func succeed[T any](d request.Descriptor, o Outcome, v T, done Completion[T]) bool {
	req := requestOf(o)
	d.Hooks().Success(v, req)

	deliver(done, Envelope[T]{
		Request:  req,
		Response: o.Response,
		Data:     o.Body,
		Value:    v,
	})

	return true
}

func deliver[T any](done Completion[T], env Envelope[T]) {
	if done != nil {
		done(env)
	}
}

// requestOf returns the request a response was produced for.
func requestOf(o Outcome) *http.Request {
	if o.Request != nil {
		return o.Request
	}
	if o.Response != nil {
		return o.Response.Request
	}
	return nil
}

// parseBody parses the response body as JSON. An empty body on a 204 or 205
// response is null.
func parseBody(o Outcome) (jsonvalue.Value, error) {
	if len(o.Body) == 0 && o.Response != nil {
		switch o.Response.StatusCode {
		case http.StatusNoContent, http.StatusResetContent:
			return jsonvalue.NullValue(), nil
		}
	}

	return jsonvalue.Parse(o.Body)
}
