package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Encoding selects where and how parameters are written.
type Encoding int

const (
	// URLEncoding is method dependent: POST, PUT and PATCH put the
	// parameters in a form-urlencoded body, every other method appends
	// them to the query string.
	URLEncoding Encoding = iota
	// JSONEncoding always writes the parameters as a JSON body.
	JSONEncoding
)

const (
	contentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
	contentTypeJSON = "application/json"
)

// ErrEmptyForm is returned by [EncodeMultipart] when no form builder is given.
var ErrEmptyForm = errors.New("multipart form builder must not be nil")

// FormFunc appends the parts of a multipart body.
type FormFunc func(w *multipart.Writer) error

// Encode builds the wire request for d. It has no side effects: encoding the
// same Descriptor twice yields equivalent requests.
func Encode(ctx context.Context, d Descriptor) (*http.Request, error) {
	u := d.URL()

	var body []byte
	var contentType string

	switch {
	case len(d.parameters) == 0:
	case d.encoding == JSONEncoding:
		b, err := json.Marshal(d.parameters)
		if err != nil {
			return nil, fmt.Errorf("encoding json parameters: %w", err)
		}
		body, contentType = b, contentTypeJSON
	case d.method.carriesBody():
		q, err := QueryString(d.parameters)
		if err != nil {
			return nil, err
		}
		body, contentType = []byte(q), contentTypeForm
	default:
		q, err := QueryString(d.parameters)
		if err != nil {
			return nil, err
		}
		appendQuery(u, q)
	}

	return build(ctx, d, u, body, contentType)
}

// EncodeUpload builds a wire request whose body is data. Parameters are
// always appended to the query string since the body is taken. An empty
// contentType is sniffed from data and falls back to
// application/octet-stream.
func EncodeUpload(ctx context.Context, d Descriptor, data []byte, contentType string) (*http.Request, error) {
	u := d.URL()

	if len(d.parameters) > 0 {
		q, err := QueryString(d.parameters)
		if err != nil {
			return nil, err
		}
		appendQuery(u, q)
	}

	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	return build(ctx, d, u, bytes.Clone(data), contentType)
}

// EncodeMultipart builds the multipart body with fn and returns the upload
// request. The body is assembled entirely before the request exists, so any
// error here means nothing was transmitted.
func EncodeMultipart(ctx context.Context, d Descriptor, fn FormFunc) (*http.Request, error) {
	if fn == nil {
		return nil, ErrEmptyForm
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := fn(w); err != nil {
		return nil, fmt.Errorf("building multipart form: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	return EncodeUpload(ctx, d, buf.Bytes(), w.FormDataContentType())
}

func build(ctx context.Context, d Descriptor, u *url.URL, body []byte, contentType string) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, string(d.method), u.String(), rdr)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for _, k := range slices.Sorted(maps.Keys(d.headers)) {
		req.Header.Set(k, d.headers[k])
	}

	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func appendQuery(u *url.URL, q string) {
	if q == "" {
		return
	}

	if u.RawQuery == "" {
		u.RawQuery = q
		return
	}

	u.RawQuery = u.RawQuery + "&" + q
}

// QueryString percent-encodes params with keys in sorted order. Nested maps
// become key[sub]=v, slices become key[]=v and booleans are written as 1/0.
func QueryString(params map[string]any) (string, error) {
	var pairs []string
	for _, k := range slices.Sorted(maps.Keys(params)) {
		p, err := components(k, params[k])
		if err != nil {
			return "", fmt.Errorf("encoding parameter %q: %w", k, err)
		}
		pairs = append(pairs, p...)
	}

	return strings.Join(pairs, "&"), nil
}

func components(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{url.QueryEscape(key) + "="}, nil
	case string:
		return []string{pair(key, v)}, nil
	case bool:
		if v {
			return []string{pair(key, "1")}, nil
		}
		return []string{pair(key, "0")}, nil
	case json.Number:
		return []string{pair(key, v.String())}, nil
	case fmt.Stringer:
		return []string{pair(key, v.String())}, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []string{pair(key, strconv.FormatInt(rv.Int(), 10))}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return []string{pair(key, strconv.FormatUint(rv.Uint(), 10))}, nil
	case reflect.Float32, reflect.Float64:
		return []string{pair(key, strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits()))}, nil
	case reflect.Slice, reflect.Array:
		var out []string
		for i := range rv.Len() {
			p, err := components(key+"[]", rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, p...)
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings, got %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, mk := range rv.MapKeys() {
			keys = append(keys, mk.String())
		}
		slices.Sort(keys)

		var out []string
		for _, k := range keys {
			p, err := components(key+"["+k+"]", rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, p...)
		}
		return out, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return components(key, nil)
		}
		return components(key, rv.Elem().Interface())
	}

	return nil, fmt.Errorf("unsupported parameter type %T", value)
}

func pair(key, value string) string {
	return url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
