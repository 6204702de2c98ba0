package envelope

import (
	"bytes"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

const jsonContentType = "application/json; charset=utf-8"

// Response is the terminal value of one call: a status, headers and a body.
// It is built by a handler or middleware and only read afterwards.
type Response struct {
	Status  int
	Headers http.Header
	Body    any
}

// NewResponse builds a Response. A zero status means 200.
func NewResponse(status int, body any) *Response {
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{Status: status, Headers: http.Header{}, Body: body}
}

// WithHeader returns a copy of the response carrying an extra header.
func (r *Response) WithHeader(key, value string) *Response {
	clone := *r
	clone.Headers = r.Headers.Clone()
	if clone.Headers == nil {
		clone.Headers = http.Header{}
	}
	clone.Headers.Set(key, value)
	return &clone
}

// Writer wraps an http.ResponseWriter and refuses header changes once the
// status line has been written. Late header writes are silently dropped.
type Writer struct {
	http.ResponseWriter

	status  int
	started bool
}

// NewWriter wraps w. Wrapping a *Writer returns it unchanged.
func NewWriter(w http.ResponseWriter) *Writer {
	if existing, ok := w.(*Writer); ok {
		return existing
	}
	return &Writer{ResponseWriter: w}
}

// SetHeader sets a header unless output has started. It reports whether the
// header was applied.
func (w *Writer) SetHeader(key, value string) bool {
	if w.started {
		return false
	}
	w.ResponseWriter.Header().Set(key, value)
	return true
}

// AddHeader appends a header value unless output has started.
func (w *Writer) AddHeader(key, value string) bool {
	if w.started {
		return false
	}
	w.ResponseWriter.Header().Add(key, value)
	return true
}

// DelHeader removes a header unless output has started.
func (w *Writer) DelHeader(key string) bool {
	if w.started {
		return false
	}
	w.ResponseWriter.Header().Del(key)
	return true
}

// Started reports whether the status line has been written.
func (w *Writer) Started() bool { return w.started }

// Status is the status written so far, or 0.
func (w *Writer) Status() int { return w.status }

func (w *Writer) WriteHeader(status int) {
	if w.started {
		return
	}
	w.started = true
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *Writer) Write(b []byte) (int, error) {
	if !w.started {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *Writer) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Send writes resp to w: headers first, then the status, then the encoded
// body. When output has already started only the body is written.
func Send(w *Writer, resp *Response) error {
	payload, err := Encode(resp.Body)
	if err != nil {
		return err
	}

	w.SetHeader("Content-Type", jsonContentType)
	for key, values := range resp.Headers {
		w.DelHeader(key)
		for _, v := range values {
			w.AddHeader(key, v)
		}
	}
	w.SetHeader("Content-Length", strconv.Itoa(len(payload)))

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "failed to write response body")
	}
	return nil
}

// Encode renders a body value. Strings and byte slices pass through
// verbatim; maps, slices, arrays and structs are JSON with stable
// indentation; any other value is wrapped as {"data": value}.
func Encode(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}

	if !isStructured(body) {
		body = map[string]any{"data": body}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(body); err != nil {
		return nil, errors.Wrap(err, "failed to encode response body")
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isStructured(body any) bool {
	if body == nil {
		return false
	}
	if _, ok := body.(json.Marshaler); ok {
		return true
	}

	v := reflect.ValueOf(body)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	default:
		return false
	}
}
