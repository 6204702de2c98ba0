package envelope

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMaxBodyBytes caps how much of a request body is buffered.
const DefaultMaxBodyBytes int64 = 10 << 20

const maxMultipartMemory = 32 << 20

// Request is the normalized view of one inbound call. It is built once by
// FromHTTP and is read-only afterwards; accessors that return maps hand out
// copies.
type Request struct {
	ctx context.Context

	method        string
	path          string
	rawURI        string
	query         url.Values
	headers       map[string]string
	body          map[string]any
	rawBody       []byte
	clientIP      string
	peerAddr      string
	userAgent     string
	contentLength int64
	tls           bool
}

// Options tune how FromHTTP reads the request.
type Options struct {
	// MaxBodyBytes is the largest body that is buffered. A larger body is not
	// parsed and ContentLength reports at least MaxBodyBytes+1.
	MaxBodyBytes int64
}

// FromHTTP builds the Request for r. The body is consumed.
func FromHTTP(r *http.Request, opts Options) (*Request, error) {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	req := &Request{
		ctx:           r.Context(),
		method:        strings.ToUpper(r.Method),
		path:          NormalizePath(r.URL.Path),
		rawURI:        r.RequestURI,
		query:         r.URL.Query(),
		headers:       make(map[string]string, len(r.Header)),
		body:          map[string]any{},
		peerAddr:      r.RemoteAddr,
		userAgent:     r.UserAgent(),
		contentLength: r.ContentLength,
		tls:           r.TLS != nil,
	}
	if req.rawURI == "" {
		req.rawURI = r.URL.RequestURI()
	}

	for name, values := range r.Header {
		req.headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		req.headers["host"] = r.Host
	}

	req.clientIP = ResolveClientIP(r.Header, r.RemoteAddr)

	if r.Body == nil || r.Body == http.NoBody {
		if req.contentLength < 0 {
			req.contentLength = 0
		}
		return req, nil
	}
	defer r.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(r.Body, opts.MaxBodyBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read request body")
	}

	if int64(len(raw)) > opts.MaxBodyBytes {
		// Oversized bodies are left unparsed; the security policy rejects them.
		if req.contentLength < int64(len(raw)) {
			req.contentLength = int64(len(raw))
		}
		return req, nil
	}
	if req.contentLength < 0 {
		req.contentLength = int64(len(raw))
	}

	req.rawBody = raw
	req.body = parseBody(r, raw)

	return req, nil
}

// parseBody decodes raw according to the declared content type. Undecodable
// or unsupported bodies yield an empty map, never an error.
func parseBody(r *http.Request, raw []byte) map[string]any {
	body := map[string]any{}
	if len(raw) == 0 {
		return body
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		if err := json.Unmarshal(raw, &body); err != nil {
			return map[string]any{}
		}

	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return body
		}
		flattenValues(body, values)

	case mediaType == "multipart/form-data":
		clone := r.Clone(r.Context())
		clone.Body = io.NopCloser(bytes.NewReader(raw))
		if err := clone.ParseMultipartForm(maxMultipartMemory); err != nil {
			return body
		}
		if clone.MultipartForm != nil {
			flattenValues(body, clone.MultipartForm.Value)
			_ = clone.MultipartForm.RemoveAll()
		}
	}

	return body
}

func flattenValues(dst map[string]any, values map[string][]string) {
	for key, vals := range values {
		switch len(vals) {
		case 0:
		case 1:
			dst[key] = vals[0]
		default:
			list := make([]any, len(vals))
			for i, v := range vals {
				list[i] = v
			}
			dst[key] = list
		}
	}
}

// Context returns the context of the underlying call.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func (r *Request) Method() string { return r.method }

// Path is the normalized request path without the query string.
func (r *Request) Path() string { return r.path }

func (r *Request) RawURI() string { return r.rawURI }

func (r *Request) ClientIP() string { return r.clientIP }

// PeerAddr is the transport-level remote address, port included.
func (r *Request) PeerAddr() string { return r.peerAddr }

func (r *Request) UserAgent() string { return r.userAgent }

// ContentLength is the declared length, or the buffered length for chunked
// bodies.
func (r *Request) ContentLength() int64 { return r.contentLength }

// TLS reports whether the call arrived over a TLS connection.
func (r *Request) TLS() bool { return r.tls }

// Header returns the value of a header; name is case-insensitive.
func (r *Request) Header(name string) string {
	return r.headers[strings.ToLower(name)]
}

// Headers returns a copy of all headers keyed by lower-cased name.
func (r *Request) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// Query returns the first value of a query parameter.
func (r *Request) Query(name string) string {
	return r.query.Get(name)
}

// QueryValues returns a copy of the parsed query string.
func (r *Request) QueryValues() url.Values {
	out := make(url.Values, len(r.query))
	for k, v := range r.query {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Body returns a copy of the top level of the decoded body.
func (r *Request) Body() map[string]any {
	out := make(map[string]any, len(r.body))
	for k, v := range r.body {
		out[k] = v
	}
	return out
}

// RawBody returns a copy of the buffered body bytes.
func (r *Request) RawBody() []byte {
	return append([]byte(nil), r.rawBody...)
}

// NormalizePath guarantees a leading slash and strips trailing slashes. The
// root path stays "/".
func NormalizePath(path string) string {
	path = strings.TrimRight(path, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// NewRequest builds a bare Request for method and path with no headers or
// body. It is used for internal dispatch and tests.
func NewRequest(method, path string) *Request {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: path}
	}
	return &Request{
		ctx:     context.Background(),
		method:  strings.ToUpper(method),
		path:    NormalizePath(u.Path),
		rawURI:  path,
		query:   u.Query(),
		headers: map[string]string{},
		body:    map[string]any{},
	}
}
