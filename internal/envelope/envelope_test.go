package envelope

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":              "/",
		"/":             "/",
		"//":            "/",
		"/api/contact":  "/api/contact",
		"/api/contact/": "/api/contact",
		"api/contact":   "/api/contact",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), "input %q", in)
	}
}

func TestFromHTTPParsesJSONBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/contact/?source=site", strings.NewReader(`{"name":"Ada"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Custom-Header", "yes")

	req, err := FromHTTP(r, Options{})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method())
	assert.Equal(t, "/api/contact", req.Path())
	assert.Equal(t, "site", req.Query("source"))
	assert.Equal(t, "yes", req.Header("x-custom-header"))
	assert.Equal(t, "yes", req.Headers()["x-custom-header"])
	assert.Equal(t, "Ada", req.Body()["name"])
	assert.Equal(t, "/api/contact/?source=site", req.RawURI())
}

func TestFromHTTPMalformedJSONIsEmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":`))
	r.Header.Set("Content-Type", "application/json")

	req, err := FromHTTP(r, Options{})
	require.NoError(t, err)

	assert.Empty(t, req.Body())
	assert.Equal(t, `{"name":`, string(req.RawBody()))
}

func TestFromHTTPFormBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("name=Ada&tag=a&tag=b"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := FromHTTP(r, Options{})
	require.NoError(t, err)

	body := req.Body()
	assert.Equal(t, "Ada", body["name"])
	assert.Equal(t, []any{"a", "b"}, body["tag"])
}

func TestFromHTTPOtherContentTypeIsEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("plain text"))
	r.Header.Set("Content-Type", "text/plain")

	req, err := FromHTTP(r, Options{})
	require.NoError(t, err)

	assert.Empty(t, req.Body())
}

func TestFromHTTPOversizedBodyIsNotBuffered(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", 64)))
	r.Header.Set("Content-Type", "application/json")
	r.ContentLength = -1

	req, err := FromHTTP(r, Options{MaxBodyBytes: 16})
	require.NoError(t, err)

	assert.Empty(t, req.RawBody())
	assert.Greater(t, req.ContentLength(), int64(16))
}

func TestBodyAccessorReturnsCopy(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":1}`))
	r.Header.Set("Content-Type", "application/json")

	req, err := FromHTTP(r, Options{})
	require.NoError(t, err)

	body := req.Body()
	body["a"] = "changed"

	assert.Equal(t, float64(1), req.Body()["a"])
}

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "first public forwarded entry",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 203.0.114.7, 8.8.8.8"},
			remote:  "192.168.1.10:5555",
			want:    "203.0.114.7",
		},
		{
			name:    "real ip when forwarded is private",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1", "X-Real-IP": "1.1.1.1"},
			remote:  "192.168.1.10:5555",
			want:    "1.1.1.1",
		},
		{
			name:    "client ip header",
			headers: map[string]string{"Client-IP": "9.9.9.9"},
			remote:  "127.0.0.1:80",
			want:    "9.9.9.9",
		},
		{
			name:   "public peer",
			remote: "8.8.4.4:1234",
			want:   "8.8.4.4",
		},
		{
			name:    "falls back to raw peer host",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			remote:  "127.0.0.1:9000",
			want:    "127.0.0.1",
		},
		{
			name:    "reserved documentation range rejected",
			headers: map[string]string{"X-Real-IP": "203.0.113.5"},
			remote:  "10.1.1.1:1",
			want:    "10.1.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, ResolveClientIP(h, tt.remote))
		})
	}
}

func TestEncode(t *testing.T) {
	out, err := Encode("already text")
	require.NoError(t, err)
	assert.Equal(t, "already text", string(out))

	out, err = Encode(42)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":42}`, string(out))

	out, err = Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":null}`, string(out))

	out, err = Encode(map[string]any{"url": "https://example.com/a<b>"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"https://example.com/a<b>"`)
	assert.Contains(t, string(out), "\n    ")

	out, err = Encode([]string{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(out))
}

func TestSendWritesHeadersBeforeBody(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	resp := NewResponse(http.StatusCreated, map[string]any{"ok": true}).WithHeader("X-Test", "1")
	require.NoError(t, Send(w, resp))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestWriterIgnoresLateHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	w.WriteHeader(http.StatusAccepted)
	applied := w.SetHeader("X-Late", "1")

	assert.False(t, applied)
	assert.True(t, w.Started())
	assert.Empty(t, rec.Header().Get("X-Late"))

	require.NoError(t, Send(w, NewResponse(http.StatusTeapot, "body")))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "body", rec.Body.String())
}
