package middleware

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/logger"
	"github.com/rs/zerolog"
)

// MaxContentLength is the largest request body accepted.
const MaxContentLength int64 = 10 << 20

const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self'"

// suspiciousPatterns are injection signatures. They are matched line by
// line: "." does not cross newlines.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<iframe[^>]*>.*?</iframe>`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)<object[^>]*>.*?</object>`),
	regexp.MustCompile(`(?i)<embed[^>]*>`),
}

// Security sets hardening headers, caps the payload size and rejects
// requests carrying injection signatures.
type Security struct {
	maxContentLength int64
	serverName       string
	logger           *zerolog.Logger
}

// NewSecurity builds the security middleware. A non-positive
// maxContentLength uses MaxContentLength.
func NewSecurity(maxContentLength int64, log *zerolog.Logger) *Security {
	if maxContentLength <= 0 {
		maxContentLength = MaxContentLength
	}
	return &Security{
		maxContentLength: maxContentLength,
		serverName:       "Portfolio-API",
		logger:           log,
	}
}

func (s *Security) Handle(w HeaderWriter, req *envelope.Request) (*envelope.Response, error) {
	w.SetHeader("X-Frame-Options", "DENY")
	w.SetHeader("X-Content-Type-Options", "nosniff")
	w.SetHeader("X-XSS-Protection", "1; mode=block")
	w.SetHeader("Referrer-Policy", "strict-origin-when-cross-origin")
	w.SetHeader("Content-Security-Policy", contentSecurityPolicy)
	if IsHTTPS(req) {
		w.SetHeader("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
	w.DelHeader("X-Powered-By")
	w.SetHeader("Server", s.serverName)

	if req.ContentLength() > s.maxContentLength {
		return nil, errs.NewPayloadTooLargeError()
	}

	if pattern := Suspicious(req); pattern != "" {
		logger.FromContext(req.Context(), s.logger).Warn().
			Str("ip", req.ClientIP()).
			Str("path", req.Path()).
			Str("pattern", pattern).
			Msg("Suspicious input detected")

		return nil, errs.NewSuspiciousInputError()
	}

	return nil, nil
}

// IsHTTPS reports whether the request reached us, or the proxy in front of
// us, over TLS.
func IsHTTPS(req *envelope.Request) bool {
	if req.TLS() {
		return true
	}
	if strings.EqualFold(req.Header("X-Forwarded-Proto"), "https") {
		return true
	}
	if strings.EqualFold(req.Header("X-Forwarded-Ssl"), "on") {
		return true
	}
	if req.Header("X-Forwarded-Port") == "443" {
		return true
	}
	return strings.HasSuffix(req.Header("Host"), ":443")
}

// Suspicious scans the decoded body values and the query values. The raw
// body is scanned only when it could not be decoded. It returns the first
// matching pattern, or "" when the request is clean.
func Suspicious(req *envelope.Request) string {
	var sb strings.Builder

	if body := req.Body(); len(body) > 0 {
		writeValue(&sb, body)
	} else {
		sb.Write(req.RawBody())
	}
	sb.WriteByte('\n')

	query := req.QueryValues()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('\n')
		for _, v := range query[k] {
			sb.WriteString(v)
			sb.WriteByte('\n')
		}
	}

	input := sb.String()
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(input) {
			return pattern.String()
		}
	}
	return ""
}

// writeValue flattens a decoded body into sb, one scalar per line.
func writeValue(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
	case string:
		sb.WriteString(val)
		sb.WriteByte('\n')
	case map[string]any:
		for k, item := range val {
			sb.WriteString(k)
			sb.WriteByte('\n')
			writeValue(sb, item)
		}
	case []any:
		for _, item := range val {
			writeValue(sb, item)
		}
	case []string:
		for _, item := range val {
			writeValue(sb, item)
		}
	default:
		fmt.Fprintf(sb, "%v\n", val)
	}
}
