package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/lib/metrics"
	"github.com/deppfellow/portfolio-backend/internal/logger"
	"github.com/deppfellow/portfolio-backend/internal/sqlerr"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorHandler turns every fault of the request lifecycle into a JSON
// error body. As a middleware it always passes; the chain picks it up as
// its FaultTranslator.
//
// Outside production the body carries a debug block with the fault
// location, stack and request line.
type ErrorHandler struct {
	production bool
	logger     *zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewErrorHandler(production bool, log *zerolog.Logger, m *metrics.Metrics) *ErrorHandler {
	return &ErrorHandler{
		production: production,
		logger:     log,
		metrics:    m,
		now:        time.Now,
	}
}

func (h *ErrorHandler) Handle(HeaderWriter, *envelope.Request) (*envelope.Response, error) {
	return nil, nil
}

// Translate logs err and builds its response. The declared status of an
// HTTP error is kept; anything else is run through sqlerr and defaults
// to 500.
func (h *ErrorHandler) Translate(req *envelope.Request, err error) *envelope.Response {
	var httpErr *errs.HTTPError
	declared := errors.As(err, &httpErr)
	if !declared {
		if !errors.As(sqlerr.HandleError(err), &httpErr) {
			httpErr = errs.NewInternalServerError()
		}
	}

	status := httpErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	code := httpErr.Code
	message := httpErr.Message
	if status >= http.StatusInternalServerError && !httpErr.Override {
		if h.production {
			message = http.StatusText(status)
		} else if !declared {
			message = err.Error()
		}
	}

	file, line, trace := stackOf(err)

	log := logger.FromContext(req.Context(), h.logger)
	var event *zerolog.Event
	if status >= http.StatusInternalServerError {
		event = log.Error().Stack()
	} else {
		event = log.Warn()
	}
	if file != "" {
		event = event.Str("location", fmt.Sprintf("%s:%d", file, line))
	}
	event.
		Err(err).
		Str("method", req.Method()).
		Str("path", req.Path()).
		Int("status", status).
		Str("error_code", code).
		Msg(message)

	h.metrics.Fault(code, status)
	if status >= http.StatusInternalServerError {
		if txn := newrelic.FromContext(req.Context()); txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
		}
	}

	body := map[string]any{
		"error":       true,
		"code":        code,
		"message":     message,
		"status_code": status,
		"timestamp":   h.now().UTC().Format(time.RFC3339),
	}
	if len(httpErr.Errors) > 0 {
		body["errors"] = httpErr.Errors
	}
	if httpErr.Action != nil {
		body["action"] = httpErr.Action
	}
	for k, v := range httpErr.Details {
		if _, reserved := body[k]; !reserved {
			body[k] = v
		}
	}

	if !h.production {
		body["debug"] = map[string]any{
			"file":  file,
			"line":  line,
			"trace": trace,
			"request_info": map[string]any{
				"method":  req.Method(),
				"path":    req.Path(),
				"raw_uri": req.RawURI(),
			},
		}
	}

	resp := envelope.NewResponse(status, body)
	if httpErr.RetryAfter > 0 {
		resp = resp.WithHeader("Retry-After", strconv.Itoa(httpErr.RetryAfter))
	}
	return resp
}

// stackOf returns the origin and frames of the innermost stack recorded in
// the chain of err.
func stackOf(err error) (file string, line int, trace []string) {
	var deepest errors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			deepest = st.StackTrace()
		}
	}

	trace = make([]string, 0, len(deepest))
	for i, frame := range deepest {
		pc := uintptr(frame) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		f, l := fn.FileLine(pc)
		if i == 0 {
			file, line = f, l
		}
		trace = append(trace, fmt.Sprintf("%s:%d %s", f, l, fn.Name()))
	}

	return file, line, trace
}
