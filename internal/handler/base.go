package handler

import (
	"net/http"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/logger"
	"github.com/deppfellow/portfolio-backend/internal/router"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/deppfellow/portfolio-backend/internal/validation"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler holds the shared dependencies of the concrete handlers.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc is a typed endpoint: it receives the bound and validated
// payload and returns the response body.
type HandlerFunc[Req validation.Validatable, Res any] func(req *envelope.Request, payload Req) (Res, error)

// Handle adapts a typed endpoint to a route handler. newPayload returns a
// fresh payload per request. The result is sent with status unless the
// endpoint returns an *envelope.Response of its own.
//
//	r.Post("/api/contact", Handle(h, c.create, http.StatusCreated, newCreateContactRequest))
func Handle[Req validation.Validatable, Res any](
	h Handler,
	handler HandlerFunc[Req, Res],
	status int,
	newPayload func() Req,
) router.HandlerFunc {
	return func(req *envelope.Request, params ...string) (any, error) {
		return handleRequest(h, req, params, newPayload(), handler, status)
	}
}

func handleRequest[Req validation.Validatable, Res any](
	h Handler,
	req *envelope.Request,
	params []string,
	payload Req,
	handler HandlerFunc[Req, Res],
	status int,
) (any, error) {
	start := time.Now()

	txn := newrelic.FromContext(req.Context())
	if txn != nil {
		txn.AddAttribute("handler.path", req.Path())
	}

	log := logger.FromContext(req.Context(), h.server.Logger).With().
		Str("operation", "handler").
		Str("method", req.Method()).
		Str("path", req.Path()).
		Logger()

	log.Debug().Msg("handling request")

	validationStart := time.Now()
	if err := validation.BindAndValidate(req, params, payload); err != nil {
		validationDuration := time.Since(validationStart)

		log.Warn().
			Err(err).
			Dur("validation_duration", validationDuration).
			Msg("request validation failed")

		if txn != nil {
			txn.AddAttribute("validation.status", "failed")
			txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
		}
		return nil, err
	}
	validationDuration := time.Since(validationStart)

	if txn != nil {
		txn.AddAttribute("validation.status", "success")
		txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
	}

	handlerStart := time.Now()
	result, err := handler(req, payload)
	handlerDuration := time.Since(handlerStart)

	if err != nil {
		log.Error().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Dur("total_duration", time.Since(start)).
			Msg("handler execution failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		}
		return nil, err
	}

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", time.Since(start).Milliseconds())
	}

	log.Info().
		Dur("handler_duration", handlerDuration).
		Dur("validation_duration", validationDuration).
		Dur("total_duration", time.Since(start)).
		Msg("request completed successfully")

	if resp, ok := any(result).(*envelope.Response); ok && resp != nil {
		return resp, nil
	}
	if status == 0 {
		status = http.StatusOK
	}
	return envelope.NewResponse(status, result), nil
}

// NoPayload is the payload of endpoints that read nothing from the request.
type NoPayload struct{}

func (*NoPayload) Validate() error { return nil }

func newNoPayload() *NoPayload { return &NoPayload{} }
