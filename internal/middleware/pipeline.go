package middleware

import (
	"net/http"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/pkg/errors"
)

// HeaderWriter lets a middleware change response headers before any body is
// written. Both methods report false once output has started.
type HeaderWriter interface {
	SetHeader(key, value string) bool
	DelHeader(key string) bool
}

// Middleware intercepts a request before routing. Returning a non-nil
// response or a non-nil error stops the chain; returning (nil, nil) passes
// the request on.
type Middleware interface {
	Handle(w HeaderWriter, req *envelope.Request) (*envelope.Response, error)
}

// Func adapts a plain function to Middleware.
type Func func(w HeaderWriter, req *envelope.Request) (*envelope.Response, error)

func (f Func) Handle(w HeaderWriter, req *envelope.Request) (*envelope.Response, error) {
	return f(w, req)
}

// FaultTranslator turns a fault raised anywhere in the request lifecycle
// into the response sent to the client.
type FaultTranslator interface {
	Translate(req *envelope.Request, err error) *envelope.Response
}

// Chain runs its middleware in registration order.
type Chain struct {
	middlewares []Middleware
	translator  FaultTranslator
}

// NewChain builds a chain from ms, in order.
func NewChain(ms ...Middleware) *Chain {
	c := &Chain{}
	for _, m := range ms {
		c.Use(m)
	}
	return c
}

// Use appends m. A middleware that also implements FaultTranslator becomes
// the translator of the chain; the last one registered wins.
func (c *Chain) Use(m Middleware) {
	if m == nil {
		return
	}
	c.middlewares = append(c.middlewares, m)
	if t, ok := m.(FaultTranslator); ok {
		c.translator = t
	}
}

// Len returns the number of registered middleware.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Run executes the chain. It returns the first non-nil response or error;
// (nil, nil) means every middleware passed and the request should be routed.
func (c *Chain) Run(w HeaderWriter, req *envelope.Request) (*envelope.Response, error) {
	for _, m := range c.middlewares {
		resp, err := m.Handle(w, req)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, nil
}

// Translate converts err with the registered translator, or with a bare
// status and message response when none is registered.
func (c *Chain) Translate(req *envelope.Request, err error) *envelope.Response {
	if c.translator != nil {
		return c.translator.Translate(req, err)
	}

	status := errs.StatusOf(err)
	message := http.StatusText(status)

	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		message = httpErr.Message
	}

	return envelope.NewResponse(status, map[string]any{
		"error":       true,
		"message":     message,
		"status_code": status,
	})
}
