// Package router holds the route table and the dispatcher.
//
// Routes are registered at startup against a method and a pattern made of
// literal segments and {name} placeholders. A placeholder matches exactly
// one path segment. Within a method, exact paths are looked up first, then
// patterns are tried in registration order and the first match wins.
//
// Registering the same method and normalized pattern twice replaces the
// earlier handler: the last registration wins and keeps the original
// position in the matching order.
package router

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/pkg/errors"
)

// HandlerFunc is a route handler. params are the placeholder values of the
// matched pattern in left-to-right order. Returning an *envelope.Response
// sets the status and headers; any other value is sent with 200.
type HandlerFunc func(req *envelope.Request, params ...string) (any, error)

// Methods lists the HTTP methods a route can be registered for, in the order
// they are reported by preflight responses.
var Methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodOptions,
}

var placeholder = regexp.MustCompile(`\{([^}/]+)\}`)

// Route is one registered binding.
type Route struct {
	Method  string
	Pattern string
	// Name is "controller.action" for symbolic bindings and empty otherwise.
	Name string

	handler HandlerFunc
	matcher *regexp.Regexp
	params  []string
}

// Params lists the placeholder names of the pattern.
func (rt *Route) Params() []string {
	return append([]string(nil), rt.params...)
}

func (rt *Route) match(path string) ([]string, bool) {
	if rt.matcher == nil {
		return nil, rt.Pattern == path
	}
	m := rt.matcher.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// PreflightConfig shapes the response synthesized for OPTIONS requests that
// have no explicit OPTIONS route.
type PreflightConfig struct {
	AllowHeaders string
	MaxAge       int
}

// DefaultPreflightConfig returns the headers used when none are configured.
func DefaultPreflightConfig() PreflightConfig {
	return PreflightConfig{
		AllowHeaders: "Content-Type, Authorization",
		MaxAge:       86400,
	}
}

// Router is the route table plus the dispatcher.
type Router struct {
	registry  *Registry
	preflight PreflightConfig

	exact    map[string]map[string]*Route
	patterns map[string][]*Route
	ordered  []*Route

	errs []error
}

// New creates an empty Router. registry resolves symbolic bindings and may
// be nil when only direct handlers are used.
func New(registry *Registry, preflight PreflightConfig) *Router {
	if registry == nil {
		registry = NewRegistry()
	}
	if preflight.AllowHeaders == "" {
		preflight.AllowHeaders = DefaultPreflightConfig().AllowHeaders
	}
	if preflight.MaxAge <= 0 {
		preflight.MaxAge = DefaultPreflightConfig().MaxAge
	}

	return &Router{
		registry:  registry,
		preflight: preflight,
		exact:     make(map[string]map[string]*Route),
		patterns:  make(map[string][]*Route),
	}
}

// AddRoute registers target for method and pattern. Symbolic targets are
// resolved here so a bad binding fails at startup.
func (r *Router) AddRoute(method, pattern string, target Target) error {
	method = strings.ToUpper(method)
	if !knownMethod(method) {
		return errors.Errorf("unsupported method %q for route %s", method, pattern)
	}
	if target == nil {
		return errs.NewInvalidHandlerError(fmt.Sprintf("no handler for route %s %s", method, pattern))
	}

	handler, name, err := target.resolve(r.registry)
	if err != nil {
		return err
	}

	pattern = envelope.NormalizePath(pattern)
	route := &Route{
		Method:  method,
		Pattern: pattern,
		Name:    name,
		handler: handler,
	}

	if names := placeholder.FindAllStringSubmatch(pattern, -1); len(names) > 0 {
		for _, n := range names {
			route.params = append(route.params, n[1])
		}
		matcher, err := compilePattern(pattern)
		if err != nil {
			return errors.Wrapf(err, "invalid route pattern %s", pattern)
		}
		route.matcher = matcher
	}

	r.store(route)
	return nil
}

func (r *Router) store(route *Route) {
	if r.exact[route.Method] == nil {
		r.exact[route.Method] = make(map[string]*Route)
	}

	if existing, ok := r.exact[route.Method][route.Pattern]; ok {
		*existing = *route
		return
	}

	r.exact[route.Method][route.Pattern] = route
	if route.matcher != nil {
		r.patterns[route.Method] = append(r.patterns[route.Method], route)
	}
	r.ordered = append(r.ordered, route)
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	last := 0
	for _, loc := range placeholder.FindAllStringIndex(pattern, -1) {
		b.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		b.WriteString("([^/]+)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(pattern[last:]))
	b.WriteString("$")

	return regexp.Compile(b.String())
}

func knownMethod(method string) bool {
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Get registers a GET route. Registration errors are collected and reported
// by Err.
func (r *Router) Get(pattern string, target Target) { r.collect(http.MethodGet, pattern, target) }

func (r *Router) Post(pattern string, target Target) { r.collect(http.MethodPost, pattern, target) }

func (r *Router) Put(pattern string, target Target) { r.collect(http.MethodPut, pattern, target) }

func (r *Router) Delete(pattern string, target Target) { r.collect(http.MethodDelete, pattern, target) }

func (r *Router) Options(pattern string, target Target) {
	r.collect(http.MethodOptions, pattern, target)
}

func (r *Router) collect(method, pattern string, target Target) {
	if err := r.AddRoute(method, pattern, target); err != nil {
		r.errs = append(r.errs, err)
	}
}

// Err returns the registration errors collected by the shorthand methods.
func (r *Router) Err() error {
	if len(r.errs) == 0 {
		return nil
	}

	msgs := make([]string, len(r.errs))
	for i, err := range r.errs {
		msgs[i] = err.Error()
	}
	return errors.Errorf("route registration failed: %s", strings.Join(msgs, "; "))
}

// Group registers the routes added inside fn under prefix.
func (r *Router) Group(prefix string, fn func(g *Group)) {
	fn(&Group{router: r, prefix: prefix})
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.ordered))
	for i, rt := range r.ordered {
		out[i] = *rt
	}
	return out
}

// Lookup finds the route serving method and path and the extracted
// parameters.
func (r *Router) Lookup(method, path string) (*Route, []string, bool) {
	method = strings.ToUpper(method)
	path = envelope.NormalizePath(path)

	if route, ok := r.exact[method][path]; ok && route.matcher == nil {
		return route, nil, true
	}

	for _, route := range r.patterns[method] {
		if params, ok := route.match(path); ok {
			return route, params, true
		}
	}

	return nil, nil, false
}

// Dispatch resolves method and path and invokes the handler. req carries the
// request the handler sees; a bare request is built when it is nil.
//
// An OPTIONS request without an explicit OPTIONS route always gets a
// synthesized preflight response, listing only OPTIONS when no route matches
// path. Any other unmatched request is a NotFound error.
func (r *Router) Dispatch(method, path string, req *envelope.Request) (*envelope.Response, error) {
	method = strings.ToUpper(method)
	path = envelope.NormalizePath(path)
	if req == nil {
		req = envelope.NewRequest(method, path)
	}

	if route, params, ok := r.Lookup(method, path); ok {
		if route.handler == nil {
			return nil, errs.NewInvalidHandlerError(fmt.Sprintf("route %s %s has no resolvable handler", route.Method, route.Pattern))
		}

		result, err := route.handler(req, params...)
		if err != nil {
			return nil, err
		}
		return toResponse(result), nil
	}

	if method == http.MethodOptions {
		return r.preflightResponse(r.AllowedMethods(path)), nil
	}

	return nil, errs.NewRouteNotFoundError(method, path)
}

// AllowedMethods returns OPTIONS followed by every method that has a route
// matching path.
func (r *Router) AllowedMethods(path string) []string {
	path = envelope.NormalizePath(path)
	allowed := []string{http.MethodOptions}

	for _, method := range Methods {
		if method == http.MethodOptions {
			continue
		}
		if _, _, ok := r.Lookup(method, path); ok {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

func (r *Router) preflightResponse(allowed []string) *envelope.Response {
	return envelope.NewResponse(http.StatusOK, map[string]any{
		"message":         "CORS preflight",
		"allowed_methods": allowed,
	}).
		WithHeader("Access-Control-Allow-Methods", strings.Join(allowed, ", ")).
		WithHeader("Access-Control-Allow-Headers", r.preflight.AllowHeaders).
		WithHeader("Access-Control-Max-Age", strconv.Itoa(r.preflight.MaxAge))
}

func toResponse(result any) *envelope.Response {
	if resp, ok := result.(*envelope.Response); ok && resp != nil {
		return resp
	}
	return envelope.NewResponse(http.StatusOK, result)
}
