package router

import (
	"fmt"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/pkg/errors"
)

// Controller exposes named actions that routes can bind to by name.
type Controller interface {
	Actions() map[string]HandlerFunc
}

// Registry maps controller names to controllers.
type Registry struct {
	controllers map[string]Controller
}

func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]Controller)}
}

// Register adds c under name. Names must be unique.
func (reg *Registry) Register(name string, c Controller) error {
	if name == "" || c == nil {
		return errors.New("controller name and implementation are required")
	}
	if _, exists := reg.controllers[name]; exists {
		return errors.Errorf("controller %q already registered", name)
	}
	reg.controllers[name] = c
	return nil
}

// Resolve returns the handler for controller.action or an InvalidHandler
// error when either name is unknown.
func (reg *Registry) Resolve(controller, action string) (HandlerFunc, error) {
	c, ok := reg.controllers[controller]
	if !ok {
		return nil, errs.NewInvalidHandlerError(fmt.Sprintf("Controller not found: %s", controller))
	}

	handler, ok := c.Actions()[action]
	if !ok || handler == nil {
		return nil, errs.NewInvalidHandlerError(fmt.Sprintf("Method not found: %s.%s", controller, action))
	}
	return handler, nil
}

// Target is something a route can be bound to: a HandlerFunc or a symbolic
// Action reference.
type Target interface {
	resolve(reg *Registry) (HandlerFunc, string, error)
}

func (f HandlerFunc) resolve(*Registry) (HandlerFunc, string, error) {
	return f, "", nil
}

// ActionRef names a controller action in the registry.
type ActionRef struct {
	Controller string
	Action     string
}

// Action builds a symbolic binding to controller.action.
func Action(controller, action string) ActionRef {
	return ActionRef{Controller: controller, Action: action}
}

func (a ActionRef) String() string {
	return a.Controller + "." + a.Action
}

func (a ActionRef) resolve(reg *Registry) (HandlerFunc, string, error) {
	h, err := reg.Resolve(a.Controller, a.Action)
	if err != nil {
		return nil, "", err
	}
	return h, a.String(), nil
}

// Static returns a handler that always answers with body.
func Static(status int, body any) HandlerFunc {
	return func(*envelope.Request, ...string) (any, error) {
		return envelope.NewResponse(status, body), nil
	}
}
