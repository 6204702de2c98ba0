package handler

import (
	"net/http"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/router"
	"github.com/deppfellow/portfolio-backend/internal/server"
)

const serviceName = "Portfolio Backend API"

// SystemHandler serves the service descriptor at the root path.
type SystemHandler struct {
	Handler
	router *router.Router
}

func NewSystemHandler(s *server.Server) *SystemHandler {
	return &SystemHandler{Handler: NewHandler(s)}
}

// Describe lists the routes of r in the descriptor.
func (h *SystemHandler) Describe(r *router.Router) {
	h.router = r
}

func (h *SystemHandler) Index(*envelope.Request, ...string) (any, error) {
	endpoints := []string{}
	if h.router != nil {
		for _, rt := range h.router.Routes() {
			if rt.Method == http.MethodOptions {
				continue
			}
			endpoints = append(endpoints, rt.Method+" "+rt.Pattern)
		}
	}

	return map[string]any{
		"name":        serviceName,
		"version":     h.server.Config.Primary.Version,
		"environment": h.server.Config.Primary.Env,
		"endpoints":   endpoints,
	}, nil
}
