package app

import (
	"github.com/deppfellow/portfolio-backend/internal/handler"
	"github.com/deppfellow/portfolio-backend/internal/router"
)

// Routes registers the application routes served by h.
func Routes(h *handler.Handlers) RegisterFunc {
	return func(r *router.Router, registry *router.Registry) error {
		if err := registry.Register(handler.ContactControllerName, h.Contact); err != nil {
			return err
		}
		contact := func(action string) router.ActionRef {
			return router.Action(handler.ContactControllerName, action)
		}

		r.Get("/", router.HandlerFunc(h.System.Index))
		r.Get("/health", router.HandlerFunc(h.Health.CheckHealth))

		r.Group("/api/contact", func(g *router.Group) {
			g.Post("/", contact("create"))
			g.Get("/messages", contact("list"))
			g.Get("/stats", contact("stats"))
			g.Get("/messages/{id}", contact("get"))
			g.Delete("/messages/{id}", contact("delete"))
			g.Get("/test", contact("test"))

			g.Options("/", contact("options"))
			g.Options("/messages", contact("options"))
			g.Options("/stats", contact("options"))
			g.Options("/test", contact("options"))
		})

		h.System.Describe(r)
		return r.Err()
	}
}
