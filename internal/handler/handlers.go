package handler

import (
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/deppfellow/portfolio-backend/internal/service"
)

// Handlers groups every route handler.
type Handlers struct {
	Health  *HealthHandler
	System  *SystemHandler
	Contact *ContactController
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		System:  NewSystemHandler(s),
		Contact: NewContactController(s, services.Contact),
	}
}
