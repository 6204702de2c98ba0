package repository

import (
	"github.com/deppfellow/portfolio-backend/internal/server"
)

type Repositories struct {
	Contact *ContactRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Contact: NewContactRepository(s.DB.Pool),
	}
}
