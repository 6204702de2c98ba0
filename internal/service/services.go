package service

import (
	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/deppfellow/portfolio-backend/internal/repository"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/pkg/errors"
)

type Services struct {
	Auth    *AuthService
	Contact *ContactService
	Email   *email.Client
}

// NewServices builds the services and hands the e-mail client to the job
// worker so queued notifications use the same provider.
func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	mailer, err := email.NewClient(s.Config.Email, s.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create email client")
	}

	if s.Job != nil {
		s.Job.InitHandlers(mailer)
	}

	return &Services{
		Auth:    NewAuthService(s),
		Contact: NewContactService(s, repos.Contact, mailer),
		Email:   mailer,
	}, nil
}
