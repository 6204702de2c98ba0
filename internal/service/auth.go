package service

import (
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/portfolio-backend/internal/server"
)

// AuthService configures Clerk for the admin guard. Without a secret key
// the admin endpoints stay public.
type AuthService struct {
	server  *server.Server
	enabled bool
}

func NewAuthService(s *server.Server) *AuthService {
	key := s.Config.Auth.SecretKey
	if key != "" {
		clerk.SetKey(key)
	}
	return &AuthService{
		server:  s,
		enabled: key != "",
	}
}

// Enabled reports whether admin requests must carry a Clerk session.
func (a *AuthService) Enabled() bool {
	return a.enabled
}
