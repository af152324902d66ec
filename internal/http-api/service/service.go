// Package service is the application layer behind the HTTP handlers. Every
// operation takes the resolved models.Actor of the caller; authorisation
// failures use the lifecycle error taxonomy.
package service

import (
	"context"
	"time"

	"bookshare/internal/models"
	"bookshare/internal/session"
)

// AuthService is implemented by *session.Service.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, time.Time, *models.User, error)
	CompleteProfile(ctx context.Context, uid string, in session.ProfileInput) (*models.Profile, error)
	Authenticate(ctx context.Context, token string) (session.Session, error)
}

var _ AuthService = (*session.Service)(nil)
