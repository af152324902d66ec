// Package session is the identity provider: email/password accounts,
// signed access tokens, and the profile that turns a token into an Actor.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"bookshare/internal/models"
	"bookshare/internal/store"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidAccount     = errors.New("invalid account details")
	ErrInvalidProfile     = errors.New("invalid profile")
)

// Phase is how far identity resolution has got. The zero value is Loading.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseAnonymous
	PhaseProfilePending
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseAnonymous:
		return "anonymous"
	case PhaseProfilePending:
		return "profile_pending"
	case PhaseReady:
		return "ready"
	}
	return "loading"
}

// Session is a snapshot of who is calling.
type Session struct {
	Phase   Phase
	UID     string
	Email   string
	Profile *models.Profile
}

// Actor returns the identity used by the lifecycle engine. It is the zero
// Actor unless the session is ready.
func (s Session) Actor() models.Actor {
	if s.Phase != PhaseReady || s.Profile == nil {
		return models.Actor{}
	}
	return models.Actor{
		UID:             s.UID,
		Email:           s.Email,
		Role:            s.Profile.Role,
		ChapterLocation: s.Profile.ChapterLocation,
		FullName:        s.Profile.FullName,
		Phone:           s.Profile.Phone,
	}
}

// ProfileInput is the second sign-up step.
type ProfileInput struct {
	FullName        string
	Phone           string
	ChapterLocation string
	Role            models.Role
}

type Service struct {
	store    *store.Store
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(st *store.Store, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:    st,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "session"),
		now:      time.Now,
	}
}

// Register creates an account. The profile is completed separately.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidAccount, email)
	}
	if err := checkPasswordPolicy(password); err != nil {
		return nil, err
	}

	n, err := s.store.Users().Count(ctx, store.Filter{"email": email})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if n > 0 {
		return nil, ErrEmailInUse
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user := &models.User{Email: email, Password: hashed}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.Info("account registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *models.User, error) {
	users, err := s.store.Users().Query(ctx, store.Filter{"email": normalizeEmail(email)})
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("login: %w", err)
	}
	if len(users) == 0 {
		return "", time.Time{}, nil, matchPassword(nil, password)
	}
	user := users[0]
	if err := matchPassword(&user, password); err != nil {
		if err != ErrInvalidCredentials {
			s.logger.Warn("stored password hash unreadable", "user_id", user.ID, "error", err)
		}
		return "", time.Time{}, nil, ErrInvalidCredentials
	}

	token, exp, err := s.issueToken(user.ID, user.Email)
	if err != nil {
		return "", time.Time{}, nil, err
	}

	now := s.store.Now()
	if err := s.store.Users().Update(ctx, user.ID, store.Fields{"last_login": now}); err != nil {
		s.logger.Warn("recording last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}
	return token, exp, &user, nil
}

// CompleteProfile creates or replaces the profile of uid.
func (s *Service) CompleteProfile(ctx context.Context, uid string, in ProfileInput) (*models.Profile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.Users().Get(ctx, uid); err != nil {
		return nil, fmt.Errorf("complete profile: %w", err)
	}

	profile := &models.Profile{
		ID:              uid,
		FullName:        strings.TrimSpace(in.FullName),
		Phone:           digits(in.Phone),
		ChapterLocation: strings.TrimSpace(in.ChapterLocation),
		Role:            in.Role,
	}

	_, err := s.store.Profiles().Get(ctx, uid)
	switch {
	case err == nil:
		err = s.store.Profiles().Update(ctx, uid, store.Fields{
			"full_name":        profile.FullName,
			"phone":            profile.Phone,
			"chapter_location": profile.ChapterLocation,
			"role":             string(profile.Role),
		})
	case errors.Is(err, store.ErrNotFound):
		err = s.store.Profiles().Create(ctx, profile)
	}
	if err != nil {
		return nil, fmt.Errorf("complete profile: %w", err)
	}

	s.logger.Info("profile completed", "user_id", uid, "role", profile.Role, "chapter", profile.ChapterLocation)
	return s.store.Profiles().Get(ctx, uid)
}

// Authenticate resolves a bearer token into a session. A missing or bad
// token is Anonymous. An error is returned only when the phase is Loading,
// i.e. the profile could not be read.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{Phase: PhaseAnonymous}, nil
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		s.logger.Debug("rejected token", "error", err)
		return Session{Phase: PhaseAnonymous}, nil
	}

	sess := Session{UID: claims.UserID, Email: claims.Email}
	profile, err := s.store.Profiles().Get(ctx, claims.UserID)
	switch {
	case err == nil:
		sess.Phase = PhaseReady
		sess.Profile = profile
	case errors.Is(err, store.ErrNotFound):
		sess.Phase = PhaseProfilePending
	default:
		return sess, fmt.Errorf("authenticate: %w", err)
	}
	return sess, nil
}

func (in ProfileInput) validate() error {
	if strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidProfile)
	}
	if len(digits(in.Phone)) != 10 {
		return fmt.Errorf("%w: phone must have 10 digits", ErrInvalidProfile)
	}
	if strings.TrimSpace(in.ChapterLocation) == "" {
		return fmt.Errorf("%w: chapter location is required", ErrInvalidProfile)
	}
	if !in.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, in.Role)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
