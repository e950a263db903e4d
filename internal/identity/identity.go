// Package identity signs users in and out, registers accounts and resolves
// access tokens back to users.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/xelth-com/geoattend/internal/models"
	"github.com/xelth-com/geoattend/internal/store"
	"github.com/xelth-com/geoattend/internal/utils"
)

// MinPasswordLength is the shortest password Register accepts
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailInUse         = errors.New("email already in use")
	ErrWeakPassword       = errors.New("weak password")
	ErrUnauthenticated    = errors.New("not signed in")
)

// Message is the text shown to the user for an identity error
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email address."
	case errors.Is(err, ErrEmailInUse):
		return "Email address already in use."
	case errors.Is(err, ErrWeakPassword):
		return fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength)
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in."
	}
	return "Something went wrong. Please try again."
}

// Session is returned by a successful sign-in or registration
type Session struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

// Service implements sign-in, registration and token resolution
type Service struct {
	users  store.UserStore
	secret string
	now    func() time.Time
}

// NewService creates a service signing tokens with secret
func NewService(users store.UserStore, secret string) *Service {
	return &Service{users: users, secret: secret, now: time.Now}
}

// SignIn checks the credentials and appends a log-in entry
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		log.Printf("⚠️ Identity: failed sign-in for %s", email)
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.RecordLogIn(ctx, user.ID, now); err != nil {
		log.Printf("⚠️ Identity: could not record log-in for %s: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}

	log.Printf("🔑 Identity: %s signed in as %s", email, user.Role)
	return s.session(user, now)
}

// Register creates a worker account and signs it in
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:    email,
		Password: hash,
		Name:     strings.TrimSpace(name),
		Role:     models.RoleWorker,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	log.Printf("👤 Identity: registered %s", email)
	return s.session(user, s.now())
}

// Authenticate resolves an access token to the current user. The user is
// reloaded so role changes apply without signing in again.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := utils.ValidateToken(token, s.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	return user, err
}

func (s *Service) session(user *models.User, now time.Time) (*Session, error) {
	token, err := utils.GenerateAccessToken(user, s.secret, now)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{User: user, AccessToken: token, ExpiresAt: now.Add(utils.AccessTokenTTL)}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
