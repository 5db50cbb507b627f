// Package service provides the business logic for accounts, vault
// items, categories and activity logs, delegating persistence to
// repository interfaces.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keywarden/keywarden/internal/models"
	"github.com/keywarden/keywarden/internal/server/crypto"
	"github.com/keywarden/keywarden/internal/server/token"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// UserRepository defines the persistence operations required by the
// authentication service.
type UserRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user models.User, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, string, error)
}

// AuthService implements registration and login. The account password
// doubles as the master password client-side, but the server only ever
// stores its Argon2id hash.
type AuthService struct {
	repo      UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthService constructs an AuthService.
func NewAuthService(repo UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register creates an account and returns a bearer token for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return "", models.User{}, ErrInvalidEmail
	}
	if len(password) < 8 {
		return "", models.User{}, ErrWeakPassword
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return "", models.User{}, err
	}
	if exists {
		return "", models.User{}, ErrEmailTaken
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return "", models.User{}, err
	}

	user := models.User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateUser(ctx, user, hash); err != nil {
		return "", models.User{}, err
	}

	tok, err := token.Issue(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", models.User{}, err
	}
	return tok, user, nil
}

// Login verifies credentials and returns a bearer token. Wrong email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, hash, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}

	ok, err := crypto.VerifyPassword(password, hash)
	if err != nil || !ok {
		return "", models.User{}, ErrInvalidCredentials
	}

	tok, err := token.Issue(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", models.User{}, err
	}
	return tok, user, nil
}
