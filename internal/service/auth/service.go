package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/Dip11/medic-media-coding-test-backend/internal/domain"
	"github.com/Dip11/medic-media-coding-test-backend/internal/repository"
	"github.com/Dip11/medic-media-coding-test-backend/pkg/config"
	"github.com/Dip11/medic-media-coding-test-backend/pkg/crypto"
	jwtpkg "github.com/Dip11/medic-media-coding-test-backend/pkg/jwt"
)

// ErrInvalidCredentials is the single login failure for both an unknown email
// and a wrong password, so responses do not reveal which emails are registered.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Input validation failures surfaced to the HTTP layer as bad requests.
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
)

// Service handles registration, login, and bearer-token authorization.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// RegisterInput holds registration attributes.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult couples the authenticated profile with its bearer token.
type LoginResult struct {
	domain.PublicUser
	AuthToken string `json:"authToken"`
}

// Register hashes the password and persists a new user. A taken email fails
// with repository.ErrDuplicateEmail and leaves the existing account untouched.
func (s Service) Register(ctx context.Context, input RegisterInput) (domain.PublicUser, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return domain.PublicUser{}, ErrEmailRequired
	}
	if input.Password == "" {
		return domain.PublicUser{}, ErrPasswordRequired
	}
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return domain.PublicUser{}, err
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.PublicUser{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user.Public(), nil
}

// Login verifies credentials, records the login time best-effort, and issues a
// bearer token carrying the user's id and email.
func (s Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// Not part of the login transaction; a failure here must not block the session.
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	token, err := jwtpkg.GenerateToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return &LoginResult{PublicUser: user.Public(), AuthToken: token}, nil
}

// Authorize validates a bearer token and resolves it to a live user. The
// token's signature and expiry must check out and the user must still exist.
func (s Service) Authorize(ctx context.Context, token string) (domain.PublicUser, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return domain.PublicUser{}, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return domain.PublicUser{}, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}
