package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tailorflow/tailorflow/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *Tokens
	logger *slog.Logger
}

// NewService constructs a new Service. tokens may be nil when only cookie
// sessions are used.
func NewService(repo Repository, tokens *Tokens, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// ErrTokensDisabled is returned by Login when no token secret is configured.
var ErrTokensDisabled = errors.New("auth: bearer tokens are not configured")

// LoginResult is returned by the token login.
type LoginResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      *shared.Principal `json:"user"`
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.logger.Error("lookup user", slog.Any("error", err))
		}
		return User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if s.tokens == nil {
		return LoginResult{}, ErrTokensDisabled
	}
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("token issued", slog.String("user_id", user.ID))
	return LoginResult{Token: token, ExpiresAt: expires, User: user.Principal()}, nil
}

// Logout revokes a bearer token. Invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if s.tokens == nil {
		return nil
	}
	claims, err := s.tokens.Parse(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}
	return s.tokens.Revoke(ctx, claims)
}

// Resolve loads the principal for an authenticated user id. Unknown or
// deactivated users resolve to nil without error.
func (s *Service) Resolve(ctx context.Context, userID string) (*shared.Principal, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return user.Principal(), nil
}

// HashPassword hashes a password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
