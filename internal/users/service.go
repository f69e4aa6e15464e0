package users

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tailorflow/tailorflow/internal/auth"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
)

// ErrUnknownRole is returned for role names without a template.
var ErrUnknownRole = fmt.Errorf("%w: unknown role", httpx.ErrValidation)

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	registry *rbac.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, registry *rbac.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, registry: registry, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]auth.User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id string) (auth.User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser creates an active account seeded from a role template.
func (s *Service) CreateUser(ctx context.Context, req CreateRequest) (auth.User, error) {
	tpl, ok := s.registry.Role(req.Role)
	if !ok {
		return auth.User{}, fmt.Errorf("%w %q", ErrUnknownRole, req.Role)
	}
	perms := tpl.Permissions
	if req.Permissions != nil {
		perms = req.Permissions
	}
	perms, err := s.permissions(perms)
	if err != nil {
		return auth.User{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return auth.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := auth.User{
		ID:           uuid.NewString(),
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         tpl.Name,
		Permissions:  perms,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return auth.User{}, err
	}
	s.logger.Info("user created", slog.String("user_id", u.ID), slog.String("role", u.Role))
	return u, nil
}

// UpdateUser applies a partial update. Permission sets are validated against
// the registry.
func (s *Service) UpdateUser(ctx context.Context, id string, req UpdateRequest) (auth.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return auth.User{}, err
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
	}
	if req.Role != nil {
		tpl, ok := s.registry.Role(*req.Role)
		if !ok {
			return auth.User{}, fmt.Errorf("%w %q", ErrUnknownRole, *req.Role)
		}
		u.Role = tpl.Name
		if req.Permissions == nil {
			u.Permissions = tpl.Permissions
		}
	}
	if req.Permissions != nil {
		perms, err := s.permissions(*req.Permissions)
		if err != nil {
			return auth.User{}, err
		}
		u.Permissions = perms
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return auth.User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return auth.User{}, err
	}
	s.logger.Info("user updated", slog.String("user_id", u.ID), slog.Bool("active", u.IsActive))
	return u, nil
}

// Deactivate disables sign-in for the account.
func (s *Service) Deactivate(ctx context.Context, id string) (auth.User, error) {
	inactive := false
	return s.UpdateUser(ctx, id, UpdateRequest{IsActive: &inactive})
}

func (s *Service) permissions(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if err := s.registry.Validate(out...); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	sort.Strings(out)
	return out, nil
}
