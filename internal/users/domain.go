package users

import (
	"context"

	"github.com/tailorflow/tailorflow/internal/auth"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]auth.User, error)
	GetUser(ctx context.Context, id string) (auth.User, error)
	CreateUser(ctx context.Context, u auth.User) error
	UpdateUser(ctx context.Context, u auth.User) error
}

// CreateRequest creates an account from a role template. Permissions, when
// given, replace the template's set.
type CreateRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=50,alphanum"`
	Name        string   `json:"name" validate:"required,max=100"`
	Email       string   `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Password    string   `json:"password" validate:"required,min=8,max=200"`
	Role        string   `json:"role" validate:"required,max=50"`
	Permissions []string `json:"permissions,omitempty" validate:"omitempty,dive,required,max=100"`
}

// UpdateRequest is a partial account update.
type UpdateRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,max=100"`
	Email       *string   `json:"email,omitempty" validate:"omitempty,max=200"`
	Role        *string   `json:"role,omitempty" validate:"omitempty,max=50"`
	Permissions *[]string `json:"permissions,omitempty" validate:"omitempty,dive,required,max=100"`
	IsActive    *bool     `json:"isActive,omitempty"`
	Password    *string   `json:"password,omitempty" validate:"omitempty,min=8,max=200"`
}
