package auth

import (
	"fmt"
	"time"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// User represents an account able to sign in.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Principal converts the account into the request-scoped principal.
func (u User) Principal() *shared.Principal {
	return &shared.Principal{
		UserID:      u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Role:        u.Role,
		Permissions: append([]string(nil), u.Permissions...),
	}
}

// Clone returns a deep copy.
func (u User) Clone() User {
	out := u
	out.Permissions = append([]string(nil), u.Permissions...)
	return out
}

// ErrUserNotFound is returned for unknown accounts.
var ErrUserNotFound = fmt.Errorf("user %w", httpx.ErrNotFound)
