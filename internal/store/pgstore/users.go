package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tailorflow/tailorflow/internal/auth"
)

const selectUsers = `SELECT id, username, name, email, password_hash, role, permissions, is_active, created_at, updated_at FROM users`

// UsersRepo implements the account repositories.
type UsersRepo struct{ store *Store }

// FindByUsername looks an account up case-insensitively.
func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (auth.User, error) {
	u, err := scanUser(r.store.pool.QueryRow(ctx, selectUsers+` WHERE lower(username) = lower($1)`, username))
	return u, mapErr(err, auth.ErrUserNotFound, "user")
}

// FindByID fetches an account.
func (r *UsersRepo) FindByID(ctx context.Context, id string) (auth.User, error) {
	u, err := scanUser(r.store.pool.QueryRow(ctx, selectUsers+` WHERE id = $1`, id))
	return u, mapErr(err, auth.ErrUserNotFound, "user")
}

// GetUser is FindByID under the users module's name.
func (r *UsersRepo) GetUser(ctx context.Context, id string) (auth.User, error) {
	return r.FindByID(ctx, id)
}

// ListUsers returns accounts ordered by username.
func (r *UsersRepo) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := r.store.pool.Query(ctx, selectUsers+` ORDER BY username`)
	if err != nil {
		return nil, mapErr(err, nil, "list users")
	}
	defer rows.Close()
	var out []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr(err, nil, "user")
		}
		out = append(out, u)
	}
	return out, mapErr(rows.Err(), nil, "list users")
}

// CreateUser stores an account with a unique username.
func (r *UsersRepo) CreateUser(ctx context.Context, u auth.User) error {
	_, err := r.store.pool.Exec(ctx,
		`INSERT INTO users (id, username, name, email, password_hash, role, permissions, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Username, u.Name, u.Email, u.PasswordHash, u.Role, permissionsOf(u), u.IsActive, u.CreatedAt, u.UpdatedAt)
	return mapErr(err, nil, "username "+u.Username)
}

// UpdateUser replaces an account.
func (r *UsersRepo) UpdateUser(ctx context.Context, u auth.User) error {
	tag, err := r.store.pool.Exec(ctx,
		`UPDATE users SET username = $2, name = $3, email = $4, password_hash = $5, role = $6, permissions = $7,
is_active = $8, updated_at = $9 WHERE id = $1`,
		u.ID, u.Username, u.Name, u.Email, u.PasswordHash, u.Role, permissionsOf(u), u.IsActive, u.UpdatedAt)
	if err != nil {
		return mapErr(err, nil, "username "+u.Username)
	}
	return expectRow(tag, auth.ErrUserNotFound)
}

func scanUser(row pgx.Row) (auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Permissions, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func permissionsOf(u auth.User) []string {
	if u.Permissions == nil {
		return []string{}
	}
	return u.Permissions
}
