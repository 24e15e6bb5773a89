package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

const userColumns = `id, username, display_name, email, password_hash, role, active, created_at`

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, u model.User) (int64, error) {
	id, err := insert(ctx, s.db,
		`INSERT INTO users (username, display_name, email, password_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		u.Username, u.DisplayName, u.Email, u.PasswordHash, u.Role, u.Active, time.Now().UTC(),
	)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

// GetUserByUsername returns a user by username, or nil if none exists.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return getOrNil[model.User](ctx, s, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetUserByID returns a user by ID, or nil if none exists.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return getOrNil[model.User](ctx, s, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// ListUsers returns all users.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.selectx(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`)
	return users, err
}

// ToggleUserActive flips the active flag on a user.
func (s *Store) ToggleUserActive(ctx context.Context, id int64) error {
	_, err := s.exec(ctx, `UPDATE users SET active = NOT active WHERE id = ?`, id)
	return err
}

// SetPasswordHash replaces a user's bcrypt password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := s.exec(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	return err
}

// UserCount returns the total number of users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.get(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}
