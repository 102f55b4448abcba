package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/examhub/examhub/internal/model"
)

// CreateUser inserts a new user. Uniqueness of username and email is
// enforced by the schema; callers check for duplicates first to produce
// a friendly conflict error.
func (s *Store) CreateUser(u model.User) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, full_name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, now, now,
	)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

const userColumns = `id, username, email, password_hash, full_name, role, created_at, updated_at`

func (s *Store) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername returns a user by username, or nil if absent.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

// GetUserByEmail returns a user by email, or nil if absent.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// GetUserByID returns a user by ID, or nil if absent.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
