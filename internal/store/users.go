package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dockmon/internal/models"
)

// ErrUserNotFound is returned when a username or id has no account.
var ErrUserNotFound = errors.New("user not found")

// UserStore persists accounts for login and alert ownership.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user with an already-hashed password.
func (s *UserStore) Create(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	u := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?,?,?,?)`,
		u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	u.ID, err = res.LastInsertId()
	return u, err
}

// ByUsername looks up an account for login.
func (s *UserStore) ByUsername(ctx context.Context, username string) (models.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`,
		username))
}

// ByID looks up an account by primary key.
func (s *UserStore) ByID(ctx context.Context, id int64) (models.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`,
		id))
}

// Count returns the number of accounts; used for first-boot setup.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *UserStore) scanOne(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}
