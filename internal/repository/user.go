// Package repository provides PostgreSQL persistence for users, vault
// items, categories and activity logs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keywarden/keywarden/internal/models"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// PostgresUserRepository implements account persistence.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a repository over the given *sql.DB.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// EmailExists checks whether an account with the email exists.
func (r *PostgresUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	return exists, err
}

// CreateUser inserts a new account with its Argon2id password hash.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user models.User, passwordHash string) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		user.ID, user.Email, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("CreateUser: %w", err)
	}
	return nil
}

// GetByEmail fetches the account and its password hash for login.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (models.User, string, error) {
	var user models.User
	var hash string
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &hash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, "", ErrUserNotFound
	}
	if err != nil {
		return models.User{}, "", fmt.Errorf("GetByEmail: %w", err)
	}
	return user, hash, nil
}
