package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keywarden/keywarden/internal/models"
)

// ErrItemNotFound is returned when no vault item matches the lookup.
var ErrItemNotFound = errors.New("vault item not found")

// PostgresVaultRepository implements vault item persistence.
type PostgresVaultRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresVaultRepository creates a repository over the given *sql.DB.
func NewPostgresVaultRepository(db *sql.DB) *PostgresVaultRepository {
	return &PostgresVaultRepository{DB: db}
}

// Insert stores a new item.
func (r *PostgresVaultRepository) Insert(ctx context.Context, userID string, item models.VaultItem) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO vault_items (id, user_id, name, username, ciphertext, salt, note, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, userID, item.Name, item.Username, item.Ciphertext, item.Salt, item.Note, item.CategoryID)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

// Update rewrites an existing item's fields and bumps updated_at.
func (r *PostgresVaultRepository) Update(ctx context.Context, userID string, item models.VaultItem) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE vault_items
		   SET name = $3, username = $4, ciphertext = $5, salt = $6, note = $7, category_id = $8, updated_at = now()
		 WHERE id = $1 AND user_id = $2 AND deleted = false
	`, item.ID, userID, item.Name, item.Username, item.Ciphertext, item.Salt, item.Note, item.CategoryID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

// SoftDelete marks an item deleted; the cleaner removes it later.
func (r *PostgresVaultRepository) SoftDelete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE vault_items SET deleted = true, updated_at = now()
		 WHERE id = $1 AND user_id = $2 AND deleted = false
	`, id, userID)
	if err != nil {
		return fmt.Errorf("SoftDelete: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

// GetByID fetches one live item including its ciphertext and salt.
func (r *PostgresVaultRepository) GetByID(ctx context.Context, userID, id string) (models.VaultItem, error) {
	var item models.VaultItem
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, username, ciphertext, salt, note, category_id, created_at, updated_at
		  FROM vault_items WHERE id = $1 AND user_id = $2 AND deleted = false
	`, id, userID).Scan(
		&item.ID, &item.Name, &item.Username, &item.Ciphertext, &item.Salt,
		&item.Note, &item.CategoryID, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultItem{}, ErrItemNotFound
	}
	if err != nil {
		return models.VaultItem{}, fmt.Errorf("GetByID: %w", err)
	}
	return item, nil
}

// ListByUser fetches live items, optionally filtered by category and a
// case-insensitive name/username search term.
func (r *PostgresVaultRepository) ListByUser(ctx context.Context, userID, category, search string) ([]models.VaultItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, username, ciphertext, salt, note, category_id, created_at, updated_at
		  FROM vault_items
		 WHERE user_id = $1 AND deleted = false
		   AND ($2 = '' OR category_id = $2)
		   AND ($3 = '' OR name ILIKE '%'||$3||'%' OR username ILIKE '%'||$3||'%')
		 ORDER BY updated_at DESC
	`, userID, category, search)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var items []models.VaultItem
	for rows.Next() {
		var item models.VaultItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Username, &item.Ciphertext, &item.Salt,
			&item.Note, &item.CategoryID, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
