package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keywarden/keywarden/internal/models"
)

// PostgresCategoryRepository implements category persistence.
type PostgresCategoryRepository struct {
	DB *sql.DB
}

// NewPostgresCategoryRepository creates a repository over the given *sql.DB.
func NewPostgresCategoryRepository(db *sql.DB) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{DB: db}
}

// Insert stores a new category.
func (r *PostgresCategoryRepository) Insert(ctx context.Context, userID string, category models.Category) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO categories (id, user_id, name) VALUES ($1, $2, $3)`,
		category.ID, userID, category.Name,
	)
	if err != nil {
		return fmt.Errorf("Insert category: %w", err)
	}
	return nil
}

// ListByUser fetches the user's categories.
func (r *PostgresCategoryRepository) ListByUser(ctx context.Context, userID string) ([]models.Category, error) {
	rows, err := r.DB.QueryContext(
		ctx,
		`SELECT id, name FROM categories WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
