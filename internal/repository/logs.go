package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keywarden/keywarden/internal/models"
)

// PostgresLogRepository implements activity log persistence.
type PostgresLogRepository struct {
	DB *sql.DB
}

// NewPostgresLogRepository creates a repository over the given *sql.DB.
func NewPostgresLogRepository(db *sql.DB) *PostgresLogRepository {
	return &PostgresLogRepository{DB: db}
}

// Insert records one activity entry.
func (r *PostgresLogRepository) Insert(ctx context.Context, userID string, entry models.ActivityLog) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO activity_logs (id, user_id, action, item_id, detail) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, userID, entry.Action, entry.ItemID, entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("Insert log: %w", err)
	}
	return nil
}

// ListByUser fetches the most recent entries, newest first.
func (r *PostgresLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, action, COALESCE(item_id, ''), COALESCE(detail, ''), created_at
		  FROM activity_logs WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListByUser logs: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityLog
	for rows.Next() {
		var e models.ActivityLog
		if err := rows.Scan(&e.ID, &e.Action, &e.ItemID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary aggregates entry counts per action.
func (r *PostgresLogRepository) Summary(ctx context.Context, userID string) (models.LogSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT action, COUNT(*) FROM activity_logs WHERE user_id = $1 GROUP BY action
	`, userID)
	if err != nil {
		return models.LogSummary{}, fmt.Errorf("Summary: %w", err)
	}
	defer rows.Close()

	summary := models.LogSummary{ByAction: make(map[string]int)}
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return models.LogSummary{}, fmt.Errorf("scan: %w", err)
		}
		summary.ByAction[action] = count
		summary.Total += count
	}
	return summary, rows.Err()
}
