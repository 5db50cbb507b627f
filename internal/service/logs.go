package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/keywarden/keywarden/internal/models"
)

// LogRepository defines the persistence operations needed by the log
// service.
type LogRepository interface {
	Insert(ctx context.Context, userID string, entry models.ActivityLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error)
	Summary(ctx context.Context, userID string) (models.LogSummary, error)
}

// defaultLogLimit bounds how many entries a single fetch returns.
const defaultLogLimit = 100

// LogService records and reads the activity log. It also satisfies
// LogRecorder for the vault service.
type LogService struct {
	repo LogRepository
}

// NewLogService constructs a LogService.
func NewLogService(repo LogRepository) *LogService {
	return &LogService{repo: repo}
}

// Record stores one activity entry.
func (s *LogService) Record(ctx context.Context, userID, action, itemID, detail string) error {
	return s.repo.Insert(ctx, userID, models.ActivityLog{
		ID:        uuid.NewString(),
		Action:    action,
		ItemID:    itemID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}

// List returns the most recent entries.
func (s *LogService) List(ctx context.Context, userID string) ([]models.ActivityLog, error) {
	return s.repo.ListByUser(ctx, userID, defaultLogLimit)
}

// Summary returns per-action counts.
func (s *LogService) Summary(ctx context.Context, userID string) (models.LogSummary, error) {
	return s.repo.Summary(ctx, userID)
}
