package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/keywarden/keywarden/internal/models"
)

// ErrCategoryNameRequired rejects empty category names.
var ErrCategoryNameRequired = errors.New("category name is required")

// CategoryRepository defines the persistence operations needed by the
// category service.
type CategoryRepository interface {
	Insert(ctx context.Context, userID string, category models.Category) error
	ListByUser(ctx context.Context, userID string) ([]models.Category, error)
}

// CategoryService manages item categories.
type CategoryService struct {
	repo CategoryRepository
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, userID, name string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, ErrCategoryNameRequired
	}

	category := models.Category{ID: uuid.NewString(), Name: name}
	if err := s.repo.Insert(ctx, userID, category); err != nil {
		return models.Category{}, err
	}
	return category, nil
}

// List returns the user's categories.
func (s *CategoryService) List(ctx context.Context, userID string) ([]models.Category, error) {
	return s.repo.ListByUser(ctx, userID)
}
