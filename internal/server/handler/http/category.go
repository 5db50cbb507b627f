package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/keywarden/keywarden/internal/middleware"
	"github.com/keywarden/keywarden/internal/models"
	"github.com/keywarden/keywarden/internal/service"
)

// CategoryService defines the category operations required by the HTTP
// handlers.
type CategoryService interface {
	Create(ctx context.Context, userID, name string) (models.Category, error)
	List(ctx context.Context, userID string) ([]models.Category, error)
}

// CategoryHandler handles category requests.
type CategoryHandler struct {
	categories CategoryService
	log        *zap.Logger
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(categories CategoryService, log *zap.Logger) *CategoryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CategoryHandler{categories: categories, log: log}
}

// List handles GET /categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	categories, err := h.categories.List(r.Context(), userID)
	if err != nil {
		h.log.Error("list categories failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeData(w, http.StatusOK, categories)
}

// Create handles POST /categories.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.categories.Create(r.Context(), userID, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNameRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("create category failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusCreated, category)
}
