package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/keywarden/keywarden/internal/middleware"
	"github.com/keywarden/keywarden/internal/models"
	"github.com/keywarden/keywarden/internal/service"
)

// VaultService defines the item operations required by the HTTP
// handlers. The same service backs both /vault and /notes.
type VaultService interface {
	List(ctx context.Context, userID, category, search string) ([]models.VaultItem, error)
	Create(ctx context.Context, userID string, req models.ItemRequest) (models.VaultItem, string, error)
	Update(ctx context.Context, userID, id string, req models.ItemRequest) (models.VaultItem, error)
	Delete(ctx context.Context, userID, id, masterPassword string) error
	Decrypt(ctx context.Context, userID, id, masterPassword string) (string, error)
}

// VaultHandler handles vault item CRUD and per-item decryption.
type VaultHandler struct {
	vault VaultService
	log   *zap.Logger
}

// NewVaultHandler constructs a VaultHandler.
func NewVaultHandler(vault VaultService, log *zap.Logger) *VaultHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &VaultHandler{vault: vault, log: log}
}

// List handles GET /vault. Optional query parameters: category, search.
func (h *VaultHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.vault.List(r.Context(), userID, r.URL.Query().Get("category"), r.URL.Query().Get("search"))
	if err != nil {
		h.log.Error("list items failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []models.VaultItem{}
	}
	writeData(w, http.StatusOK, items)
}

// Create handles POST /vault. A breached password is stored anyway;
// the response carries an advisory "warning" field when one applies.
func (h *VaultHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, warning, err := h.vault.Create(r.Context(), userID, req)
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	resp := map[string]any{"data": item}
	if warning != "" {
		resp["warning"] = warning
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Update handles PUT /vault/{id}.
func (h *VaultHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.vault.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeItemError(w, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

// Delete handles DELETE /vault/{id}. The master password comes in the
// body because deletion also requires proof of knowledge.
func (h *VaultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.DecryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.vault.Delete(r.Context(), userID, chi.URLParam(r, "id"), req.MasterPassword); err != nil {
		h.writeItemError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Decrypt handles POST /vault/{id}/decrypt. The plaintext exists only
// in this response; nothing is cached server-side.
func (h *VaultHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.DecryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MasterPassword == "" {
		writeError(w, http.StatusBadRequest, "master password is required")
		return
	}

	plaintext, err := h.vault.Decrypt(r.Context(), userID, chi.URLParam(r, "id"), req.MasterPassword)
	if err != nil {
		h.writeItemError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"decrypted_password": plaintext})
}

// writeItemError maps service errors to HTTP statuses shared by all
// item endpoints.
func (h *VaultHandler) writeItemError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidMasterPassword):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("vault operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
