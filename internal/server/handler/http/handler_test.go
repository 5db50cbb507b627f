package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keywarden/keywarden/internal/models"
	handler "github.com/keywarden/keywarden/internal/server/handler/http"
	"github.com/keywarden/keywarden/internal/server/token"
	"github.com/keywarden/keywarden/internal/service"
)

const testSecret = "handler-test-secret"

type stubAuth struct {
	RegisterFunc func(ctx context.Context, email, password string) (string, models.User, error)
	LoginFunc    func(ctx context.Context, email, password string) (string, models.User, error)
}

func (s *stubAuth) Register(ctx context.Context, email, password string) (string, models.User, error) {
	return s.RegisterFunc(ctx, email, password)
}
func (s *stubAuth) Login(ctx context.Context, email, password string) (string, models.User, error) {
	return s.LoginFunc(ctx, email, password)
}

type stubVault struct {
	ListFunc    func(ctx context.Context, userID, category, search string) ([]models.VaultItem, error)
	CreateFunc  func(ctx context.Context, userID string, req models.ItemRequest) (models.VaultItem, string, error)
	UpdateFunc  func(ctx context.Context, userID, id string, req models.ItemRequest) (models.VaultItem, error)
	DeleteFunc  func(ctx context.Context, userID, id, masterPassword string) error
	DecryptFunc func(ctx context.Context, userID, id, masterPassword string) (string, error)
}

func (s *stubVault) List(ctx context.Context, userID, category, search string) ([]models.VaultItem, error) {
	return s.ListFunc(ctx, userID, category, search)
}
func (s *stubVault) Create(ctx context.Context, userID string, req models.ItemRequest) (models.VaultItem, string, error) {
	return s.CreateFunc(ctx, userID, req)
}
func (s *stubVault) Update(ctx context.Context, userID, id string, req models.ItemRequest) (models.VaultItem, error) {
	return s.UpdateFunc(ctx, userID, id, req)
}
func (s *stubVault) Delete(ctx context.Context, userID, id, masterPassword string) error {
	return s.DeleteFunc(ctx, userID, id, masterPassword)
}
func (s *stubVault) Decrypt(ctx context.Context, userID, id, masterPassword string) (string, error) {
	return s.DecryptFunc(ctx, userID, id, masterPassword)
}

type stubCategories struct {
	CreateFunc func(ctx context.Context, userID, name string) (models.Category, error)
	ListFunc   func(ctx context.Context, userID string) ([]models.Category, error)
}

func (s *stubCategories) Create(ctx context.Context, userID, name string) (models.Category, error) {
	return s.CreateFunc(ctx, userID, name)
}
func (s *stubCategories) List(ctx context.Context, userID string) ([]models.Category, error) {
	return s.ListFunc(ctx, userID)
}

type stubLogs struct {
	RecordFunc  func(ctx context.Context, userID, action, itemID, detail string) error
	ListFunc    func(ctx context.Context, userID string) ([]models.ActivityLog, error)
	SummaryFunc func(ctx context.Context, userID string) (models.LogSummary, error)
}

func (s *stubLogs) Record(ctx context.Context, userID, action, itemID, detail string) error {
	return s.RecordFunc(ctx, userID, action, itemID, detail)
}
func (s *stubLogs) List(ctx context.Context, userID string) ([]models.ActivityLog, error) {
	return s.ListFunc(ctx, userID)
}
func (s *stubLogs) Summary(ctx context.Context, userID string) (models.LogSummary, error) {
	return s.SummaryFunc(ctx, userID)
}

func newTestRouter(t *testing.T, vault *stubVault, auth *stubAuth, categories *stubCategories, logs *stubLogs) http.Handler {
	t.Helper()
	if auth == nil {
		auth = &stubAuth{}
	}
	if vault == nil {
		vault = &stubVault{}
	}
	if categories == nil {
		categories = &stubCategories{}
	}
	if logs == nil {
		logs = &stubLogs{
			RecordFunc: func(context.Context, string, string, string, string) error { return nil },
		}
	}
	return handler.NewRouter(handler.RouterConfig{
		Auth:         handler.NewAuthHandler(auth, zap.NewNop()),
		Vault:        handler.NewVaultHandler(vault, zap.NewNop()),
		Categories:   handler.NewCategoryHandler(categories, zap.NewNop()),
		Logs:         handler.NewLogHandler(logs, zap.NewNop()),
		JWTSecret:    testSecret,
		DecryptRPS:   100,
		DecryptBurst: 100,
	}, zap.NewNop())
}

func authedRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	req := jsonRequest(t, method, target, body)
	tok, err := token.Issue("u1", testSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegisterEndpoint(t *testing.T) {
	auth := &stubAuth{
		RegisterFunc: func(ctx context.Context, email, password string) (string, models.User, error) {
			assert.Equal(t, "a@b.c", email)
			return "tok-123", models.User{ID: "u1", Email: email}, nil
		},
	}
	router := newTestRouter(t, nil, auth, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/auth/register", models.RegisterRequest{
		Email: "a@b.c", Password: "long-enough-pw",
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tok-123", resp.Data.Token)
}

func TestLoginEndpoint_InvalidCredentials(t *testing.T) {
	auth := &stubAuth{
		LoginFunc: func(ctx context.Context, email, password string) (string, models.User, error) {
			return "", models.User{}, service.ErrInvalidCredentials
		},
	}
	router := newTestRouter(t, nil, auth, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/auth/login", models.LoginRequest{
		Email: "a@b.c", Password: "wrong",
	}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestVaultEndpointsRequireToken(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(t, http.MethodGet, "/vault", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDecryptEndpoint(t *testing.T) {
	vault := &stubVault{
		DecryptFunc: func(ctx context.Context, userID, id, masterPassword string) (string, error) {
			assert.Equal(t, "u1", userID)
			assert.Equal(t, "item-1", id)
			assert.Equal(t, "master-pw", masterPassword)
			return "s3cret", nil
		},
	}
	router := newTestRouter(t, vault, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/vault/item-1/decrypt", models.DecryptRequest{
		MasterPassword: "master-pw",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			DecryptedPassword string `json:"decrypted_password"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s3cret", resp.Data.DecryptedPassword)
}

func TestDecryptEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
	}{
		{"wrong master password", service.ErrInvalidMasterPassword, http.StatusForbidden},
		{"missing item", service.ErrItemNotFound, http.StatusNotFound},
		{"storage failure", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := &stubVault{
				DecryptFunc: func(ctx context.Context, userID, id, masterPassword string) (string, error) {
					return "", tt.svcErr
				},
			}
			router := newTestRouter(t, vault, nil, nil, nil)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/vault/item-1/decrypt", models.DecryptRequest{
				MasterPassword: "pw",
			}))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestDecryptEndpoint_MissingMasterPassword(t *testing.T) {
	router := newTestRouter(t, &stubVault{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/vault/item-1/decrypt", models.DecryptRequest{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEndpoint_Warning(t *testing.T) {
	vault := &stubVault{
		CreateFunc: func(ctx context.Context, userID string, req models.ItemRequest) (models.VaultItem, string, error) {
			return models.VaultItem{ID: "item-1", Name: req.Name}, "this password was found in known data breaches 42 times; consider a stronger one", nil
		},
	}
	router := newTestRouter(t, vault, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/vault", models.ItemRequest{
		Name: "mail", Password: "pw", MasterPassword: "m",
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data    models.VaultItem `json:"data"`
		Warning string           `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "item-1", resp.Data.ID)
	assert.Contains(t, resp.Warning, "known data breaches")
}

func TestCreateEndpoint_ValidationError(t *testing.T) {
	vault := &stubVault{
		CreateFunc: func(ctx context.Context, userID string, req models.ItemRequest) (models.VaultItem, string, error) {
			return models.VaultItem{}, "", fmt.Errorf("%w: name is required", models.ErrInvalidItem)
		},
	}
	router := newTestRouter(t, vault, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/vault", models.ItemRequest{Password: "pw"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotesRoutesShareVaultHandlers(t *testing.T) {
	listed := false
	vault := &stubVault{
		ListFunc: func(ctx context.Context, userID, category, search string) ([]models.VaultItem, error) {
			listed = true
			return []models.VaultItem{{ID: "n1", Name: "note"}}, nil
		},
	}
	router := newTestRouter(t, vault, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/notes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, listed)
	assert.Contains(t, rec.Body.String(), "n1")
}

func TestListEndpoint_QueryFilters(t *testing.T) {
	vault := &stubVault{
		ListFunc: func(ctx context.Context, userID, category, search string) ([]models.VaultItem, error) {
			assert.Equal(t, "cat-1", category)
			assert.Equal(t, "mail", search)
			return nil, nil
		},
	}
	router := newTestRouter(t, vault, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/vault?category=cat-1&search=mail", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	// A nil slice still serializes as an empty JSON array.
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestLogsEndpoints(t *testing.T) {
	logs := &stubLogs{
		RecordFunc: func(ctx context.Context, userID, action, itemID, detail string) error {
			assert.Equal(t, "vault_locked", action)
			return nil
		},
		ListFunc: func(ctx context.Context, userID string) ([]models.ActivityLog, error) {
			return []models.ActivityLog{{ID: "l1", Action: "item_decrypted"}}, nil
		},
		SummaryFunc: func(ctx context.Context, userID string) (models.LogSummary, error) {
			return models.LogSummary{Total: 3, ByAction: map[string]int{"item_decrypted": 3}}, nil
		},
	}
	router := newTestRouter(t, nil, nil, nil, logs)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/logs", models.LogRequest{Action: "vault_locked"}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/logs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "item_decrypted")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/logs/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":3`)
}

func TestCategoriesEndpoints(t *testing.T) {
	categories := &stubCategories{
		CreateFunc: func(ctx context.Context, userID, name string) (models.Category, error) {
			return models.Category{ID: "c1", Name: name}, nil
		},
		ListFunc: func(ctx context.Context, userID string) ([]models.Category, error) {
			return []models.Category{{ID: "c1", Name: "work"}}, nil
		},
	}
	router := newTestRouter(t, nil, nil, categories, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/categories", models.CategoryRequest{Name: "work"}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "work")
}
