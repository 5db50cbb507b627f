// Package vault is the client-side coordinator for all backend access:
// authentication, item CRUD, per-item decryption, rate-limit backoff and
// the lifetime of decrypted values.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/keywarden/keywarden/internal/client/session"
	"github.com/keywarden/keywarden/internal/models"
)

const maxResponseBytes = 1 << 20

// Client talks to the backend REST API. It owns the bearer token (via
// the TokenStore), consults the master-secret session for operations
// that need the secret, and tracks per-item decrypt cooldowns.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  *session.TokenStore
	session *session.Session
	log     *zap.Logger

	// now and viewTTL are swappable so tests never sleep real seconds.
	now     func() time.Time
	viewTTL time.Duration

	mu     sync.Mutex
	token  string
	limits map[string]time.Time // item ID -> cooldown deadline
}

// NewClient constructs a Client. httpClient and log may be nil. The
// persisted token, if any, is loaded eagerly so a restarted client stays
// logged in (but locked, since the secret is memory-only).
func NewClient(httpClient *http.Client, baseURL string, tokens *session.TokenStore, sess *session.Session, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		http:    httpClient,
		baseURL: baseURL,
		tokens:  tokens,
		session: sess,
		log:     log,
		now:     time.Now,
		viewTTL: DefaultViewTTL,
		limits:  make(map[string]time.Time),
	}
	if tok, err := tokens.Load(); err == nil {
		c.token = tok
	} else {
		log.Warn("could not load persisted token", zap.Error(err))
	}
	return c
}

// Session exposes the master-secret session so callers can gate locked
// and unlocked surfaces on it.
func (c *Client) Session() *session.Session { return c.session }

// LoggedIn reports whether a bearer token is held.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// do issues one request and returns status plus body. A 401 on an
// authenticated call clears the token locally and in the store, then
// reports ErrAuthRequired.
func (c *Client) do(ctx context.Context, method, path string, payload any, authed bool) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token == "" {
			return 0, nil, ErrAuthRequired
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		c.dropToken()
		return resp.StatusCode, data, ErrAuthRequired
	}
	return resp.StatusCode, data, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if err := c.tokens.Delete(); err != nil {
		c.log.Warn("could not delete persisted token", zap.Error(err))
	}
}

func (c *Client) setToken(token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return c.tokens.Save(token)
}

// Register creates an account. On success the issued token is persisted
// and the password is committed as the master secret, so the vault
// starts unlocked.
func (c *Client) Register(ctx context.Context, email, password string) error {
	status, body, err := c.do(ctx, http.MethodPost, "/auth/register", models.RegisterRequest{Email: email, Password: password}, false)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return errors.New(errorMessage(body, "registration failed"))
	}
	token, err := extractToken(body)
	if err != nil {
		return err
	}
	if err := c.setToken(token); err != nil {
		return err
	}
	c.session.SetSecret(password)
	return nil
}

// Login authenticates and, like Register, commits the password as the
// master secret.
func (c *Client) Login(ctx context.Context, email, password string) error {
	status, body, err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, false)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errors.New(errorMessage(body, "login failed"))
	}
	token, err := extractToken(body)
	if err != nil {
		return err
	}
	if err := c.setToken(token); err != nil {
		return err
	}
	c.session.SetSecret(password)
	return nil
}

// Logout clears the master secret and removes the durable token. The
// local transition is immediate; the activity log entry is best-effort.
func (c *Client) Logout() {
	c.session.Clear()
	c.recordActivity("logout", "")
	c.dropToken()
}

// Lock drops the master secret, leaving the token intact. The backend
// activity log is told asynchronously; failure of that call never blocks
// or reverses the lock.
func (c *Client) Lock() {
	c.session.Clear()
	c.recordActivity("vault_locked", "")
}

// recordActivity posts an activity log entry in the background and
// absorbs any failure.
func (c *Client) recordActivity(action, itemID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _, err := c.do(ctx, http.MethodPost, "/logs", models.LogRequest{Action: action, ItemID: itemID}, true)
		if err != nil {
			c.log.Debug("activity log write failed", zap.String("action", action), zap.Error(err))
		}
	}()
}

// Unlock verifies a candidate master password and commits it to the
// session on success. Verification is a probe decrypt of the first
// listed item; with an empty vault there is nothing to prove against and
// the candidate is committed optimistically (the first real decrypt will
// reject a wrong one).
func (c *Client) Unlock(ctx context.Context, candidate string) error {
	items, err := c.List(ctx, "", "")
	if err != nil {
		if errors.Is(err, ErrAuthRequired) {
			return err
		}
		return fmt.Errorf("%w: verification call failed", ErrInvalidSecret)
	}

	if len(items) > 0 {
		if _, err := c.decryptValue(ctx, items[0].ID, candidate); err != nil {
			var rl *RateLimitedError
			if errors.Is(err, ErrAuthRequired) || errors.As(err, &rl) {
				return err
			}
			return ErrInvalidSecret
		}
	}

	c.session.SetSecret(candidate)
	c.recordActivity("vault_unlocked", "")
	return nil
}

// List fetches vault items, optionally filtered by category and search
// term. The response shape is normalized in one place.
func (c *Client) List(ctx context.Context, category, search string) ([]models.VaultItem, error) {
	return c.list(ctx, "/vault", category, search)
}

// ListNotes mirrors List for the notes collection.
func (c *Client) ListNotes(ctx context.Context) ([]models.VaultItem, error) {
	return c.list(ctx, "/notes", "", "")
}

func (c *Client) list(ctx context.Context, base, category, search string) ([]models.VaultItem, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("search", search)
	}
	path := base
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	status, body, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.New(errorMessage(body, "could not list vault"))
	}
	return decodeItems(body)
}

// Create stores a new item. The master secret is attached from the
// session; ErrLocked is returned when none is held. The returned warning
// is the backend's non-fatal breach advisory, empty when absent.
func (c *Client) Create(ctx context.Context, req models.ItemRequest) (*models.VaultItem, string, error) {
	return c.create(ctx, "/vault", req)
}

// CreateNote mirrors Create for the notes collection.
func (c *Client) CreateNote(ctx context.Context, req models.ItemRequest) (*models.VaultItem, string, error) {
	return c.create(ctx, "/notes", req)
}

func (c *Client) create(ctx context.Context, base string, req models.ItemRequest) (*models.VaultItem, string, error) {
	secret, ok := c.session.Secret()
	if !ok {
		return nil, "", ErrLocked
	}
	req.MasterPassword = secret

	status, body, err := c.do(ctx, http.MethodPost, base, req, true)
	if err != nil {
		return nil, "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, "", errors.New(errorMessage(body, "could not create item"))
	}

	item, warning, err := decodeItem(body)
	if err != nil {
		return nil, "", err
	}
	if warning != "" {
		c.log.Info("backend breach advisory on create", zap.String("item", item.ID))
	}
	return item, warning, nil
}

// Update rewrites an existing item. Requires the unlocked session.
func (c *Client) Update(ctx context.Context, id string, req models.ItemRequest) (*models.VaultItem, error) {
	return c.update(ctx, "/vault/"+id, req)
}

// UpdateNote mirrors Update for the notes collection.
func (c *Client) UpdateNote(ctx context.Context, id string, req models.ItemRequest) (*models.VaultItem, error) {
	return c.update(ctx, "/notes/"+id, req)
}

func (c *Client) update(ctx context.Context, path string, req models.ItemRequest) (*models.VaultItem, error) {
	secret, ok := c.session.Secret()
	if !ok {
		return nil, ErrLocked
	}
	req.MasterPassword = secret

	status, body, err := c.do(ctx, http.MethodPut, path, req, true)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, errors.New(errorMessage(body, "could not update item"))
	}

	item, _, err := decodeItem(body)
	return item, err
}

// Delete removes an item. The master password authorizes the deletion.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.delete(ctx, "/vault/"+id)
}

// DeleteNote mirrors Delete for the notes collection.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.delete(ctx, "/notes/"+id)
}

func (c *Client) delete(ctx context.Context, path string) error {
	secret, ok := c.session.Secret()
	if !ok {
		return ErrLocked
	}

	status, body, err := c.do(ctx, http.MethodDelete, path, models.DecryptRequest{MasterPassword: secret}, true)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return errors.New(errorMessage(body, "could not delete item"))
	}
}

// Decrypt requests the plaintext of one item. It is stateless with
// respect to the session: the secret is an explicit argument, so callers
// must collect it first when the session is locked. The returned view
// wipes itself after the TTL.
func (c *Client) Decrypt(ctx context.Context, itemID, secret string) (*DecryptedView, error) {
	if remaining := c.RateLimitRemaining(itemID); remaining > 0 {
		return nil, &RateLimitedError{RetryAfter: remaining}
	}

	plaintext, err := c.decryptValue(ctx, itemID, secret)
	if err != nil {
		return nil, err
	}
	c.recordActivity("item_decrypted", itemID)
	return newView(plaintext, c.viewTTL, c.now), nil
}

// decryptValue performs the raw decrypt call without creating a view.
// Unlock uses it as its verification probe.
func (c *Client) decryptValue(ctx context.Context, itemID, secret string) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/vault/"+itemID+"/decrypt", models.DecryptRequest{MasterPassword: secret}, true)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
		return extractPlaintext(body)
	case http.StatusTooManyRequests:
		retry := time.Duration(retryAfterSeconds(body)) * time.Second
		c.mu.Lock()
		c.limits[itemID] = c.now().Add(retry)
		c.mu.Unlock()
		return "", &RateLimitedError{RetryAfter: retry}
	case http.StatusNotFound:
		return "", ErrNotFound
	case http.StatusBadRequest, http.StatusForbidden, http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s", ErrInvalidSecret, errorMessage(body, "decrypt rejected"))
	default:
		return "", errors.New(errorMessage(body, "decrypt failed"))
	}
}

// RateLimitRemaining reports how long decrypts on the item stay blocked.
// Zero means the item may be tried. Expired deadlines are pruned.
func (c *Client) RateLimitRemaining(itemID string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := c.limits[itemID]
	if !ok {
		return 0
	}
	if remaining := deadline.Sub(c.now()); remaining > 0 {
		return remaining
	}
	delete(c.limits, itemID)
	return 0
}

// Categories fetches the user's categories.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/categories", nil, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.New(errorMessage(body, "could not list categories"))
	}
	var env struct {
		Data []models.Category `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateCategory adds a category.
func (c *Client) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/categories", models.CategoryRequest{Name: name}, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, errors.New(errorMessage(body, "could not create category"))
	}
	var env struct {
		Data *models.Category `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil {
		return nil, errors.New("unrecognized category response shape")
	}
	return env.Data, nil
}

// Logs fetches the activity log.
func (c *Client) Logs(ctx context.Context) ([]models.ActivityLog, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/logs", nil, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.New(errorMessage(body, "could not fetch logs"))
	}
	var env struct {
		Data []models.ActivityLog `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// LogsSummary fetches aggregated activity counts.
func (c *Client) LogsSummary(ctx context.Context) (*models.LogSummary, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/logs/summary", nil, true)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.New(errorMessage(body, "could not fetch log summary"))
	}
	var env struct {
		Data *models.LogSummary `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil {
		return nil, errors.New("unrecognized log summary response shape")
	}
	return env.Data, nil
}
