package vault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keywarden/keywarden/internal/client/session"
	"github.com/keywarden/keywarden/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server, *session.TokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := session.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	c := NewClient(srv.Client(), srv.URL, tokens, session.New(), nil)
	return c, srv, tokens
}

func TestLogin_CommitsTokenAndSecret(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u@example.com", req.Email)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "tok-1"}})
	})

	c, _, tokens := newTestClient(t, mux)
	require.NoError(t, c.Login(context.Background(), "u@example.com", "hunter2hunter2"))

	assert.True(t, c.LoggedIn())
	assert.True(t, c.Session().IsPresent())

	persisted, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", persisted)
}

func TestLogin_BadCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	})

	c, _, _ := newTestClient(t, mux)
	err := c.Login(context.Background(), "u@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.False(t, c.LoggedIn())
	assert.False(t, c.Session().IsPresent())
}

func TestList_AuthRejectionDropsToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /vault", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, _, tokens := newTestClient(t, mux)
	require.NoError(t, tokens.Save("stale-token"))
	c.token = "stale-token"

	_, err := c.List(context.Background(), "", "")
	require.ErrorIs(t, err, ErrAuthRequired)

	assert.False(t, c.LoggedIn())
	persisted, err := tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted, "401 must clear the durable token")
}

func TestDecrypt_ViewLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /vault/abc123/decrypt", func(w http.ResponseWriter, r *http.Request) {
		var req models.DecryptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "master-pw", req.MasterPassword)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"decrypted_password": "p@ss"}})
	})
	mux.HandleFunc("POST /logs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	c, _, _ := newTestClient(t, mux)
	c.token = "tok"
	c.viewTTL = 40 * time.Millisecond

	view, err := c.Decrypt(context.Background(), "abc123", "master-pw")
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, "p@ss", view.Plaintext())
	assert.Positive(t, view.Remaining())

	// The plaintext wipes itself once the TTL elapses.
	assert.Eventually(t, func() bool { return view.Plaintext() == "" }, time.Second, 5*time.Millisecond)
	assert.Zero(t, view.Remaining())
}

func TestDecryptedView_ClearNowShortCircuits(t *testing.T) {
	view := newView("plain", time.Hour, nil)
	assert.Equal(t, "plain", view.Plaintext())

	view.ClearNow()
	assert.Empty(t, view.Plaintext())
	assert.Zero(t, view.Remaining())
}

func TestDecrypt_WrongSecret(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /vault/abc123/decrypt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "master password rejected"})
	})

	c, _, _ := newTestClient(t, mux)
	c.token = "tok"

	_, err := c.Decrypt(context.Background(), "abc123", "nope")
	require.ErrorIs(t, err, ErrInvalidSecret)
}

func TestDecrypt_RateLimitCooldown(t *testing.T) {
	var hits int64
	mux := http.NewServeMux()
	mux.HandleFunc("POST /vault/abc123/decrypt", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": "too many attempts", "retry_after": 45})
	})

	c, _, _ := newTestClient(t, mux)
	c.token = "tok"

	current := time.Now()
	c.now = func() time.Time { return current }

	_, err := c.Decrypt(context.Background(), "abc123", "pw")
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 45*time.Second, rl.RetryAfter)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))

	// One second short of the deadline: still blocked, no network call.
	current = current.Add(44 * time.Second)
	_, err = c.Decrypt(context.Background(), "abc123", "pw")
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, time.Second, rl.RetryAfter)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits), "cooldown must not issue requests")

	// The countdown must reach exactly zero before retry is permitted.
	current = current.Add(time.Second)
	assert.Zero(t, c.RateLimitRemaining("abc123"))
	_, err = c.Decrypt(context.Background(), "abc123", "pw")
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, int64(2), atomic.LoadInt64(&hits), "retry allowed once cooldown elapsed")

	// Other items are unaffected by this item's cooldown.
	assert.Zero(t, c.RateLimitRemaining("other-item"))
}

func TestDecrypt_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /vault/missing/decrypt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c, _, _ := newTestClient(t, mux)
	c.token = "tok"

	_, err := c.Decrypt(context.Background(), "missing", "pw")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUnlock_ProbeDecrypt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /vault", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []models.VaultItem{{ID: "first"}}})
	})
	mux.HandleFunc("POST /vault/first/decrypt", func(w http.ResponseWriter, r *http.Request) {
		var req models.DecryptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.MasterPassword != "right-secret" {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "rejected"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"decrypted_password": "x"})
	})
	mux.HandleFunc("POST /logs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	c, _, _ := newTestClient(t, mux)
	c.token = "tok"

	err := c.Unlock(context.Background(), "wrong-secret")
	require.ErrorIs(t, err, ErrInvalidSecret)
	assert.False(t, c.Session().IsPresent(), "failed unlock must not commit the candidate")

	require.NoError(t, c.Unlock(context.Background(), "right-secret"))
	assert.True(t, c.Session().IsPresent())
	got, _ := c.Session().Secret()
	assert.Equal(t, "right-secret", got)
}

func TestUnlock_EmptyVaultCommitsOptimistically(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /vault", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []models.VaultItem{}})
	})
	mux.HandleFunc("POST /logs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	c, _, _ := newTestClient(t, mux)
	c.token = "tok"

	require.NoError(t, c.Unlock(context.Background(), "anything"))
	assert.True(t, c.Session().IsPresent())
}

func TestCreate_RequiresUnlockedSession(t *testing.T) {
	c, _, _ := newTestClient(t, http.NewServeMux())
	c.token = "tok"

	_, _, err := c.Create(context.Background(), models.ItemRequest{Name: "mail", Password: "pw"})
	require.ErrorIs(t, err, ErrLocked)
}

func TestCreate_SurfacesBreachWarning(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /vault", func(w http.ResponseWriter, r *http.Request) {
		var req models.ItemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "master-pw", req.MasterPassword)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"data":    models.VaultItem{ID: "new-item", Name: req.Name},
			"warning": "this password was found in known data breaches 123 times",
		})
	})

	c, _, _ := newTestClient(t, mux)
	c.token = "tok"
	c.Session().SetSecret("master-pw")

	item, warning, err := c.Create(context.Background(), models.ItemRequest{Name: "mail", Password: "pwned-pw"})
	require.NoError(t, err)
	assert.Equal(t, "new-item", item.ID)
	assert.Contains(t, warning, BreachWarningMarker)
}

func TestLogout_ClearsEverythingLocalImmediately(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /logs", func(w http.ResponseWriter, r *http.Request) {
		// Backend logging failure must not matter.
		w.WriteHeader(http.StatusInternalServerError)
	})

	c, _, tokens := newTestClient(t, mux)
	require.NoError(t, tokens.Save("tok"))
	c.token = "tok"
	c.Session().SetSecret("master-pw")

	c.Logout()

	assert.False(t, c.LoggedIn())
	assert.False(t, c.Session().IsPresent())
	persisted, err := tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestLock_LocalTransitionIsAuthoritative(t *testing.T) {
	// No /logs route at all: the activity call fails outright.
	c, _, _ := newTestClient(t, http.NewServeMux())
	c.token = "tok"
	c.Session().SetSecret("master-pw")

	c.Lock()

	assert.False(t, c.Session().IsPresent())
	assert.True(t, c.LoggedIn(), "lock keeps the bearer token")
}

func TestEndToEnd_LoginDecryptExpire(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "tok-e2e"}})
	})
	mux.HandleFunc("POST /vault/abc123/decrypt", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"data": map[string]string{"password": "deep-plain"}}})
	})
	mux.HandleFunc("POST /logs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	c, _, _ := newTestClient(t, mux)
	c.viewTTL = 30 * time.Millisecond

	require.NoError(t, c.Login(context.Background(), "u@example.com", "master-pw"))
	require.True(t, c.Session().IsPresent(), "login commits the master secret, no separate unlock needed")

	secret, _ := c.Session().Secret()
	view, err := c.Decrypt(context.Background(), "abc123", secret)
	require.NoError(t, err)
	assert.Equal(t, "deep-plain", view.Plaintext())

	assert.Eventually(t, func() bool { return view.Plaintext() == "" }, time.Second, 5*time.Millisecond)
}

func TestBackendUnreachable(t *testing.T) {
	tokens := session.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	c := NewClient(&http.Client{Timeout: 100 * time.Millisecond}, "http://127.0.0.1:1", tokens, session.New(), nil)
	c.token = "tok"

	_, err := c.List(context.Background(), "", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAuthRequired), "network failure is not an auth rejection")
}
