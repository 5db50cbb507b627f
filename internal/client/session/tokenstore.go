package session

import (
	"encoding/json"
	"os"
	"sync"
)

// TokenStore persists exactly one durable value: the bearer token. It is
// the client's only write to disk; in particular the master secret is
// never stored here.
type TokenStore struct {
	mu   sync.Mutex
	path string
}

type tokenFile struct {
	Token string `json:"token"`
}

// NewTokenStore returns a store backed by the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Save writes the token, replacing any previous one.
func (t *TokenStore) Save(token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(tokenFile{Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(t.path, data, 0o600)
}

// Load returns the stored token. A missing file is not an error: it
// returns an empty token, meaning "not logged in".
func (t *TokenStore) Load() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", err
	}
	return f.Token, nil
}

// Delete removes the token file. Deleting an absent file succeeds.
func (t *TokenStore) Delete() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
