package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SetAndClear(t *testing.T) {
	s := New()
	assert.False(t, s.IsPresent())

	s.SetSecret("correct horse battery staple")
	assert.True(t, s.IsPresent())

	got, ok := s.Secret()
	require.True(t, ok)
	assert.Equal(t, "correct horse battery staple", got)

	s.Clear()
	assert.False(t, s.IsPresent())
	_, ok = s.Secret()
	assert.False(t, ok)
}

func TestSession_ClearIsIdempotent(t *testing.T) {
	s := New()
	s.Clear()
	s.SetSecret("x")
	s.Clear()
	s.Clear()
	assert.False(t, s.IsPresent())
}

func TestSession_SetOverwritesPrevious(t *testing.T) {
	s := New()
	s.SetSecret("first")
	s.SetSecret("second")
	got, ok := s.Secret()
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestTokenStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewTokenStore(path)

	// Empty store loads an empty token without error.
	tok, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, store.Save("bearer-abc123"))

	tok, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "bearer-abc123", tok)

	require.NoError(t, store.Delete())
	tok, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	// Deleting again is fine.
	require.NoError(t, store.Delete())
}

func TestTokenStore_NeverHoldsMasterSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	store := NewTokenStore(path)

	s := New()
	s.SetSecret("my-master-password")
	require.NoError(t, store.Save("bearer-tok"))
	s.Clear()

	// The token file is the only durable artifact and it contains no
	// trace of the master secret.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "my-master-password")
}
