// Package session holds the in-memory master secret and the durable
// bearer token for the client. The two are independent: a valid token
// with no secret is simply a locked vault.
package session

import "sync"

// Session is the single in-memory slot for the master password. It is
// created empty ("locked"), filled on login, register or unlock, and
// cleared on lock, logout or process exit. The secret never leaves
// process memory through this type.
type Session struct {
	mu     sync.Mutex
	secret []byte
}

// New returns an empty (locked) session.
func New() *Session {
	return &Session{}
}

// SetSecret stores the master password. No local validation happens
// here: correctness is only ever proven by a successful decrypt.
func (s *Session) SetSecret(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipe()
	s.secret = []byte(value)
}

// Secret returns the held master password and whether one is present.
func (s *Session) Secret() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.secret == nil {
		return "", false
	}
	return string(s.secret), true
}

// IsPresent reports whether a master password is held.
func (s *Session) IsPresent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secret != nil
}

// Clear drops the secret, overwriting the backing bytes first so the
// plaintext does not linger in the old allocation.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipe()
}

func (s *Session) wipe() {
	for i := range s.secret {
		s.secret[i] = 0
	}
	s.secret = nil
}
