package vault

import (
	"sync"
	"time"
)

// DefaultViewTTL is how long a decrypted value stays readable before it
// is wiped regardless of user interaction.
const DefaultViewTTL = 30 * time.Second

// DecryptedView is the ephemeral holder for one decrypted value. It
// clears itself when its TTL elapses; ClearNow short-circuits the timer.
// Once cleared it never becomes readable again.
type DecryptedView struct {
	mu        sync.Mutex
	plaintext string
	expiresAt time.Time
	timer     *time.Timer
	now       func() time.Time
}

func newView(plaintext string, ttl time.Duration, now func() time.Time) *DecryptedView {
	if now == nil {
		now = time.Now
	}
	v := &DecryptedView{
		plaintext: plaintext,
		expiresAt: now().Add(ttl),
		now:       now,
	}
	v.timer = time.AfterFunc(ttl, v.ClearNow)
	return v
}

// Plaintext returns the decrypted value, or "" once cleared.
func (v *DecryptedView) Plaintext() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.plaintext
}

// Remaining reports how long the value stays visible. Zero once cleared.
func (v *DecryptedView) Remaining() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.plaintext == "" {
		return 0
	}
	if d := v.expiresAt.Sub(v.now()); d > 0 {
		return d
	}
	return 0
}

// ClearNow wipes the plaintext immediately and stops the TTL timer.
func (v *DecryptedView) ClearNow() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.plaintext = ""
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

// Close tears the view down. It must be called when the surface showing
// the value goes away, so no timer outlives it.
func (v *DecryptedView) Close() {
	v.ClearNow()
}
