package vault

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAuthRequired means the bearer token is missing or was rejected.
	// The stored token has already been cleared when this is returned;
	// the caller must send the user back to login.
	ErrAuthRequired = errors.New("authentication required")

	// ErrInvalidSecret means the master password was rejected by a
	// decrypt or verification call.
	ErrInvalidSecret = errors.New("invalid master password")

	// ErrNotFound means the referenced vault item does not exist.
	ErrNotFound = errors.New("vault item not found")

	// ErrLocked means an operation needing the master password ran
	// while no secret was held. Collect the secret first.
	ErrLocked = errors.New("vault is locked")
)

// BreachWarningMarker is the substring the backend embeds in create
// responses when the submitted password appears in breach corpora. The
// warning is advisory: the item is stored regardless.
const BreachWarningMarker = "known data breaches"

// RateLimitedError reports a backend decrypt cooldown. Retry is blocked
// until RetryAfter has fully elapsed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many decrypt attempts, retry in %s", e.RetryAfter.Round(time.Second))
}
