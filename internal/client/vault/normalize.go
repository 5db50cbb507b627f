package vault

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keywarden/keywarden/internal/models"
)

// The backend's response shapes have drifted over time. Each endpoint
// gets exactly one normalization function here; shape guessing must not
// leak into call sites.

// decodeItems accepts every historical list shape: a bare array,
// {"data":[...]}, {"vaults":[...]} and {"data":{"vaults":[...]}}.
func decodeItems(body []byte) ([]models.VaultItem, error) {
	var items []models.VaultItem
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var env struct {
		Data   json.RawMessage    `json:"data"`
		Vaults []models.VaultItem `json:"vaults"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unrecognized vault list response: %w", err)
	}
	if env.Vaults != nil {
		return env.Vaults, nil
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &items); err == nil {
			return items, nil
		}
		var inner struct {
			Vaults []models.VaultItem `json:"vaults"`
		}
		if err := json.Unmarshal(env.Data, &inner); err == nil && inner.Vaults != nil {
			return inner.Vaults, nil
		}
	}
	return nil, errors.New("unrecognized vault list response shape")
}

// extractPlaintext pulls the decrypted value out of a decrypt response.
// Accepted locations: top-level "decrypted_password" or "password", or
// the same keys nested one or two levels under "data".
func extractPlaintext(body []byte) (string, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("unrecognized decrypt response: %w", err)
	}

	for depth := 0; depth < 3; depth++ {
		for _, key := range []string{"decrypted_password", "password"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return s, nil
			}
		}
		inner, ok := payload["data"]
		if !ok {
			break
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(inner, &next); err != nil {
			break
		}
		payload = next
	}
	return "", errors.New("no decrypted value in response")
}

// extractToken pulls the bearer token from an auth response, accepting
// {"token":...} and {"data":{"token":...}}.
func extractToken(body []byte) (string, error) {
	var top struct {
		Token string `json:"token"`
		Data  struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &top); err != nil {
		return "", fmt.Errorf("unrecognized auth response: %w", err)
	}
	if top.Data.Token != "" {
		return top.Data.Token, nil
	}
	if top.Token != "" {
		return top.Token, nil
	}
	return "", errors.New("no token in auth response")
}

// decodeItem unwraps a single item from {"data":{...}} or a bare object,
// along with any advisory warning the backend attached.
func decodeItem(body []byte) (*models.VaultItem, string, error) {
	var env struct {
		Data    *models.VaultItem `json:"data"`
		Warning string            `json:"warning"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		return env.Data, env.Warning, nil
	}

	var item models.VaultItem
	if err := json.Unmarshal(body, &item); err != nil || item.ID == "" {
		return nil, "", errors.New("unrecognized vault item response shape")
	}
	return &item, "", nil
}

// errorMessage digs a human-readable message out of an error body,
// falling back to the supplied default.
func errorMessage(body []byte, fallback string) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return fallback
}

// retryAfterSeconds reads the advertised cooldown from a 429 body,
// defaulting to 60 when absent or invalid.
func retryAfterSeconds(body []byte) int {
	var env struct {
		RetryAfter int `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.RetryAfter > 0 {
		return env.RetryAfter
	}
	return 60
}
