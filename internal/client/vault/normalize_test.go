package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeItems_AllShapes(t *testing.T) {
	shapes := map[string]string{
		"bare array":   `[{"id":"a1","name":"mail"}]`,
		"data array":   `{"data":[{"id":"a1","name":"mail"}]}`,
		"vaults":       `{"vaults":[{"id":"a1","name":"mail"}]}`,
		"nested":       `{"data":{"vaults":[{"id":"a1","name":"mail"}]}}`,
	}

	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			items, err := decodeItems([]byte(body))
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "a1", items[0].ID)
			assert.Equal(t, "mail", items[0].Name)
		})
	}
}

func TestDecodeItems_EmptyAndBad(t *testing.T) {
	items, err := decodeItems([]byte(`{"data":[]}`))
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = decodeItems([]byte(`{"unexpected":true}`))
	assert.Error(t, err)
}

func TestExtractPlaintext_AllShapes(t *testing.T) {
	shapes := map[string]string{
		"top decrypted_password": `{"decrypted_password":"s3cret"}`,
		"top password":           `{"password":"s3cret"}`,
		"one data level":         `{"data":{"decrypted_password":"s3cret"}}`,
		"one data level password": `{"data":{"password":"s3cret"}}`,
		"two data levels":        `{"data":{"data":{"decrypted_password":"s3cret"}}}`,
	}

	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			got, err := extractPlaintext([]byte(body))
			require.NoError(t, err)
			assert.Equal(t, "s3cret", got)
		})
	}
}

func TestExtractPlaintext_Missing(t *testing.T) {
	_, err := extractPlaintext([]byte(`{"data":{"something":"else"}}`))
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	got, err := extractToken([]byte(`{"data":{"token":"t1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "t1", got)

	got, err = extractToken([]byte(`{"token":"t2"}`))
	require.NoError(t, err)
	assert.Equal(t, "t2", got)

	_, err = extractToken([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestErrorMessageAndRetryAfter(t *testing.T) {
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":"boom"}`), "fb"))
	assert.Equal(t, "boom", errorMessage([]byte(`{"message":"boom"}`), "fb"))
	assert.Equal(t, "fb", errorMessage([]byte(`not json`), "fb"))

	assert.Equal(t, 45, retryAfterSeconds([]byte(`{"retry_after":45}`)))
	assert.Equal(t, 60, retryAfterSeconds([]byte(`{}`)))
	assert.Equal(t, 60, retryAfterSeconds([]byte(`garbage`)))
}
