package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrDecryptFailed means the ciphertext could not be opened, which with
// AES-GCM almost always means a wrong master password.
var ErrDecryptFailed = errors.New("decryption failed")

// kdf parameters for the item key. Lighter than account hashing: this
// runs on every decrypt request.
const (
	itemKeyIterations  = 1
	itemKeyMemory      = 64 * 1024
	itemKeyParallelism = 4
	itemKeyLength      = 32
	itemSaltLength     = 16
)

// itemKey derives the AES key for one item from the master password and
// the item's salt.
func itemKey(masterPassword string, salt []byte) []byte {
	return argon2.IDKey([]byte(masterPassword), salt, itemKeyIterations, itemKeyMemory, itemKeyParallelism, itemKeyLength)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// SealItem encrypts a plaintext under a key derived from the master
// password and a fresh random salt. Returns base64(nonce||ciphertext)
// and base64(salt).
func SealItem(masterPassword, plaintext string) (ciphertext, salt string, err error) {
	rawSalt := make([]byte, itemSaltLength)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", fmt.Errorf("generating salt: %w", err)
	}

	aead, err := newAEAD(itemKey(masterPassword, rawSalt))
	if err != nil {
		return "", "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(rawSalt), nil
}

// OpenItem reverses SealItem. A wrong master password surfaces as
// ErrDecryptFailed.
func OpenItem(masterPassword, ciphertext, salt string) (string, error) {
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", ErrDecryptFailed
	}
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptFailed
	}

	aead, err := newAEAD(itemKey(masterPassword, rawSalt))
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", ErrDecryptFailed
	}

	nonce, data := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}
