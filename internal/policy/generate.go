// Package policy implements password generation and strength scoring.
// Both are pure with respect to crypto/rand and never leave the process.
package policy

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	numberChars    = "0123456789"
	symbolChars    = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	MinLength     = 8
	MaxLength     = 32
	DefaultLength = 16
)

var (
	ErrLengthTooShort = errors.New("password length must be at least 8")
	ErrLengthTooLong  = errors.New("password length must be at most 32")
)

// Options configures the password generator.
// Pointer bools allow distinguishing between missing (nil -> default true)
// and explicit false. Length 0 means DefaultLength.
type Options struct {
	Length    int   `json:"length"`
	Uppercase *bool `json:"uppercase"`
	Lowercase *bool `json:"lowercase"`
	Numbers   *bool `json:"numbers"`
	Symbols   *bool `json:"symbols"`
}

// Generate creates a cryptographically secure random password based on the
// given options. Every enabled character class is represented at least
// once; disabled classes never appear. If all classes are disabled the
// union of all four is used, so the charset is never empty.
func Generate(opts Options) (string, error) {
	length := opts.Length
	if length == 0 {
		length = DefaultLength
	}
	if length < MinLength {
		return "", ErrLengthTooShort
	}
	if length > MaxLength {
		return "", ErrLengthTooLong
	}

	// Build the character pool and collect required sets.
	var pool string
	var requiredSets []string

	if boolOrDefault(opts.Uppercase, true) {
		pool += uppercaseChars
		requiredSets = append(requiredSets, uppercaseChars)
	}
	if boolOrDefault(opts.Lowercase, true) {
		pool += lowercaseChars
		requiredSets = append(requiredSets, lowercaseChars)
	}
	if boolOrDefault(opts.Numbers, true) {
		pool += numberChars
		requiredSets = append(requiredSets, numberChars)
	}
	if boolOrDefault(opts.Symbols, true) {
		pool += symbolChars
		requiredSets = append(requiredSets, symbolChars)
	}

	if len(requiredSets) == 0 {
		pool = uppercaseChars + lowercaseChars + numberChars + symbolChars
	}

	result := make([]byte, length)

	// Guarantee at least one character from each enabled class.
	for i, charset := range requiredSets {
		ch, err := randChar(charset)
		if err != nil {
			return "", err
		}
		result[i] = ch
	}

	// Fill the remaining positions from the full pool.
	for i := len(requiredSets); i < length; i++ {
		ch, err := randChar(pool)
		if err != nil {
			return "", err
		}
		result[i] = ch
	}

	// Shuffle so the guaranteed characters are not predictably positioned.
	if err := secureShuffle(result); err != nil {
		return "", err
	}

	return string(result), nil
}

// randChar picks a random character from charset using crypto/rand.
func randChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, err
	}
	return charset[n.Int64()], nil
}

// secureShuffle performs a Fisher-Yates shuffle using crypto/rand.
func secureShuffle(data []byte) error {
	for i := len(data) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		data[i], data[j.Int64()] = data[j.Int64()], data[i]
	}
	return nil
}

// boolOrDefault returns the dereferenced pointer value, or the fallback if nil.
func boolOrDefault(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
