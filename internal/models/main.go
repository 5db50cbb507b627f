// Package models defines the shared data types exchanged between the
// client, the HTTP handlers and the persistence layer.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidItem marks item request validation failures so handlers can
// map them to a 400.
var ErrInvalidItem = errors.New("invalid item")

// User represents a registered account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// VaultItem is one stored credential record. The password is opaque to
// the client: only the server can open it, and only when handed the
// master password for the duration of one request.
type VaultItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Ciphertext string    `json:"ciphertext,omitempty"` // base64 nonce||ciphertext
	Salt       string    `json:"-"`                    // server-side only, never serialized
	Note       string    `json:"note"`
	CategoryID string    `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Deleted    bool      `json:"deleted,omitempty"`
}

// Category groups vault items.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActivityLog records one vault-related action.
type ActivityLog struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	ItemID    string    `json:"item_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LogSummary aggregates activity counts per action.
type LogSummary struct {
	Total    int            `json:"total"`
	ByAction map[string]int `json:"by_action"`
}

// RegisterRequest is the JSON payload for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ItemRequest is the JSON payload for creating or updating a vault item.
// MasterPassword is used server-side to derive the item key and is never
// stored.
type ItemRequest struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	Note           string `json:"note"`
	CategoryID     string `json:"category_id"`
	MasterPassword string `json:"master_password"`
}

// DecryptRequest is the JSON payload for POST /vault/{id}/decrypt.
type DecryptRequest struct {
	MasterPassword string `json:"master_password"`
}

// LogRequest is the JSON payload for POST /logs.
type LogRequest struct {
	Action string `json:"action"`
	ItemID string `json:"item_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// CategoryRequest is the JSON payload for POST /categories.
type CategoryRequest struct {
	Name string `json:"name"`
}

// Validate checks the fields required to store an item.
func (r *ItemRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidItem)
	}
	if r.MasterPassword == "" {
		return fmt.Errorf("%w: master password is required", ErrInvalidItem)
	}
	return nil
}
