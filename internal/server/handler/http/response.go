// Package http provides the HTTP handlers for authentication, vault
// items, secure notes, categories and activity logs.
package http

import (
	"encoding/json"
	"net/http"
)

// writeData wraps a payload in the {"data": ...} envelope.
func writeData(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, map[string]any{"data": payload})
}

// writeError writes the {"error": ...} envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
