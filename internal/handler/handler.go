// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/linksnip/linksnip/internal/handler/dto"
)

// NotFound handles 404 responses for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = err
	}
}

// writeError writes an operational error body. The status field is
// "fail" for client errors and "error" for everything else.
func writeError(w http.ResponseWriter, status int, message string) {
	statusWord := "error"
	if status >= 400 && status < 500 {
		statusWord = "fail"
	}
	writeJSON(w, status, dto.ErrorResponse{
		Status:  statusWord,
		Message: message,
	})
}
