package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/icdtuning/garage/internal/db"
	"github.com/icdtuning/garage/internal/middleware"
	"github.com/icdtuning/garage/internal/models"
	"github.com/icdtuning/garage/internal/validation"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// errorBody is the error payload the dashboard reads.
type errorBody struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// attachment builds a Content-Disposition value, quoting or encoding
// filename as needed.
func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeValidationError maps core validation errors onto 400 responses. It
// reports false when err is not a validation error.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: verr.Error(), Field: verr.Field})
		return true
	}
	var serr *models.InvalidStatusError
	if errors.As(err, &serr) {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: serr.Error(), Field: "status"})
		return true
	}
	return false
}

// writeStoreError logs unexpected storage errors and answers 404 for
// missing documents.
func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	log.WithError(err).Error("Database operation failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// readBody reads a size-limited request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}

// decodeJSON reads the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// decodePayload reads a JSON object keeping numbers as json.Number, the form
// the job validator coerces from.
func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return nil, false
	}
	return payload, true
}

// currentUser returns the caller's claims, answering 401 when absent.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "User context not found")
		return nil, false
	}
	return claims, true
}
