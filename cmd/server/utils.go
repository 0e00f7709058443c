package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/lychee-technology/sift"
)

// APIResponse is the standard response format
type APIResponse struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Reason  string                 `json:"reason,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeSiftError maps pipeline error types onto HTTP statuses while
// preserving the machine-readable code and reason in the body.
func writeSiftError(w http.ResponseWriter, err error) error {
	se, ok := sift.AsSiftError(err)
	if !ok {
		return writeError(w, http.StatusInternalServerError, err.Error())
	}

	status := http.StatusInternalServerError
	switch se.Type {
	case sift.ErrorTypeInput:
		status = http.StatusBadRequest
	case sift.ErrorTypeUpstream:
		status = http.StatusBadGateway
	case sift.ErrorTypeMalformed:
		status = http.StatusBadGateway
	case sift.ErrorTypeUnresolvable:
		status = http.StatusUnprocessableEntity
	}

	return writeJSON(w, status, APIResponse{
		Success: false,
		Error:   se.Message,
		Code:    se.Code,
		Reason:  se.Reason,
		Details: se.Details,
	})
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseEntityPath extracts the entity segment from /api/v1/rows/{entity}.
func parseEntityPath(path string) (sift.Entity, error) {
	const prefix = "/api/v1/rows/"
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", fmt.Errorf("expected /api/v1/rows/{entity}")
	}
	entity := sift.Entity(rest)
	if !entity.Valid() {
		return "", fmt.Errorf("unknown entity %q", rest)
	}
	return entity, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
