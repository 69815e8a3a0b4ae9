package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/demoseed/treeseed/pkg/nestedset"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// StatusForIndexError maps indexer errors to an HTTP status and error code.
// Anything that is not a known input problem is a 500.
func StatusForIndexError(err error) (int, string) {
	if code := nestedset.ErrorCode(err); code != "" {
		return http.StatusUnprocessableEntity, code
	}
	return http.StatusInternalServerError, "internal_error"
}

func WriteIndexError(w http.ResponseWriter, err error, meta map[string]string) (int, error) {
	status, code := StatusForIndexError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	return status, WriteError(w, status, code, message, meta)
}
