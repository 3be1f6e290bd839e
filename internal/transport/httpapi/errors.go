package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/criptofacil/criptofacil/internal/service"
)

const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUnavailable   = "SERVICE_UNAVAILABLE"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{Error: apiError{Code: code, Message: message}})
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func parseJSONBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// respondServiceError maps service sentinel errors to HTTP responses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, service.ErrAlreadyExists):
		respondError(w, http.StatusConflict, ErrCodeConflict, "already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidConsideration),
		errors.Is(err, service.ErrMissingFxRate):
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
	case errors.Is(err, service.ErrCatalogUnavailable):
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "price catalog unavailable")
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}
