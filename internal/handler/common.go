package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dangerclosesec/pivot/internal/domain"
	chmw "github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

type ErrorResponse struct { // TypeGen: ErrorResponse
	BaseResponse
	Error   string    `json:"error"`
	Details *[]string `json:"details,omitempty"`
	Code    *string   `json:"error_code,omitempty"`
}

type BaseResponse struct { // TypeGen: DefaultResponse
	Ok bool `json:"ok"`
}

// decodeJSON reads a JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// respondWithDomainError maps service errors onto HTTP statuses
func respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownField):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrCompile):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrReportNotFound), errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, "Report not found"
	case errors.Is(err, domain.ErrStoreDisabled):
		status, message = http.StatusServiceUnavailable, "Report store is disabled"
	case errors.Is(err, domain.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Unauthorized"
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "requestID", chmw.GetReqID(r.Context()))
	}

	code := errorCode(err)
	respondWithJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func errorCode(err error) *string {
	var code string
	switch {
	case errors.Is(err, domain.ErrUnknownField):
		code = "unknown_field"
	case errors.Is(err, domain.ErrCompile):
		code = "compile_error"
	case errors.Is(err, domain.ErrInvalidInput):
		code = "invalid_input"
	default:
		return nil
	}
	return &code
}

// respondWithError sends an error response with a message
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	// Sets content type header
	w.Header().Set("Content-Type", "application/json")

	// Sets the HTTP status code
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
