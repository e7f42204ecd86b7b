package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	StatusCode int       `json:"httpStatusCode"`
	Status     string    `json:"httpStatus"`
	Error      string    `json:"error"`   // Machine-readable error code
	Message    string    `json:"message"` // Human-readable message
	Details    string    `json:"details,omitempty"`
}

// MessageResponse is the body of successful requests that return no resource
type MessageResponse struct {
	StatusCode int    `json:"httpStatusCode"`
	Status     string `json:"httpStatus"`
	Message    string `json:"message"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

// WriteMessage writes a MessageResponse
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, MessageResponse{
		StatusCode: statusCode,
		Status:     statusName(statusCode),
		Message:    message,
	})
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Timestamp:  time.Now().UTC(),
		StatusCode: statusCode,
		Status:     statusName(statusCode),
		Error:      errorCode,
		Message:    message,
		Details:    details,
	})
}

// statusName renders 404 as "NOT_FOUND"
func statusName(statusCode int) string {
	return strings.ReplaceAll(strings.ToUpper(http.StatusText(statusCode)), " ", "_")
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteUnsupportedMediaType(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

func WriteBadGateway(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, "bad_gateway", message)
}
