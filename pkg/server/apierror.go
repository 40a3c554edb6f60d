package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIError is an error returned by API routes as JSON
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	statusCode int
}

// Errors returned by the API routes
var (
	errStatusServiceNameEmpty = APIError{
		Code:       "service_name_empty",
		Message:    "The service name is empty",
		statusCode: http.StatusBadRequest,
	}
	errStatusServiceNotFound = APIError{
		Code:       "service_not_found",
		Message:    "No service found with the given name",
		statusCode: http.StatusNotFound,
	}
)

// WriteResponse writes the error to the response writer as JSON
func (e APIError) WriteResponse(ctx context.Context, w http.ResponseWriter) {
	w.Header().Set(headerContentType, jsonContentType)
	w.WriteHeader(e.statusCode)

	err := json.NewEncoder(w).Encode(e)
	if err != nil {
		slog.WarnContext(ctx, "Error writing JSON error response", slog.Any("error", err))
	}
}
