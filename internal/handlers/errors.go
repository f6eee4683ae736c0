/*-------------------------------------------------------------------------
 *
 * errors.go
 *    JSON responses and error mapping
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/handlers/errors.go
 *
 *-------------------------------------------------------------------------
 */

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/neurondb/NeuronApprovals/internal/approval"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/validation"
)

/* ErrorResponse represents an error response */
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Message   string                 `json:"message,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

/* WriteError writes an error response */
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, err error, details map[string]interface{}) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   err.Error(),
		Details:   details,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}

	var validationErr *validation.ValidationError
	if errors.As(err, &validationErr) {
		response.Code = "VALIDATION_ERROR"
		response.Details = map[string]interface{}{
			"field":   validationErr.Field,
			"message": validationErr.Message,
		}
	}

	WriteSuccess(w, response, statusCode)
}

/* WriteSuccess writes a JSON response */
func WriteSuccess(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

/* writeServiceError maps manager errors to status codes; unexpected errors are logged and hidden */
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	switch {
	case errors.Is(err, approval.ErrValidation):
		WriteError(w, r, http.StatusBadRequest, err, nil)
	case errors.Is(err, approval.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, err, nil)
	default:
		logger.WithContext(r.Context()).Error("Request failed", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		WriteError(w, r, http.StatusInternalServerError, errors.New("internal server error"), nil)
	}
}
