/*-------------------------------------------------------------------------
 *
 * requestid.go
 *    Request ID middleware
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/middleware/requestid.go
 *
 *-------------------------------------------------------------------------
 */

package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/neurondb/NeuronApprovals/internal/logging"
)

/* RequestIDHeader is read from the request and echoed on the response */
const RequestIDHeader = "X-Request-Id"

/* RequestIDMiddleware adds a request ID to each request */
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
		})
	}
}
