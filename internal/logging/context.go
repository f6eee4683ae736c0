/*-------------------------------------------------------------------------
 *
 * context.go
 *    Log context helpers
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/logging/context.go
 *
 *-------------------------------------------------------------------------
 */

package logging

import "context"

type contextKey string

const requestIDKey contextKey = "request_id"

/* WithRequestID stores the request id used by WithContext */
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

/* RequestIDFromContext gets the request id from context */
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
