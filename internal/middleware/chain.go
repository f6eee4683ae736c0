/*-------------------------------------------------------------------------
 *
 * chain.go
 *    Named middleware stacks
 *
 * The admin interface and API take their middleware from configuration
 * by name, in order.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/middleware/chain.go
 *
 *-------------------------------------------------------------------------
 */

package middleware

import (
	"fmt"
	"net/http"

	"github.com/neurondb/NeuronApprovals/internal/auth"
	"github.com/neurondb/NeuronApprovals/internal/logging"
)

/* Known middleware names */
const (
	NameRequestID = "requestid"
	NameRecovery  = "recovery"
	NameLogging   = "logging"
	NameRateLimit = "ratelimit"
	NameAuth      = "auth"
)

/* Deps are the collaborators named middleware need */
type Deps struct {
	Logger  *logging.Logger
	Signer  *auth.Signer
	Limiter *RateLimiter
}

/* Build resolves names to middleware, outermost first */
func Build(names []string, deps Deps) ([]func(http.Handler) http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	stack := make([]func(http.Handler) http.Handler, 0, len(names))
	for _, name := range names {
		switch name {
		case NameRequestID:
			stack = append(stack, RequestIDMiddleware())
		case NameRecovery:
			stack = append(stack, RecoveryMiddleware(logger))
		case NameLogging:
			stack = append(stack, LoggingMiddleware(logger))
		case NameRateLimit:
			if deps.Limiter == nil {
				return nil, fmt.Errorf("middleware %q requires a rate limiter", name)
			}
			stack = append(stack, RateLimitMiddleware(deps.Limiter))
		case NameAuth:
			if deps.Signer == nil {
				return nil, fmt.Errorf("middleware %q requires auth.jwt_secret", name)
			}
			stack = append(stack, JWTMiddleware(deps.Signer))
		default:
			return nil, fmt.Errorf("unknown middleware: %s", name)
		}
	}
	return stack, nil
}

/* Chain wraps h so that stack[0] runs first */
func Chain(h http.Handler, stack ...func(http.Handler) http.Handler) http.Handler {
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}
	return h
}
