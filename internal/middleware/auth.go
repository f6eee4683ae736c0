/*-------------------------------------------------------------------------
 *
 * auth.go
 *    JWT authentication middleware
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/middleware/auth.go
 *
 *-------------------------------------------------------------------------
 */

package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/neurondb/NeuronApprovals/internal/auth"
)

/* JWTMiddleware rejects requests without a valid bearer token and stores the claims */
func JWTMiddleware(signer *auth.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			/* Browser websockets cannot set headers; accept ?token= on /ws only */
			if authHeader == "" && strings.HasSuffix(r.URL.Path, "/ws") {
				if token := r.URL.Query().Get("token"); token != "" {
					authHeader = "Bearer " + token
				}
			}

			token, err := auth.ExtractToken(authHeader)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			claims, err := signer.ValidateToken(token)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetClaims(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
