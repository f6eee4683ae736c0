/*-------------------------------------------------------------------------
 *
 * router.go
 *    HTTP routing for the approvals server
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/handlers/router.go
 *
 *-------------------------------------------------------------------------
 */

package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/neurondb/NeuronApprovals/internal/approval"
	"github.com/neurondb/NeuronApprovals/internal/auth"
	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/events"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/metrics"
	"github.com/neurondb/NeuronApprovals/internal/middleware"
)

/* RouterDeps are the collaborators of the HTTP surface */
type RouterDeps struct {
	Config  *config.Config
	DB      *sqlx.DB
	Manager *approval.Manager
	Broker  *events.Broker
	Signer  *auth.Signer
	Limiter *middleware.RateLimiter
	Logger  *logging.Logger
}

/* NewRouter builds /health, metrics, /api/v1 and the admin interface */
func NewRouter(deps RouterDeps) (*mux.Router, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	mwDeps := middleware.Deps{Logger: logger, Signer: deps.Signer, Limiter: deps.Limiter}

	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler(deps.DB)).Methods(http.MethodGet)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler()).Methods(http.MethodGet)
	}

	apiNames := []string{middleware.NameRequestID, middleware.NameRecovery, middleware.NameLogging}
	if deps.Limiter != nil {
		apiNames = append(apiNames, middleware.NameRateLimit)
	}
	if deps.Signer != nil {
		apiNames = append(apiNames, middleware.NameAuth)
	}
	apiStack, err := middleware.Build(apiNames, mwDeps)
	if err != nil {
		return nil, err
	}
	api := router.PathPrefix("/api/v1").Subrouter()
	for _, mw := range apiStack {
		api.Use(mux.MiddlewareFunc(mw))
	}
	NewAPIHandlers(deps.Manager, cfg.Admin.PerPage, logger).RegisterRoutes(api)

	adminStack, err := middleware.Build(cfg.Admin.Middleware, mwDeps)
	if err != nil {
		return nil, err
	}
	adminPages, err := NewAdminHandlers(deps.Manager, cfg, logger)
	if err != nil {
		return nil, err
	}
	admin := router.PathPrefix(strings.TrimRight(cfg.Admin.Route, "/")).Subrouter()
	for _, mw := range adminStack {
		admin.Use(mux.MiddlewareFunc(mw))
	}
	if deps.Broker != nil {
		admin.Handle("/ws", NewLiveFeed(deps.Broker, nil, logger)).Methods(http.MethodGet)
	}
	adminPages.RegisterRoutes(admin)

	return router, nil
}

func healthHandler(database *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "ok"}
		code := http.StatusOK
		if database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := database.PingContext(ctx); err != nil {
				status["status"] = "unhealthy"
				status["database"] = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				status["database"] = "ok"
			}
		}
		WriteSuccess(w, status, code)
	}
}
