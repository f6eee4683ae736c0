/*-------------------------------------------------------------------------
 *
 * main.go
 *    Main entry point for the NeuronApprovals server
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/cmd/server/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neurondb/NeuronApprovals/internal/app"
	"github.com/neurondb/NeuronApprovals/internal/auth"
	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/handlers"
	"github.com/neurondb/NeuronApprovals/internal/middleware"
)

var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

const eventSource = "approvals"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to configuration file")
	)
	flag.StringVar(configPath, "c", "", "Path to configuration file (short)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "NeuronApprovals Server - contact based approval workflow\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfiguration:\n")
		fmt.Fprintf(os.Stderr, "  -c/--config, then CONFIG_PATH, then %s_* environment variables\n", config.EnvPrefix)
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("neuronapprovals version %s\n", version)
		fmt.Printf("Build date: %s\n", buildDate)
		fmt.Printf("Git commit: %s\n", gitCommit)
		os.Exit(0)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}

	if err := run(cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, eventSource)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Shutdown cleanup failed", err, nil)
		}
	}()

	/* Cross-process events reach the live feed through the backends */
	if err := a.StartBridge(ctx); err != nil {
		logger.Warn("Event bridge unavailable", map[string]interface{}{"error": err.Error()})
	}

	var signer *auth.Signer
	if cfg.Auth.JWTSecret != "" {
		signer, err = auth.NewSigner(cfg.Auth.JWTSecret, 0)
		if err != nil {
			return err
		}
	}

	var limiter *middleware.RateLimiter
	for _, name := range cfg.Admin.Middleware {
		if name == middleware.NameRateLimit {
			limiter = middleware.NewRateLimiter(120, time.Minute)
			defer limiter.Stop()
			break
		}
	}

	router, err := handlers.NewRouter(handlers.RouterDeps{
		Config:  cfg,
		DB:      a.DB,
		Manager: a.Manager,
		Broker:  a.Broker,
		Signer:  signer,
		Limiter: limiter,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", map[string]interface{}{
			"address":     srv.Addr,
			"admin_route": cfg.Admin.Route,
			"version":     version,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed on %s: %w", srv.Addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err, nil)
	}
	logger.Info("Server exited", nil)
	return nil
}
