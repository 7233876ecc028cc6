// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

/*
Package api assembles the HTTP surface of the Credo service.

It builds the chi router with the platform middleware chain, mounts the
domain handlers, and runs the http.Server with graceful shutdown.
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mahirlabib/credo/internal/auth"
	"github.com/mahirlabib/credo/internal/platform/config"
	"github.com/mahirlabib/credo/internal/platform/constants"
	"github.com/mahirlabib/credo/internal/platform/middleware"
)

// Server wires the router and owns the http.Server lifecycle.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Dependencies carries everything the router needs, wired by the
// composition root.
type Dependencies struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	Redis       *goredis.Client // nil when Redis is not configured
	AuthHandler *auth.Handler
}

// New builds the fully assembled server.
func New(ctx context.Context, deps Dependencies) *Server {
	router := chi.NewRouter()

	// Platform middleware chain. Order matters: request id and logging
	// first so every later stage (including panics) is attributable.
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(deps.Logger))
	router.Use(middleware.PanicRecovery(deps.Logger))
	router.Use(middleware.CORS(deps.Config))
	router.Use(middleware.BurstLimit(ctx))
	router.Use(chimiddleware.CleanPath)
	router.Use(chimiddleware.Timeout(constants.GlobalRequestTimeout))

	// Health probes sit outside the auth surface and its limiter gates.
	health := &HealthHandler{Pool: deps.Pool, Redis: deps.Redis}
	router.Get("/livez", health.Liveness)
	router.Get("/readyz", health.Readiness)

	router.Route("/api/v1", func(apiRouter chi.Router) {
		apiRouter.Mount("/auth", deps.AuthHandler.Routes())
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + deps.Config.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
		},
		logger: deps.Logger,
	}
}

// Run serves until the context is cancelled, then drains in-flight requests
// within [constants.ShutdownTimeout].
func (server *Server) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)

	go func() {
		server.logger.Info("http server listening", slog.String("addr", server.httpServer.Addr))
		if err := server.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	server.logger.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := server.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown failed: %w", err)
	}

	server.logger.Info("http server stopped")
	return <-serveErr
}
