// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

// Package rest adapts the passkey service and session manager to HTTP.
package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerly/go-passkey/pkg/passkey"
	"github.com/ledgerly/go-passkey/pkg/ratelimit"
	"github.com/ledgerly/go-passkey/pkg/session"
)

// Server is the REST API server.
type Server struct {
	server   *http.Server
	passkeys *passkey.Service
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

// Config holds the REST server configuration.
type Config struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// Passkeys is the passkey service. Required.
	Passkeys *passkey.Service

	// Sessions is the session manager. Required.
	Sessions *session.Manager

	// Limiter rate-limits the unauthenticated ceremony endpoints (optional).
	Limiter *ratelimit.Limiter

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Passkeys == nil {
		return nil, fmt.Errorf("passkey service is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		passkeys: cfg.Passkeys,
		sessions: cfg.Sessions,
		limiter:  cfg.Limiter,
		logger:   logger,
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// Routes builds the router. Exported so tests can drive the full middleware
// stack through httptest without opening a listener.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.LoggingMiddleware())

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/passkey", func(r chi.Router) {
		// Ceremony endpoints are unauthenticated and therefore rate limited.
		r.Group(func(r chi.Router) {
			if s.limiter != nil && s.limiter.IsEnabled() {
				r.Use(ratelimit.Middleware(s.limiter))
			}
			r.Post("/register/start", s.handleRegisterStart)
			r.Post("/register/verify", s.handleRegisterVerify)
			r.Post("/authenticate/start", s.handleAuthenticateStart)
			r.Post("/authenticate/verify", s.handleAuthenticateVerify)
		})

		// Management endpoints require a valid session.
		r.Group(func(r chi.Router) {
			r.Use(s.SessionAuthMiddleware())
			r.Get("/list", s.handleList)
			r.Delete("/delete", s.handleDelete)
		})
	})

	r.Route("/session", func(r chi.Router) {
		r.Post("/create", s.handleSessionCreate)
		r.Delete("/create", s.handleSessionDestroy)
	})

	return r
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("REST server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("rest server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("REST server shutting down")
	return s.server.Shutdown(ctx)
}
