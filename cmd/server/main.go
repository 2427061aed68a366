// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

// Command server runs the passkey authentication server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerly/go-passkey/internal/config"
	"github.com/ledgerly/go-passkey/internal/rest"
	"github.com/ledgerly/go-passkey/pkg/logging"
	"github.com/ledgerly/go-passkey/pkg/metrics"
	"github.com/ledgerly/go-passkey/pkg/passkey"
	"github.com/ledgerly/go-passkey/pkg/ratelimit"
	"github.com/ledgerly/go-passkey/pkg/session"
	"github.com/ledgerly/go-passkey/pkg/storage"
	"github.com/ledgerly/go-passkey/pkg/storage/file"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML configuration file")
		addr       = flag.String("addr", "", "Listen address (overrides config)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if err := run(*configPath, *addr, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if debug {
		cfg.Log.Debug = true
	}

	logger := logging.New(logging.Options{
		Debug: cfg.Log.Debug,
		JSON:  cfg.Log.JSON,
	})

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	secret := cfg.Session.Secret
	if secret == "" {
		// Development only; config.Validate rejects this in production.
		secret = randomSecret()
		logger.Warn("no session secret configured, using an ephemeral one; sessions will not survive restarts")
	}

	sessions, err := session.NewManager([]byte(secret),
		session.WithTTL(cfg.Session.TTL.Std()),
		session.WithIssuer(cfg.Session.Issuer),
		session.WithSecureCookies(cfg.IsProduction() || cfg.Session.SecureCookies),
	)
	if err != nil {
		return err
	}

	passkeys, err := passkey.NewService(passkey.ServiceParams{
		Config:  cfg.PasskeyConfig(),
		Backend: backend,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	stopCleanup := passkeys.Challenges().StartCleanupRoutine(
		context.Background(), cfg.PasskeyConfig().ChallengeTTL, metrics.RecordChallengesSwept)
	defer stopCleanup()

	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	})
	defer limiter.Stop()

	server, err := rest.NewServer(&rest.Config{
		Addr:         cfg.Server.Addr,
		Passkeys:     passkeys,
		Sessions:     sessions,
		Limiter:      limiter,
		Logger:       logger,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("signal received, shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "file":
		return file.New(cfg.Storage.Dir)
	default:
		return storage.NewMemory(), nil
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
