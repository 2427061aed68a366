// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ledgerly/go-passkey/pkg/metrics"
	"github.com/ledgerly/go-passkey/pkg/session"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the session identity set by SessionAuthMiddleware.
func IdentityFromContext(ctx context.Context) *session.Identity {
	identity, _ := ctx.Value(identityKey).(*session.Identity)
	return identity
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// LoggingMiddleware logs completed requests and records HTTP metrics.
func (s *Server) LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			s.logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration", duration.String())
			metrics.RecordHTTPRequest(r.Method, strconv.Itoa(wrapped.statusCode), duration.Seconds())
		})
	}
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func (s *Server) RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					s.logger.Error("panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
						"error", err)
					writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SessionAuthMiddleware validates the session cookie and stores the identity
// in the request context. Requests without a valid session get 401.
func (s *Server) SessionAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, "session required")
				return
			}

			identity, err := s.sessions.Validate(cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, "session expired")
					return
				}
				writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, "invalid session")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
