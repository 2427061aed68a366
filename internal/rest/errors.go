// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ledgerly/go-passkey/pkg/passkey"
)

// Error codes returned in the error field of ErrorResponse.
const (
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeUnauthenticated    = "unauthenticated"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodeConflict           = "conflict"
	ErrCodeExpired            = "expired"
	ErrCodeVerificationFailed = "verification_failed"
	ErrCodeInternal           = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeCeremonyError maps a ceremony error to an HTTP response. Verification
// failures collapse into one generic 400: which step failed is never
// disclosed, so the endpoint cannot be used to enumerate credentials or
// probe for live challenges.
func writeCeremonyError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, passkey.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request")
	case errors.Is(err, passkey.ErrChallengeExpired):
		writeError(w, http.StatusGone, ErrCodeExpired, "challenge expired, restart the ceremony")
	case errors.Is(err, passkey.ErrCredentialExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "credential already registered")
	case errors.Is(err, passkey.ErrChallengeNotFound),
		errors.Is(err, passkey.ErrCredentialNotFound),
		errors.Is(err, passkey.ErrVerificationFailed),
		errors.Is(err, passkey.ErrCounterRegression):
		writeError(w, http.StatusBadRequest, ErrCodeVerificationFailed, "verification failed")
	default:
		logger.Error("ceremony error", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// writeManagementError maps a credential-management error. Unlike the
// ceremony path these endpoints are authenticated, so precise not-found and
// forbidden answers are safe and useful.
func writeManagementError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, passkey.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request")
	case errors.Is(err, passkey.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "passkey not found")
	case errors.Is(err, passkey.ErrForbidden):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "passkey belongs to another user")
	default:
		logger.Error("management error", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
