// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ledgerly/go-passkey/pkg/metrics"
	"github.com/ledgerly/go-passkey/pkg/passkey"
	"github.com/ledgerly/go-passkey/pkg/session"
)

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "malformed request body")
		return false
	}
	return true
}

// handleRegisterStart begins a registration ceremony.
func (s *Server) handleRegisterStart(w http.ResponseWriter, r *http.Request) {
	var req RegisterStartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	options, challengeID, err := s.passkeys.StartRegistration(r.Context(), req.UserID, req.Email, req.DisplayName)
	if err != nil {
		writeCeremonyError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RegisterStartResponse{
		ChallengeID: challengeID,
		Options:     options,
	})
}

// handleRegisterVerify completes a registration ceremony.
func (s *Server) handleRegisterVerify(w http.ResponseWriter, r *http.Request) {
	var req RegisterVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	rec, err := s.passkeys.FinishRegistration(r.Context(), req.UserID, req.ChallengeID, req.DeviceName, req.Response)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.StatusError, time.Since(start).Seconds())
		metrics.RecordVerificationFailure(metrics.CeremonyRegistration, failureReason(err))
		writeCeremonyError(w, s.logger, err)
		return
	}
	metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.StatusSuccess, time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, RegisterVerifyResponse{Verified: true, ID: rec.ID})
}

// handleAuthenticateStart begins an authentication ceremony.
func (s *Server) handleAuthenticateStart(w http.ResponseWriter, r *http.Request) {
	options, challengeID, err := s.passkeys.StartAuthentication(r.Context())
	if err != nil {
		writeCeremonyError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthenticateStartResponse{
		ChallengeID: challengeID,
		Options:     options,
	})
}

// handleAuthenticateVerify completes an authentication ceremony and sets the
// session cookie.
func (s *Server) handleAuthenticateVerify(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := s.passkeys.FinishAuthentication(r.Context(), req.ChallengeID, req.Response)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.StatusError, time.Since(start).Seconds())
		metrics.RecordVerificationFailure(metrics.CeremonyAuthentication, failureReason(err))
		writeCeremonyError(w, s.logger, err)
		return
	}
	metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.StatusSuccess, time.Since(start).Seconds())

	token, err := s.sessions.Mint(result.UserID, session.AuthMethodPasskey)
	if err != nil {
		s.logger.Error("session mint failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		return
	}

	http.SetCookie(w, s.sessions.Cookie(token))
	writeJSON(w, http.StatusOK, AuthenticateVerifyResponse{Verified: true, UserID: result.UserID})
}

// handleList returns the authenticated user's passkeys, newest first.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	summaries, err := s.passkeys.ListCredentials(r.Context(), identity.UserID)
	if err != nil {
		writeManagementError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Passkeys: summaries})
}

// handleDelete removes one of the authenticated user's passkeys.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	var req DeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.passkeys.DeleteCredential(r.Context(), identity.UserID, req.PasskeyID); err != nil {
		writeManagementError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleSessionCreate bridges non-passkey logins into the session mechanism.
// The caller is trusted infrastructure (the password login path), not the
// public internet; deployments must not expose it unauthenticated.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "userId is required")
		return
	}

	token, err := s.sessions.Mint(req.UserID, session.AuthMethodPassword)
	if err != nil {
		s.logger.Error("session mint failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		return
	}

	http.SetCookie(w, s.sessions.Cookie(token))
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleSessionDestroy clears the session cookie. Tokens already issued
// remain valid until expiry; there is no server-side revocation store.
func (s *Server) handleSessionDestroy(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.sessions.ClearCookie())
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, passkey.ErrChallengeNotFound):
		return "challenge_not_found"
	case errors.Is(err, passkey.ErrChallengeExpired):
		return "challenge_expired"
	case errors.Is(err, passkey.ErrCredentialNotFound):
		return "credential_not_found"
	case errors.Is(err, passkey.ErrCredentialExists):
		return "credential_exists"
	case errors.Is(err, passkey.ErrCounterRegression):
		return "counter_regression"
	case errors.Is(err, passkey.ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, passkey.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
