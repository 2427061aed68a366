// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package rest

import (
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/ledgerly/go-passkey/pkg/passkey"
)

// RegisterStartRequest is the request body for POST /passkey/register/start.
type RegisterStartRequest struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// RegisterStartResponse carries the creation options and the ceremony ID the
// client echoes back on verify.
type RegisterStartResponse struct {
	ChallengeID string                       `json:"challengeId"`
	Options     *protocol.CredentialCreation `json:"options"`
}

// RegisterVerifyRequest is the request body for POST /passkey/register/verify.
// Response is the authenticator's attestation response, passed through as-is.
type RegisterVerifyRequest struct {
	UserID      string          `json:"userId"`
	ChallengeID string          `json:"challengeId"`
	DeviceName  string          `json:"deviceName,omitempty"`
	Response    json.RawMessage `json:"response"`
}

// RegisterVerifyResponse is the response body for a successful registration.
type RegisterVerifyResponse struct {
	Verified bool   `json:"verified"`
	ID       string `json:"id"`
}

// AuthenticateStartResponse carries the assertion options and the ceremony ID.
type AuthenticateStartResponse struct {
	ChallengeID string                        `json:"challengeId"`
	Options     *protocol.CredentialAssertion `json:"options"`
}

// AuthenticateVerifyRequest is the request body for POST /passkey/authenticate/verify.
type AuthenticateVerifyRequest struct {
	ChallengeID string          `json:"challengeId"`
	Response    json.RawMessage `json:"response"`
}

// AuthenticateVerifyResponse is the response body for a successful
// authentication. The session cookie is set alongside.
type AuthenticateVerifyResponse struct {
	Verified bool   `json:"verified"`
	UserID   string `json:"userId"`
}

// ListResponse is the response body for GET /passkey/list.
type ListResponse struct {
	Passkeys []passkey.CredentialSummary `json:"passkeys"`
}

// DeleteRequest is the request body for DELETE /passkey/delete.
type DeleteRequest struct {
	PasskeyID string `json:"passkeyId"`
}

// SessionCreateRequest is the request body for POST /session/create. It
// bridges non-passkey logins into the same session mechanism.
type SessionCreateRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// SuccessResponse is the generic success body.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
