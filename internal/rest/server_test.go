// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/go-passkey/pkg/passkey"
	"github.com/ledgerly/go-passkey/pkg/ratelimit"
	"github.com/ledgerly/go-passkey/pkg/session"
	"github.com/ledgerly/go-passkey/pkg/storage"
)

type testEnv struct {
	handler  http.Handler
	rp       virtualwebauthn.RelyingParty
	sessions *session.Manager
}

func newTestEnv(t *testing.T, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()

	cfg := &passkey.Config{
		RPID:          "example.com",
		RPDisplayName: "Example Corp",
		RPOrigins:     []string{"https://example.com"},
	}

	svc, err := passkey.NewService(passkey.ServiceParams{
		Config:  cfg,
		Backend: storage.NewMemory(),
	})
	require.NoError(t, err)

	sessions, err := session.NewManager([]byte("test-secret-at-least-32-bytes-long"))
	require.NoError(t, err)

	server, err := NewServer(&Config{
		Passkeys: svc,
		Sessions: sessions,
		Limiter:  limiter,
	})
	require.NoError(t, err)

	return &testEnv{
		handler: server.Routes(),
		rp: virtualwebauthn.RelyingParty{
			Name:   cfg.RPDisplayName,
			ID:     cfg.RPID,
			Origin: cfg.RPOrigins[0],
		},
		sessions: sessions,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// startedCeremony holds the wire-level pieces of an in-flight ceremony.
type startedCeremony struct {
	ChallengeID string `json:"challengeId"`
	Options     struct {
		PublicKey json.RawMessage `json:"publicKey"`
	} `json:"options"`
}

// registerOverHTTP drives a full registration through the HTTP surface and
// returns the authenticator and credential for later logins.
func (e *testEnv) registerOverHTTP(t *testing.T, userID, email string) (virtualwebauthn.Authenticator, *virtualwebauthn.Credential) {
	t.Helper()

	authenticator := virtualwebauthn.NewAuthenticatorWithOptions(virtualwebauthn.AuthenticatorOptions{
		UserHandle: []byte(userID),
	})
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	rec := e.do(t, http.MethodPost, "/passkey/register/start", RegisterStartRequest{
		UserID: userID,
		Email:  email,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decodeResponse[startedCeremony](t, rec)

	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(started.Options.PublicKey))
	require.NoError(t, err)
	attestationResponse := virtualwebauthn.CreateAttestationResponse(e.rp, authenticator, credential, *parsedOptions)

	rec = e.do(t, http.MethodPost, "/passkey/register/verify", RegisterVerifyRequest{
		UserID:      userID,
		ChallengeID: started.ChallengeID,
		Response:    json.RawMessage(attestationResponse),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	verified := decodeResponse[RegisterVerifyResponse](t, rec)
	require.True(t, verified.Verified)

	authenticator.AddCredential(credential)
	return authenticator, &credential
}

// authenticateOverHTTP drives a full authentication and returns the recorder
// of the verify call, which carries the session cookie on success.
func (e *testEnv) authenticateOverHTTP(t *testing.T, authenticator virtualwebauthn.Authenticator, credential *virtualwebauthn.Credential) *httptest.ResponseRecorder {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/passkey/authenticate/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decodeResponse[startedCeremony](t, rec)

	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(started.Options.PublicKey))
	require.NoError(t, err)
	assertionResponse := virtualwebauthn.CreateAssertionResponse(e.rp, authenticator, *credential, *parsedOptions)

	return e.do(t, http.MethodPost, "/passkey/authenticate/verify", AuthenticateVerifyRequest{
		ChallengeID: started.ChallengeID,
		Response:    json.RawMessage(assertionResponse),
	})
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestHTTP_RegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t, nil)

	authenticator, credential := env.registerOverHTTP(t, "user-1", "user1@example.com")

	credential.Counter++
	rec := env.authenticateOverHTTP(t, authenticator, credential)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	verified := decodeResponse[AuthenticateVerifyResponse](t, rec)
	assert.True(t, verified.Verified)
	assert.Equal(t, "user-1", verified.UserID)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie, "authenticate/verify must set the session cookie")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 604800, cookie.MaxAge)

	identity, err := env.sessions.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, session.AuthMethodPasskey, identity.AuthMethod)
}

func TestHTTP_RegisterVerifyTamperedChallenge(t *testing.T) {
	env := newTestEnv(t, nil)

	authenticator := virtualwebauthn.NewAuthenticatorWithOptions(virtualwebauthn.AuthenticatorOptions{
		UserHandle: []byte("user-1"),
	})
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	rec1 := env.do(t, http.MethodPost, "/passkey/register/start", RegisterStartRequest{UserID: "user-1", Email: "user1@example.com"})
	require.Equal(t, http.StatusOK, rec1.Code)
	ceremony1 := decodeResponse[startedCeremony](t, rec1)

	rec2 := env.do(t, http.MethodPost, "/passkey/register/start", RegisterStartRequest{UserID: "user-1", Email: "user1@example.com"})
	require.Equal(t, http.StatusOK, rec2.Code)
	ceremony2 := decodeResponse[startedCeremony](t, rec2)

	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(ceremony2.Options.PublicKey))
	require.NoError(t, err)
	attestationResponse := virtualwebauthn.CreateAttestationResponse(env.rp, authenticator, credential, *parsedOptions)

	// The response answers ceremony 2 but claims ceremony 1.
	rec := env.do(t, http.MethodPost, "/passkey/register/verify", RegisterVerifyRequest{
		UserID:      "user-1",
		ChallengeID: ceremony1.ChallengeID,
		Response:    json.RawMessage(attestationResponse),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The error is generic; it never says which check failed.
	errResp := decodeResponse[ErrorResponse](t, rec)
	assert.Equal(t, ErrCodeVerificationFailed, errResp.Error)
}

func TestHTTP_AuthenticateCounterRegression(t *testing.T) {
	env := newTestEnv(t, nil)

	authenticator, credential := env.registerOverHTTP(t, "user-1", "user1@example.com")

	credential.Counter = 1
	rec := env.authenticateOverHTTP(t, authenticator, credential)
	require.Equal(t, http.StatusOK, rec.Code)

	// Replaying counter 1 in a fresh ceremony is rejected with the same
	// generic error as any other verification failure.
	rec = env.authenticateOverHTTP(t, authenticator, credential)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeResponse[ErrorResponse](t, rec)
	assert.Equal(t, ErrCodeVerificationFailed, errResp.Error)
	assert.Nil(t, sessionCookie(rec))
}

func TestHTTP_ListRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/passkey/list", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/passkey/list", nil, &http.Cookie{Name: session.CookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTP_ListNewestFirstWithoutSecrets(t *testing.T) {
	env := newTestEnv(t, nil)

	env.registerOverHTTP(t, "user-1", "user1@example.com")
	time.Sleep(10 * time.Millisecond)
	env.registerOverHTTP(t, "user-1", "user1@example.com")

	token, err := env.sessions.Mint("user-1", session.AuthMethodPasskey)
	require.NoError(t, err)
	cookie := env.sessions.Cookie(token)

	rec := env.do(t, http.MethodGet, "/passkey/list", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeResponse[ListResponse](t, rec)
	require.Len(t, list.Passkeys, 2)
	assert.True(t, !list.Passkeys[0].CreatedAt.Before(list.Passkeys[1].CreatedAt))

	// The raw body never leaks key material or credential identifiers.
	body := rec.Body.String()
	assert.NotContains(t, body, "publicKey")
	assert.NotContains(t, body, "public_key")
	assert.NotContains(t, body, "credential_id")
}

func TestHTTP_DeleteOwnership(t *testing.T) {
	env := newTestEnv(t, nil)

	env.registerOverHTTP(t, "user-b", "b@example.com")

	tokenB, err := env.sessions.Mint("user-b", session.AuthMethodPasskey)
	require.NoError(t, err)
	rec := env.do(t, http.MethodGet, "/passkey/list", nil, env.sessions.Cookie(tokenB))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeResponse[ListResponse](t, rec)
	require.Len(t, list.Passkeys, 1)
	passkeyID := list.Passkeys[0].ID

	// User A cannot delete user B's passkey.
	tokenA, err := env.sessions.Mint("user-a", session.AuthMethodPasskey)
	require.NoError(t, err)
	rec = env.do(t, http.MethodDelete, "/passkey/delete", DeleteRequest{PasskeyID: passkeyID}, env.sessions.Cookie(tokenA))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The record survived the forbidden attempt.
	rec = env.do(t, http.MethodGet, "/passkey/list", nil, env.sessions.Cookie(tokenB))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse[ListResponse](t, rec).Passkeys, 1)

	// The owner can delete it.
	rec = env.do(t, http.MethodDelete, "/passkey/delete", DeleteRequest{PasskeyID: passkeyID}, env.sessions.Cookie(tokenB))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Deleting it again is 404, never a silent success.
	rec = env.do(t, http.MethodDelete, "/passkey/delete", DeleteRequest{PasskeyID: passkeyID}, env.sessions.Cookie(tokenB))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_SessionCreateAndDestroy(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/session/create", SessionCreateRequest{UserID: "user-1", Email: "user1@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	identity, err := env.sessions.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, session.AuthMethodPassword, identity.AuthMethod)

	rec = env.do(t, http.MethodDelete, "/session/create", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestHTTP_SessionCreateRequiresUser(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/session/create", SessionCreateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/passkey/register/start", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_Healthz(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeResponse[HealthResponse](t, rec).Status)
}

func TestHTTP_RateLimitCeremonyEndpoints(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             2,
	})
	defer limiter.Stop()
	env := newTestEnv(t, limiter)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := env.do(t, http.MethodPost, "/passkey/authenticate/start", nil)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Contains(t, codes[2:], http.StatusTooManyRequests)

	// Authenticated management endpoints are not rate limited.
	token, err := env.sessions.Mint("user-1", session.AuthMethodPasskey)
	require.NoError(t, err)
	rec := env.do(t, http.MethodGet, "/passkey/list", nil, env.sessions.Cookie(token))
	assert.Equal(t, http.StatusOK, rec.Code)
}
