// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

// Package session mints and validates the signed tokens that carry a logged-in
// identity between requests. Tokens are HMAC-signed JWTs delivered in an
// httpOnly cookie; the server keeps no session state.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// DefaultTTL is the default session lifetime.
const DefaultTTL = 7 * 24 * time.Hour

// Authentication methods recorded in the token.
const (
	AuthMethodPasskey  = "passkey"
	AuthMethodPassword = "password"
)

var (
	// ErrMissingSecret is returned when the manager is created without a secret.
	ErrMissingSecret = errors.New("session secret is required")

	// ErrInvalidToken is returned when a token cannot be parsed or fails
	// signature verification.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("session token expired")
)

// Identity is the authenticated identity carried by a session token.
type Identity struct {
	// UserID is the authenticated account.
	UserID string

	// AuthMethod is how the session was established, e.g. "passkey".
	AuthMethod string

	// IssuedAt is when the token was minted.
	IssuedAt time.Time

	// ExpiresAt is when the token expires.
	ExpiresAt time.Time
}

type claims struct {
	AuthMethod string `json:"amr,omitempty"`
	jwt.RegisteredClaims
}

// Manager mints and validates session tokens with a shared HMAC secret.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithIssuer sets the iss claim on minted tokens.
func WithIssuer(issuer string) Option {
	return func(m *Manager) { m.issuer = issuer }
}

// WithSecureCookies marks issued cookies Secure, for TLS deployments.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// NewManager creates a session manager. The secret must be non-empty.
func NewManager(secret []byte, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	m := &Manager{
		secret: secret,
		issuer: "go-passkey",
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Mint creates a signed session token for the given user.
func (m *Manager) Mint(userID, authMethod string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("mint session: user ID is required")
	}

	now := m.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		AuthMethod: authMethod,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("mint session: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session token, returning the identity it
// carries. Expired tokens yield ErrTokenExpired; any other defect yields
// ErrInvalidToken.
func (m *Manager) Validate(tokenString string) (*Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}

	identity := &Identity{
		UserID:     c.Subject,
		AuthMethod: c.AuthMethod,
	}
	if c.IssuedAt != nil {
		identity.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		identity.ExpiresAt = c.ExpiresAt.Time
	}
	return identity, nil
}

// Cookie wraps a minted token in the session cookie: httpOnly, sameSite=lax,
// path=/, max-age equal to the session lifetime.
func (m *Manager) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie returns a cookie that removes the session from the client.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
