// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package passkey

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/ledgerly/go-passkey/pkg/storage"
)

// Service implements passkey registration, authentication, and credential
// management on top of a challenge store and a credential store.
type Service struct {
	webAuthn    *webauthn.WebAuthn
	challenges  *ChallengeStore
	credentials *CredentialStore
	config      *Config
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceParams holds the dependencies for creating a Service.
type ServiceParams struct {
	// Config is the passkey configuration. Required.
	Config *Config

	// Backend is the storage backend for challenges and credentials. Required.
	Backend storage.Backend

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewService creates a passkey service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil || params.Backend == nil {
		return nil, ErrNotConfigured
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, WrapError("passkey.NewService", err)
	}

	webAuthn, err := webauthn.New(params.Config.ToWebAuthnConfig())
	if err != nil {
		return nil, WrapError("passkey.NewService", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		webAuthn:    webAuthn,
		challenges:  NewChallengeStore(params.Backend, params.Config.ChallengeTTL),
		credentials: NewCredentialStore(params.Backend, params.Config.AllowCredentialOverwrite),
		config:      params.Config,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Challenges exposes the challenge store, for wiring the cleanup routine.
func (s *Service) Challenges() *ChallengeStore {
	return s.challenges
}

// StartRegistration begins a registration ceremony for the given user.
// It returns the creation options to pass to the client and the ceremony ID
// the client must echo back when finishing. Credentials the user already
// holds are excluded so an authenticator will not re-enroll itself.
func (s *Service) StartRegistration(ctx context.Context, userID, email, displayName string) (*protocol.CredentialCreation, string, error) {
	const op = "passkey.StartRegistration"

	if userID == "" || email == "" {
		return nil, "", WrapError(op, ErrInvalidRequest)
	}

	records, err := s.credentials.GetByUserID(ctx, userID)
	if err != nil {
		return nil, "", WrapError(op, err)
	}
	user := newCeremonyUser(userID, email, displayName, records)

	exclusions := make([]protocol.CredentialDescriptor, len(records))
	for i, rec := range records {
		exclusions[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: rec.CredentialID,
			Transport:    rec.Transport,
		}
	}

	options, session, err := s.webAuthn.BeginRegistration(user, webauthn.WithExclusions(exclusions))
	if err != nil {
		return nil, "", WrapError(op, err)
	}

	challenge, err := s.challenges.Create(ctx, ChallengeRegistration, userID, session)
	if err != nil {
		return nil, "", WrapError(op, err)
	}

	s.logger.Debug("registration started",
		"user_id", userID,
		"challenge_id", challenge.ID,
		"exclusions", len(exclusions))

	return options, challenge.ID, nil
}

// FinishRegistration verifies the client's attestation response against the
// stored challenge and, on success, persists the new credential record.
// The challenge is consumed whether verification succeeds or fails; a failed
// registration attempt restarts from StartRegistration.
func (s *Service) FinishRegistration(ctx context.Context, userID, challengeID, deviceName string, responseJSON []byte) (*CredentialRecord, error) {
	const op = "passkey.FinishRegistration"

	if userID == "" || challengeID == "" {
		return nil, WrapError(op, ErrInvalidRequest)
	}

	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, WrapError(op, err)
	}
	if challenge.Kind != ChallengeRegistration || challenge.UserID != userID {
		// A challenge bound to another ceremony or account looks no different
		// from one that never existed.
		return nil, WrapError(op, ErrChallengeNotFound)
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(responseJSON))
	if err != nil {
		_ = s.challenges.Delete(ctx, challengeID)
		return nil, WrapError(op, ErrInvalidRequest)
	}

	records, err := s.credentials.GetByUserID(ctx, userID)
	if err != nil {
		return nil, WrapError(op, err)
	}
	user := newCeremonyUser(userID, "", "", records)

	wc, err := s.webAuthn.CreateCredential(user, challenge.Session, parsed)
	if err != nil {
		_ = s.challenges.Delete(ctx, challengeID)
		s.logger.Warn("registration verification failed",
			"user_id", userID,
			"challenge_id", challengeID,
			"error", err)
		return nil, WrapError(op, ErrVerificationFailed)
	}

	if err := s.challenges.Delete(ctx, challengeID); err != nil {
		return nil, WrapError(op, err)
	}

	rec := newCredentialRecord(uuid.NewString(), userID, deviceName, wc, s.now().UTC())
	if err := s.credentials.Save(ctx, rec); err != nil {
		return nil, WrapError(op, err)
	}

	s.logger.Info("credential registered",
		"user_id", userID,
		"record_id", rec.ID,
		"device_type", rec.DeviceType,
		"attachment", rec.Attachment)

	return rec, nil
}

// StartAuthentication begins an authentication ceremony. The ceremony is not
// bound to any user; the credential that answers identifies the account.
func (s *Service) StartAuthentication(ctx context.Context) (*protocol.CredentialAssertion, string, error) {
	const op = "passkey.StartAuthentication"

	options, session, err := s.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return nil, "", WrapError(op, err)
	}

	challenge, err := s.challenges.Create(ctx, ChallengeAuthentication, "", session)
	if err != nil {
		return nil, "", WrapError(op, err)
	}

	s.logger.Debug("authentication started", "challenge_id", challenge.ID)

	return options, challenge.ID, nil
}

// FinishAuthentication verifies the client's assertion response against the
// stored challenge. On success the challenge is consumed, the signature
// counter is advanced, and the owning user is returned. A failed verification
// leaves the challenge intact so the client may retry within the TTL.
func (s *Service) FinishAuthentication(ctx context.Context, challengeID string, responseJSON []byte) (*AuthResult, error) {
	const op = "passkey.FinishAuthentication"

	if challengeID == "" {
		return nil, WrapError(op, ErrInvalidRequest)
	}

	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, WrapError(op, err)
	}
	if challenge.Kind != ChallengeAuthentication {
		return nil, WrapError(op, ErrChallengeNotFound)
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(responseJSON))
	if err != nil {
		return nil, WrapError(op, ErrInvalidRequest)
	}

	rec, err := s.credentials.GetByCredentialID(ctx, parsed.RawID)
	if err != nil {
		return nil, WrapError(op, err)
	}
	user := newCeremonyUser(rec.UserID, "", "", []*CredentialRecord{rec})

	// The ceremony was started without a user; bind the session to the
	// resolved owner so the library's handle checks line up.
	session := challenge.Session
	session.UserID = []byte(rec.UserID)

	wc, err := s.webAuthn.ValidateLogin(user, session, parsed)
	if err != nil {
		s.logger.Warn("authentication verification failed",
			"challenge_id", challengeID,
			"error", err)
		return nil, WrapError(op, ErrVerificationFailed)
	}

	next := wc.Authenticator.SignCount
	if err := s.config.checkCounter(rec.SignCount, next); err != nil {
		s.logger.Warn("signature counter did not advance",
			"record_id", rec.ID,
			"stored", rec.SignCount,
			"received", next)
		return nil, WrapError(op, err)
	}

	if err := s.challenges.Delete(ctx, challengeID); err != nil {
		return nil, WrapError(op, err)
	}

	if err := s.credentials.UpdateCounter(ctx, rec.ID, rec.SignCount, next, s.now().UTC()); err != nil {
		return nil, WrapError(op, err)
	}

	s.logger.Info("authentication succeeded",
		"user_id", rec.UserID,
		"record_id", rec.ID,
		"counter", next)

	return &AuthResult{UserID: rec.UserID, Counter: next}, nil
}

// ListCredentials returns summaries of the user's credentials, newest first.
// Summaries never include key material or raw credential IDs.
func (s *Service) ListCredentials(ctx context.Context, userID string) ([]CredentialSummary, error) {
	const op = "passkey.ListCredentials"

	if userID == "" {
		return nil, WrapError(op, ErrInvalidRequest)
	}

	records, err := s.credentials.GetByUserID(ctx, userID)
	if err != nil {
		return nil, WrapError(op, err)
	}

	summaries := make([]CredentialSummary, len(records))
	for i, rec := range records {
		summaries[i] = rec.Summary()
	}
	return summaries, nil
}

// DeleteCredential removes one of the user's credentials. Deleting a record
// owned by another user fails with ErrForbidden and mutates nothing.
func (s *Service) DeleteCredential(ctx context.Context, userID, recordID string) error {
	const op = "passkey.DeleteCredential"

	if userID == "" || recordID == "" {
		return WrapError(op, ErrInvalidRequest)
	}

	rec, err := s.credentials.GetByID(ctx, recordID)
	if err != nil {
		return WrapError(op, err)
	}
	if rec.UserID != userID {
		return WrapError(op, ErrForbidden)
	}

	if err := s.credentials.Delete(ctx, recordID); err != nil {
		return WrapError(op, err)
	}

	s.logger.Info("credential deleted", "user_id", userID, "record_id", recordID)
	return nil
}
