// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package passkey

import (
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// ChallengeKind distinguishes registration from authentication ceremonies.
type ChallengeKind string

const (
	// ChallengeRegistration marks a challenge issued for a registration ceremony.
	ChallengeRegistration ChallengeKind = "registration"

	// ChallengeAuthentication marks a challenge issued for an authentication ceremony.
	ChallengeAuthentication ChallengeKind = "authentication"
)

// Credential device types, mirroring the WebAuthn backup-eligibility split.
const (
	DeviceTypeSingle = "singleDevice"
	DeviceTypeMulti  = "multiDevice"
)

// Challenge is the short-lived state of one ceremony: the random nonce plus
// the WebAuthn session data needed to verify the client's response. Keyed by
// a uniformly generated ceremony ID for both registration and authentication,
// so concurrent ceremonies never collide.
type Challenge struct {
	// ID is the ceremony identifier returned to the client.
	ID string `json:"id"`

	// Kind is the ceremony type this challenge was issued for.
	Kind ChallengeKind `json:"kind"`

	// UserID binds a registration challenge to the account being enrolled.
	// Empty for authentication challenges (any credential may answer).
	UserID string `json:"user_id,omitempty"`

	// Session is the WebAuthn session data, including the random challenge.
	Session webauthn.SessionData `json:"session"`

	// CreatedAt is when the challenge was issued.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the challenge stops being acceptable.
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the challenge is past its TTL at the given time.
func (c *Challenge) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// CredentialRecord is the durable server-side half of a passkey: the public
// key and the metadata needed to verify assertions and detect cloning.
type CredentialRecord struct {
	// ID is the record identifier exposed to credential-management callers.
	ID string `json:"id"`

	// UserID is the owning account. Immutable after creation.
	UserID string `json:"user_id"`

	// CredentialID is the identifier assigned by the authenticator,
	// globally unique across the store.
	CredentialID []byte `json:"credential_id"`

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// AttestationType indicates the type of attestation used at registration.
	AttestationType string `json:"attestation_type"`

	// Transport lists the transports supported by the authenticator.
	Transport []protocol.AuthenticatorTransport `json:"transport,omitempty"`

	// Flags contains authenticator capability flags.
	Flags CredentialFlags `json:"flags"`

	// AAGUID is the authenticator's model identifier.
	AAGUID []byte `json:"aaguid,omitempty"`

	// Attachment indicates how the authenticator is attached.
	Attachment protocol.AuthenticatorAttachment `json:"attachment,omitempty"`

	// SignCount is the signature counter, monotonic non-decreasing.
	SignCount uint32 `json:"sign_count"`

	// DeviceType is "singleDevice" or "multiDevice" (backup-eligible).
	DeviceType string `json:"device_type"`

	// BackedUp indicates the credential is currently backed up.
	BackedUp bool `json:"backed_up"`

	// DeviceName is the user-facing label for this passkey.
	DeviceName string `json:"device_name"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last verified an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// CredentialFlags contains authenticator capability flags.
type CredentialFlags struct {
	UserPresent    bool `json:"user_present"`
	UserVerified   bool `json:"user_verified"`
	BackupEligible bool `json:"backup_eligible"`
	BackupState    bool `json:"backup_state"`
}

// ToWebAuthn converts a CredentialRecord to the go-webauthn Credential type.
func (r *CredentialRecord) ToWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:              r.CredentialID,
		PublicKey:       r.PublicKey,
		AttestationType: r.AttestationType,
		Transport:       r.Transport,
		Flags: webauthn.CredentialFlags{
			UserPresent:    r.Flags.UserPresent,
			UserVerified:   r.Flags.UserVerified,
			BackupEligible: r.Flags.BackupEligible,
			BackupState:    r.Flags.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:     r.AAGUID,
			SignCount:  r.SignCount,
			Attachment: r.Attachment,
		},
	}
}

// Summary strips key material and authenticator identifiers from a record,
// leaving only what credential-management responses may expose.
func (r *CredentialRecord) Summary() CredentialSummary {
	return CredentialSummary{
		ID:         r.ID,
		DeviceName: r.DeviceName,
		DeviceType: r.DeviceType,
		BackedUp:   r.BackedUp,
		CreatedAt:  r.CreatedAt,
		LastUsedAt: r.LastUsedAt,
	}
}

// CredentialSummary is the public projection of a CredentialRecord. It never
// carries the public key or the raw credential ID.
type CredentialSummary struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"deviceName"`
	DeviceType string    `json:"credentialDeviceType"`
	BackedUp   bool      `json:"credentialBackedUp"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt,omitzero"`
}

// AuthResult is the outcome of a successful authentication ceremony.
type AuthResult struct {
	// UserID is the owner of the credential that answered the challenge.
	UserID string

	// Counter is the signature counter after the update.
	Counter uint32
}

// ceremonyUser adapts an application user ID and its stored credentials to
// the webauthn.User interface for the duration of one ceremony. The
// application owns the user model; this core only needs the handle.
type ceremonyUser struct {
	id          []byte
	name        string
	displayName string
	credentials []webauthn.Credential
}

func newCeremonyUser(userID, email, displayName string, records []*CredentialRecord) *ceremonyUser {
	creds := make([]webauthn.Credential, len(records))
	for i, r := range records {
		creds[i] = r.ToWebAuthn()
	}
	if displayName == "" {
		displayName = email
	}
	return &ceremonyUser{
		id:          []byte(userID),
		name:        email,
		displayName: displayName,
		credentials: creds,
	}
}

func (u *ceremonyUser) WebAuthnID() []byte { return u.id }

func (u *ceremonyUser) WebAuthnName() string { return u.name }

func (u *ceremonyUser) WebAuthnDisplayName() string { return u.displayName }

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

// newCredentialRecord builds a CredentialRecord from a freshly verified
// registration credential.
func newCredentialRecord(id, userID, deviceName string, wc *webauthn.Credential, now time.Time) *CredentialRecord {
	deviceType := DeviceTypeSingle
	if wc.Flags.BackupEligible {
		deviceType = DeviceTypeMulti
	}
	if deviceName == "" {
		deviceName = defaultDeviceName(wc)
	}

	return &CredentialRecord{
		ID:              id,
		UserID:          userID,
		CredentialID:    wc.ID,
		PublicKey:       wc.PublicKey,
		AttestationType: wc.AttestationType,
		Transport:       wc.Transport,
		Flags: CredentialFlags{
			UserPresent:    wc.Flags.UserPresent,
			UserVerified:   wc.Flags.UserVerified,
			BackupEligible: wc.Flags.BackupEligible,
			BackupState:    wc.Flags.BackupState,
		},
		AAGUID:     wc.Authenticator.AAGUID,
		Attachment: wc.Authenticator.Attachment,
		SignCount:  wc.Authenticator.SignCount,
		DeviceType: deviceType,
		BackedUp:   wc.Flags.BackupState,
		DeviceName: deviceName,
		CreatedAt:  now,
	}
}

func defaultDeviceName(wc *webauthn.Credential) string {
	if wc.Authenticator.Attachment == protocol.Platform {
		return "Platform authenticator"
	}
	return "Security key"
}
