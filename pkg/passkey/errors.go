// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for passkey operations.
var (
	// ErrInvalidRequest is returned when required identity fields are missing
	// or the request is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrChallengeNotFound is returned when a ceremony challenge cannot be
	// found. A consumed challenge is indistinguishable from one that never
	// existed.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a ceremony challenge is past its
	// TTL. The challenge is deleted before this error is reported.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrCredentialNotFound is returned when a credential record cannot be found.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialExists is returned when registering a credential whose
	// credential ID is already present in the store.
	ErrCredentialExists = errors.New("credential already registered")

	// ErrVerificationFailed is returned when an attestation or assertion
	// response fails verification.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrCounterRegression is returned when an assertion reports a signature
	// counter that did not advance, signaling a possibly cloned authenticator.
	// The credential is not disabled; that decision belongs to the caller.
	ErrCounterRegression = errors.New("signature counter regression")

	// ErrForbidden is returned when an operation targets a credential owned
	// by a different user.
	ErrForbidden = errors.New("credential owned by another user")

	// ErrNotConfigured is returned when the service is missing dependencies.
	ErrNotConfigured = errors.New("passkey service not configured")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsChallengeNotFound returns true if the error indicates a missing challenge.
func IsChallengeNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound)
}

// IsChallengeExpired returns true if the error indicates an expired challenge.
func IsChallengeExpired(err error) bool {
	return errors.Is(err, ErrChallengeExpired)
}

// IsVerificationFailed returns true if the error indicates a failed ceremony.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}

// IsCounterRegression returns true if the error indicates a counter regression.
func IsCounterRegression(err error) bool {
	return errors.Is(err, ErrCounterRegression)
}
