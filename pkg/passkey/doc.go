// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

// Package passkey implements WebAuthn passkey registration, authentication,
// and credential management for Ledgerly services.
//
// The package is transport-agnostic: Service methods take and return plain
// values and JSON payloads, and the REST layer in internal/rest adapts them
// to HTTP. State lives behind a storage.Backend, so the same service runs
// against the in-memory backend in tests and the file backend in production.
//
// A ceremony is two calls. StartRegistration or StartAuthentication issues
// WebAuthn options plus an opaque ceremony ID backed by a short-lived,
// single-use challenge. FinishRegistration or FinishAuthentication verifies
// the client's response against that challenge and consumes it.
package passkey
