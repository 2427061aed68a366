// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package storage

import "errors"

var (
	// ErrNotFound is returned when a key does not exist in storage.
	ErrNotFound = errors.New("storage: key not found")

	// ErrClosed is returned when an operation is attempted on a closed backend.
	ErrClosed = errors.New("storage: backend is closed")

	// ErrInvalidKey is returned when a key contains path traversal sequences
	// or is otherwise unusable.
	ErrInvalidKey = errors.New("storage: invalid key")
)
