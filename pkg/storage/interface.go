// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

// Package storage provides an abstraction layer for the document store the
// passkey core persists into. It supports both in-memory and file-based
// implementations with a common interface; the concrete technology behind a
// deployment is outside the core's concern.
package storage

// Backend defines the interface for storage backends.
// All implementations must be thread-safe.
type Backend interface {
	// Get retrieves the value for the given key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Put stores the value for the given key.
	// If the key already exists, it will be overwritten.
	Put(key string, value []byte) error

	// Delete removes the key and its value from storage.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns all keys with the given prefix.
	// If prefix is empty, all keys are returned.
	List(prefix string) ([]string, error)

	// Exists checks if a key exists in storage.
	Exists(key string) (bool, error)

	// Update atomically applies fn to the current value of key and stores
	// the result. No other writer observes the key between the read and the
	// write. Returns ErrNotFound if the key does not exist; an error from fn
	// aborts the update and is returned unchanged.
	Update(key string, fn func(current []byte) ([]byte, error)) error

	// Close releases any resources held by the backend.
	Close() error
}
