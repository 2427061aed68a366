// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package storage

import "strings"

// The passkey core persists into two logical collections, addressed as key
// prefixes on the backend.
const (
	challengePrefix = "challenges/"
	passkeyPrefix   = "passkeys/"
)

// ChallengePath returns the storage key for a challenge with the given ID.
func ChallengePath(id string) string {
	return challengePrefix + id
}

// PasskeyPath returns the storage key for a credential record with the given ID.
func PasskeyPath(id string) string {
	return passkeyPrefix + id
}

// ListChallenges retrieves all challenge IDs from the backend.
// Returns an empty slice if no challenges exist.
func ListChallenges(backend Backend) ([]string, error) {
	return listIDs(backend, challengePrefix)
}

// ListPasskeys retrieves all credential record IDs from the backend.
// Returns an empty slice if no records exist.
func ListPasskeys(backend Backend) ([]string, error) {
	return listIDs(backend, passkeyPrefix)
}

func listIDs(backend Backend, prefix string) ([]string, error) {
	keys, err := backend.List(prefix)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, prefix)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
