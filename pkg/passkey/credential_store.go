// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package passkey

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/ledgerly/go-passkey/pkg/storage"
)

// CredentialStore persists credential records in the "passkeys" collection of
// a storage backend. Records are keyed by record ID; lookups by credential ID
// or owner decode and filter, which is proportionate to the handful of
// passkeys a user holds.
type CredentialStore struct {
	backend        storage.Backend
	allowOverwrite bool
}

// NewCredentialStore creates a credential store. When allowOverwrite is
// false (the default policy), saving a record whose credential ID already
// exists fails with ErrCredentialExists.
func NewCredentialStore(backend storage.Backend, allowOverwrite bool) *CredentialStore {
	return &CredentialStore{
		backend:        backend,
		allowOverwrite: allowOverwrite,
	}
}

// Save stores a new credential record.
func (s *CredentialStore) Save(ctx context.Context, rec *CredentialRecord) error {
	existing, err := s.findByCredentialID(rec.CredentialID)
	if err != nil {
		return err
	}
	if existing != nil {
		if !s.allowOverwrite {
			return ErrCredentialExists
		}
		// Overwrite policy replaces the stored record in place, keeping its
		// record ID stable for management callers.
		rec.ID = existing.ID
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.backend.Put(storage.PasskeyPath(rec.ID), data)
}

// GetByID retrieves a credential record by its record ID.
// Returns ErrCredentialNotFound if the record does not exist.
func (s *CredentialStore) GetByID(ctx context.Context, id string) (*CredentialRecord, error) {
	data, err := s.backend.Get(storage.PasskeyPath(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}

	var rec CredentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByCredentialID retrieves a credential record by the authenticator-assigned
// credential ID. Returns ErrCredentialNotFound if no record matches.
func (s *CredentialStore) GetByCredentialID(ctx context.Context, credentialID []byte) (*CredentialRecord, error) {
	rec, err := s.findByCredentialID(credentialID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrCredentialNotFound
	}
	return rec, nil
}

// GetByUserID retrieves all credential records for a user, newest first.
// Returns an empty slice if the user has no credentials.
func (s *CredentialStore) GetByUserID(ctx context.Context, userID string) ([]*CredentialRecord, error) {
	records, err := s.all()
	if err != nil {
		return nil, err
	}

	owned := make([]*CredentialRecord, 0, len(records))
	for _, rec := range records {
		if rec.UserID == userID {
			owned = append(owned, rec)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	return owned, nil
}

// UpdateCounter advances the signature counter and last-used time of a record
// with a compare-and-set on the previously observed counter. A mismatch means
// another authentication moved the counter first; accepting the write then
// would mask a genuine regression, so the caller gets ErrCounterRegression.
func (s *CredentialStore) UpdateCounter(ctx context.Context, id string, observed, next uint32, usedAt time.Time) error {
	err := s.backend.Update(storage.PasskeyPath(id), func(current []byte) ([]byte, error) {
		var rec CredentialRecord
		if err := json.Unmarshal(current, &rec); err != nil {
			return nil, err
		}
		if rec.SignCount != observed {
			return nil, ErrCounterRegression
		}
		rec.SignCount = next
		rec.LastUsedAt = usedAt
		return json.Marshal(&rec)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrCredentialNotFound
	}
	return err
}

// Delete removes a credential record by its record ID.
// Returns ErrCredentialNotFound if the record does not exist.
func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	err := s.backend.Delete(storage.PasskeyPath(id))
	if errors.Is(err, storage.ErrNotFound) {
		return ErrCredentialNotFound
	}
	return err
}

func (s *CredentialStore) findByCredentialID(credentialID []byte) (*CredentialRecord, error) {
	records, err := s.all()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if bytes.Equal(rec.CredentialID, credentialID) {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *CredentialStore) all() ([]*CredentialRecord, error) {
	ids, err := storage.ListPasskeys(s.backend)
	if err != nil {
		return nil, err
	}

	records := make([]*CredentialRecord, 0, len(ids))
	for _, id := range ids {
		data, err := s.backend.Get(storage.PasskeyPath(id))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Deleted between list and get.
				continue
			}
			return nil, err
		}
		var rec CredentialRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, nil
}
