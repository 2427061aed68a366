// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package passkey

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/ledgerly/go-passkey/pkg/storage"
)

// ChallengeStore persists ceremony challenges in the "challenges" collection
// of a storage backend. Challenges live at most TTL; expired entries are
// deleted eagerly on read and swept by the cleanup routine. A challenge is
// single use: it is deleted on successful verification and never reused.
type ChallengeStore struct {
	backend storage.Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewChallengeStore creates a challenge store with the given TTL.
// A zero TTL defaults to 5 minutes.
func NewChallengeStore(backend storage.Backend, ttl time.Duration) *ChallengeStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &ChallengeStore{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create persists a new challenge for the given ceremony and returns it.
// The ceremony ID is uniformly generated, for registration and authentication
// alike, so two concurrent ceremonies can never race on the same key.
func (s *ChallengeStore) Create(ctx context.Context, kind ChallengeKind, userID string, session *webauthn.SessionData) (*Challenge, error) {
	now := s.now().UTC()
	ch := &Challenge{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		Session:   *session,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(ch)
	if err != nil {
		return nil, err
	}
	if err := s.backend.Put(storage.ChallengePath(ch.ID), data); err != nil {
		return nil, err
	}
	return ch, nil
}

// Get retrieves a challenge by its ceremony ID.
// Returns ErrChallengeNotFound if it does not exist; an expired challenge is
// deleted before ErrChallengeExpired is returned, so it cannot be replayed.
func (s *ChallengeStore) Get(ctx context.Context, id string) (*Challenge, error) {
	data, err := s.backend.Get(storage.ChallengePath(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}

	var ch Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, err
	}

	if ch.ExpiredAt(s.now()) {
		_ = s.Delete(ctx, id)
		return nil, ErrChallengeExpired
	}
	return &ch, nil
}

// Delete removes a challenge. Deleting a challenge that is already gone is
// not an error; two racing completions resolve to the same end state.
func (s *ChallengeStore) Delete(ctx context.Context, id string) error {
	err := s.backend.Delete(storage.ChallengePath(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// Cleanup removes expired challenges and returns the count removed.
func (s *ChallengeStore) Cleanup(ctx context.Context) int {
	ids, err := storage.ListChallenges(s.backend)
	if err != nil {
		return 0
	}

	now := s.now()
	removed := 0
	for _, id := range ids {
		data, err := s.backend.Get(storage.ChallengePath(id))
		if err != nil {
			continue
		}
		var ch Challenge
		if err := json.Unmarshal(data, &ch); err != nil {
			continue
		}
		if ch.ExpiredAt(now) {
			if s.Delete(ctx, id) == nil {
				removed++
			}
		}
	}
	return removed
}

// StartCleanupRoutine starts a background goroutine that periodically removes
// expired challenges, reporting each sweep's count to onSweep (may be nil).
// Call the returned cancel function to stop the routine.
func (s *ChallengeStore) StartCleanupRoutine(ctx context.Context, interval time.Duration, onSweep func(removed int)) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := s.Cleanup(ctx)
				if onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()

	return cancel
}
