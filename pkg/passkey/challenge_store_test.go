// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package passkey

import (
	"context"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/go-passkey/pkg/storage"
)

func testSession() *webauthn.SessionData {
	return &webauthn.SessionData{Challenge: "dGVzdC1jaGFsbGVuZ2U"}
}

func TestChallengeStore_CreateAndGet(t *testing.T) {
	store := NewChallengeStore(storage.NewMemory(), time.Minute)
	ctx := context.Background()

	ch, err := store.Create(ctx, ChallengeRegistration, "user-1", testSession())
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.Equal(t, ChallengeRegistration, ch.Kind)
	assert.Equal(t, "user-1", ch.UserID)
	assert.True(t, ch.ExpiresAt.After(ch.CreatedAt))

	got, err := store.Get(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, got.ID)
	assert.Equal(t, ch.Session.Challenge, got.Session.Challenge)
}

func TestChallengeStore_UniqueCeremonyIDs(t *testing.T) {
	store := NewChallengeStore(storage.NewMemory(), time.Minute)
	ctx := context.Background()

	// Concurrent ceremonies for the same user never collide on a key.
	ch1, err := store.Create(ctx, ChallengeRegistration, "user-1", testSession())
	require.NoError(t, err)
	ch2, err := store.Create(ctx, ChallengeRegistration, "user-1", testSession())
	require.NoError(t, err)
	assert.NotEqual(t, ch1.ID, ch2.ID)

	_, err = store.Get(ctx, ch1.ID)
	assert.NoError(t, err)
	_, err = store.Get(ctx, ch2.ID)
	assert.NoError(t, err)
}

func TestChallengeStore_GetMissing(t *testing.T) {
	store := NewChallengeStore(storage.NewMemory(), time.Minute)

	_, err := store.Get(context.Background(), "no-such-ceremony")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeStore_ExpiryDeletesEagerly(t *testing.T) {
	store := NewChallengeStore(storage.NewMemory(), time.Minute)
	ctx := context.Background()

	ch, err := store.Create(ctx, ChallengeAuthentication, "", testSession())
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = store.Get(ctx, ch.ID)
	assert.ErrorIs(t, err, ErrChallengeExpired)

	// The expired challenge is gone, not just rejected.
	_, err = store.Get(ctx, ch.ID)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeStore_DeleteIdempotent(t *testing.T) {
	store := NewChallengeStore(storage.NewMemory(), time.Minute)
	ctx := context.Background()

	ch, err := store.Create(ctx, ChallengeRegistration, "user-1", testSession())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, ch.ID))
	require.NoError(t, store.Delete(ctx, ch.ID))

	_, err = store.Get(ctx, ch.ID)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeStore_CleanupRoutine(t *testing.T) {
	store := NewChallengeStore(storage.NewMemory(), time.Minute)
	ctx := context.Background()

	_, err := store.Create(ctx, ChallengeRegistration, "user-1", testSession())
	require.NoError(t, err)
	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	swept := make(chan int, 1)
	cancel := store.StartCleanupRoutine(ctx, 10*time.Millisecond, func(removed int) {
		select {
		case swept <- removed:
		default:
		}
	})
	defer cancel()

	select {
	case removed := <-swept:
		assert.Equal(t, 1, removed)
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup routine never swept")
	}
}

func TestChallengeStore_Cleanup(t *testing.T) {
	store := NewChallengeStore(storage.NewMemory(), time.Minute)
	ctx := context.Background()

	expired1, err := store.Create(ctx, ChallengeRegistration, "user-1", testSession())
	require.NoError(t, err)
	expired2, err := store.Create(ctx, ChallengeAuthentication, "", testSession())
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	live, err := store.Create(ctx, ChallengeAuthentication, "", testSession())
	require.NoError(t, err)

	removed := store.Cleanup(ctx)
	assert.Equal(t, 2, removed)

	_, err = store.Get(ctx, expired1.ID)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	_, err = store.Get(ctx, expired2.ID)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	_, err = store.Get(ctx, live.ID)
	assert.NoError(t, err)
}
