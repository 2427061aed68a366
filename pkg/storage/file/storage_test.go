// Copyright (c) 2026 Ledgerly, Inc.
//
// This file is part of go-passkey.
//
// SPDX-License-Identifier: MIT

package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/go-passkey/pkg/storage"
)

func newTestStorage(t *testing.T) storage.Backend {
	t.Helper()
	backend, err := New(t.TempDir())
	require.NoError(t, err)
	return backend
}

func TestFile_New(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	backend, err := New(t.TempDir() + "/nested/store")
	require.NoError(t, err)
	require.NoError(t, backend.Put("k", []byte("v")))
}

func TestFile_PutGet(t *testing.T) {
	backend := newTestStorage(t)

	require.NoError(t, backend.Put("passkeys/rec-1", []byte(`{"id":"rec-1"}`)))

	got, err := backend.Get("passkeys/rec-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"rec-1"}`), got)

	// Overwrite replaces the value.
	require.NoError(t, backend.Put("passkeys/rec-1", []byte("v2")))
	got, err = backend.Get("passkeys/rec-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestFile_GetMissing(t *testing.T) {
	backend := newTestStorage(t)

	_, err := backend.Get("challenges/missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFile_Delete(t *testing.T) {
	backend := newTestStorage(t)
	require.NoError(t, backend.Put("challenges/c1", []byte("v")))

	require.NoError(t, backend.Delete("challenges/c1"))
	assert.ErrorIs(t, backend.Delete("challenges/c1"), storage.ErrNotFound)
}

func TestFile_ListSorted(t *testing.T) {
	backend := newTestStorage(t)
	require.NoError(t, backend.Put("passkeys/b", []byte("2")))
	require.NoError(t, backend.Put("passkeys/a", []byte("1")))
	require.NoError(t, backend.Put("challenges/c", []byte("3")))

	keys, err := backend.List("passkeys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"passkeys/a", "passkeys/b"}, keys)

	all, err := backend.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"challenges/c", "passkeys/a", "passkeys/b"}, all)
}

func TestFile_Exists(t *testing.T) {
	backend := newTestStorage(t)
	require.NoError(t, backend.Put("k", []byte("v")))

	ok, err := backend.Exists("k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = backend.Exists("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFile_Update(t *testing.T) {
	backend := newTestStorage(t)
	require.NoError(t, backend.Put("k", []byte("a")))

	err := backend.Update("k", func(current []byte) ([]byte, error) {
		return append(current, 'b'), nil
	})
	require.NoError(t, err)

	got, err := backend.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), got)
}

func TestFile_UpdateMissing(t *testing.T) {
	backend := newTestStorage(t)

	err := backend.Update("missing", func(current []byte) ([]byte, error) {
		return current, nil
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFile_InvalidKeys(t *testing.T) {
	backend := newTestStorage(t)

	for _, key := range []string{"", "../escape", "a/../../b", "/absolute"} {
		_, err := backend.Get(key)
		assert.ErrorIs(t, err, storage.ErrInvalidKey, "key %q", key)
		assert.ErrorIs(t, backend.Put(key, []byte("v")), storage.ErrInvalidKey, "key %q", key)
	}
}

func TestFile_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	backend, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, backend.Put("passkeys/rec-1", []byte("durable")))
	require.NoError(t, backend.Close())

	reopened, err := New(dir)
	require.NoError(t, err)
	got, err := reopened.Get("passkeys/rec-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), got)
}
