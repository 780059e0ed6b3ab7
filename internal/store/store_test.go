package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "storage.json"))
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok)

	ids, err := s.SavedListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	require.NoError(t, s.SetToken(ctx, "abc123"))
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	// Clearing is idempotent.
	require.NoError(t, s.SetToken(ctx, ""))
	require.NoError(t, s.SetToken(ctx, ""))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok)
}

func TestFileStore_TokenAndSavedListsIndependent(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	require.NoError(t, s.SetToken(ctx, "tok"))
	require.NoError(t, s.SetSavedListIDs(ctx, []string{"7", "9"}))
	require.NoError(t, s.SetToken(ctx, ""))

	ids, err := s.SavedListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "9"}, ids)
}

func TestFileStore_SavedListsDeduped(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	require.NoError(t, s.SetSavedListIDs(ctx, []string{" 7 ", "9", "7", "", "9"}))
	ids, err := s.SavedListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "9"}, ids)
}

func TestToggleSavedListID(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	ids, err := ToggleSavedListID(ctx, s, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, ids)

	ids, err = ToggleSavedListID(ctx, s, "42")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Blank IDs are ignored.
	ids, err = ToggleSavedListID(ctx, s, "  ")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	st, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRedisStore_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestRedis(t)

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok)

	require.NoError(t, s.SetToken(ctx, "abc123"))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	require.NoError(t, s.SetToken(ctx, ""))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok)
}

func TestRedisStore_SavedLists(t *testing.T) {
	ctx := context.Background()
	s := setupTestRedis(t)

	require.NoError(t, s.SetSavedListIDs(ctx, []string{"3", "3", "1"}))
	ids, err := s.SavedListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, ids)
}
