package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/store/file"
)

func newStore(t *testing.T) (*file.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat_logs.json")
	return file.New(path), path
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	sess := &domain.Session{ID: 1, UserName: "Alice", AgentName: "Vera"}
	sess.Append("Vera", "Hi, I am Vera. How can I help you?", time.Now().Truncate(time.Second))
	sess.Append("Alice", "hello", time.Now().Truncate(time.Second))

	require.NoError(t, store.Upsert(ctx, sess))

	got, err := store.Find(ctx, "ALICE")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ID)
	assert.Equal(t, "Vera", got.AgentName)
	require.Len(t, got.Transcript, 2)
	assert.Equal(t, "hello", got.Transcript[1].Text)
}

func TestStore_MissingFileReadsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	_, err := store.Find(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestStore_CorruptFileSelfHeals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	// Corrupt content reads as an empty store rather than failing.
	_, err := store.Find(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The next write replaces the corrupt snapshot.
	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 1, UserName: "Alice"}))

	got, err := store.Find(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.UserName)
}

func TestStore_UpsertReplacesExisting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 1, UserName: "Alice", Ended: false}))
	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 1, UserName: "alice", Ended: true}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Find(ctx, "Alice")
	require.NoError(t, err)
	assert.True(t, got.Ended)
}

func TestStore_DeleteAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 1, UserName: "Alice"}))
	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 2, UserName: "Bob"}))

	count, err := store.DeleteAll(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.DeleteAll(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Other users are untouched.
	got, err := store.Find(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.UserName)
}
