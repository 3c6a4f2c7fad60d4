package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/parley/internal/domain"
	"github.com/gosuda/parley/internal/store/memory"
)

func TestStore_FindIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()

	sess := &domain.Session{ID: 1, UserName: "Alice", AgentName: "Vera"}
	require.NoError(t, store.Upsert(ctx, sess))

	for _, lookup := range []string{"alice", "ALICE", "Alice", " alice "} {
		got, err := store.Find(ctx, lookup)
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.UserName)
	}

	_, err := store.Find(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpsertIsolatesCallers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()

	sess := &domain.Session{ID: 1, UserName: "Alice", AgentName: "Vera"}
	sess.Append("Alice", "hello", time.Now())
	require.NoError(t, store.Upsert(ctx, sess))

	// Mutating the caller's copy must not leak into the store.
	sess.Append("Alice", "mutated after upsert", time.Now())

	got, err := store.Find(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got.Transcript, 1)
}

func TestStore_DeleteAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 1, UserName: "Alice"}))

	count, err := store.DeleteAll(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Second deletion finds nothing.
	_, err = store.DeleteAll(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Count(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 1, UserName: "Alice"}))
	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 2, UserName: "Bob"}))
	// Same normalized user name overwrites rather than adding.
	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 3, UserName: "alice"}))

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestStore_AllFor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Upsert(ctx, &domain.Session{ID: 1, UserName: "Alice"}))

	all, err := store.AllFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.EqualValues(t, 1, all[0].ID)

	_, err = store.AllFor(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
