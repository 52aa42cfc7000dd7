package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupBunTokenStore(t *testing.T) (*BunTokenStore, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	require.NoError(t, NewManager(bunDB).Migrate(context.Background()))
	store := NewBunTokenStore(bunDB, "")

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}
	return store, cleanup
}

func TestBunTokenStore_RoundTrip(t *testing.T) {
	store, cleanup := setupBunTokenStore(t)
	defer cleanup()

	ctx := context.Background()

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "absent token reads as empty")

	require.NoError(t, store.SetToken(ctx, "first"))
	require.NoError(t, store.SetToken(ctx, "second"))

	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	count, err := store.db.NewSelect().Model((*SessionTokenModel)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "overwrite keeps a single row")

	require.NoError(t, store.ClearToken(ctx))
	require.NoError(t, store.ClearToken(ctx))

	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestBunTokenStore_KeysAreIsolated(t *testing.T) {
	store, cleanup := setupBunTokenStore(t)
	defer cleanup()

	ctx := context.Background()
	other := store.WithKey("cli")

	require.NoError(t, store.SetToken(ctx, "web-token"))
	require.NoError(t, other.SetToken(ctx, "cli-token"))
	require.NoError(t, store.SetToken(ctx, ""))

	token, _ := store.Token(ctx)
	assert.Empty(t, token)

	token, _ = other.Token(ctx)
	assert.Equal(t, "cli-token", token)
}
