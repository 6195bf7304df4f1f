package repositories

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/deltasync/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestPool connects to TEST_DATABASE_URL and migrates it, skipping the
// test when no database is configured.
func getTestPool(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, database.MigratePostgres(url), "Failed to migrate test database")

	pool, err := database.NewPostgresPool(context.Background(), url, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)
	return pool
}

func cleanupOwner(t *testing.T, pool *pgxpool.Pool, ownerID string) {
	_, err := pool.Exec(context.Background(), "DELETE FROM user_settings WHERE user_id = $1", ownerID)
	require.NoError(t, err)
}

// TestPostgresEntityRepository_Lifecycle walks a record through create,
// update, a stale update and a soft delete.
func TestPostgresEntityRepository_Lifecycle(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresEntityRepository(pool, settingsDef)
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()
	id := uuid.NewString()
	defer cleanupOwner(t, pool, owner)

	// ACT: Create
	rec, err := repo.Create(ctx, owner, id, map[string]any{"theme": "dark", "password": "x"}, "phone")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, map[string]any{"theme": "dark"}, rec.Data)

	_, err = repo.Create(ctx, owner, id, map[string]any{"theme": "light"}, "")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// ACT: Update at the current version merges the payload
	ok, err := repo.ConditionalUpdate(ctx, id, owner, 1, map[string]any{"language": "de"})
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.GetByID(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, map[string]any{"theme": "dark", "language": "de"}, stored.Data)

	// ACT: Stale update misses
	ok, err = repo.ConditionalUpdate(ctx, id, owner, 1, map[string]any{"language": "fr"})
	require.NoError(t, err)
	assert.False(t, ok)

	// ACT: Soft delete
	ok, err = repo.SoftDelete(ctx, id, owner, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := repo.GetByID(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted.Version)
	assert.NotNil(t, deleted.DeletedAt)

	live, err := repo.List(ctx, owner, ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, live)

	all, err := repo.List(ctx, owner, ListOptions{Limit: 10, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPostgresEntityRepository_GetByID_NotFound(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresEntityRepository(pool, settingsDef)

	_, err := repo.GetByID(context.Background(), uuid.NewString(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresEntityRepository_ConditionalUpdate_Shallow(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresEntityRepository(pool, settingsDef)
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()
	id := uuid.NewString()
	defer cleanupOwner(t, pool, owner)

	_, err := repo.Create(ctx, owner, id, map[string]any{
		"theme":    map[string]any{"color": "dark", "font": "mono"},
		"language": "en",
	}, "")
	require.NoError(t, err)

	ok, err := repo.ConditionalUpdate(ctx, id, owner, 1, map[string]any{
		"theme":    map[string]any{"color": "light"},
		"language": nil,
	})
	require.NoError(t, err)
	require.True(t, ok)

	rec, err := repo.GetByID(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"color": "light"}, rec.Data["theme"])
	value, present := rec.Data["language"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestPostgresEntityRepository_CheckTable(t *testing.T) {
	pool := getTestPool(t)

	assert.NoError(t, NewPostgresEntityRepository(pool, settingsDef).CheckTable(context.Background()))

	missing := settingsDef
	missing.Name, missing.Table = "invoices", "invoices"
	assert.Error(t, NewPostgresEntityRepository(pool, missing).CheckTable(context.Background()))
}
