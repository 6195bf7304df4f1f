package repositories

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prudhvinik1/deltasync/internal/database"
	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var settingsDef = models.EntityDefinition{
	Name:       "user_settings",
	Table:      "user_settings",
	OwnerField: "user_id",
	Fields:     []string{"theme", "language", "timezone", "notifications_enabled"},
}

// testClock is a manually advanced clock shared by repositories under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(ms int64) *testClock {
	return &testClock{now: time.UnixMilli(ms).UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(ms).UTC()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// getTestSQLite returns a fresh, migrated in-memory database.
func getTestSQLite(t *testing.T) *sql.DB {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.NewSQLiteDB(context.Background(), dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })
	return db
}

// getTestRedisClient returns a client backed by an in-process Redis.
func getTestRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, server
}
