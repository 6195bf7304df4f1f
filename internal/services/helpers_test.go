package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prudhvinik1/deltasync/internal/database"
	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/prudhvinik1/deltasync/internal/registry"
	"github.com/prudhvinik1/deltasync/internal/repositories"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	settingsType = "user_settings"
	testOwner    = "owner-1"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
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

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (a *recordingAudit) RecordBatch(_ context.Context, entry models.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

// testEnv wires the services over an in-memory SQLite store and an
// in-process Redis, all reading the same manual clock.
type testEnv struct {
	clock      *testClock
	registry   *registry.Registry
	settings   repositories.EntityAccessor
	tombstones *repositories.RedisTombstoneRepository
	cursors    *repositories.RedisCursorRepository
	audit      *recordingAudit
	applier    *ApplierService
	changelog  *ChangeLogService
	sync       *SyncService
}

func newTestEnv(t *testing.T) *testEnv {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &testClock{}
	clock.Set(0)

	db, err := database.NewSQLiteDB(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	defs, err := registry.DefaultDefinitions()
	require.NoError(t, err)
	reg, err := registry.Build(defs, func(def models.EntityDefinition) repositories.EntityAccessor {
		return repositories.NewSQLiteEntityRepository(db, def, clock.Now)
	})
	require.NoError(t, err)
	settings, err := reg.Accessor(settingsType)
	require.NoError(t, err)

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &testEnv{
		clock:      clock,
		registry:   reg,
		settings:   settings,
		tombstones: repositories.NewRedisTombstoneRepository(client, repositories.DefaultTombstoneRetention, clock.Now),
		cursors:    repositories.NewRedisCursorRepository(client, repositories.DefaultCursorTTL),
		audit:      &recordingAudit{},
	}
	env.applier = NewApplierService(reg, env.tombstones, env.audit, logger)
	env.changelog = NewChangeLogService(reg, env.tombstones, PageLimits{}, clock.Now)
	env.sync = NewSyncService(reg, env.applier, env.changelog, env.cursors, logger)
	return env
}

// seed creates a record at the given time and bumps it to version with
// no-op updates one millisecond apart.
func (e *testEnv) seed(t *testing.T, id string, atMs int64, version int64, data map[string]any) {
	ctx := context.Background()
	e.clock.Set(atMs)
	_, err := e.settings.Create(ctx, testOwner, id, data, "")
	require.NoError(t, err)
	for v := int64(1); v < version; v++ {
		e.clock.Advance(time.Millisecond)
		ok, err := e.settings.ConditionalUpdate(ctx, id, testOwner, v, data)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func (e *testEnv) get(t *testing.T, id string) *models.SyncableRecord {
	rec, err := e.settings.GetByID(context.Background(), id, testOwner)
	require.NoError(t, err)
	return rec
}

func changeIDs(changes []models.Change) []string {
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ID)
	}
	return ids
}
