package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	tombstoneKeyPrefix        = "tombstones:"
	DefaultTombstoneRetention = 30 * 24 * time.Hour
)

// RedisTombstoneRepository keeps one JSON list of tombstones per
// (entity type, owner). Adds are read-modify-write, so two concurrent adds
// for the same partition can lose one entry; the entity's own deleted_at is
// the source of truth.
type RedisTombstoneRepository struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewRedisTombstoneRepository(client *redis.Client, retention time.Duration, now func() time.Time) *RedisTombstoneRepository {
	if retention <= 0 {
		retention = DefaultTombstoneRetention
	}
	if now == nil {
		now = time.Now
	}
	return &RedisTombstoneRepository{client: client, retention: retention, now: now}
}

func (r *RedisTombstoneRepository) Add(ctx context.Context, entityType, ownerID, id string) error {
	key := tombstoneKey(entityType, ownerID)

	tombstones, err := r.load(ctx, key)
	if err != nil {
		return err
	}

	now := r.now().UTC()
	kept := r.live(tombstones, now)
	kept = append(kept, models.Tombstone{ID: id, DeletedAt: now})

	data, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("failed to marshal tombstones: %w", err)
	}

	// The key lives exactly as long as the newest entry is retained.
	if err := r.client.Set(ctx, key, data, r.retention).Err(); err != nil {
		return fmt.Errorf("failed to set tombstones: %w", err)
	}
	return nil
}

// ListSince returns tombstones recorded at or after since that are still
// inside the retention window.
func (r *RedisTombstoneRepository) ListSince(ctx context.Context, entityType, ownerID string, since time.Time) ([]models.Tombstone, error) {
	tombstones, err := r.load(ctx, tombstoneKey(entityType, ownerID))
	if err != nil {
		return nil, err
	}

	var result []models.Tombstone
	for _, t := range r.live(tombstones, r.now()) {
		if !t.DeletedAt.Before(since) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *RedisTombstoneRepository) live(tombstones []models.Tombstone, now time.Time) []models.Tombstone {
	cutoff := now.Add(-r.retention)
	kept := make([]models.Tombstone, 0, len(tombstones)+1)
	for _, t := range tombstones {
		if !t.DeletedAt.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (r *RedisTombstoneRepository) load(ctx context.Context, key string) ([]models.Tombstone, error) {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tombstones: %w", err)
	}

	var tombstones []models.Tombstone
	if err := json.Unmarshal([]byte(data), &tombstones); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tombstones: %w", err)
	}
	return tombstones, nil
}

func tombstoneKey(entityType, ownerID string) string {
	return fmt.Sprintf("%s%s:%s", tombstoneKeyPrefix, entityType, ownerID)
}
