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
	cursorKeyPrefix  = "cursor:"
	DefaultCursorTTL = 24 * time.Hour
)

type RedisCursorRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCursorRepository(client *redis.Client, ttl time.Duration) *RedisCursorRepository {
	if ttl <= 0 {
		ttl = DefaultCursorTTL
	}
	return &RedisCursorRepository{client: client, ttl: ttl}
}

// Get returns ErrNotFound when the cursor was never set or has expired.
func (r *RedisCursorRepository) Get(ctx context.Context, ownerID, entityType, clientID string) (*models.SyncCursor, error) {
	data, err := r.client.Get(ctx, cursorKey(ownerID, entityType, clientID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor: %w", err)
	}

	var cursor models.SyncCursor
	if err := json.Unmarshal([]byte(data), &cursor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cursor: %w", err)
	}
	return &cursor, nil
}

// Set stores the cursor and restarts its TTL.
func (r *RedisCursorRepository) Set(ctx context.Context, cursor *models.SyncCursor) error {
	cursor.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}

	key := cursorKey(cursor.OwnerID, cursor.EntityType, cursor.ClientID)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	return nil
}

func cursorKey(ownerID, entityType, clientID string) string {
	return fmt.Sprintf("%s%s:%s:%s", cursorKeyPrefix, ownerID, entityType, clientID)
}
