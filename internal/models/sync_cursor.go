package models

import (
	"time"
)

// SyncCursor is a client's resume point. LastSyncID is set only when the
// last response was a truncated page: the next pull resumes after that id
// within LastSyncTimestamp.
type SyncCursor struct {
	OwnerID           string    `json:"owner_id"`
	EntityType        string    `json:"entity_type"`
	ClientID          string    `json:"client_id"`
	LastSyncTimestamp int64     `json:"last_sync_timestamp"`
	LastSyncVersion   int64     `json:"last_sync_version"`
	LastSyncID        string    `json:"last_sync_id,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}
