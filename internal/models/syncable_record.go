package models

import (
	"time"
)

type SyncableRecord struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Data      map[string]any `json:"data"`
	Version   int64          `json:"version"`
	ClientID  *string        `json:"client_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

func (r *SyncableRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

// ToChange renders the record as server-side sync traffic. Soft-deleted
// records are tagged as deletes.
func (r *SyncableRecord) ToChange() Change {
	op := OperationUpdate
	if r.IsDeleted() {
		op = OperationDelete
	}
	change := Change{
		ID:        r.ID,
		Operation: op,
		Data:      r.Data,
		Version:   r.Version,
		Timestamp: r.UpdatedAt.UnixMilli(),
	}
	if r.ClientID != nil {
		change.ClientID = *r.ClientID
	}
	return change
}
