package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/prudhvinik1/deltasync/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// ListOptions bounds a List call. AfterID resumes inside the Since
// millisecond: records stamped exactly Since are returned only when their id
// sorts after AfterID. Empty keeps the whole millisecond.
type ListOptions struct {
	Since          time.Time
	AfterID        string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// EntityAccessor is the storage-backed accessor for one entity type. All
// mutations are single guarded statements: a write only lands if the row
// still carries the version the caller expects.
type EntityAccessor interface {
	Definition() models.EntityDefinition
	// CheckTable fails when the backing table or one of its columns is missing.
	CheckTable(ctx context.Context) error
	// List returns records at or after (opts.Since, opts.AfterID) ordered by
	// UpdatedAt, then ID.
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*models.SyncableRecord, error)
	// GetByID also returns soft-deleted records.
	GetByID(ctx context.Context, id, ownerID string) (*models.SyncableRecord, error)
	Create(ctx context.Context, ownerID, id string, data map[string]any, clientID string) (*models.SyncableRecord, error)
	// ConditionalUpdate merges data into the live record if its version is
	// expectedVersion, bumping the version and UpdatedAt. It reports whether
	// the write matched.
	ConditionalUpdate(ctx context.Context, id, ownerID string, expectedVersion int64, data map[string]any) (bool, error)
	SoftDelete(ctx context.Context, id, ownerID string, expectedVersion int64) (bool, error)
}

type TombstoneRepository interface {
	Add(ctx context.Context, entityType, ownerID, id string) error
	ListSince(ctx context.Context, entityType, ownerID string, since time.Time) ([]models.Tombstone, error)
}

type CursorRepository interface {
	Get(ctx context.Context, ownerID, entityType, clientID string) (*models.SyncCursor, error)
	Set(ctx context.Context, cursor *models.SyncCursor) error
}
