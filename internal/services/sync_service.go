package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/prudhvinik1/deltasync/internal/registry"
	"github.com/prudhvinik1/deltasync/internal/repositories"
)

// DefaultClientID keys the cursor of callers that do not identify their
// client.
const DefaultClientID = "default"

// SyncService runs one push-then-pull round trip. Pushing first means a
// client's accepted writes come back in the same response.
type SyncService struct {
	registry  *registry.Registry
	applier   *ApplierService
	changelog *ChangeLogService
	cursors   repositories.CursorRepository
	logger    *slog.Logger
}

func NewSyncService(
	reg *registry.Registry,
	applier *ApplierService,
	changelog *ChangeLogService,
	cursors repositories.CursorRepository,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		registry:  reg,
		applier:   applier,
		changelog: changelog,
		cursors:   cursors,
		logger:    logger,
	}
}

func (s *SyncService) Sync(ctx context.Context, entityType, ownerID string, req models.SyncRequest) (*models.SyncResponse, error) {
	if _, err := s.registry.Accessor(entityType); err != nil {
		return nil, err
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	resp := &models.SyncResponse{}

	if len(req.ClientChanges) > 0 {
		applied, err := s.applier.ApplyChanges(ctx, entityType, ownerID, req.ClientChanges, ApplyOptions{
			ConflictResolution: req.ConflictResolution,
			ClientID:           req.ClientID,
		})
		if err != nil {
			return nil, err
		}
		resp.Applied = applied.Applied
		resp.Conflicts = applied.Conflicts
		resp.Errors = applied.Errors
	}

	since, afterID := s.pullFrom(ctx, ownerID, entityType, clientID, req)

	set, err := s.changelog.GetChanges(ctx, entityType, ownerID, since, PullOptions{
		AfterID:        afterID,
		IncludeDeleted: req.IncludeDeleted,
		Limit:          req.Limit,
		Offset:         req.Offset,
	})
	if err != nil {
		return nil, err
	}

	resp.ServerChanges = set.ServerChanges
	resp.SyncTimestamp = set.SyncTimestamp
	resp.SyncVersion = set.SyncVersion
	resp.DeletedIDs = set.DeletedIDs
	resp.HasMore = set.HasMore

	cursor := &models.SyncCursor{
		OwnerID:           ownerID,
		EntityType:        entityType,
		ClientID:          clientID,
		LastSyncTimestamp: set.SyncTimestamp,
		LastSyncVersion:   set.SyncVersion,
	}
	if set.HasMore && len(set.ServerChanges) > 0 {
		// Resume right after the last delivered record rather than skipping
		// the rest of the page. The id keeps a millisecond holding more than
		// a page of records from being served again.
		last := set.ServerChanges[len(set.ServerChanges)-1]
		cursor.LastSyncTimestamp = last.Timestamp
		cursor.LastSyncID = last.ID
	}
	if err := s.cursors.Set(ctx, cursor); err != nil {
		// A missing cursor only costs the client a full resync.
		s.logger.WarnContext(ctx, "failed to store sync cursor",
			"entity_type", entityType,
			"owner_id", ownerID,
			"client_id", clientID,
			"error", err,
		)
	}

	return resp, nil
}

// pullFrom picks where the pull starts: the client's own timestamp when it
// sent one, else its stored cursor, else the epoch. A stored cursor whose
// version differs from the lastSyncVersion the client reports is not the
// cursor of the last response the client saw, so it is not trusted.
func (s *SyncService) pullFrom(ctx context.Context, ownerID, entityType, clientID string, req models.SyncRequest) (time.Time, string) {
	if req.LastSyncTimestamp != nil {
		return time.UnixMilli(*req.LastSyncTimestamp), ""
	}

	cursor, err := s.cursors.Get(ctx, ownerID, entityType, clientID)
	switch {
	case err == nil && req.LastSyncVersion != nil && *req.LastSyncVersion != cursor.LastSyncVersion:
		s.logger.InfoContext(ctx, "sync cursor does not match client, resyncing from epoch",
			"entity_type", entityType,
			"owner_id", ownerID,
			"client_id", clientID,
			"cursor_version", cursor.LastSyncVersion,
			"client_version", *req.LastSyncVersion,
		)
	case err == nil:
		return time.UnixMilli(cursor.LastSyncTimestamp), cursor.LastSyncID
	case !errors.Is(err, repositories.ErrNotFound):
		s.logger.WarnContext(ctx, "failed to read sync cursor, resyncing from epoch",
			"entity_type", entityType,
			"owner_id", ownerID,
			"client_id", clientID,
			"error", err,
		)
	}
	return time.UnixMilli(0), ""
}

// Changes is a pull without a push and without touching the cursor.
func (s *SyncService) Changes(ctx context.Context, entityType, ownerID string, since time.Time, opts PullOptions) (*models.ChangeSet, error) {
	return s.changelog.GetChanges(ctx, entityType, ownerID, since, opts)
}
