package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prudhvinik1/deltasync/internal/conflict"
	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/prudhvinik1/deltasync/internal/registry"
	"github.com/prudhvinik1/deltasync/internal/repositories"
	"github.com/prudhvinik1/deltasync/internal/syncerr"
)

var (
	ErrInvalidChange  = errors.New("invalid change")
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateID    = errors.New("record id already in use")
)

type ApplyOptions struct {
	ConflictResolution models.ConflictResolution
	ClientID           string
}

// ApplierService applies client changes one at a time. Each change commits
// on its own, so a failed or abandoned batch leaves the earlier changes
// applied and visible to the next pull.
type ApplierService struct {
	registry   *registry.Registry
	tombstones repositories.TombstoneRepository
	audit      AuditSink
	logger     *slog.Logger
	newID      func() string
}

func NewApplierService(
	reg *registry.Registry,
	tombstones repositories.TombstoneRepository,
	audit AuditSink,
	logger *slog.Logger,
) *ApplierService {
	return &ApplierService{
		registry:   reg,
		tombstones: tombstones,
		audit:      audit,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// ApplyChanges returns an error only when entityType is not registered.
// Everything else is reported per change in the result.
func (s *ApplierService) ApplyChanges(ctx context.Context, entityType, ownerID string, changes []models.Change, opts ApplyOptions) (*models.ApplyResult, error) {
	accessor, err := s.registry.Accessor(entityType)
	if err != nil {
		return nil, err
	}
	if opts.ConflictResolution == "" {
		opts.ConflictResolution = models.ResolutionServerWins
	}
	if !opts.ConflictResolution.Valid() {
		return nil, syncerr.InvalidInput("applier.ApplyChanges", fmt.Errorf("unknown conflict resolution %q", opts.ConflictResolution))
	}

	result := &models.ApplyResult{
		Applied:   []string{},
		Conflicts: []models.SyncConflict{},
		Errors:    []models.ChangeError{},
	}

	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, changeError(change.ID, syncerr.Storage("applier.ApplyChanges", err)))
			continue
		}
		s.applyOne(ctx, accessor, entityType, ownerID, change, opts, result)
	}

	if s.audit != nil {
		s.audit.RecordBatch(ctx, models.AuditEntry{
			EntityType:    entityType,
			OwnerID:       ownerID,
			ClientID:      opts.ClientID,
			AppliedCount:  len(result.Applied),
			ConflictCount: len(result.Conflicts),
			ErrorCount:    len(result.Errors),
		})
	}

	return result, nil
}

func (s *ApplierService) applyOne(
	ctx context.Context,
	accessor repositories.EntityAccessor,
	entityType, ownerID string,
	change models.Change,
	opts ApplyOptions,
	result *models.ApplyResult,
) {
	if err := validateChange(change); err != nil {
		result.Errors = append(result.Errors, changeError(change.ID, err))
		return
	}

	clientID := change.ClientID
	if clientID == "" {
		clientID = opts.ClientID
	}

	server, err := accessor.GetByID(ctx, change.ID, ownerID)
	if errors.Is(err, repositories.ErrNotFound) {
		server = nil
	} else if err != nil {
		result.Errors = append(result.Errors, changeError(change.ID, syncerr.Storage("applier.GetByID", err)))
		return
	}

	if server == nil {
		s.applyToMissing(ctx, accessor, ownerID, change, clientID, result)
		return
	}

	expectedVersion := change.Version
	data := change.Data
	var forced *models.SyncConflict

	// A create for an id that already exists is a duplicate, whatever
	// version it claims.
	if change.Operation == models.OperationCreate || server.Version > change.Version {
		c := models.SyncConflict{
			ID:            change.ID,
			ClientVersion: change.Version,
			ServerVersion: server.Version,
			ClientData:    change.Data,
			ServerData:    server.Data,
			Resolution:    opts.ConflictResolution,
		}

		switch opts.ConflictResolution {
		case models.ResolutionClientWins:
			expectedVersion = server.Version
		case models.ResolutionMerge:
			merged, fields := mergeWithServer(change, server)
			data = merged
			c.Resolution = models.ResolutionMerged
			c.Fields = fields
			expectedVersion = server.Version
		default:
			result.Conflicts = append(result.Conflicts, c)
			return
		}
		forced = &c
	}

	var ok bool
	if change.Operation == models.OperationDelete {
		ok, err = accessor.SoftDelete(ctx, change.ID, ownerID, expectedVersion)
	} else {
		ok, err = accessor.ConditionalUpdate(ctx, change.ID, ownerID, expectedVersion, data)
	}
	if err != nil {
		result.Errors = append(result.Errors, changeError(change.ID, syncerr.Storage("applier.mutate", err)))
		return
	}
	if !ok {
		result.Conflicts = append(result.Conflicts, s.casMiss(ctx, accessor, ownerID, change, server))
		return
	}

	if forced != nil {
		result.Conflicts = append(result.Conflicts, *forced)
	}
	result.Applied = append(result.Applied, change.ID)

	if change.Operation == models.OperationDelete {
		s.recordTombstone(ctx, entityType, ownerID, change.ID)
	}
}

func (s *ApplierService) applyToMissing(
	ctx context.Context,
	accessor repositories.EntityAccessor,
	ownerID string,
	change models.Change,
	clientID string,
	result *models.ApplyResult,
) {
	if change.Operation != models.OperationCreate {
		err := syncerr.New(syncerr.KindNotFound, "applier.applyOne", fmt.Errorf("%w: %s %q", ErrRecordNotFound, change.Operation, change.ID))
		result.Errors = append(result.Errors, changeError(change.ID, err))
		return
	}

	id := change.ID
	if id == "" {
		id = s.newID()
	}

	_, err := accessor.Create(ctx, ownerID, id, change.Data, clientID)
	if errors.Is(err, repositories.ErrAlreadyExists) {
		// Either a concurrent create won, or the id belongs to another owner.
		err = syncerr.New(syncerr.KindVersionConflict, "applier.Create", fmt.Errorf("%w: %q", ErrDuplicateID, id))
		result.Errors = append(result.Errors, changeError(id, err))
		return
	}
	if err != nil {
		result.Errors = append(result.Errors, changeError(id, syncerr.Storage("applier.Create", err)))
		return
	}
	result.Applied = append(result.Applied, id)
}

// casMiss re-reads the record after a lost compare-and-swap and reports the
// fresh server state as a conflict.
func (s *ApplierService) casMiss(
	ctx context.Context,
	accessor repositories.EntityAccessor,
	ownerID string,
	change models.Change,
	previous *models.SyncableRecord,
) models.SyncConflict {
	current := previous
	if reread, err := accessor.GetByID(ctx, change.ID, ownerID); err == nil {
		current = reread
	} else {
		s.logger.WarnContext(ctx, "failed to re-read record after version conflict", "id", change.ID, "error", err)
	}

	return models.SyncConflict{
		ID:            change.ID,
		ClientVersion: change.Version,
		ServerVersion: current.Version,
		ClientData:    change.Data,
		ServerData:    current.Data,
		Resolution:    models.ResolutionServerWins,
	}
}

func (s *ApplierService) recordTombstone(ctx context.Context, entityType, ownerID, id string) {
	if err := s.tombstones.Add(ctx, entityType, ownerID, id); err != nil {
		// The soft-delete already committed and stays authoritative.
		s.logger.WarnContext(ctx, "failed to record tombstone",
			"entity_type", entityType,
			"owner_id", ownerID,
			"id", id,
			"error", err,
		)
	}
}

// mergeWithServer uses a three-way merge when the client sent the state it
// started from, and last-write-wins otherwise. Updates are shallow merges
// that cannot remove a field, so fields the merge dropped are stored as null.
func mergeWithServer(change models.Change, server *models.SyncableRecord) (map[string]any, []string) {
	var merged map[string]any
	var fields []string
	if change.Base != nil {
		r := conflict.MergeThreeWay(change.Base, change.Data, server.Data)
		merged, fields = r.Merged, r.Conflicts
	} else {
		merged = conflict.MergeLWW(change.Data, server.Data, change.Timestamp, server.UpdatedAt.UnixMilli())
	}

	for k := range server.Data {
		if _, kept := merged[k]; !kept {
			merged[k] = nil
		}
	}
	return merged, fields
}

func validateChange(change models.Change) error {
	if !change.Operation.Valid() {
		return syncerr.InvalidInput("applier.validate", fmt.Errorf("%w: unknown operation %q", ErrInvalidChange, change.Operation))
	}
	if change.Version < 0 {
		return syncerr.InvalidInput("applier.validate", fmt.Errorf("%w: negative version", ErrInvalidChange))
	}
	if change.ID == "" && change.Operation != models.OperationCreate {
		return syncerr.InvalidInput("applier.validate", fmt.Errorf("%w: %s without id", ErrInvalidChange, change.Operation))
	}
	return nil
}

func changeError(id string, err error) models.ChangeError {
	return models.ChangeError{
		ID:    id,
		Error: err.Error(),
		Code:  string(syncerr.KindOf(err)),
	}
}
