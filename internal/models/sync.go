package models

type SyncRequest struct {
	EntityType         string             `json:"entityType,omitempty"`
	LastSyncTimestamp  *int64             `json:"lastSyncTimestamp,omitempty"`
	LastSyncVersion    *int64             `json:"lastSyncVersion,omitempty"`
	ClientChanges      []Change           `json:"clientChanges,omitempty"`
	ClientID           string             `json:"clientId,omitempty"`
	ConflictResolution ConflictResolution `json:"conflictResolution,omitempty"`
	IncludeDeleted     bool               `json:"includeDeleted,omitempty"`
	Limit              int                `json:"limit,omitempty"`
	Offset             int                `json:"offset,omitempty"`
}

type SyncResponse struct {
	ServerChanges []Change       `json:"serverChanges"`
	SyncTimestamp int64          `json:"syncTimestamp"`
	SyncVersion   int64          `json:"syncVersion"`
	Applied       []string       `json:"applied,omitempty"`
	Conflicts     []SyncConflict `json:"conflicts,omitempty"`
	Errors        []ChangeError  `json:"errors,omitempty"`
	DeletedIDs    []string       `json:"deletedIds,omitempty"`
	HasMore       bool           `json:"hasMore,omitempty"`
}

// ChangeSet is the result of a pull.
type ChangeSet struct {
	ServerChanges []Change `json:"serverChanges"`
	SyncTimestamp int64    `json:"syncTimestamp"`
	SyncVersion   int64    `json:"syncVersion"`
	DeletedIDs    []string `json:"deletedIds"`
	HasMore       bool     `json:"hasMore"`
}

type ChangeError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ApplyResult is the outcome of a push. Non-empty Conflicts or Errors mean
// partial success.
type ApplyResult struct {
	Applied   []string       `json:"applied"`
	Conflicts []SyncConflict `json:"conflicts"`
	Errors    []ChangeError  `json:"errors"`
}
