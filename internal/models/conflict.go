package models

type ConflictResolution string

const (
	ResolutionServerWins ConflictResolution = "server_wins"
	ResolutionClientWins ConflictResolution = "client_wins"
	ResolutionManual     ConflictResolution = "manual"
	ResolutionMerge      ConflictResolution = "merge"

	// ResolutionMerged is reported on conflicts settled by ResolutionMerge.
	ResolutionMerged ConflictResolution = "merged"
)

func (r ConflictResolution) Valid() bool {
	switch r {
	case ResolutionServerWins, ResolutionClientWins, ResolutionManual, ResolutionMerge:
		return true
	}
	return false
}

type SyncConflict struct {
	ID            string             `json:"id"`
	ClientVersion int64              `json:"clientVersion"`
	ServerVersion int64              `json:"serverVersion"`
	ClientData    map[string]any     `json:"clientData,omitempty"`
	ServerData    map[string]any     `json:"serverData,omitempty"`
	Resolution    ConflictResolution `json:"resolution"`
	Fields        []string           `json:"fields,omitempty"`
}
