package models

// AuditEntry summarizes one applied batch.
type AuditEntry struct {
	EntityType    string `json:"entity_type"`
	OwnerID       string `json:"owner_id"`
	ClientID      string `json:"client_id"`
	AppliedCount  int    `json:"applied_count"`
	ConflictCount int    `json:"conflict_count"`
	ErrorCount    int    `json:"error_count"`
}
