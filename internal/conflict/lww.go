// Package conflict holds the pure field-level merge strategies used when a
// client change and the server state have diverged.
package conflict

import (
	"github.com/prudhvinik1/deltasync/internal/models"
)

// MergeLWW merges clientData and serverData field by field. Metadata fields
// always come from the server. Every other field comes from the side with
// the later timestamp; on a tie the server wins.
func MergeLWW(clientData, serverData map[string]any, clientTimestamp, serverTimestamp int64) map[string]any {
	clientNewer := clientTimestamp > serverTimestamp

	merged := make(map[string]any, len(clientData)+len(serverData))
	for k, v := range serverData {
		merged[k] = v
	}
	for k, v := range clientData {
		if models.IsMetadataField(k) {
			continue
		}
		if _, onServer := serverData[k]; onServer && !clientNewer {
			continue
		}
		merged[k] = v
	}
	return merged
}
