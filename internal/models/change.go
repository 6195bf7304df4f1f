package models

type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Change is one unit of sync traffic in either direction. Version is the
// version the change applies against for update/delete, and the resulting
// version for create. Timestamp is milliseconds since the epoch.
type Change struct {
	ID        string         `json:"id"`
	Operation Operation      `json:"operation"`
	Data      map[string]any `json:"data,omitempty"`
	Version   int64          `json:"version"`
	Timestamp int64          `json:"timestamp"`
	ClientID  string         `json:"clientId,omitempty"`
	Base      map[string]any `json:"base,omitempty"`
}
