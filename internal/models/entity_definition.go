package models

import (
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// metadataFields are owned by the store and never accepted from, or
// duplicated into, a payload.
var metadataFields = map[string]struct{}{
	"id":        {},
	"version":   {},
	"createdAt": {},
	"updatedAt": {},
	"deletedAt": {},
}

func IsMetadataField(name string) bool {
	_, ok := metadataFields[name]
	return ok
}

// EntityDefinition describes how one synchronized entity type is stored:
// the table, the column holding the owner id, and the payload fields that
// are projected to clients.
type EntityDefinition struct {
	Name       string   `yaml:"name" json:"name"`
	Table      string   `yaml:"table" json:"table"`
	OwnerField string   `yaml:"owner_field" json:"owner_field"`
	Fields     []string `yaml:"fields" json:"fields"`
}

func (d EntityDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("entity definition: name is required")
	}
	if !identifierPattern.MatchString(d.Table) {
		return fmt.Errorf("entity %q: invalid table name %q", d.Name, d.Table)
	}
	if !identifierPattern.MatchString(d.OwnerField) {
		return fmt.Errorf("entity %q: invalid owner field %q", d.Name, d.OwnerField)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("entity %q: at least one field is required", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		if f == "" || IsMetadataField(f) {
			return fmt.Errorf("entity %q: field %q is reserved or empty", d.Name, f)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("entity %q: duplicate field %q", d.Name, f)
		}
		seen[f] = struct{}{}
	}
	return nil
}

// Project keeps only the declared fields of data. The result is never nil.
func (d EntityDefinition) Project(data map[string]any) map[string]any {
	out := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		if v, ok := data[f]; ok {
			out[f] = v
		}
	}
	return out
}
