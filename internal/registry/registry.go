// Package registry maps entity-type names to their storage accessors. The
// table is built once at startup; lookups of unregistered names are
// configuration errors, not request errors.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/prudhvinik1/deltasync/internal/repositories"
	"github.com/prudhvinik1/deltasync/internal/syncerr"
)

var ErrUnknownEntityType = errors.New("unknown entity type")

// AccessorFactory builds the accessor for one definition, e.g. a Postgres
// or SQLite repository bound to the definition's table.
type AccessorFactory func(def models.EntityDefinition) repositories.EntityAccessor

type Registry struct {
	accessors map[string]repositories.EntityAccessor
}

func New() *Registry {
	return &Registry{accessors: make(map[string]repositories.EntityAccessor)}
}

// Build registers an accessor for every definition.
func Build(defs []models.EntityDefinition, factory AccessorFactory) (*Registry, error) {
	r := New()
	for _, def := range defs {
		if err := r.Register(factory(def)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(accessor repositories.EntityAccessor) error {
	def := accessor.Definition()
	if err := def.Validate(); err != nil {
		return syncerr.Configuration("registry.Register", err)
	}
	if _, exists := r.accessors[def.Name]; exists {
		return syncerr.Configuration("registry.Register", fmt.Errorf("entity type %q registered twice", def.Name))
	}
	r.accessors[def.Name] = accessor
	return nil
}

func (r *Registry) Accessor(entityType string) (repositories.EntityAccessor, error) {
	accessor, ok := r.accessors[entityType]
	if !ok {
		return nil, syncerr.Configuration("registry.Accessor", fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType))
	}
	return accessor, nil
}

// Verify checks that every registered accessor's table exists. A missing
// table is a configuration fault, reported before any request is served.
func (r *Registry) Verify(ctx context.Context) error {
	for _, name := range r.EntityTypes() {
		if err := r.accessors[name].CheckTable(ctx); err != nil {
			return syncerr.Configuration("registry.Verify", fmt.Errorf("entity type %q: %w", name, err))
		}
	}
	return nil
}

// EntityTypes returns the registered names, sorted.
func (r *Registry) EntityTypes() []string {
	names := make([]string, 0, len(r.accessors))
	for name := range r.accessors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
